package domain

import "time"

// Reason tags a balance-changing operation.
type Reason string

const (
	ReasonDebitCreate        Reason = "debit:create"
	ReasonCreditInitial      Reason = "credit:initial"
	ReasonCreditReferral     Reason = "credit:referral"
	ReasonRefundCreateFailed Reason = "refund:create-failed"
	ReasonCreditAdmin        Reason = "credit:admin"
)

// Activity actions that are not ledger reasons.
const (
	ActionAccountCreated   = "account:created"
	ActionReferralRegister = "referral:register"
	ActionReferralCredited = "referral:credited"
	ActionArtifactCreate   = "artifact:create"
)

// ActivityLog is an append-only audit entry. AccountID is nil when the
// action was attempted before an account existed.
type ActivityLog struct {
	ID         int64     `json:"id"`
	AccountID  *int64    `json:"userId"`
	ExternalID int64     `json:"telegramId"`
	Action     string    `json:"action"`
	Details    string    `json:"details"`
	CreatedAt  time.Time `json:"createdAt"`
}
