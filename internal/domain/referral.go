package domain

import "time"

type ReferralStatus string

const (
	ReferralStatusPending   ReferralStatus = "pending"
	ReferralStatusCompleted ReferralStatus = "completed"
)

// Referral links a referrer to the account it brought in. Credited flips
// false->true exactly once and gates the bonus payment.
type Referral struct {
	ID           int64          `json:"id"`
	ReferrerID   int64          `json:"referrerId"`
	ReferredID   int64          `json:"referredUserId"`
	ReferralCode string         `json:"referralCode"`
	Status       ReferralStatus `json:"status"`
	Credited     bool           `json:"credited"`
	CreatedAt    time.Time      `json:"createdAt"`
	CreditedAt   *time.Time     `json:"creditedAt,omitempty"`
}
