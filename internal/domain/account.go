package domain

import "time"

type Account struct {
	ID                    int64      `json:"id"`
	ExternalID            int64      `json:"telegramId"`
	Username              string     `json:"username"`
	FirstName             string     `json:"firstName"`
	LastName              string     `json:"lastName"`
	Balance               int64      `json:"credits"`
	ReferralCode          string     `json:"referralCode"`
	ReferredByID          *int64     `json:"referredByUserId,omitempty"`
	ReferralCreditsEarned int64      `json:"referralCreditsEarned"`
	CreatedAt             time.Time  `json:"createdAt"`
	UpdatedAt             time.Time  `json:"updatedAt"`
	LastActiveAt          *time.Time `json:"lastActivityAt,omitempty"`
}

// Profile holds the mutable display fields refreshed on every contact.
type Profile struct {
	Username  string
	FirstName string
	LastName  string
}

// DisplayName returns the best human-readable name for the account.
func (a *Account) DisplayName() string {
	switch {
	case a.FirstName != "":
		return a.FirstName
	case a.Username != "":
		return "@" + a.Username
	default:
		return "friend"
	}
}

type NewAccount struct {
	ExternalID   int64
	Profile      Profile
	Balance      int64
	ReferralCode string
}
