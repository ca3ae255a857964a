package portal

import "time"

// Policy is an insurance policy held by a portal user.
type Policy struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Product      string    `json:"product"`
	PolicyNumber string    `json:"policy_number"`
	Premium      float64   `json:"premium"`
	SumInsured   float64   `json:"sum_insured"`
	RenewalDate  time.Time `json:"renewal_date"`
	Status       string    `json:"status"`
}

// Claim is a claim filed against a policy.
type Claim struct {
	ID       string    `json:"id"`
	PolicyID string    `json:"policy_id"`
	UserID   string    `json:"user_id"`
	Amount   float64   `json:"amount"`
	Status   string    `json:"status"`
	FiledAt  time.Time `json:"filed_at"`
	Reason   string    `json:"reason"`
}

// Quote is a purchase-flow quote for a new product.
type Quote struct {
	ID      string  `json:"id"`
	Product string  `json:"product"`
	Premium float64 `json:"premium"`
	Term    string  `json:"term"`
}

// DashboardSummary aggregates the widgets shown on the landing page.
type DashboardSummary struct {
	ActivePolicies int     `json:"active_policies"`
	OpenClaims     int     `json:"open_claims"`
	TotalPremium   float64 `json:"total_premium"`
	NextRenewal    string  `json:"next_renewal,omitempty"`
}
