package models

import "time"

// Plan identifies an account's billing tier
type Plan string

const (
	PlanFree       Plan = "FREE"
	PlanPro        Plan = "PRO"
	PlanEnterprise Plan = "ENTERPRISE"
)

// IsValid reports whether p is one of the known billing tiers
func (p Plan) IsValid() bool {
	switch p {
	case PlanFree, PlanPro, PlanEnterprise:
		return true
	}
	return false
}

// Account represents a tenant/organization. AccountID is the externally
// shareable identifier; it is globally unique and never changes after creation.
type Account struct {
	ID               int64
	AccountID        string
	Name             string
	Plan             Plan
	BillingEmail     string
	StripeCustomerID string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}
