package portal

// Repo defines the interface for portal data. The pages themselves are
// presentational; this boundary only serves them their data.
type Repo interface {
	// PoliciesByUser returns the user's policies
	PoliciesByUser(userID string) ([]*Policy, error)

	// ClaimsByUser returns the user's claims
	ClaimsByUser(userID string) ([]*Claim, error)

	// Quotes returns purchasable quotes for a realm
	Quotes(realm string) ([]*Quote, error)

	// Summary returns the dashboard aggregate for a user
	Summary(userID string) (*DashboardSummary, error)
}
