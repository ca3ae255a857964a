package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Auth Routes - Login & Logout
	RouteLoginLanding = "/personal/{realm}"
	RouteAuthLogin    = "/auth/login"
	RouteAuthLogout   = "/auth/logout"
	RouteCallback     = "/auth/callback"

	// Guarded Portal Routes
	RouteDashboard = "/dashboard"
	RoutePolicies  = "/policies"
	RouteClaims    = "/claims"
	RouteProfile   = "/profile"
	RoutePurchase  = "/purchase"

	// API Routes
	RouteAPIMe = "/api/me"
)
