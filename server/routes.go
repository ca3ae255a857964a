package server

import "net/http"

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET /{$}", s.IndexHandler())

	// LOGIN & LOGOUT
	s.RegisterRouteHandler("GET "+RouteLoginLanding, ChainMiddleware(s.LoginLandingHandler(), s.PageMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAuthLogin, ChainMiddleware(s.AuthLoginHandler(), s.PageMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteCallback, ChainMiddleware(s.OAuthCallbackHandler(), s.PageMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteCallback, ChainMiddleware(s.OAuthCallbackHandler(), s.PageMiddleware()...)) // For form_post response mode
	s.RegisterRouteHandler("GET "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.PageMiddleware()...))

	// Guarded portal routes (require a valid token and a hydrated session)
	s.RegisterRouteHandler("GET "+RouteDashboard, ChainMiddleware(s.guard.Protect(s.DashboardHandler()), s.PageMiddleware()...))
	s.RegisterRouteHandler("GET "+RoutePolicies, ChainMiddleware(s.guard.Protect(s.PoliciesHandler()), s.PageMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteClaims, ChainMiddleware(s.guard.Protect(s.ClaimsHandler()), s.PageMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteProfile, ChainMiddleware(s.guard.Protect(s.ProfileHandler()), s.PageMiddleware()...))
	s.RegisterRouteHandler("GET "+RoutePurchase, ChainMiddleware(s.guard.Protect(s.PurchaseHandler()), s.PageMiddleware()...))

	// API routes
	s.RegisterRouteHandler("GET "+RouteAPIMe, ChainMiddleware(s.MeHandler(), s.APIMiddleware()...))
}

// IndexHandler bounces the root path into the guarded portal. An anonymous
// visitor ends up on the tenant login landing via the guard's redirect.
func (s *Server) IndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, RouteDashboard, http.StatusSeeOther)
	}
}
