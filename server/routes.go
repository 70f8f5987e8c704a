package server

import "net/http"

func (s *Server) initRoutes() {
	// LOGIN
	s.RegisterRouteHandler("GET "+RouteLogin, ChainMiddleware(s.LoginViewHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthLogin, ChainMiddleware(s.LoginSubmissionHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteAuthLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware()...))

	// Session routes (require a mounted device)
	s.RegisterRouteHandler("POST "+RouteSessionActivity, ChainMiddleware(s.ActivityHandler(), s.APIMiddleware(s.RequireDevice())...))
	s.RegisterRouteHandler("POST "+RouteSessionExtend, ChainMiddleware(s.ExtendSessionHandler(), s.APIMiddleware(s.RequireDevice())...))
	s.RegisterRouteHandler("POST "+RouteSessionVisibility, ChainMiddleware(s.VisibilityHandler(), s.APIMiddleware(s.RequireDevice())...))
	s.RegisterRouteHandler("GET "+RouteSessionStatus, ChainMiddleware(s.SessionStatusHandler(), s.APIMiddleware(s.RequireDevice())...))
	s.RegisterRouteHandler("GET "+RouteMe, ChainMiddleware(s.MeHandler(), s.APIMiddleware(s.RequireDevice())...))

	// Documents
	s.RegisterRouteHandler("GET "+RouteDocuments, ChainMiddleware(s.ListDocumentsHandler(), s.APIMiddleware(s.RequireDevice())...))
	s.RegisterRouteHandler("POST "+RouteDocuments, ChainMiddleware(s.CreateDocumentHandler(), s.APIMiddleware(s.RequireDevice())...))
	s.RegisterRouteHandler("GET "+RouteDocumentMonths, ChainMiddleware(s.DocumentMonthsHandler(), s.APIMiddleware(s.RequireDevice())...))
	s.RegisterRouteHandler("GET "+RouteDocumentsExport, ChainMiddleware(s.ExportDocumentsHandler(), s.APIMiddleware(s.RequireDevice())...))
	s.RegisterRouteHandler("GET "+RouteDocumentExport, ChainMiddleware(s.ExportDocumentHandler(), s.APIMiddleware(s.RequireDevice())...))

	// CORS preflight for every API route
	s.RegisterRouteHandler("OPTIONS /", ChainMiddleware(noContent, s.APIMiddleware()...))

	s.RegisterRouteHandler("GET "+RouteMetrics, s.metrics.Handler())
	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())
}

func noContent(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusNoContent)
}
