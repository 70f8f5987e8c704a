package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Auth Routes - Login & Logout
	RouteLogin      = "/login"
	RouteAuthLogin  = "/auth/login"
	RouteAuthLogout = "/auth/logout"

	// Session Routes
	RouteSessionActivity   = "/api/session/activity"
	RouteSessionExtend     = "/api/session/extend"
	RouteSessionVisibility = "/api/session/visibility"
	RouteSessionStatus     = "/api/session/status"
	RouteMe                = "/api/me"

	// Document Routes
	RouteDocuments       = "/api/documents"
	RouteDocumentMonths  = "/api/documents/months"
	RouteDocumentsExport = "/api/documents/export.csv"
	RouteDocumentExport  = "/api/documents/{id}/export.csv"

	// Operational Routes
	RouteMetrics = "/metrics"
	RouteHealth  = "/healthz"
)
