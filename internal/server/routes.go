package server

import (
	"net/http"

	"github.com/GodsB1025/trade-monitor/internal/handlers"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	apiHandler := handlers.NewAPIHandler(s.app.TargetStorage, s.app.ChangeStorage, s.app.Coordination, s.app.Logger)
	monitoringHandler := handlers.NewMonitoringHandler(s.app.Orchestrator, s.app.Logger)
	targetHandler := handlers.NewTargetHandler(s.app.TargetStorage, s.app.Logger)
	changesHandler := handlers.NewChangesHandler(s.app.ChangeStorage, s.app.Logger)

	// Monitoring trigger
	mux.HandleFunc("/api/monitoring/run", monitoringHandler.RunMonitoringHandler)

	// Watch target management
	mux.HandleFunc("/api/targets", targetHandler.CollectionHandler)
	mux.HandleFunc("/api/targets/", targetHandler.ItemHandler)

	// Change history
	mux.HandleFunc("/api/changes", changesHandler.ListHandler)

	// Service endpoints
	mux.HandleFunc("/api/health", apiHandler.HealthHandler)
	mux.HandleFunc("/api/version", apiHandler.VersionHandler)
	mux.HandleFunc("/api/status", apiHandler.StatusHandler)

	// Unknown API routes return JSON 404 instead of the default text response
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		handlers.WriteError(w, http.StatusNotFound, "not found")
	})

	return mux
}
