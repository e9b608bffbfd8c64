package routes

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/stanstork/agrotrack-api/internal/authz"
	"github.com/stanstork/agrotrack-api/internal/handlers"
)

// NewRouter sets up the API routes. Everything under /api requires a bearer token.
func NewRouter(jwtSecret string, fleet *handlers.FleetHandler, settings *handlers.SettingsHandler, checks *handlers.CheckHandler, reports *handlers.ReportHandler, notifications *handlers.NotificationHandler) *mux.Router {
	router := mux.NewRouter()

	// Health check route
	router.HandleFunc("/health", handlers.HealthCheck).Methods(http.MethodGet)

	api := router.PathPrefix("/api").Subrouter()
	api.Use(authz.JWTMiddleware(jwtSecret))

	api.HandleFunc("/machines", fleet.ListMachines).Methods(http.MethodGet)
	api.HandleFunc("/machines", fleet.CreateMachine).Methods(http.MethodPost)
	api.HandleFunc("/machines/{machineID}/meter", fleet.UpdateMeter).Methods(http.MethodPut)
	api.HandleFunc("/machines/{machineID}", fleet.DeleteMachine).Methods(http.MethodDelete)
	api.HandleFunc("/machines/{machineID}/maintenances", fleet.RecordMaintenance).Methods(http.MethodPost)
	api.HandleFunc("/machines/{machineID}/refuelings", fleet.RecordRefueling).Methods(http.MethodPost)
	api.HandleFunc("/maintenances/{maintenanceID}", fleet.DeleteMaintenance).Methods(http.MethodDelete)

	api.HandleFunc("/alerts", fleet.ListAlerts).Methods(http.MethodGet)
	api.HandleFunc("/tanks", fleet.ListTanks).Methods(http.MethodGet)
	api.HandleFunc("/tanks/{tankID}", fleet.UpsertTank).Methods(http.MethodPut)

	api.HandleFunc("/settings", settings.Get).Methods(http.MethodGet)
	api.HandleFunc("/settings/notification-emails", settings.SetNotificationEmails).Methods(http.MethodPut)

	api.HandleFunc("/lifecycle/foreground", checks.Foreground).Methods(http.MethodPost)
	api.HandleFunc("/lifecycle/background", checks.Background).Methods(http.MethodPost)
	api.HandleFunc("/checks/status", checks.Status).Methods(http.MethodGet)
	api.HandleFunc("/checks/force", checks.Force).Methods(http.MethodPost)

	api.HandleFunc("/reports/fleet", reports.FleetStats).Methods(http.MethodGet)
	api.HandleFunc("/notifications", notifications.List).Methods(http.MethodGet)

	return router
}
