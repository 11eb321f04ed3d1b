package routes

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/safesite/safesite-api/internal/authz"
	"github.com/safesite/safesite-api/internal/handlers"
	"github.com/safesite/safesite-api/internal/models"
)

// NewRouter sets up the API routes
func NewRouter(
	auth *handlers.AuthHandler,
	alert *handlers.AlertHandler,
	detection *handlers.DetectionHandler,
	notif *handlers.NotificationHandler,
	project *handlers.ProjectHandler,
	stats *handlers.StatsHandler,
	uploadDir string,
) *mux.Router {
	router := mux.NewRouter()

	// Health check route
	router.HandleFunc("/health", handlers.HealthCheck).Methods(http.MethodGet)

	// Public auth endpoints
	router.HandleFunc("/api/signup", auth.SignUp).Methods(http.MethodPost)
	router.HandleFunc("/api/login", auth.Login).Methods(http.MethodPost)

	// Camera workers push detections without a user session.
	router.HandleFunc("/api/detections", detection.Ingest).Methods(http.MethodPost)

	// Evidence images are served straight off the upload directory.
	router.PathPrefix("/images/").Handler(
		http.StripPrefix("/images/", http.FileServer(http.Dir(uploadDir))))

	api := router.PathPrefix("/api").Subrouter()
	api.Use(auth.JWTMiddleware)

	// Alerts
	api.HandleFunc("/alerts", alert.Search).Methods(http.MethodGet)
	api.Handle("/alerts",
		authz.RequireRole(models.RoleSupervisor)(http.HandlerFunc(alert.Create))).Methods(http.MethodPost)
	api.HandleFunc("/alerts/{alertID}", alert.Get).Methods(http.MethodGet)
	api.Handle("/alerts/{alertID}/review",
		authz.RequireRole(models.RoleManager)(http.HandlerFunc(alert.Review))).Methods(http.MethodPatch)
	api.Handle("/alerts/{alertID}",
		authz.RequireRole(models.RoleAdmin)(http.HandlerFunc(alert.Delete))).Methods(http.MethodDelete)

	// Projects and cameras
	api.HandleFunc("/projects", project.List).Methods(http.MethodGet)
	api.Handle("/projects",
		authz.RequireRole(models.RoleManager)(http.HandlerFunc(project.Create))).Methods(http.MethodPost)
	api.HandleFunc("/projects/{projectID}", project.Get).Methods(http.MethodGet)
	api.HandleFunc("/projects/{projectID}/cameras", project.ListCameras).Methods(http.MethodGet)
	api.Handle("/projects/{projectID}/cameras",
		authz.RequireRole(models.RoleManager)(http.HandlerFunc(project.CreateCamera))).Methods(http.MethodPost)
	api.HandleFunc("/projects/{projectID}/alerts/{alertID}", alert.GetByProject).Methods(http.MethodGet)

	// Notifications
	api.Handle("/notifications",
		authz.RequireRole(models.RoleAdmin)(http.HandlerFunc(notif.ListAll))).Methods(http.MethodGet)
	api.Handle("/notifications",
		authz.RequireRole(models.RoleAdmin)(http.HandlerFunc(notif.Create))).Methods(http.MethodPost)
	api.HandleFunc("/notifications/me", notif.ListMine).Methods(http.MethodGet)
	api.HandleFunc("/notifications/{notificationID}/read", notif.MarkRead).Methods(http.MethodPatch)
	api.HandleFunc("/notifications/read-all", notif.MarkAllRead).Methods(http.MethodPost)

	// Statistics
	api.HandleFunc("/stats/alerts", stats.Grouped).Methods(http.MethodGet)
	api.HandleFunc("/dashboard", stats.Dashboard).Methods(http.MethodGet)

	return router
}
