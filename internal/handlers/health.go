package handlers

import "net/http"

const serviceName = "safesite-api"

// HealthCheck reports liveness for probes and uptime checks.
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"service": serviceName,
	})
}
