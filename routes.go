// C:\Users\wasab\OneDrive\デスクトップ\DECOPRESS\routes.go
package main

import (
	"net/http"

	"decopress/automation"
	"decopress/prefs"
)

func SetupRoutes(mux *http.ServeMux, runner *automation.Runner, recent *prefs.RecentFiles, creds *prefs.CredentialCache) {

	mux.HandleFunc("/api/reports/daily", automation.DailyReportHandler(runner))
	mux.HandleFunc("/api/packing-slips", automation.PackingSlipHandler(runner))

	mux.HandleFunc("/api/recent-files", automation.RecentFilesHandler(recent))
	mux.HandleFunc("/api/credentials", automation.ClearCredentialsHandler(creds))

	mux.HandleFunc("/api/config", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			GetConfigHandler()(w, r)
		case http.MethodPost:
			SaveConfigHandler()(w, r)
		default:
			http.Error(w, "Method Not Allowed", http.StatusMethodNotAllowed)
		}
	})
}
