// C:\Users\wasab\OneDrive\デスクトップ\DECOPRESS\automation\handler.go
package automation

import (
	"encoding/json"
	"errors"
	"net/http"

	"decopress/packingslip"
	"decopress/prefs"
	"decopress/prompt"
	"decopress/report"

	"go.uber.org/zap"
)

func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

// runRequest は HTTP 経由の実行要求です。answers は対話入力の代わりになります
// (username, password, remember_login, ship_date, order_qty など)。
type runRequest struct {
	JobNumber string            `json:"jobNumber"`
	Answers   map[string]string `json:"answers"`
}

func decodeRun(r *http.Request) (runRequest, error) {
	var req runRequest
	if r.Body == nil || r.ContentLength == 0 {
		return req, nil
	}
	err := json.NewDecoder(r.Body).Decode(&req)
	return req, err
}

// writeRunError は実行エラーを HTTP ステータスに対応付けて返します。
func writeRunError(w http.ResponseWriter, log *zap.Logger, err error) {
	switch {
	case IsCancelled(err):
		writeJSON(w, map[string]string{"status": "cancelled", "message": err.Error()})
	case errors.Is(err, report.ErrNoOrders):
		writeJSON(w, map[string]string{"status": "no_orders", "message": "No urgent orders found."})
	case errors.Is(err, ErrInvalidJobNumber):
		writeJSONError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, packingslip.ErrJobNotFound):
		writeJSONError(w, err.Error(), http.StatusNotFound)
	default:
		log.Error("automation run failed", zap.Error(err))
		writeJSONError(w, "Automation error: "+err.Error(), http.StatusInternalServerError)
	}
}

// DailyReportHandler は POST /api/reports/daily を処理します。
func DailyReportHandler(runner *Runner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeJSONError(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		req, err := decodeRun(r)
		if err != nil {
			writeJSONError(w, "Invalid request body.", http.StatusBadRequest)
			return
		}

		res, err := runner.RunDailyReport(r.Context(), prompt.Answers(req.Answers))
		if err != nil {
			writeRunError(w, runner.logger(), err)
			return
		}
		writeJSON(w, map[string]any{
			"status": "success",
			"result": res,
		})
	}
}

// PackingSlipHandler は POST /api/packing-slips を処理します。
func PackingSlipHandler(runner *Runner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeJSONError(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		req, err := decodeRun(r)
		if err != nil {
			writeJSONError(w, "Invalid request body.", http.StatusBadRequest)
			return
		}

		res, err := runner.RunPackingSlip(r.Context(), req.JobNumber, prompt.Answers(req.Answers))
		if err != nil {
			writeRunError(w, runner.logger(), err)
			return
		}
		writeJSON(w, map[string]any{
			"status": "success",
			"result": res,
		})
	}
}

// RecentFilesHandler は GET /api/recent-files を処理します。存在しないファイルは一覧から外します。
func RecentFilesHandler(recent *prefs.RecentFiles) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeJSONError(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		files, err := recent.Prune()
		if err != nil {
			writeJSONError(w, "Failed to read recent files: "+err.Error(), http.StatusInternalServerError)
			return
		}
		if files == nil {
			files = []string{}
		}
		writeJSON(w, map[string]any{"files": files})
	}
}

// ClearCredentialsHandler は DELETE /api/credentials を処理します。
func ClearCredentialsHandler(cache *prefs.CredentialCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete {
			writeJSONError(w, "Method Not Allowed", http.StatusMethodNotAllowed)
			return
		}
		if err := cache.Clear(); err != nil {
			writeJSONError(w, "Failed to clear credentials: "+err.Error(), http.StatusInternalServerError)
			return
		}
		writeJSON(w, map[string]string{"message": "Saved login credentials have been cleared."})
	}
}
