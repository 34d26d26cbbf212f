// C:\Users\wasab\OneDrive\デスクトップ\DECOPRESS\config_handler.go
package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"

	"decopress/config"

	"go.uber.org/zap"
)

// ヘルパー関数: エラーをJSONで返す
func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{"message": message})
}

// GetConfigHandler は保存されている設定を返します (環境変数の上書きは含めない)
func GetConfigHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cfg := config.StoredConfig()
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(cfg)
	}
}

// SaveConfigHandler は設定を保存します
func SaveConfigHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var newCfg config.Config
		if err := json.NewDecoder(r.Body).Decode(&newCfg); err != nil {
			writeJSONError(w, "Invalid request body.", http.StatusBadRequest)
			return
		}

		// 保存先フォルダ (無ければ出力時に作成)
		if err := validateFolderPath(newCfg.DownloadDir); err != nil {
			writeJSONError(w, err.Error(), http.StatusBadRequest)
			return
		}

		// テンプレート
		for _, p := range []string{newCfg.DailyTemplatePath, newCfg.PackingSlipTemplatePath} {
			if err := validateFilePath(p); err != nil {
				writeJSONError(w, err.Error(), http.StatusBadRequest)
				return
			}
		}

		if newCfg.MaxOrders < 0 || newCfg.MaxPages < 0 || newCfg.SlipSearchPages < 0 || newCfg.NavigationTimeoutSec < 0 {
			writeJSONError(w, "Limits and timeouts must not be negative.", http.StatusBadRequest)
			return
		}

		// 0 や空欄は config.SaveConfig で既定値になる

		if err := config.SaveConfig(newCfg); err != nil {
			logger.Error("error saving config", zap.Error(err))
			writeJSONError(w, "Failed to save settings.", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"message": "Settings saved."})
	}
}

// フォルダパスを検証するヘルパー関数
func validateFolderPath(path string) error {
	if path == "" {
		return nil
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		logger.Error("error checking folder path", zap.String("path", path), zap.Error(err))
		return errors.New("An error occurred while checking the folder path.")
	}
	if !info.IsDir() {
		return errors.New("The specified path is not a folder: " + path)
	}
	return nil
}

func validateFilePath(path string) error {
	if path == "" {
		return nil
	}

	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return errors.New("Template file not found: " + path)
		}
		logger.Error("error checking template path", zap.String("path", path), zap.Error(err))
		return errors.New("An error occurred while checking the template path.")
	}
	if info.IsDir() {
		return errors.New("The specified template path is a folder: " + path)
	}
	return nil
}
