// C:\Users\wasab\OneDrive\デスクトップ\DECOPRESS\config\config.go
package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/joho/godotenv"
)

const (
	DefaultPortalURL    = "https://intranet.decopress.com"
	DefaultFilterName   = "PATCH SUPPLY -PS - GAMMA"
	DefaultMaxOrders    = 31
	DefaultMaxPages     = 3
	DefaultSlipPages    = 10
	DefaultNavTimeout   = 30
	dailyTemplateName   = "DECOPRESS DAILY Template.xlsx"
	packingTemplateName = "PackingSlipTemplate.xlsx"
)

type Config struct {
	PortalURL               string   `json:"portalURL"`
	DownloadDir             string   `json:"downloadDir"`
	DailyTemplatePath       string   `json:"dailyTemplatePath"`
	PackingSlipTemplatePath string   `json:"packingSlipTemplatePath"`
	FilterName              string   `json:"filterName"`
	Headless                bool     `json:"headless"`
	BrowserBin              string   `json:"browserBin"`
	MaxOrders               int      `json:"maxOrders"`
	MaxPages                int      `json:"maxPages"`
	SlipSearchPages         int      `json:"slipSearchPages"`
	NavigationTimeoutSec    int      `json:"navigationTimeoutSec"`
	DateCells               []string `json:"dateCells"`
}

var (
	// stored はファイルの内容 (+既定値)、cfg はそれに環境変数を重ねた実行時の設定です。
	stored Config
	cfg    Config
	mu     sync.RWMutex

	configFilePath = filepath.Join(AppDataDir(), "config.json")
)

// AppDataDir はユーザーごとの設定フォルダ (~/.decopress) を返します。
func AppDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".decopress"
	}
	return filepath.Join(home, ".decopress")
}

// SetConfigPath は設定ファイルの場所を差し替えます (テスト・--config 用)。
func SetConfigPath(path string) {
	mu.Lock()
	defer mu.Unlock()
	configFilePath = path
}

func ConfigPath() string {
	mu.RLock()
	defer mu.RUnlock()
	return configFilePath
}

// Default はファイルが無い場合の既定値を返します。
func Default() Config {
	c := Config{}
	applyDefaults(&c)
	return c
}

func LoadConfig() (Config, error) {
	mu.Lock()
	defer mu.Unlock()

	var tempCfg Config
	file, err := os.ReadFile(configFilePath)
	if err != nil {
		if !os.IsNotExist(err) {
			return Config{}, err
		}
	} else if err := json.Unmarshal(file, &tempCfg); err != nil {
		return Config{}, err
	}
	applyDefaults(&tempCfg)
	stored = tempCfg
	cfg = withEnv(stored)

	return cfg, nil
}

// SaveConfig は newCfg をファイルに保存します。環境変数による上書きは保存しません。
func SaveConfig(newCfg Config) error {
	mu.Lock()
	defer mu.Unlock()

	applyDefaults(&newCfg)

	file, err := json.MarshalIndent(newCfg, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(configFilePath), 0755); err != nil {
		return err
	}
	if err := os.WriteFile(configFilePath, file, 0644); err != nil {
		return err
	}
	stored = newCfg
	cfg = withEnv(stored)
	return nil
}

// GetConfig は環境変数を反映した実行時の設定を返します。
func GetConfig() Config {
	mu.RLock()
	defer mu.RUnlock()
	return cfg
}

// StoredConfig は設定ファイルに保存されている内容を返します (設定画面用)。
func StoredConfig() Config {
	mu.RLock()
	defer mu.RUnlock()
	return stored
}

// NavigationTimeout はページ遷移・要素待ちのタイムアウトです。
func (c Config) NavigationTimeout() time.Duration {
	if c.NavigationTimeoutSec <= 0 {
		return DefaultNavTimeout * time.Second
	}
	return time.Duration(c.NavigationTimeoutSec) * time.Second
}

func (c Config) LoginURL() string {
	return c.PortalURL
}

func (c Config) DashboardURL() string {
	return c.PortalURL + "/JobStatusList/JobStatusList.aspx"
}

// JobURL はジョブ詳細ページのURLを返します。
func (c Config) JobURL(jobNumber string) string {
	return c.PortalURL + "/Jobs/job.aspx?ID=" + jobNumber
}

func applyDefaults(c *Config) {
	if c.PortalURL == "" {
		c.PortalURL = DefaultPortalURL
	}
	if c.DownloadDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			c.DownloadDir = filepath.Join(home, "Desktop", "Decopress_Downloads")
		} else {
			c.DownloadDir = "Decopress_Downloads"
		}
	}
	if c.DailyTemplatePath == "" {
		c.DailyTemplatePath = dailyTemplateName
	}
	if c.PackingSlipTemplatePath == "" {
		c.PackingSlipTemplatePath = packingTemplateName
	}
	if c.FilterName == "" {
		c.FilterName = DefaultFilterName
	}
	if c.MaxOrders == 0 {
		c.MaxOrders = DefaultMaxOrders
	}
	if c.MaxPages == 0 {
		c.MaxPages = DefaultMaxPages
	}
	if c.SlipSearchPages == 0 {
		c.SlipSearchPages = DefaultSlipPages
	}
	if c.NavigationTimeoutSec == 0 {
		c.NavigationTimeoutSec = DefaultNavTimeout
	}
	if len(c.DateCells) == 0 {
		c.DateCells = []string{"A3", "A2", "H3"}
	}
}

func withEnv(c Config) Config {
	c.DateCells = append([]string(nil), c.DateCells...)
	applyEnv(&c)
	return c
}

// applyEnv はカレントの .env と環境変数で設定を上書きします。
func applyEnv(c *Config) {
	// .env は任意
	_ = godotenv.Load()

	if v := os.Getenv("DECOPRESS_PORTAL_URL"); v != "" {
		c.PortalURL = v
	}
	if v := os.Getenv("DECOPRESS_DOWNLOAD_DIR"); v != "" {
		c.DownloadDir = v
	}
	if v := os.Getenv("DECOPRESS_BROWSER_BIN"); v != "" {
		c.BrowserBin = v
	}
	if v := os.Getenv("DECOPRESS_HEADLESS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Headless = b
		}
	}
}
