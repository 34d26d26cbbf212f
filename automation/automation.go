// C:\Users\wasab\OneDrive\デスクトップ\DECOPRESS\automation\automation.go
package automation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"decopress/browser"
	"decopress/classify"
	"decopress/config"
	"decopress/model"
	"decopress/orders"
	"decopress/packingslip"
	"decopress/portal"
	"decopress/prefs"
	"decopress/prompt"
	"decopress/report"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrInvalidJobNumber = errors.New("invalid job number")

// Launcher はブラウザを起動し、操作するページと後始末の関数を返します。
type Launcher func(ctx context.Context, cfg config.Config, log *zap.Logger) (portal.Page, func() error, error)

// LaunchBrowser は go-rod でブラウザを起動する既定の Launcher です。
func LaunchBrowser(ctx context.Context, cfg config.Config, log *zap.Logger) (portal.Page, func() error, error) {
	b, err := browser.Launch(ctx, browser.Options{
		Headless: cfg.Headless,
		Bin:      cfg.BrowserBin,
		Timeout:  cfg.NavigationTimeout(),
		Logger:   log,
	})
	if err != nil {
		return nil, nil, err
	}
	return b.Page(), b.Close, nil
}

// Runner は日報・納品書の1回分の処理 (起動・ログイン・取得・出力) を実行します。
type Runner struct {
	// Settings が nil なら config.GetConfig を使います。
	Settings    func() config.Config
	Credentials *prefs.CredentialCache
	Recent      *prefs.RecentFiles
	Launch      Launcher
	// PDF が nil なら LibreOffice での変換を試みます。
	PDF    packingslip.PDFExporter
	Now    func() time.Time
	Logger *zap.Logger
}

// DailyResult は日報作成の結果です。
type DailyResult struct {
	RunID  string              `json:"runId"`
	Path   string              `json:"path"`
	Filter string              `json:"filter"`
	Orders []model.OrderRecord `json:"orders"`
}

// SlipResult は納品書作成の結果です。
type SlipResult struct {
	RunID string `json:"runId"`
	packingslip.Result
}

func (r *Runner) settings() config.Config {
	if r.Settings == nil {
		return config.GetConfig()
	}
	return r.Settings()
}

func (r *Runner) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}

func (r *Runner) now() time.Time {
	if r.Now == nil {
		return time.Now()
	}
	return r.Now()
}

// start はブラウザを起動してログインし、ジョブ一覧を表示した状態にします。
// 返した close は成功・失敗に関わらず呼び出す必要があります。
func (r *Runner) start(ctx context.Context, cfg config.Config, in prompt.Provider, log *zap.Logger) (portal.Page, func(), error) {
	launch := r.Launch
	if launch == nil {
		launch = LaunchBrowser
	}
	page, closeFn, err := launch(ctx, cfg, log)
	if err != nil {
		return nil, func() {}, fmt.Errorf("failed to start browser: %w", err)
	}
	closer := func() {
		if closeFn == nil {
			return
		}
		if err := closeFn(); err != nil {
			log.Warn("browser close failed", zap.Error(err))
		}
	}

	session := &portal.Session{
		Page:         page,
		Credentials:  r.Credentials,
		Input:        in,
		LoginURL:     cfg.LoginURL(),
		DashboardURL: cfg.DashboardURL(),
		Timeout:      cfg.NavigationTimeout(),
		Logger:       log,
	}
	if err := session.Login(ctx); err != nil {
		return page, closer, err
	}
	return page, closer, nil
}

// RunDailyReport は緊急ジョブを集めて日報を作成します。
func (r *Runner) RunDailyReport(ctx context.Context, in prompt.Provider) (DailyResult, error) {
	cfg := r.settings()
	res := DailyResult{RunID: uuid.NewString()}
	log := r.logger().With(zap.String("run_id", res.RunID), zap.String("operation", "daily"))
	log.Info("starting daily orders run")

	page, closer, err := r.start(ctx, cfg, in, log)
	defer closer()
	if err != nil {
		return res, err
	}

	nav := &portal.Navigator{Page: page, Logger: log}
	nav.EnsurePagedMode(ctx)

	outcome := (&portal.FilterApplier{
		Page:     page,
		Name:     cfg.FilterName,
		StableID: portal.PatchSupplyFilterID,
		Logger:   log,
	}).Apply(ctx)
	res.Filter = outcome.String()

	scraper := &orders.Scraper{
		Page:      page,
		Navigator: nav,
		Resolver:  &classify.DetailResolver{Page: page, JobURL: cfg.JobURL, Logger: log},
		ListURL:   cfg.DashboardURL(),
		MaxOrders: cfg.MaxOrders,
		MaxPages:  cfg.MaxPages,
		Timeout:   cfg.NavigationTimeout(),
		Logger:    log,
	}
	records, err := scraper.Scrape(ctx)
	if err != nil {
		return res, fmt.Errorf("scrape job list: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}
	res.Orders = records
	log.Info("urgent orders collected", zap.Int("orders", len(records)))

	writer := &report.DailyWriter{
		TemplatePath: cfg.DailyTemplatePath,
		OutputDir:    cfg.DownloadDir,
		DateCells:    cfg.DateCells,
		Now:          r.now,
		Logger:       log,
	}
	path, err := writer.Write(records)
	if err != nil {
		return res, err
	}
	res.Path = path
	r.remember(log, path)
	return res, nil
}

// RunPackingSlip は jobNumber の納品書を作成します。
func (r *Runner) RunPackingSlip(ctx context.Context, jobNumber string, in prompt.Provider) (SlipResult, error) {
	jobNumber = strings.TrimSpace(jobNumber)
	res := SlipResult{RunID: uuid.NewString()}
	if !classify.IsJobNumber(jobNumber) {
		return res, fmt.Errorf("%w: %q", ErrInvalidJobNumber, jobNumber)
	}
	cfg := r.settings()
	log := r.logger().With(zap.String("run_id", res.RunID), zap.String("operation", "packing_slip"), zap.String("job", jobNumber))
	log.Info("starting packing slip run")

	page, closer, err := r.start(ctx, cfg, in, log)
	defer closer()
	if err != nil {
		return res, err
	}

	nav := &portal.Navigator{Page: page, Logger: log}
	nav.EnsurePagedMode(ctx)

	pdf := r.PDF
	if pdf == nil {
		pdf = &packingslip.OfficeExporter{Logger: log}
	}
	asm := &packingslip.Assembler{
		Finder: &packingslip.Finder{
			Page:      page,
			Navigator: nav,
			MaxPages:  cfg.SlipSearchPages,
			Timeout:   cfg.NavigationTimeout(),
			Logger:    log,
		},
		JobURL: cfg.JobURL,
		Input:  in,
		Writer: &packingslip.SlipWriter{
			TemplatePath: cfg.PackingSlipTemplatePath,
			OutputDir:    cfg.DownloadDir,
			Now:          r.now,
			Logger:       log,
		},
		PDF:    pdf,
		Now:    r.now,
		Logger: log,
	}
	out, err := asm.Create(ctx, jobNumber)
	if err != nil {
		return res, err
	}
	res.Result = out
	r.remember(log, out.XLSXPath)
	r.remember(log, out.PDFPath)
	return res, nil
}

func (r *Runner) remember(log *zap.Logger, path string) {
	if r.Recent == nil || path == "" {
		return
	}
	if err := r.Recent.Add(path); err != nil {
		log.Warn("failed to update recent files", zap.String("path", path), zap.Error(err))
	}
}

// IsCancelled はユーザーによる取り消し (エラーではなく正常な中断) かを判定します。
// Ctrl+C などで ctx がキャンセルされた場合も含みます。
func IsCancelled(err error) bool {
	return errors.Is(err, portal.ErrLoginCancelled) ||
		errors.Is(err, packingslip.ErrCancelled) ||
		errors.Is(err, context.Canceled)
}
