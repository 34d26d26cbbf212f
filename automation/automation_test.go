package automation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"decopress/config"
	"decopress/packingslip"
	"decopress/portal"
	"decopress/portal/portaltest"
	"decopress/prefs"
	"decopress/prompt"
	"decopress/report"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
)

const portalURL = "https://portal.test"

var fixedNow = time.Date(2024, 10, 3, 9, 0, 0, 0, time.Local)

type listRow struct {
	job   string
	days  int
	codes string
}

func listPage(pageNo, pages int, rows ...listRow) string {
	var b strings.Builder
	b.WriteString(`<html><body>
<div class="favorites"><label data-label="PATCH SUPPLY -PS - GAMMA"><input data-id="` + portal.PatchSupplyFilterID + `">PATCH SUPPLY -PS - GAMMA</label></div>
<table class="data-results"><tbody>`)
	for _, r := range rows {
		var badges strings.Builder
		for _, c := range strings.Fields(r.codes) {
			fmt.Fprintf(&badges, `<span class="ew-badge"><span class="process-code-badge">%s</span><span class="process-qty">10</span></span>`, c)
		}
		fmt.Fprintf(&b, `<tr><td>%s</td><td>Customer</td><td>Description for %s</td><td>01 - New</td><td>PO</td><td>10/01</td><td>10/05</td>
<td><span class="js-days-to-due-date">%d</span><div class="ew-badge-container process-codes">%s</div></td></tr>`,
			r.job, r.job, r.days, badges.String())
	}
	b.WriteString(`</tbody></table><ul class="pagination">`)
	if pageNo < pages {
		fmt.Fprintf(&b, `<li data-lp="%d"><a class="page-link">%d</a></li>`, pageNo+1, pageNo+1)
	}
	b.WriteString(`</ul></body></html>`)
	return b.String()
}

const loginHTML = `<html><body><input id="txt_Username"><input id="txt_Password"><button id="btn_Login">Login</button></body></html>`

type fixture struct {
	cfg     config.Config
	page    *portaltest.FakePage
	recent  *prefs.RecentFiles
	creds   *prefs.CredentialCache
	closed  int
	runner  *Runner
	outDir  string
	appData string
}

func newFixture(t *testing.T, log *zap.Logger) *fixture {
	t.Helper()
	dir := t.TempDir()
	f := &fixture{outDir: filepath.Join(dir, "out"), appData: dir}
	f.cfg = config.Default()
	f.cfg.PortalURL = portalURL
	f.cfg.DownloadDir = f.outDir
	f.cfg.DailyTemplatePath = writeTemplate(t, dir, "daily.xlsx", [2]string{"B9", "I9"})
	f.cfg.PackingSlipTemplatePath = writeTemplate(t, dir, "slip.xlsx", [2]string{"D6", "H6"})

	f.page = portaltest.NewFakePage()
	f.page.Docs[f.cfg.LoginURL()] = loginHTML
	f.page.OnClick("#btn_Login", func(p *portaltest.FakePage) {
		p.Current = `<html><body><div id="jobStatusListResults"></div></body></html>`
	})

	f.recent = prefs.NewRecentFiles(filepath.Join(dir, "recent_files.json"))
	f.creds = prefs.NewCredentialCache(prefs.NewFileStore(filepath.Join(dir, "credentials.json")))
	f.runner = &Runner{
		Settings:    func() config.Config { return f.cfg },
		Credentials: f.creds,
		Recent:      f.recent,
		Launch: func(ctx context.Context, cfg config.Config, log *zap.Logger) (portal.Page, func() error, error) {
			return f.page, func() error { f.closed++; return nil }, nil
		},
		PDF:    noPDF{},
		Now:    func() time.Time { return fixedNow },
		Logger: log,
	}
	return f
}

type noPDF struct{}

func (noPDF) Export(ctx context.Context, xlsx string) (string, error) {
	return "", packingslip.ErrPDFUnavailable
}

func writeTemplate(t *testing.T, dir, name string, merges ...[2]string) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for _, m := range merges {
		require.NoError(t, f.MergeCell("Sheet1", m[0], m[1]))
	}
	path := filepath.Join(dir, name)
	require.NoError(t, f.SaveAs(path))
	return path
}

func cellValue(t *testing.T, path, axis string) string {
	t.Helper()
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	v, err := f.GetCellValue("Sheet1", axis)
	require.NoError(t, err)
	return v
}

var login = prompt.Answers{"username": "ops", "password": "secret", "remember_login": "no"}

func TestRunDailyReportEndToEnd(t *testing.T) {
	f := newFixture(t, zaptest.NewLogger(t))
	f.page.SetListPages(f.cfg.DashboardURL(),
		listPage(1, 2,
			listRow{"501", 4, "AP"},
			listRow{"502", 7, "AP"},
			listRow{"503", 1, "EM"},
		),
		listPage(2, 2,
			listRow{"601", 0, "DS"},
			listRow{"602", 3, "AP EM"},
			listRow{"603", 2, "EM PA"},
		),
	)

	res, err := f.runner.RunDailyReport(context.Background(), login)
	require.NoError(t, err)

	assert.NotEmpty(t, res.RunID)
	assert.Equal(t, "not applied", res.Filter)
	require.Len(t, res.Orders, 5)
	var days []int
	for _, o := range res.Orders {
		days = append(days, o.DaysRemaining)
	}
	assert.Equal(t, []int{0, 1, 2, 3, 4}, days)
	assert.Equal(t, filepath.Join(f.outDir, "2024-10-03_DECOPRESS_DAILY.xlsx"), res.Path)

	assert.Equal(t, "601", cellValue(t, res.Path, "B5"))
	assert.Equal(t, "ETCH", cellValue(t, res.Path, "D5"))
	assert.Equal(t, "503", cellValue(t, res.Path, "B6"))
	assert.Equal(t, "603", cellValue(t, res.Path, "B7"))
	assert.Equal(t, "TRUE", cellValue(t, res.Path, "H7"))
	assert.Equal(t, "602", cellValue(t, res.Path, "B8"))
	assert.Equal(t, "SUB/EMB", cellValue(t, res.Path, "D8"))
	// 5件目は結合された9行目に当たるため書き込まれない
	assert.Empty(t, cellValue(t, res.Path, "B9"))
	assert.Empty(t, cellValue(t, res.Path, "B10"))
	assert.Equal(t, "Date: 10.03.24", cellValue(t, res.Path, "A3"))

	assert.Equal(t, 1, f.closed)
	files, err := f.recent.List()
	require.NoError(t, err)
	assert.Equal(t, []string{res.Path}, files)

	_, saved, err := f.creds.Load()
	require.NoError(t, err)
	assert.False(t, saved)
}

func TestRunDailyReportNoOrdersClosesBrowser(t *testing.T) {
	f := newFixture(t, zaptest.NewLogger(t))
	f.page.SetListPages(f.cfg.DashboardURL(), listPage(1, 1, listRow{"1", 9, "AP"}))

	_, err := f.runner.RunDailyReport(context.Background(), login)
	assert.True(t, errors.Is(err, report.ErrNoOrders))
	assert.Equal(t, 1, f.closed)
	_, statErr := os.Stat(f.outDir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunDailyReportCancelledDuringHWLookupWritesNothing(t *testing.T) {
	f := newFixture(t, zaptest.NewLogger(t))
	f.page.SetListPages(f.cfg.DashboardURL(), listPage(1, 1,
		listRow{"701", 1, "EM HW"},
		listRow{"702", 2, "DS HW"},
	))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	f.page.BeforeNavigate = func(_ *portaltest.FakePage, url string) {
		if url == f.cfg.JobURL("701") {
			cancel()
		}
	}

	_, err := f.runner.RunDailyReport(ctx, login)
	require.ErrorIs(t, err, context.Canceled)
	assert.True(t, IsCancelled(err))
	assert.Equal(t, 1, f.closed)
	_, statErr := os.Stat(f.outDir)
	assert.True(t, os.IsNotExist(statErr))
	files, err := f.recent.List()
	require.NoError(t, err)
	assert.Empty(t, files)
}

func TestRunDailyReportLoginCancelled(t *testing.T) {
	f := newFixture(t, zaptest.NewLogger(t))
	_, err := f.runner.RunDailyReport(context.Background(), prompt.Answers{})
	assert.True(t, IsCancelled(err))
	assert.Equal(t, 1, f.closed)
}

func TestRunPackingSlipNotFound(t *testing.T) {
	f := newFixture(t, zaptest.NewLogger(t))
	var pages []string
	for p := 1; p <= 11; p++ {
		pages = append(pages, listPage(p, 11, listRow{fmt.Sprint(900 + p), 1, "AP"}))
	}
	f.page.SetListPages(f.cfg.DashboardURL(), pages...)

	_, err := f.runner.RunPackingSlip(context.Background(), "911", login)
	require.True(t, errors.Is(err, packingslip.ErrJobNotFound))
	assert.NotContains(t, f.page.Navigations, f.cfg.JobURL("911"))
	assert.Equal(t, 1, f.closed)
	_, statErr := os.Stat(f.outDir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRunPackingSlipRejectsBadJobNumber(t *testing.T) {
	f := newFixture(t, zaptest.NewLogger(t))
	_, err := f.runner.RunPackingSlip(context.Background(), "12-A", login)
	assert.True(t, errors.Is(err, ErrInvalidJobNumber))
	assert.Zero(t, f.closed, "browser is never started")
}

func TestRunPackingSlipCreatesExcelWithoutPDF(t *testing.T) {
	f := newFixture(t, zaptest.NewLogger(t))
	f.page.SetListPages(f.cfg.DashboardURL(), listPage(1, 1, listRow{"4411", 2, "AP"}))
	f.page.Docs[f.cfg.JobURL("4411")] = `<html><body><ul class="shipment-info">
<li class="media"><div class="media-body">Acme Sports</div></li></ul></body></html>`

	answers := prompt.Answers{"username": "ops", "password": "secret", packingslip.KeyComment: "Rush"}
	res, err := f.runner.RunPackingSlip(context.Background(), "4411", answers)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(f.outDir, "4411.xlsx"), res.XLSXPath)
	assert.Empty(t, res.PDFPath)
	assert.NotEmpty(t, res.PDFError)
	assert.Equal(t, "Acme Sports", cellValue(t, res.XLSXPath, "D6"))
	assert.Equal(t, "4411", cellValue(t, res.XLSXPath, "A18"))
	assert.Equal(t, "Rush", cellValue(t, res.XLSXPath, "B25"))
	assert.Equal(t, 1, f.closed)

	files, err := f.recent.List()
	require.NoError(t, err)
	assert.Equal(t, []string{res.XLSXPath}, files)
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestDailyReportHandler(t *testing.T) {
	f := newFixture(t, zaptest.NewLogger(t))
	f.page.SetListPages(f.cfg.DashboardURL(), listPage(1, 1, listRow{"77", 1, "EM"}))

	body, _ := json.Marshal(map[string]any{"answers": map[string]string(login)})
	rec := httptest.NewRecorder()
	DailyReportHandler(f.runner)(rec, httptest.NewRequest(http.MethodPost, "/api/reports/daily", bytes.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeBody(t, rec)
	assert.Equal(t, "success", resp["status"])
	result := resp["result"].(map[string]any)
	assert.Equal(t, filepath.Join(f.outDir, "2024-10-03_DECOPRESS_DAILY.xlsx"), result["path"])

	rec = httptest.NewRecorder()
	DailyReportHandler(f.runner)(rec, httptest.NewRequest(http.MethodGet, "/api/reports/daily", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestPackingSlipHandlerStatuses(t *testing.T) {
	f := newFixture(t, zaptest.NewLogger(t))
	f.page.SetListPages(f.cfg.DashboardURL(), listPage(1, 1, listRow{"1", 1, "AP"}))

	post := func(payload string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		PackingSlipHandler(f.runner)(rec, httptest.NewRequest(http.MethodPost, "/api/packing-slips", strings.NewReader(payload)))
		return rec
	}

	rec := post(`{"jobNumber":"abc"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post(`{"jobNumber":"2","answers":{"username":"u","password":"p"}}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = post(`{"jobNumber":"2"}`)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "cancelled", decodeBody(t, rec)["status"])

	rec = post(`not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecentAndCredentialHandlers(t *testing.T) {
	f := newFixture(t, zaptest.NewLogger(t))
	existing := filepath.Join(f.appData, "kept.xlsx")
	require.NoError(t, os.WriteFile(existing, []byte("x"), 0644))
	require.NoError(t, f.recent.Add(filepath.Join(f.appData, "gone.xlsx")))
	require.NoError(t, f.recent.Add(existing))
	require.NoError(t, f.creds.Save(prefs.Credentials{Username: "u", Password: "p"}))

	rec := httptest.NewRecorder()
	RecentFilesHandler(f.recent)(rec, httptest.NewRequest(http.MethodGet, "/api/recent-files", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []any{existing}, decodeBody(t, rec)["files"])

	rec = httptest.NewRecorder()
	ClearCredentialsHandler(f.creds)(rec, httptest.NewRequest(http.MethodDelete, "/api/credentials", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	_, ok, err := f.creds.Load()
	require.NoError(t, err)
	assert.False(t, ok)

	rec = httptest.NewRecorder()
	ClearCredentialsHandler(f.creds)(rec, httptest.NewRequest(http.MethodPost, "/api/credentials", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestIsCancelled(t *testing.T) {
	assert.True(t, IsCancelled(fmt.Errorf("wrap: %w", portal.ErrLoginCancelled)))
	assert.True(t, IsCancelled(packingslip.ErrCancelled))
	assert.True(t, IsCancelled(fmt.Errorf("scrape job list: %w", context.Canceled)))
	assert.False(t, IsCancelled(errors.New("boom")))
	assert.False(t, IsCancelled(nil))
}
