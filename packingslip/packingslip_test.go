package packingslip

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"decopress/model"
	"decopress/portal"
	"decopress/portal/portaltest"
	"decopress/prompt"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

const listURL = "https://portal.test/JobStatusList/JobStatusList.aspx"

var today = time.Date(2024, 10, 3, 8, 0, 0, 0, time.Local)

func jobURL(job string) string { return "https://portal.test/Jobs/job.aspx?ID=" + job }

const detailHTML = `<html><body>
<span class="js-order-number">SO-4411</span>
<div class="js-job-description">Team jackets back print</div>
<select id="customerUser">
 <option value="" hidden selected>Choose...</option>
 <option value="1">Pat Doe</option>
 <option value="2" selected>Jordan Smith</option>
</select>
<ul class="shipment-info">
 <li class="media"><div class="media-body">Acme Sports LLC
  <address class="mb-1">12 Main St<br>Springfield, IL 62701 Verified</address></div></li>
 <li class="media"><div class="media-body">Jordan Smith, (555) 123-4567, jordan@acme.test</div></li>
</ul>
<div class="shipment-notes">Leave at dock 3</div>
<table>
 <tr class="js-jobline-row"><td class="jobline-asset">JKT-100</td><td class="jobline-description">Jacket navy</td><td class="jobline-qty">24</td></tr>
 <tr class="js-jobline-row"><td class="jobline-asset">SETUP</td><td class="jobline-description">Setup fee</td><td class="jobline-qty">1</td></tr>
 <tr class="js-jobline-row"><td class="jobline-asset">JKT-100</td><td class="jobline-description">Duplicate</td><td class="jobline-qty">99</td></tr>
 <tr class="js-jobline-row"><td class="jobline-asset">CAP7</td><td class="jobline-description">Cap</td><td class="jobline-qty">12 ea</td></tr>
 <tr class="js-jobline-row"><td class="jobline-asset">12345</td><td class="jobline-description">Numbers only</td><td class="jobline-qty">3</td></tr>
</table></body></html>`

func listRow(job string) string {
	return fmt.Sprintf(`<tr><td>%s</td><td>Acme</td><td>Job %s</td><td>05 - Ready</td><td>SO-%s</td><td>09/30</td><td>10/04</td></tr>`, job, job, job)
}

func listPage(pageNo, pages int, jobs ...string) string {
	var b strings.Builder
	b.WriteString(`<html><body><table class="data-results"><tbody>`)
	for _, j := range jobs {
		b.WriteString(listRow(j))
	}
	b.WriteString(`</tbody></table><ul class="pagination">`)
	if pageNo < pages {
		fmt.Fprintf(&b, `<li data-lp="%d"><a class="page-link">%d</a></li>`, pageNo+1, pageNo+1)
	}
	b.WriteString(`</ul></body></html>`)
	return b.String()
}

func parse(t *testing.T, src string) *goquery.Selection {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(src))
	require.NoError(t, err)
	return doc.Selection
}

func TestParseDetail(t *testing.T) {
	listed := model.ListJob{JobNumber: "4411", Customer: "Acme", Description: "Job 4411", OrderNumber: "SO-1"}
	job := ParseDetail(parse(t, detailHTML), listed)

	assert.Equal(t, "4411", job.JobNumber)
	assert.Equal(t, "SO-4411", job.OrderNumber)
	assert.Equal(t, "Team jackets back print", job.Description)
	assert.Equal(t, "Jordan Smith", job.SelectedContact)
	assert.Equal(t, "Acme Sports LLC", job.Shipping.Company)
	assert.Equal(t, "12 Main St, Springfield, IL 62701", job.Shipping.Address)
	assert.Equal(t, "Jordan Smith, (555) 123-4567, jordan@acme.test", job.Shipping.Contact)
	assert.Equal(t, "Leave at dock 3", job.Shipping.Notes)

	assert.Equal(t, []model.AssetLine{
		{Tag: "JKT-100", Description: "Jacket navy", Quantity: 24},
		{Tag: "CAP7", Description: "Cap", Quantity: 12},
	}, job.Assets)
}

func TestParseDetailFallsBackToListValues(t *testing.T) {
	listed := model.ListJob{JobNumber: "7", Customer: "Acme", Description: "From list", OrderNumber: "SO-7"}
	job := ParseDetail(parse(t, `<html><body><p>nothing here</p></body></html>`), listed)
	assert.Equal(t, "From list", job.Description)
	assert.Equal(t, "SO-7", job.OrderNumber)
	assert.Empty(t, job.SelectedContact)
	assert.Empty(t, job.Shipping.Lines())
	assert.Empty(t, job.Assets)
}

func TestContactLineAndAssetTag(t *testing.T) {
	assert.Equal(t, "Pat Doe", ContactLine("Pat Doe, Account Manager"))
	assert.Equal(t, "Pat, (555) 000-1111, pat@x.io", ContactLine("Pat\nphone (555) 000-1111 mail pat@x.io"))
	assert.Equal(t, "", ContactLine("  "))

	assert.True(t, IsAssetTag("A1"))
	assert.False(t, IsAssetTag("ABC"))
	assert.False(t, IsAssetTag("123"))
	assert.False(t, IsAssetTag(""))
}

// cancelAt は指定キーでキャンセルし、それ以外は Answers に任せます。
type cancelAt struct {
	key  string
	next prompt.Answers
	seen []prompt.Request
}

func (c *cancelAt) Ask(ctx context.Context, req prompt.Request) (string, bool, error) {
	c.seen = append(c.seen, req)
	if req.Key == c.key {
		return "", false, nil
	}
	return c.next.Ask(ctx, req)
}

func TestAskShipmentWithAssets(t *testing.T) {
	in := &cancelAt{next: prompt.Answers{
		KeyPartial:  "yes",
		KeyPartOf:   "1 of 2",
		KeyOrderQty: "24",
		KeyShipQty:  " 12 ",
		KeyBoxes:    "two",
		KeyComment:  "Fragile",
	}}
	facts, err := AskShipment(context.Background(), in, []model.AssetLine{{Tag: "A1", Quantity: 24}}, today)
	require.NoError(t, err)

	assert.Equal(t, "10/03/2024", facts.ShipDate)
	assert.Equal(t, "1 of 2", facts.Partial)
	assert.Equal(t, "24", facts.OrderQty)
	assert.Equal(t, "12", facts.ShipQty)
	assert.Empty(t, facts.Boxes, "non-numeric answers are dropped")
	assert.Equal(t, "Fragile", facts.Comment)

	for _, req := range in.seen {
		if req.Key == KeyOrderQty || req.Key == KeyShipQty || req.Key == KeyBoxes {
			assert.Equal(t, "expected: 24", req.Hint)
		}
	}
}

func TestAskShipmentWithoutAssetsSkipsQuantities(t *testing.T) {
	in := &cancelAt{next: prompt.Answers{KeyShipDate: "10/10/2024"}}
	facts, err := AskShipment(context.Background(), in, nil, today)
	require.NoError(t, err)
	assert.Equal(t, "10/10/2024", facts.ShipDate)
	assert.Empty(t, facts.Partial)
	for _, req := range in.seen {
		assert.NotContains(t, []string{KeyOrderQty, KeyShipQty, KeyBoxes}, req.Key)
	}
}

func TestAskShipmentCancelledShipDate(t *testing.T) {
	in := &cancelAt{key: KeyShipDate}
	_, err := AskShipment(context.Background(), in, nil, today)
	assert.True(t, errors.Is(err, ErrCancelled))
	assert.Len(t, in.seen, 1)
}

func makeSlipTemplate(t *testing.T) string {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for _, m := range [][2]string{{"D6", "H6"}, {"D7", "H7"}, {"B18", "D18"}, {"A25", "A26"}, {"B25", "H26"}} {
		require.NoError(t, f.MergeCell("Sheet1", m[0], m[1]))
	}
	path := filepath.Join(t.TempDir(), "PackingSlipTemplate.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func readCell(t *testing.T, path, axis string) string {
	t.Helper()
	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	v, err := f.GetCellValue("Sheet1", axis)
	require.NoError(t, err)
	return v
}

func TestSlipWriterLayout(t *testing.T) {
	out := t.TempDir()
	core, logs := observer.New(zap.WarnLevel)
	w := &SlipWriter{TemplatePath: makeSlipTemplate(t), OutputDir: out, Now: func() time.Time { return today }, Logger: zap.New(core)}

	var assets []model.AssetLine
	for i := 1; i <= 9; i++ {
		assets = append(assets, model.AssetLine{Tag: fmt.Sprintf("A%d", i), Description: fmt.Sprintf("item %d", i), Quantity: i})
	}
	job := model.SlipJob{
		ListJob:  model.ListJob{JobNumber: "4411", Customer: "Acme", Description: "Jackets", OrderNumber: "SO-4411"},
		Shipping: model.ShippingBlock{Company: "Acme Sports", Address: "12 Main St", Contact: "Jordan", Notes: "dock 3"},
		Assets:   assets,
		Shipment: model.ShipmentFacts{ShipDate: "10/04/2024", OrderQty: "45", ShipQty: "40", Boxes: "3", Partial: "1 of 2"},
	}
	path, err := w.Write(job)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "4411.xlsx"), path)

	expect := map[string]string{
		"G2": "10/03/2024", "D6": "Acme Sports", "D7": "12 Main St", "D8": "Jordan", "D9": "dock 3",
		"A12": "10/04/2024", "B12": "SO-4411", "C12": "Jackets", "D12": "Acme",
		"G5": "Partial Shipment: 1 of 2",
		"A18": "A1", "B18": "item 1", "E18": "1",
		"A24": "A7", "E24": "7",
		"E28": "45", "G28": "40", "H28": "3", "E30": "45", "G30": "40", "H30": "3",
	}
	for cell, want := range expect {
		assert.Equal(t, want, readCell(t, path, cell), cell)
	}
	assert.Empty(t, readCell(t, path, "A25"), "only seven asset rows are written")
	assert.Empty(t, readCell(t, path, "B25"))

	truncated := logs.FilterMessageSnippet("extra assets not written").All()
	require.Len(t, truncated, 1)
	assert.Equal(t, int64(2), truncated[0].ContextMap()["truncated"])
	assert.Equal(t, "4411", truncated[0].ContextMap()["job"])
}

func TestSlipWriterWithoutAssets(t *testing.T) {
	w := &SlipWriter{TemplatePath: makeSlipTemplate(t), OutputDir: t.TempDir(), Now: func() time.Time { return today }}
	job := model.SlipJob{
		ListJob:         model.ListJob{JobNumber: "77", Customer: "Acme", Description: "Banners"},
		SelectedContact: "Jordan Smith",
		Shipment:        model.ShipmentFacts{Comment: "Call first"},
	}
	path, err := w.Write(job)
	require.NoError(t, err)
	assert.Equal(t, "77", readCell(t, path, "A18"))
	assert.Equal(t, "Banners", readCell(t, path, "B18"))
	assert.Equal(t, "Jordan Smith", readCell(t, path, "D12"))
	assert.Equal(t, "Acme", readCell(t, path, "D6"))
	assert.Empty(t, readCell(t, path, "G5"))
	assert.Equal(t, "Comments:", readCell(t, path, "A25"))
	assert.Equal(t, "Call first", readCell(t, path, "B25"))
}

func TestSlipWriterTemplateMissing(t *testing.T) {
	w := &SlipWriter{TemplatePath: filepath.Join(t.TempDir(), "nope.xlsx"), OutputDir: t.TempDir()}
	_, err := w.Write(model.SlipJob{ListJob: model.ListJob{JobNumber: "1"}})
	assert.True(t, errors.Is(err, ErrTemplateMissing))
}

type stubPDF struct {
	err   error
	calls int
}

func (s *stubPDF) Export(ctx context.Context, xlsx string) (string, error) {
	s.calls++
	if s.err != nil {
		return "", s.err
	}
	return strings.TrimSuffix(xlsx, ".xlsx") + ".pdf", nil
}

func newAssembler(t *testing.T, fp *portaltest.FakePage, out string, pdf PDFExporter, answers prompt.Answers) *Assembler {
	log := zaptest.NewLogger(t)
	return &Assembler{
		Finder: &Finder{Page: fp, Navigator: &portal.Navigator{Page: fp}, Logger: log},
		JobURL: jobURL,
		Input:  answers,
		Writer: &SlipWriter{TemplatePath: makeSlipTemplate(t), OutputDir: out, Now: func() time.Time { return today }},
		PDF:    pdf,
		Now:    func() time.Time { return today },
		Logger: log,
	}
}

func TestAssemblerJobNotFoundWritesNothing(t *testing.T) {
	var pages []string
	for p := 1; p <= 12; p++ {
		pages = append(pages, listPage(p, 12, fmt.Sprint(1000+p)))
	}
	fp := portaltest.NewFakePage()
	fp.SetListPages(listURL, pages...)
	require.NoError(t, fp.Navigate(context.Background(), listURL))

	out := t.TempDir()
	pdf := &stubPDF{}
	// 1011 は11ページ目にあるので検索範囲外
	_, err := newAssembler(t, fp, out, pdf, prompt.Answers{}).Create(context.Background(), "1011")
	require.True(t, errors.Is(err, ErrJobNotFound))

	assert.Equal(t, []string{listURL}, fp.Navigations, "no detail navigation")
	assert.Equal(t, 0, fp.ClickCount(portal.PageLinkSelector(11)))
	assert.Equal(t, 1, fp.ClickCount(portal.PageLinkSelector(10)))
	assert.Zero(t, pdf.calls)
	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAssemblerCreatesSlip(t *testing.T) {
	fp := portaltest.NewFakePage()
	fp.SetListPages(listURL, listPage(1, 2, "1", "2"), listPage(2, 2, "4411"))
	fp.Docs[jobURL("4411")] = detailHTML
	require.NoError(t, fp.Navigate(context.Background(), listURL))

	out := t.TempDir()
	pdf := &stubPDF{}
	res, err := newAssembler(t, fp, out, pdf, prompt.Answers{KeyOrderQty: "24", KeyShipQty: "24", KeyBoxes: "1"}).
		Create(context.Background(), "4411")
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(out, "4411.xlsx"), res.XLSXPath)
	assert.Equal(t, filepath.Join(out, "4411.pdf"), res.PDFPath)
	assert.Equal(t, "Ready", res.Job.JobStatus)
	assert.Equal(t, "10/03/2024", res.Job.Shipment.ShipDate)
	assert.Equal(t, "JKT-100", readCell(t, res.XLSXPath, "A18"))
	assert.Equal(t, "Jordan Smith", readCell(t, res.XLSXPath, "D12"))
	assert.Equal(t, "24", readCell(t, res.XLSXPath, "E28"))
}

func TestAssemblerPDFFailureDegradesToExcel(t *testing.T) {
	fp := portaltest.NewFakePage()
	fp.SetListPages(listURL, listPage(1, 1, "4411"))
	fp.Docs[jobURL("4411")] = detailHTML
	require.NoError(t, fp.Navigate(context.Background(), listURL))

	pdf := &stubPDF{err: errors.New("soffice crashed")}
	res, err := newAssembler(t, fp, t.TempDir(), pdf, prompt.Answers{}).Create(context.Background(), "4411")
	require.NoError(t, err)
	assert.FileExists(t, res.XLSXPath)
	assert.Empty(t, res.PDFPath)
	assert.Contains(t, res.PDFError, "soffice crashed")
}

func TestOfficeExporterUnavailable(t *testing.T) {
	o := &OfficeExporter{Bin: filepath.Join(t.TempDir(), "no-such-soffice")}
	_, err := o.Export(context.Background(), filepath.Join(t.TempDir(), "1.xlsx"))
	assert.True(t, errors.Is(err, ErrPDFUnavailable))
}
