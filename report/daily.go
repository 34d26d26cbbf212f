// C:\Users\wasab\OneDrive\デスクトップ\DECOPRESS\report\daily.go
package report

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"decopress/model"
	"decopress/sheet"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

var (
	ErrNoOrders        = errors.New("no urgent orders to report")
	ErrTemplateMissing = errors.New("report template not found")
)

const (
	FirstDataRow = 5

	colJob      = "B"
	colShort    = "C"
	colCode     = "D"
	colLocation = "E"
	colQuantity = "F"
	colPatch    = "H"
	colDays     = "I"

	dateStampFormat = "01.02.06"
)

var DefaultDateCells = []string{"A3", "A2", "H3"}

// DailyFileName は日報の出力ファイル名です (例: 2024-10-01_DECOPRESS_DAILY.xlsx)。
func DailyFileName(t time.Time) string {
	return t.Format("2006-01-02") + "_DECOPRESS_DAILY.xlsx"
}

// DailyWriter は日報テンプレートに緊急ジョブを書き込みます。
type DailyWriter struct {
	TemplatePath string
	OutputDir    string
	// DateCells は日付を書き込む候補セル (先頭から順に結合されていないものを使う)。
	DateCells []string
	Now       func() time.Time
	Logger    *zap.Logger
}

func (d *DailyWriter) now() time.Time {
	if d.Now == nil {
		return time.Now()
	}
	return d.Now()
}

func (d *DailyWriter) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

// Write はテンプレートのコピーとして日報を保存し、そのパスを返します。
func (d *DailyWriter) Write(records []model.OrderRecord) (string, error) {
	log := d.logger()
	if len(records) == 0 {
		return "", ErrNoOrders
	}

	if _, err := os.Stat(d.TemplatePath); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrTemplateMissing, d.TemplatePath)
		}
		return "", fmt.Errorf("stat template: %w", err)
	}
	f, err := excelize.OpenFile(d.TemplatePath)
	if err != nil {
		return "", fmt.Errorf("open template %s: %w", d.TemplatePath, err)
	}
	defer f.Close()

	w, err := sheet.NewWriter(f, "")
	if err != nil {
		return "", err
	}
	log.Debug("merged regions in template", zap.Int("regions", len(w.Regions())))

	now := d.now()
	d.stampDate(w, now)

	row := FirstDataRow
	for _, rec := range records {
		if err := d.writeRow(w, row, rec); err != nil {
			log.Warn("error writing report row",
				zap.String("job", rec.JobNumber), zap.Int("row", row), zap.Error(err))
		}
		row++
	}

	if err := os.MkdirAll(d.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	out := filepath.Join(d.OutputDir, DailyFileName(now))
	if err := f.SaveAs(out); err != nil {
		return "", fmt.Errorf("save report: %w", err)
	}
	log.Info("daily report created", zap.String("path", out), zap.Int("orders", len(records)))
	return out, nil
}

// stampDate は候補セルのうち最初の結合されていないセルに日付を書きます。
// すべて結合されていれば日付は省略します。
func (d *DailyWriter) stampDate(w *sheet.Writer, now time.Time) {
	cells := d.DateCells
	if len(cells) == 0 {
		cells = DefaultDateCells
	}
	stamp := "Date: " + now.Format(dateStampFormat)
	for _, cell := range cells {
		ok, err := w.SetUnmerged(cell, stamp)
		if err != nil {
			d.logger().Warn("could not place date", zap.String("cell", cell), zap.Error(err))
			continue
		}
		if ok {
			d.logger().Debug("date placed", zap.String("cell", cell))
			return
		}
	}
	d.logger().Warn("could not place date in any cell, template may have unusual merged cells")
}

func (d *DailyWriter) writeRow(w *sheet.Writer, row int, rec model.OrderRecord) error {
	patch := "FALSE"
	if rec.HasPatchApply {
		patch = "TRUE"
	}
	values := []struct {
		col   string
		value any
	}{
		{colJob, rec.JobNumber},
		{colShort, rec.ShortDescription},
		{colCode, string(rec.LetterCode)},
		{colLocation, rec.Location},
		{colQuantity, rec.Quantity},
		{colPatch, patch},
		{colDays, rec.DaysRemaining},
	}

	var errs []error
	for _, v := range values {
		if v.col == colQuantity && rec.Quantity <= 0 {
			continue
		}
		cell := sheet.At(v.col, row)
		ok, err := w.SetUnmerged(cell, v.value)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", cell, err))
			continue
		}
		if !ok {
			d.logger().Debug("merged cell skipped", zap.String("cell", cell), zap.String("job", rec.JobNumber))
		}
	}
	return errors.Join(errs...)
}
