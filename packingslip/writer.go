// C:\Users\wasab\OneDrive\デスクトップ\DECOPRESS\packingslip\writer.go
package packingslip

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"decopress/model"
	"decopress/report"
	"decopress/sheet"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
)

// ErrTemplateMissing は report.ErrTemplateMissing と同じ値です。
var ErrTemplateMissing = report.ErrTemplateMissing

const (
	FirstAssetRow = 18
	MaxAssetRows  = 7

	cellToday     = "G2"
	cellPartial   = "G5"
	cellCompany   = "D6"
	cellAddress   = "D7"
	cellContact   = "D8"
	cellNotes     = "D9"
	cellShipDate  = "A12"
	cellOrder     = "B12"
	cellDesc      = "C12"
	cellRecipient = "D12"
	cellCommentLb = "A25"
	cellComment   = "B25"

	currentShipmentRow = 28
	grandTotalRow      = 30

	todayFormat = "01/02/2006"
)

// SlipFileName は納品書の Excel ファイル名です。
func SlipFileName(jobNumber string) string {
	return jobNumber + ".xlsx"
}

// SlipWriter は納品書テンプレートにジョブ情報を書き込みます。
type SlipWriter struct {
	TemplatePath string
	OutputDir    string
	Now          func() time.Time
	Logger       *zap.Logger
}

func (s *SlipWriter) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

// Write はテンプレートのコピーとして <job>.xlsx を保存し、そのパスを返します。
// 結合セルへの書き込みは範囲の左上セルに移します。
func (s *SlipWriter) Write(job model.SlipJob) (string, error) {
	if _, err := os.Stat(s.TemplatePath); err != nil {
		if os.IsNotExist(err) {
			return "", fmt.Errorf("%w: %s", ErrTemplateMissing, s.TemplatePath)
		}
		return "", fmt.Errorf("stat template: %w", err)
	}
	f, err := excelize.OpenFile(s.TemplatePath)
	if err != nil {
		return "", fmt.Errorf("open template %s: %w", s.TemplatePath, err)
	}
	defer f.Close()

	w, err := sheet.NewWriter(f, "")
	if err != nil {
		return "", err
	}

	now := time.Now()
	if s.Now != nil {
		now = s.Now()
	}
	if err := fill(w, job, now); err != nil {
		return "", err
	}
	if extra := len(job.Assets) - MaxAssetRows; extra > 0 {
		s.logger().Warn("packing slip has more assets than rows, extra assets not written",
			zap.String("job", job.JobNumber),
			zap.Int("assets", len(job.Assets)),
			zap.Int("written", MaxAssetRows),
			zap.Int("truncated", extra))
	}

	if err := os.MkdirAll(s.OutputDir, 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}
	out := filepath.Join(s.OutputDir, SlipFileName(job.JobNumber))
	if err := f.SaveAs(out); err != nil {
		return "", fmt.Errorf("save packing slip: %w", err)
	}
	s.logger().Info("packing slip created",
		zap.String("job", job.JobNumber),
		zap.String("path", out),
		zap.Int("assets", len(job.Assets)))
	return out, nil
}

type cellValue struct {
	cell  string
	value any
}

func fill(w *sheet.Writer, job model.SlipJob, now time.Time) error {
	recipient := job.SelectedContact
	if recipient == "" {
		recipient = job.Customer
	}
	company := job.Shipping.Company
	if company == "" {
		company = job.Customer
	}

	values := []cellValue{
		{cellToday, now.Format(todayFormat)},
		{cellCompany, company},
		{cellAddress, job.Shipping.Address},
		{cellContact, job.Shipping.Contact},
		{cellNotes, job.Shipping.Notes},
		{cellShipDate, job.Shipment.ShipDate},
		{cellOrder, job.OrderNumber},
		{cellDesc, job.Description},
		{cellRecipient, recipient},
	}
	if job.Shipment.Partial != "" {
		values = append(values, cellValue{cellPartial, "Partial Shipment: " + job.Shipment.Partial})
	}

	if len(job.Assets) == 0 {
		values = append(values,
			cellValue{sheet.At("A", FirstAssetRow), job.JobNumber},
			cellValue{sheet.At("B", FirstAssetRow), job.Description})
	}
	for i, a := range job.Assets {
		if i >= MaxAssetRows {
			break
		}
		row := FirstAssetRow + i
		values = append(values,
			cellValue{sheet.At("A", row), a.Tag},
			cellValue{sheet.At("B", row), a.Description},
			cellValue{sheet.At("E", row), a.Quantity})
	}

	for _, row := range []int{currentShipmentRow, grandTotalRow} {
		values = append(values,
			cellValue{sheet.At("E", row), job.Shipment.OrderQty},
			cellValue{sheet.At("G", row), job.Shipment.ShipQty},
			cellValue{sheet.At("H", row), job.Shipment.Boxes})
	}

	if job.Shipment.Comment != "" {
		values = append(values,
			cellValue{cellCommentLb, "Comments:"},
			cellValue{cellComment, job.Shipment.Comment})
	}

	for _, v := range values {
		if err := w.Set(v.cell, v.value); err != nil {
			return fmt.Errorf("write %s: %w", v.cell, err)
		}
	}
	return nil
}
