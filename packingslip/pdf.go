// C:\Users\wasab\OneDrive\デスクトップ\DECOPRESS\packingslip\pdf.go
package packingslip

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

var ErrPDFUnavailable = errors.New("pdf export not available")

// PDFExporter は Excel ファイルを PDF に変換します。
type PDFExporter interface {
	Export(ctx context.Context, xlsxPath string) (string, error)
}

// OfficeExporter は LibreOffice (soffice) のヘッドレス変換で PDF を作ります。
type OfficeExporter struct {
	// Bin が空なら PATH から soffice / libreoffice を探します。
	Bin    string
	Logger *zap.Logger
}

var officeBinaries = []string{"soffice", "libreoffice"}

func (o *OfficeExporter) binary() (string, error) {
	if o.Bin != "" {
		return exec.LookPath(o.Bin)
	}
	for _, name := range officeBinaries {
		if p, err := exec.LookPath(name); err == nil {
			return p, nil
		}
	}
	return "", exec.ErrNotFound
}

// Export は xlsxPath と同じフォルダに <name>.pdf を作ります。
func (o *OfficeExporter) Export(ctx context.Context, xlsxPath string) (string, error) {
	bin, err := o.binary()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrPDFUnavailable, err)
	}
	dir := filepath.Dir(xlsxPath)
	cmd := exec.CommandContext(ctx, bin, "--headless", "--convert-to", "pdf", "--outdir", dir, xlsxPath)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v: %s", ErrPDFUnavailable, filepath.Base(bin), err, strings.TrimSpace(string(out)))
	}

	pdf := strings.TrimSuffix(xlsxPath, filepath.Ext(xlsxPath)) + ".pdf"
	if _, err := os.Stat(pdf); err != nil {
		return "", fmt.Errorf("%w: converter produced no file: %v", ErrPDFUnavailable, err)
	}
	if o.Logger != nil {
		o.Logger.Info("pdf created", zap.String("path", pdf))
	}
	return pdf, nil
}
