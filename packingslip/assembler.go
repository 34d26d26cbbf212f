// C:\Users\wasab\OneDrive\デスクトップ\DECOPRESS\packingslip\assembler.go
package packingslip

import (
	"context"
	"errors"
	"time"

	"decopress/model"
	"decopress/prompt"

	"go.uber.org/zap"
)

// Result は作成した納品書です。PDF は作れなかった場合は空です。
type Result struct {
	Job      model.SlipJob `json:"job"`
	XLSXPath string        `json:"xlsxPath"`
	PDFPath  string        `json:"pdfPath,omitempty"`
	// PDFError は PDF を作れなかった理由です (Excel のみで成功扱い)。
	PDFError string `json:"pdfError,omitempty"`
}

// Assembler はジョブ検索から納品書ファイルの作成までを行います。
// ログイン済みでジョブ一覧が表示されている状態から呼び出します。
type Assembler struct {
	Finder *Finder
	// JobURL はジョブ番号から詳細ページの URL を作ります。
	JobURL func(job string) string
	Input  prompt.Provider
	Writer *SlipWriter
	// PDF が nil なら PDF は作りません。
	PDF    PDFExporter
	Now    func() time.Time
	Logger *zap.Logger
}

func (a *Assembler) logger() *zap.Logger {
	if a.Logger == nil {
		return zap.NewNop()
	}
	return a.Logger
}

func (a *Assembler) now() time.Time {
	if a.Now == nil {
		return time.Now()
	}
	return a.Now()
}

// Create は jobNumber の納品書を作ります。
// ジョブが見つからなければ ErrJobNotFound を返し、詳細ページへの遷移もファイル作成も行いません。
func (a *Assembler) Create(ctx context.Context, jobNumber string) (Result, error) {
	log := a.logger().With(zap.String("job", jobNumber))

	listed, err := a.Finder.Find(ctx, jobNumber)
	if err != nil {
		return Result{}, err
	}

	job, err := ReadDetail(ctx, a.Finder.Page, a.JobURL(jobNumber), listed)
	if err != nil {
		return Result{}, err
	}
	log.Info("job details read",
		zap.String("company", job.Shipping.Company),
		zap.String("selected_contact", job.SelectedContact),
		zap.Int("assets", len(job.Assets)))

	facts, err := AskShipment(ctx, a.Input, job.Assets, a.now())
	if err != nil {
		return Result{}, err
	}
	job.Shipment = facts

	xlsx, err := a.Writer.Write(job)
	if err != nil {
		return Result{}, err
	}
	res := Result{Job: job, XLSXPath: xlsx}

	if a.PDF == nil {
		return res, nil
	}
	pdf, err := a.PDF.Export(ctx, xlsx)
	if err != nil {
		if !errors.Is(err, ErrPDFUnavailable) {
			err = errors.Join(ErrPDFUnavailable, err)
		}
		log.Warn("pdf export failed, excel only", zap.Error(err))
		res.PDFError = err.Error()
		return res, nil
	}
	res.PDFPath = pdf
	return res, nil
}
