// C:\Users\wasab\OneDrive\デスクトップ\DECOPRESS\packingslip\finder.go
package packingslip

import (
	"context"
	"errors"
	"fmt"
	"time"

	"decopress/classify"
	"decopress/model"
	"decopress/portal"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
)

var ErrJobNotFound = errors.New("job not found in job list")

const (
	DefaultSearchPages = 10
	searchTimeout      = 30 * time.Second
)

// Finder はジョブ一覧をページ送りしながらジョブ番号の完全一致で1件を探します。
type Finder struct {
	Page      portal.Page
	Navigator *portal.Navigator
	MaxPages  int
	Timeout   time.Duration
	Logger    *zap.Logger
}

func (f *Finder) logger() *zap.Logger {
	if f.Logger == nil {
		return zap.NewNop()
	}
	return f.Logger
}

// Find は見つからなければ ErrJobNotFound を返します。
func (f *Finder) Find(ctx context.Context, jobNumber string) (model.ListJob, error) {
	log := f.logger().With(zap.String("job", jobNumber))
	maxPages := f.MaxPages
	if maxPages <= 0 {
		maxPages = DefaultSearchPages
	}
	timeout := f.Timeout
	if timeout <= 0 {
		timeout = searchTimeout
	}
	nav := f.Navigator
	if nav == nil {
		nav = &portal.Navigator{Page: f.Page, Logger: f.Logger}
	}

	log.Info("searching job list")
	page := 1
	for ; page <= maxPages; page++ {
		if err := f.Page.WaitVisible(ctx, portal.SelListTable, timeout); err != nil {
			return model.ListJob{}, fmt.Errorf("job list table not visible: %w", err)
		}
		if err := f.Page.WaitIdle(ctx); err != nil {
			return model.ListJob{}, err
		}
		doc, err := portal.Snapshot(ctx, f.Page)
		if err != nil {
			return model.ListJob{}, err
		}
		if job, ok := findRow(doc, jobNumber); ok {
			log.Info("found job", zap.Int("page", page))
			return job, nil
		}
		if page == maxPages || !nav.NextPage(ctx, page) {
			break
		}
	}
	log.Warn("job not found", zap.Int("pages_searched", min(page, maxPages)))
	return model.ListJob{}, fmt.Errorf("%w: %s", ErrJobNotFound, jobNumber)
}

func findRow(doc *goquery.Document, jobNumber string) (model.ListJob, bool) {
	var job model.ListJob
	found := false
	doc.Find(portal.SelListRows).EachWithBreak(func(_ int, row *goquery.Selection) bool {
		if portal.Cell(row, 1) != jobNumber {
			return true
		}
		job = model.ListJob{
			JobNumber:   jobNumber,
			Customer:    portal.Cell(row, 2),
			Description: portal.Cell(row, 3),
			JobStatus:   classify.JobStatus(portal.Cell(row, 4)),
			OrderNumber: portal.Cell(row, 5),
			DateIn:      portal.Cell(row, 6),
			ShipDate:    portal.Cell(row, 7),
		}
		found = true
		return false
	})
	return job, found
}
