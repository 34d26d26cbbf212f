// C:\Users\wasab\OneDrive\デスクトップ\DECOPRESS\orders\scraper.go
package orders

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"decopress/classify"
	"decopress/model"
	"decopress/portal"

	"go.uber.org/zap"
)

const (
	DefaultMaxOrders = 31
	DefaultMaxPages  = 3
	defaultTimeout   = 30 * time.Second
)

// Scraper はフィルタ済みのジョブ一覧から緊急ジョブを集めます。
type Scraper struct {
	Page      portal.Page
	Navigator *portal.Navigator
	// Resolver が nil の場合、HW コードは仮のまま残ります。
	Resolver  *classify.DetailResolver
	// ListURL は詳細ページから戻る先が分からない場合に使う一覧の URL です。
	ListURL   string
	MaxOrders int
	MaxPages  int
	Timeout   time.Duration
	Logger    *zap.Logger
}

func (s *Scraper) logger() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

func (s *Scraper) limits() (maxOrders, maxPages int, timeout time.Duration) {
	maxOrders, maxPages, timeout = s.MaxOrders, s.MaxPages, s.Timeout
	if maxOrders <= 0 {
		maxOrders = DefaultMaxOrders
	}
	if maxPages <= 0 {
		maxPages = DefaultMaxPages
	}
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return
}

// Scrape は一覧を最大 MaxPages ページ、最大 MaxOrders 件まで読み取り、
// HW ジョブを確定させた上で残り日数の昇順 (安定ソート) で返します。
func (s *Scraper) Scrape(ctx context.Context) ([]model.OrderRecord, error) {
	log := s.logger()
	maxOrders, maxPages, timeout := s.limits()

	if err := s.Page.WaitVisible(ctx, portal.SelListTable, timeout); err != nil {
		return nil, fmt.Errorf("job list table not visible: %w", err)
	}

	listURL := s.ListURL
	if u, err := s.Page.URL(ctx); err == nil && u != "" {
		listURL = u
	}

	nav := s.Navigator
	if nav == nil {
		nav = &portal.Navigator{Page: s.Page, Logger: log}
	}

	var records []model.OrderRecord
	for page := 1; page <= maxPages; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		log.Info("processing job list page", zap.Int("page", page))

		got, err := s.scrapePage(ctx, maxOrders-len(records))
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}
		records = append(records, got...)
		log.Info("page processed",
			zap.Int("page", page),
			zap.Int("found", len(got)),
			zap.Int("total", len(records)))

		if len(records) >= maxOrders {
			log.Info("reached order limit", zap.Int("max_orders", maxOrders))
			break
		}
		if page == maxPages {
			log.Info("reached page limit", zap.Int("max_pages", maxPages))
			break
		}
		if !nav.NextPage(ctx, page) {
			break
		}
	}

	if err := s.resolveDeferred(ctx, records, listURL); err != nil {
		return nil, fmt.Errorf("resolve HW jobs: %w", err)
	}

	slices.SortStableFunc(records, func(a, b model.OrderRecord) int {
		return cmp.Compare(a.DaysRemaining, b.DaysRemaining)
	})
	return records, nil
}

// scrapePage は表示中のページの行を最大 limit 件読み取ります。
func (s *Scraper) scrapePage(ctx context.Context, limit int) ([]model.OrderRecord, error) {
	log := s.logger()

	if err := s.Page.WaitIdle(ctx); err != nil {
		return nil, err
	}
	doc, err := portal.Snapshot(ctx, s.Page)
	if err != nil {
		return nil, err
	}

	rows := doc.Find(portal.SelListRows)
	log.Debug("found rows", zap.Int("rows", rows.Length()))

	var out []model.OrderRecord
	for i := 0; i < rows.Length(); i++ {
		if len(out) >= limit {
			break
		}
		rec, err := classify.ParseRow(rows.Eq(i))
		if err != nil {
			var skip *classify.SkipError
			if errors.As(err, &skip) {
				log.Debug("row skipped", zap.Int("row", i+1), zap.String("reason", skip.Reason))
			} else {
				log.Warn("error processing row", zap.Int("row", i+1), zap.Error(err))
			}
			continue
		}
		log.Debug("urgent job",
			zap.String("job", rec.JobNumber),
			zap.Int("days", rec.DaysRemaining),
			zap.Strings("codes", rec.ProcessCodes),
			zap.String("letter_code", string(rec.LetterCode)),
			zap.String("location", rec.Location))
		out = append(out, rec)
	}
	return out, nil
}

// resolveDeferred は HW を含むジョブを詳細ページで確定させます。
// キャンセルされた場合は途中の結果を捨ててエラーを返します。
func (s *Scraper) resolveDeferred(ctx context.Context, records []model.OrderRecord, listURL string) error {
	if s.Resolver == nil {
		return nil
	}
	log := s.logger()
	for i := range records {
		rec := &records[i]
		if !rec.LetterCode.Deferred() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		provisional := rec.LetterCode
		detail, err := s.Resolver.Resolve(ctx, rec.JobNumber, listURL)
		if err != nil {
			return fmt.Errorf("job %s: %w", rec.JobNumber, err)
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		rec.LetterCode = classify.ResolveDeferred(provisional, detail)
		log.Info("resolved HW job",
			zap.String("job", rec.JobNumber),
			zap.String("provisional", string(provisional)),
			zap.String("final", string(rec.LetterCode)))
	}
	return nil
}
