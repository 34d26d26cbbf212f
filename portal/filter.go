// C:\Users\wasab\OneDrive\デスクトップ\DECOPRESS\portal\filter.go
package portal

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"go.uber.org/zap"
)

const (
	// PatchSupplyFilterID は「PATCH SUPPLY -PS - GAMMA」保存フィルタの固定ID です。
	PatchSupplyFilterID = "6699e45c-7880-4fb2-9c60-ac8a6ad19de1"

	SelActiveFilter = ".active-filter"

	filterGrace    = 2 * time.Second
	favoritesGrace = time.Second
)

// FilterOutcome はフィルタ適用の結果です。
type FilterOutcome struct {
	Applied  bool
	Strategy string
}

func (o FilterOutcome) String() string {
	if !o.Applied {
		return "not applied"
	}
	return "applied via " + o.Strategy
}

type filterStrategy struct {
	name string
	try  func(ctx context.Context) (bool, error)
}

// FilterApplier は保存済みフィルタを有効にします。
type FilterApplier struct {
	Page Page
	Name string
	// StableID が空なら ID による検索は行いません。
	StableID string
	Logger   *zap.Logger
}

func (f *FilterApplier) logger() *zap.Logger {
	if f.Logger == nil {
		return zap.NewNop()
	}
	return f.Logger
}

func (f *FilterApplier) strategies() []filterStrategy {
	quoted := regexp.QuoteMeta(f.Name)
	var list []filterStrategy
	if f.StableID != "" {
		list = append(list, filterStrategy{"stable-id", func(ctx context.Context) (bool, error) {
			return f.Page.Click(ctx, fmt.Sprintf(`label:has(input[data-id="%s"])`, f.StableID))
		}})
	}
	list = append(list,
		filterStrategy{"exact-text", func(ctx context.Context) (bool, error) {
			return f.Page.ClickText(ctx, "label", `^\s*`+quoted+`\s*$`)
		}},
		filterStrategy{"data-label", func(ctx context.Context) (bool, error) {
			return f.Page.Click(ctx, fmt.Sprintf(`label[data-label="%s"]`, f.Name))
		}},
		filterStrategy{"contains-text", func(ctx context.Context) (bool, error) {
			return f.Page.ClickText(ctx, "label", quoted)
		}},
		filterStrategy{"script", func(ctx context.Context) (bool, error) {
			return f.Page.Eval(ctx, filterScript(f.Name))
		}},
	)
	return list
}

// Apply は各方法を順に試し、クリック後に有効フィルタ表示が確認できた時点で終了します。
// 全て失敗しても致命的ではなく、フィルタ無しで続行できるよう結果だけを返します。
func (f *FilterApplier) Apply(ctx context.Context) FilterOutcome {
	log := f.logger().With(zap.String("filter", f.Name))
	log.Info("applying saved filter")

	// お気に入りの読み込み待ち
	if err := Pause(ctx, f.Page, favoritesGrace); err != nil {
		log.Warn("list page did not settle before filtering", zap.Error(err))
	}

	for _, s := range f.strategies() {
		if ctx.Err() != nil {
			break
		}
		clicked, err := s.try(ctx)
		if err != nil {
			log.Debug("filter strategy failed", zap.String("strategy", s.name), zap.Error(err))
			continue
		}
		if !clicked {
			log.Debug("filter element not found", zap.String("strategy", s.name))
			continue
		}
		if err := Pause(ctx, f.Page, filterGrace); err != nil {
			log.Warn("page did not settle after filter click", zap.String("strategy", s.name), zap.Error(err))
		}
		n, err := f.Page.Count(ctx, SelActiveFilter)
		if err == nil && n > 0 {
			log.Info("filter applied", zap.String("strategy", s.name), zap.Int("active_filters", n))
			return FilterOutcome{Applied: true, Strategy: s.name}
		}
		log.Info("filter click not confirmed (no active filters)", zap.String("strategy", s.name))
	}

	log.Warn("could not find or apply saved filter, continuing unfiltered")
	return FilterOutcome{}
}

func filterScript(name string) string {
	lit, _ := json.Marshal(name)
	return fmt.Sprintf(`() => {
	const name = %s;
	const label = Array.from(document.querySelectorAll('label')).find(el =>
		el.textContent.includes(name) || el.getAttribute('data-label') === name);
	if (label) {
		label.click();
		return true;
	}
	return false;
}`, lit)
}
