// C:\Users\wasab\OneDrive\デスクトップ\DECOPRESS\portal\navigator.go
package portal

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	SelListRows = "table.data-results tbody tr"

	selListSettings  = `a[data-event="cw:list-settings"]`
	selPagedRadio    = `input[name="list-mode"][value="PAGED"]`
	selInfiniteRadio = `input[name="list-mode"][value="INFINITE"]`
	selPagedLabel    = `label:has(input[name="list-mode"][value="PAGED"])`
	selClosePopup    = ".js-close-popup"

	// ページ切替後の固定待ち時間
	PageTurnDelay = 2 * time.Second
	reloadGrace   = 2 * time.Second
	panelDelay    = time.Second
	closeDelay    = 500 * time.Millisecond
)

// Navigator はジョブ一覧の表示モードとページ送りを扱います。
type Navigator struct {
	Page   Page
	Logger *zap.Logger
}

func (n *Navigator) logger() *zap.Logger {
	if n.Logger == nil {
		return zap.NewNop()
	}
	return n.Logger
}

// EnsurePagedMode は一覧が無限スクロールではなくページ表示であることを保証します。
// セレクタが見つからない等の失敗はすべて握りつぶし、ページ表示とみなして続行します。
func (n *Navigator) EnsurePagedMode(ctx context.Context) {
	log := n.logger()
	opened := false

	defer func() {
		// 開いたパネルは閉じておく
		if ok, err := n.Page.Click(ctx, selClosePopup); err == nil && ok {
			_ = n.Page.Sleep(ctx, closeDelay)
		}
	}()

	doc, err := Snapshot(ctx, n.Page)
	if err != nil {
		log.Warn("could not read list page, assuming paged mode", zap.Error(err))
		return
	}
	settings := doc.Find(selListSettings).First()
	if settings.Length() == 0 {
		log.Info("list settings button not found, assuming paged mode")
		return
	}
	if expanded, _ := settings.Attr("aria-expanded"); expanded != "true" {
		if ok, err := n.Page.Click(ctx, selListSettings); err != nil || !ok {
			log.Warn("could not open list settings, assuming paged mode", zap.Error(err))
			return
		}
		opened = true
		_ = n.Page.Sleep(ctx, panelDelay)
		if doc, err = Snapshot(ctx, n.Page); err != nil {
			log.Warn("could not read list settings, assuming paged mode", zap.Error(err))
			return
		}
	}

	paged := doc.Find(selPagedRadio).First()
	infinite := doc.Find(selInfiniteRadio).First()
	if paged.Length() == 0 || infinite.Length() == 0 {
		log.Info("list mode radios not found, assuming paged mode", zap.Bool("panel_opened", opened))
		return
	}
	if _, checked := paged.Attr("checked"); checked {
		log.Debug("paged mode already active")
		return
	}

	log.Info("infinite scroll is active, switching to paged mode")
	ok, err := n.Page.Click(ctx, selPagedLabel)
	if err != nil || !ok {
		log.Warn("paged mode option not clickable, continuing with current mode", zap.Error(err))
		return
	}
	if err := Pause(ctx, n.Page, reloadGrace); err != nil {
		log.Warn("list reload did not settle", zap.Error(err))
	}
}

// NextPage は current+1 ページ目へ移動します。リンクが無い・クリック失敗は false (これ以上ページなし)。
func (n *Navigator) NextPage(ctx context.Context, current int) bool {
	sel := PageLinkSelector(current + 1)
	ok, err := n.Page.Click(ctx, sel)
	if err != nil {
		n.logger().Warn("error navigating to next page", zap.Int("page", current+1), zap.Error(err))
		return false
	}
	if !ok {
		n.logger().Info("next page link not found", zap.Int("page", current+1))
		return false
	}
	if err := n.Page.Sleep(ctx, PageTurnDelay); err != nil {
		return false
	}
	n.logger().Debug("moved to page", zap.Int("page", current+1))
	return true
}

func PageLinkSelector(page int) string {
	return fmt.Sprintf("ul.pagination li[data-lp='%d'] a.page-link", page)
}
