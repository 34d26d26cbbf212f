// Package portaltest はテスト用の portal.Page 実装を提供します。
package portaltest

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// FakePage は用意したHTMLを「表示中のページ」として扱う偽ブラウザです。
// 要素の有無は実際にHTMLを goquery で検索して判定します。
type FakePage struct {
	// Docs は URL ごとのHTMLです。Navigate で Current に読み込まれます。
	Docs        map[string]string
	CurrentURL  string
	Current     string
	Navigations []string
	Clicks      []string
	Fills       map[string]string
	Slept       time.Duration
	// NavErr に登録した URL への遷移は失敗します。
	NavErr map[string]error
	// URLErr が設定されていると URL は失敗します。
	URLErr error
	// BeforeNavigate は遷移の直前に呼ばれます (キャンセルの再現など)。
	BeforeNavigate func(f *FakePage, url string)
	EvalFunc       func(f *FakePage, js string) bool

	onClick map[string]func(f *FakePage)
}

func NewFakePage() *FakePage {
	return &FakePage{
		Docs:    map[string]string{},
		Fills:   map[string]string{},
		NavErr:  map[string]error{},
		onClick: map[string]func(f *FakePage){},
	}
}

// OnClick はクリック時の副作用 (ページ遷移など) を登録します。
func (f *FakePage) OnClick(selector string, fn func(f *FakePage)) {
	f.onClick[selector] = fn
}

// SetListPages は url に一覧ページ群を置き、ページ番号リンクのクリックで切り替わるようにします。
func (f *FakePage) SetListPages(url string, pages ...string) {
	if len(pages) == 0 {
		return
	}
	f.Docs[url] = pages[0]
	for i := 1; i < len(pages); i++ {
		html := pages[i]
		sel := fmt.Sprintf("ul.pagination li[data-lp='%d'] a.page-link", i+1)
		f.OnClick(sel, func(f *FakePage) {
			f.Current = html
		})
	}
}

// ClickCount は selector のクリック回数を返します。
func (f *FakePage) ClickCount(selector string) int {
	n := 0
	for _, c := range f.Clicks {
		if c == selector {
			n++
		}
	}
	return n
}

func (f *FakePage) doc() (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(f.Current))
}

func (f *FakePage) find(selector string) (*goquery.Selection, error) {
	doc, err := f.doc()
	if err != nil {
		return nil, err
	}
	return doc.Find(selector), nil
}

func (f *FakePage) Navigate(ctx context.Context, url string) error {
	if f.BeforeNavigate != nil {
		f.BeforeNavigate(f, url)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	f.Navigations = append(f.Navigations, url)
	if err := f.NavErr[url]; err != nil {
		return err
	}
	html, ok := f.Docs[url]
	if !ok {
		return fmt.Errorf("fake: no document for %s", url)
	}
	f.CurrentURL = url
	f.Current = html
	return nil
}

func (f *FakePage) URL(ctx context.Context) (string, error) {
	if f.URLErr != nil {
		return "", f.URLErr
	}
	return f.CurrentURL, nil
}

func (f *FakePage) WaitIdle(ctx context.Context) error {
	return ctx.Err()
}

func (f *FakePage) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	sel, err := f.find(selector)
	if err != nil {
		return err
	}
	if sel.Length() == 0 {
		return fmt.Errorf("fake: timed out waiting for %s", selector)
	}
	return nil
}

func (f *FakePage) Sleep(ctx context.Context, d time.Duration) error {
	f.Slept += d
	return ctx.Err()
}

func (f *FakePage) HTML(ctx context.Context) (string, error) {
	return f.Current, nil
}

func (f *FakePage) Has(ctx context.Context, selector string) (bool, error) {
	sel, err := f.find(selector)
	if err != nil {
		return false, err
	}
	return sel.Length() > 0, nil
}

func (f *FakePage) Click(ctx context.Context, selector string) (bool, error) {
	ok, err := f.Has(ctx, selector)
	if err != nil || !ok {
		return false, err
	}
	f.Clicks = append(f.Clicks, selector)
	if fn := f.onClick[selector]; fn != nil {
		fn(f)
	}
	return true, nil
}

func (f *FakePage) ClickText(ctx context.Context, selector, pattern string) (bool, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return false, err
	}
	sel, err := f.find(selector)
	if err != nil {
		return false, err
	}
	found := false
	sel.EachWithBreak(func(_ int, s *goquery.Selection) bool {
		if re.MatchString(strings.TrimSpace(s.Text())) {
			found = true
			return false
		}
		return true
	})
	if !found {
		return false, nil
	}
	key := selector + "|" + pattern
	f.Clicks = append(f.Clicks, key)
	if fn := f.onClick[key]; fn != nil {
		fn(f)
	}
	return true, nil
}

func (f *FakePage) Count(ctx context.Context, selector string) (int, error) {
	sel, err := f.find(selector)
	if err != nil {
		return 0, err
	}
	return sel.Length(), nil
}

func (f *FakePage) Eval(ctx context.Context, js string) (bool, error) {
	if f.EvalFunc == nil {
		return false, nil
	}
	return f.EvalFunc(f, js), nil
}

func (f *FakePage) Fill(ctx context.Context, selector, value string) error {
	ok, err := f.Has(ctx, selector)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("fake: %s not found", selector)
	}
	f.Fills[selector] = value
	return nil
}
