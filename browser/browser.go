// C:\Users\wasab\OneDrive\デスクトップ\DECOPRESS\browser\browser.go
package browser

import (
	"context"
	"fmt"
	"time"

	"decopress/portal"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"
)

const (
	defaultTimeout = 30 * time.Second
	idleWindow     = 500 * time.Millisecond
)

// Options はブラウザ起動時の設定です。
type Options struct {
	Headless bool
	// Bin が空なら go-rod が Chromium を探します (無ければダウンロード)。
	Bin     string
	Timeout time.Duration
	Logger  *zap.Logger
}

// Browser は1回の処理で使うブラウザと1枚のページです。
type Browser struct {
	browser *rod.Browser
	page    *Page
	log     *zap.Logger
}

// Launch はブラウザを起動して空のページを1枚開きます。
func Launch(ctx context.Context, opts Options) (*Browser, error) {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	// Leakless(false) でセキュリティソフト対策
	l := launcher.New().
		Headless(opts.Headless).
		Leakless(false)
	if opts.Bin != "" {
		l = l.Bin(opts.Bin)
	}
	u, err := l.Context(ctx).Launch()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	b := rod.New().ControlURL(u).Context(ctx)
	if err := b.Connect(); err != nil {
		return nil, fmt.Errorf("connect to browser: %w", err)
	}
	p, err := b.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("open page: %w", err)
	}
	log.Info("browser launched", zap.Bool("headless", opts.Headless), zap.String("bin", opts.Bin))
	return &Browser{browser: b, page: &Page{page: p, timeout: timeout}, log: log}, nil
}

// Page は portal.Page として使うページを返します。
func (b *Browser) Page() *Page {
	return b.page
}

func (b *Browser) Close() error {
	if b == nil || b.browser == nil {
		return nil
	}
	err := b.browser.Close()
	if err != nil {
		b.log.Warn("error closing browser", zap.Error(err))
	} else {
		b.log.Info("browser closed")
	}
	return err
}

// Page は go-rod のページに対する portal.Page の実装です。
type Page struct {
	page    *rod.Page
	timeout time.Duration
}

var _ portal.Page = (*Page)(nil)

func (p *Page) with(ctx context.Context, timeout time.Duration) *rod.Page {
	if timeout <= 0 {
		timeout = p.timeout
	}
	return p.page.Context(ctx).Timeout(timeout)
}

func (p *Page) Navigate(ctx context.Context, url string) error {
	pg := p.with(ctx, 0)
	if err := pg.Navigate(url); err != nil {
		return err
	}
	return pg.WaitLoad()
}

func (p *Page) URL(ctx context.Context) (string, error) {
	info, err := p.page.Context(ctx).Info()
	if err != nil {
		return "", err
	}
	return info.URL, nil
}

func (p *Page) WaitIdle(ctx context.Context) error {
	return p.with(ctx, 0).WaitStable(idleWindow)
}

func (p *Page) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	el, err := p.with(ctx, timeout).Element(selector)
	if err != nil {
		return fmt.Errorf("wait for %s: %w", selector, err)
	}
	return el.WaitVisible()
}

func (p *Page) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (p *Page) HTML(ctx context.Context) (string, error) {
	return p.with(ctx, 0).HTML()
}

func (p *Page) Has(ctx context.Context, selector string) (bool, error) {
	ok, _, err := p.page.Context(ctx).Has(selector)
	return ok, err
}

func (p *Page) Click(ctx context.Context, selector string) (bool, error) {
	ok, el, err := p.page.Context(ctx).Has(selector)
	if err != nil || !ok {
		return false, err
	}
	if err := el.Timeout(p.timeout).Click(proto.InputMouseButtonLeft, 1); err != nil {
		return false, err
	}
	return true, nil
}

func (p *Page) ClickText(ctx context.Context, selector, pattern string) (bool, error) {
	ok, el, err := p.page.Context(ctx).HasR(selector, pattern)
	if err != nil || !ok {
		return false, err
	}
	if err := el.Timeout(p.timeout).Click(proto.InputMouseButtonLeft, 1); err != nil {
		return false, err
	}
	return true, nil
}

func (p *Page) Count(ctx context.Context, selector string) (int, error) {
	els, err := p.page.Context(ctx).Elements(selector)
	if err != nil {
		return 0, err
	}
	return len(els), nil
}

func (p *Page) Eval(ctx context.Context, js string) (bool, error) {
	res, err := p.with(ctx, 0).Eval(js)
	if err != nil {
		return false, err
	}
	return res.Value.Bool(), nil
}

func (p *Page) Fill(ctx context.Context, selector, value string) error {
	el, err := p.with(ctx, 0).Element(selector)
	if err != nil {
		return fmt.Errorf("find %s: %w", selector, err)
	}
	if err := el.SelectAllText(); err != nil {
		return err
	}
	return el.Input(value)
}
