// C:\Users\wasab\OneDrive\デスクトップ\DECOPRESS\portal\page.go
package portal

import (
	"context"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
	"golang.org/x/text/unicode/norm"
)

// Page はポータル操作に必要な最小限のブラウザ操作です。
// 本番は browser.Page (go-rod)、テストは portaltest.FakePage が実装します。
// DOM の読み取りは HTML スナップショットを goquery で解析し、
// クリック・入力・遷移だけをブラウザに依頼します。
type Page interface {
	Navigate(ctx context.Context, url string) error
	URL(ctx context.Context) (string, error)
	// WaitIdle はネットワークが落ち着くまで待ちます。
	WaitIdle(ctx context.Context) error
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	Sleep(ctx context.Context, d time.Duration) error
	HTML(ctx context.Context) (string, error)
	Has(ctx context.Context, selector string) (bool, error)
	// Click は要素が無ければ (false, nil) を返します。
	Click(ctx context.Context, selector string) (bool, error)
	// ClickText は selector に一致し、テキストが正規表現 pattern に一致する最初の要素をクリックします。
	ClickText(ctx context.Context, selector, pattern string) (bool, error)
	Count(ctx context.Context, selector string) (int, error)
	// Eval は真偽値を返すページスクリプトを実行します。
	Eval(ctx context.Context, js string) (bool, error)
	Fill(ctx context.Context, selector, value string) error
}

// Snapshot は現在のページを goquery ドキュメントとして取得します。
func Snapshot(ctx context.Context, page Page) (*goquery.Document, error) {
	src, err := page.HTML(ctx)
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(strings.NewReader(src))
}

// CleanText は要素の表示テキストの1行目だけを正規化して返します。
// 子要素 (バッジ等) は後続行に入るため、先頭行のみを値とみなします。
func CleanText(sel *goquery.Selection) string {
	if sel == nil || sel.Length() == 0 {
		return ""
	}
	text := NormalizeText(InnerText(sel.First()))
	for _, line := range strings.Split(text, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			return line
		}
	}
	return ""
}

var blockElements = map[string]bool{
	"address": true, "article": true, "br": true, "div": true, "form": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"hr": true, "li": true, "ol": true, "p": true, "section": true,
	"table": true, "tbody": true, "td": true, "th": true, "tr": true, "ul": true,
}

// InnerText はブロック要素の境界を改行にしたテキストを返します (ブラウザの innerText 相当)。
func InnerText(sel *goquery.Selection) string {
	var b strings.Builder
	for _, n := range sel.Nodes {
		writeText(&b, n)
	}
	return b.String()
}

func writeText(b *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		b.WriteString(n.Data)
		return
	case html.ElementNode:
		if n.Data == "script" || n.Data == "style" {
			return
		}
	}
	block := n.Type == html.ElementNode && blockElements[n.Data]
	if block {
		b.WriteString("\n")
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeText(b, c)
	}
	if block {
		b.WriteString("\n")
	}
}

// NormalizeText は NFKC 正規化 (NBSP→空白 など) を行います。
func NormalizeText(s string) string {
	s = norm.NFKC.String(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.TrimSpace(s)
}

// Cell は行内の n 番目 (1始まり) の td のテキストを返します。
func Cell(row *goquery.Selection, n int) string {
	return CleanText(row.ChildrenFiltered("td").Eq(n - 1))
}

// Pause はネットワーク待ちの後に固定の猶予時間を置きます。
func Pause(ctx context.Context, page Page, grace time.Duration) error {
	if err := page.WaitIdle(ctx); err != nil {
		return err
	}
	if grace <= 0 {
		return nil
	}
	return page.Sleep(ctx, grace)
}
