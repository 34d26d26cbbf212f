// C:\Users\wasab\OneDrive\デスクトップ\DECOPRESS\packingslip\detail.go
package packingslip

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"decopress/classify"
	"decopress/model"
	"decopress/portal"

	"github.com/PuerkitoBio/goquery"
)

const (
	selShipmentInfo    = "ul.shipment-info"
	selShipCompany     = "ul.shipment-info li.media:first-child div.media-body"
	selShipAddress     = "ul.shipment-info li.media address"
	selShipContact     = "ul.shipment-info li.media:last-child div.media-body"
	selShipNotes       = ".shipment-notes"
	selSelectedContact = "select#customerUser option[selected]:not([hidden])"
	selDetailOrder     = ".js-order-number"
	selDetailDesc      = ".js-job-description"

	selAssetRow  = "tr.js-jobline-row"
	selAssetTag  = "td.jobline-asset"
	selAssetDesc = "td.jobline-description"
	selAssetQty  = "td.jobline-qty"
)

var (
	verifiedSuffix = regexp.MustCompile(`(?i)[\s,]*verified\s*$`)
	phonePattern   = regexp.MustCompile(`\(\d{3}\)\s*\d{3}-\d{4}`)
	emailPattern   = regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`)
)

// ReadDetail はジョブ詳細ページを開き、一覧の情報と合わせて納品書用の情報を作ります。
func ReadDetail(ctx context.Context, page portal.Page, url string, listed model.ListJob) (model.SlipJob, error) {
	if err := page.Navigate(ctx, url); err != nil {
		return model.SlipJob{}, fmt.Errorf("navigate to job page: %w", err)
	}
	if err := page.WaitIdle(ctx); err != nil {
		return model.SlipJob{}, fmt.Errorf("wait for job page: %w", err)
	}
	doc, err := portal.Snapshot(ctx, page)
	if err != nil {
		return model.SlipJob{}, fmt.Errorf("read job page: %w", err)
	}
	return ParseDetail(doc.Selection, listed), nil
}

// ParseDetail は詳細ページの HTML から配送先・担当者・アセット行を読み取ります。
// 見つからない項目は空のままにし、一覧の値があればそちらを使います。
func ParseDetail(doc *goquery.Selection, listed model.ListJob) model.SlipJob {
	job := model.SlipJob{ListJob: listed}

	if v := portal.CleanText(doc.Find(selDetailOrder)); v != "" {
		job.OrderNumber = v
	}
	if v := portal.CleanText(doc.Find(selDetailDesc)); v != "" {
		job.Description = v
	}
	job.SelectedContact = portal.CleanText(doc.Find(selSelectedContact))

	if doc.Find(selShipmentInfo).Length() > 0 {
		job.Shipping = model.ShippingBlock{
			Company: portal.CleanText(doc.Find(selShipCompany)),
			Address: Address(doc.Find(selShipAddress).First()),
			Contact: ContactLine(portal.NormalizeText(portal.InnerText(doc.Find(selShipContact).First()))),
			Notes:   joinLines(doc.Find(selShipNotes).First(), " "),
		}
	}
	job.Assets = Assets(doc)
	return job
}

func lines(sel *goquery.Selection) []string {
	if sel.Length() == 0 {
		return nil
	}
	var out []string
	for _, l := range strings.Split(portal.NormalizeText(portal.InnerText(sel)), "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func joinLines(sel *goquery.Selection, sep string) string {
	return strings.Join(lines(sel), sep)
}

// Address は住所要素の各行を ", " で連結し、末尾の "Verified" 表示を取り除きます。
func Address(sel *goquery.Selection) string {
	var parts []string
	for _, l := range lines(sel) {
		l = strings.TrimSpace(verifiedSuffix.ReplaceAllString(l, ""))
		if l != "" {
			parts = append(parts, l)
		}
	}
	return strings.Join(parts, ", ")
}

// ContactLine は担当者テキストから「氏名, 電話, メール」の1行を作ります。
func ContactLine(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	name := text
	if i := strings.IndexAny(name, ",\n"); i >= 0 {
		name = name[:i]
	}
	parts := []string{strings.TrimSpace(name)}
	if phone := phonePattern.FindString(text); phone != "" && !strings.Contains(parts[0], phone) {
		parts = append(parts, phone)
	}
	if email := emailPattern.FindString(text); email != "" && !strings.Contains(parts[0], email) {
		parts = append(parts, email)
	}
	return strings.Join(parts, ", ")
}

// IsAssetTag は英字と数字の両方を含むタグ (SKU らしきもの) かを判定します。
func IsAssetTag(tag string) bool {
	var letter, digit bool
	for _, r := range tag {
		switch {
		case unicode.IsLetter(r):
			letter = true
		case unicode.IsDigit(r):
			digit = true
		}
	}
	return letter && digit
}

// Assets はジョブ明細行からアセット行を集めます。同じタグは最初の行だけを使います。
func Assets(doc *goquery.Selection) []model.AssetLine {
	var assets []model.AssetLine
	seen := map[string]bool{}
	doc.Find(selAssetRow).Each(func(_ int, row *goquery.Selection) {
		tag := portal.CleanText(row.Find(selAssetTag))
		if !IsAssetTag(tag) || seen[tag] {
			return
		}
		seen[tag] = true
		qty, _ := classify.ParseQuantity(portal.CleanText(row.Find(selAssetQty)))
		assets = append(assets, model.AssetLine{
			Tag:         tag,
			Description: portal.CleanText(row.Find(selAssetDesc)),
			Quantity:    qty,
		})
	})
	return assets
}
