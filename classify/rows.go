// C:\Users\wasab\OneDrive\デスクトップ\DECOPRESS\classify\rows.go
package classify

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"decopress/model"
	"decopress/portal"

	"github.com/PuerkitoBio/goquery"
)

const (
	selDaysToDue       = "span.js-days-to-due-date"
	selBadgeContainers = ".ew-badge-container.process-codes, .process-codes"
	selBadge           = ".ew-badge"
	selCodeBadge       = ".process-code-badge"
	selQty             = ".process-qty"
	selTagContainer    = ".jobtag-container"
	selTagText         = "li .jobtag.tag.showtag .tag-text"

	MinDays = 0
	MaxDays = 4
)

var leadingInt = regexp.MustCompile(`^\s*(\d+)`)

// ParseQuantity は先頭の整数部分を読み取ります ("24 pcs" → 24)。
func ParseQuantity(s string) (int, bool) {
	m := leadingInt.FindStringSubmatch(s)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

// ParseDays は残り日数を読み取り、0〜4 の範囲内かを判定します。
func ParseDays(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	if n < MinDays || n > MaxDays {
		return n, false
	}
	return n, true
}

// SkipError は行が対象外になった理由です。
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string { return "row skipped: " + e.Reason }

// ParseRow はジョブ一覧の1行を OrderRecord に変換します。
// 対象外の行は *SkipError を返します。HW を含むコードは仮のままです。
func ParseRow(row *goquery.Selection) (model.OrderRecord, error) {
	// 1. 残り日数
	daysEl := row.Find(selDaysToDue).First()
	if daysEl.Length() == 0 {
		return model.OrderRecord{}, &SkipError{Reason: "days element not found"}
	}
	daysText := strings.TrimSpace(daysEl.Text())
	days, ok := ParseDays(daysText)
	if !ok {
		return model.OrderRecord{}, &SkipError{Reason: fmt.Sprintf("days %q not in %d..%d", daysText, MinDays, MaxDays)}
	}

	// 2. ジョブ番号 (数字のみ)
	jobNumber := portal.Cell(row, 1)
	if !IsJobNumber(jobNumber) {
		return model.OrderRecord{}, &SkipError{Reason: fmt.Sprintf("job number %q is not numeric", jobNumber)}
	}

	// 3. 説明
	desc := portal.Cell(row, 3)

	// 4〜5. 工程バッジとロケーションタグ (この行の中だけを見る)
	codes, qty := ExtractProcessCodes(row)
	location := LocationFromTags(ExtractTags(row))

	return model.OrderRecord{
		JobNumber:        jobNumber,
		Customer:         portal.Cell(row, 2),
		Description:      desc,
		ShortDescription: ShortDescription(desc),
		JobStatus:        JobStatus(portal.Cell(row, 4)),
		OrderNumber:      portal.Cell(row, 5),
		DateIn:           portal.Cell(row, 6),
		ShipDate:         portal.Cell(row, 7),
		DaysRemaining:    days,
		ProcessCodes:     codes,
		Quantity:         qty,
		Location:         location,
		LetterCode:       LetterCodeFor(codes),
		HasPatchApply:    HasPatchApply(codes),
	}, nil
}

// ExtractProcessCodes は行内の工程コードと最大数量を返します。
// まずバッジコンテナ単位の構造化検索を行い、コードが取れなければ
// 行内の各要素を直接拾うフラットな検索に切り替えます。
func ExtractProcessCodes(row *goquery.Selection) ([]string, int) {
	codes, qty := structuredBadges(row)
	if len(codes) == 0 {
		return flatBadges(row)
	}
	if qty == 0 {
		// コードはあるが数量がバッジ内に無い場合、数量だけ行全体から拾う
		_, qty = flatBadges(row)
	}
	return codes, qty
}

func structuredBadges(row *goquery.Selection) ([]string, int) {
	var codes []string
	highest := 0
	row.Find(selBadgeContainers).Find(selBadge).Each(func(_ int, badge *goquery.Selection) {
		codeEl := badge.Find(selCodeBadge).First()
		if codeEl.Length() == 0 {
			return
		}
		code := strings.TrimSpace(codeEl.Text())
		if code == "" {
			return
		}
		codes = appendUnique(codes, code)
		if n, ok := ParseQuantity(badge.Find(selQty).First().Text()); ok && n > highest {
			highest = n
		}
	})
	return codes, highest
}

func flatBadges(row *goquery.Selection) ([]string, int) {
	var codes []string
	highest := 0
	row.Find(selCodeBadge).Each(func(_ int, s *goquery.Selection) {
		if code := strings.TrimSpace(s.Text()); code != "" {
			codes = appendUnique(codes, code)
		}
	})
	row.Find(selQty).Each(func(_ int, s *goquery.Selection) {
		if n, ok := ParseQuantity(s.Text()); ok && n > highest {
			highest = n
		}
	})
	return codes, highest
}

func appendUnique(codes []string, code string) []string {
	code = strings.ToUpper(code)
	for _, c := range codes {
		if c == code {
			return codes
		}
	}
	return append(codes, code)
}

// ExtractTags は行内のジョブタグ (小文字) を返します。
func ExtractTags(row *goquery.Selection) []string {
	container := row.Find(selTagContainer).First()
	if container.Length() == 0 {
		return nil
	}
	var tags []string
	container.Find(selTagText).Each(func(_ int, s *goquery.Selection) {
		tags = append(tags, strings.ToLower(strings.TrimSpace(s.Text())))
	})
	return tags
}
