// C:\Users\wasab\OneDrive\デスクトップ\DECOPRESS\classify\codes.go
package classify

import (
	"slices"
	"strings"

	"decopress/model"
)

// 工程コード
const (
	ProcessApplique   = "AP"
	ProcessEmbroidery = "EM"
	ProcessDirectScan = "DS"
	ProcessHardware   = "HW"
	ProcessPatchApply = "PA"
)

// ロケーションタグの優先順位 (先頭ほど優先)。
var locationPriority = []struct {
	tag  string
	code string
}{
	{"rfp", "RFP"},
	{"@sub", "SUB"},
	{"@laser", "LASER"},
	{"qc", "QC"},
}

func upperSet(codes []string) map[string]bool {
	set := make(map[string]bool, len(codes))
	for _, c := range codes {
		set[strings.ToUpper(strings.TrimSpace(c))] = true
	}
	return set
}

// LetterCodeFor は工程コードから分類コードを決めます。
// 判定順 (AP+EM → AP → EM → DS → HW) が意味を持ち、最初に一致した分岐で確定します。
// HW を含む場合は仮のコードを返し、後で詳細ページを見て確定させます。
func LetterCodeFor(codes []string) model.LetterCode {
	set := upperSet(codes)
	hw := set[ProcessHardware]

	switch {
	case set[ProcessApplique] && set[ProcessEmbroidery]:
		if hw {
			return model.CodeHWEmb
		}
		return model.CodeSubEmb
	case set[ProcessApplique]:
		if hw {
			return model.CodeHWSub
		}
		return model.CodeSub
	case set[ProcessEmbroidery]:
		if hw {
			return model.CodeHWEmb
		}
		return model.CodeEmb
	case set[ProcessDirectScan]:
		if hw {
			return model.CodeHWEtch
		}
		return model.CodeEtch
	case hw:
		return model.CodeHW
	}
	return model.CodeNone
}

func HasPatchApply(codes []string) bool {
	return upperSet(codes)[ProcessPatchApply]
}

// LocationFromTags は DOM 上の順序に関係なく、優先順位の最も高いタグを返します。
func LocationFromTags(tags []string) string {
	lower := make([]string, 0, len(tags))
	for _, t := range tags {
		lower = append(lower, strings.ToLower(strings.TrimSpace(t)))
	}
	for _, p := range locationPriority {
		if slices.Contains(lower, p.tag) {
			return p.code
		}
	}
	return ""
}

// ShortDescription は説明文の先頭4語を返します。
func ShortDescription(desc string) string {
	words := strings.Fields(desc)
	if len(words) > 4 {
		words = words[:4]
	}
	return strings.Join(words, " ")
}

// JobStatus は " - " 区切りがあればその後ろだけを返します。
func JobStatus(s string) string {
	parts := strings.Split(s, " - ")
	if len(parts) > 1 {
		return parts[1]
	}
	return s
}

// IsJobNumber はジョブ番号が数字だけで構成されているかを判定します。
func IsJobNumber(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
