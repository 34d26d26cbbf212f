// C:\Users\wasab\OneDrive\デスクトップ\DECOPRESS\model\order_types.go
package model

import "strings"

// LetterCode はジョブの工程・素材の分類コードです。
type LetterCode string

const (
	CodeNone    LetterCode = ""
	CodeSub     LetterCode = "SUB"
	CodeEmb     LetterCode = "EMB"
	CodeEtch    LetterCode = "ETCH"
	CodeSubEmb  LetterCode = "SUB/EMB"
	CodeHW      LetterCode = "HW"
	CodeHWEmb   LetterCode = "HW/EMB"
	CodeHWSub   LetterCode = "HW/SUB"
	CodeHWEtch  LetterCode = "HW/ETCH"
	CodeEmbEtch LetterCode = "EMB/ETCH"
	CodeSubEtch LetterCode = "SUB/ETCH"
)

// Deferred は詳細ページでの再判定が必要な (HW を含む) コードかどうかを返します。
func (c LetterCode) Deferred() bool {
	return strings.Contains(string(c), "HW")
}

// OrderRecord はジョブ一覧の緊急ジョブ1行分を表します。
type OrderRecord struct {
	JobNumber        string     `json:"jobNumber"`
	Customer         string     `json:"customer"`
	Description      string     `json:"description"`
	ShortDescription string     `json:"shortDescription"`
	JobStatus        string     `json:"jobStatus"`
	OrderNumber      string     `json:"orderNumber"`
	DateIn           string     `json:"dateIn"`
	ShipDate         string     `json:"shipDate"`
	DaysRemaining    int        `json:"daysRemaining"`
	ProcessCodes     []string   `json:"processCodes"`
	Quantity         int        `json:"quantity"`
	Location         string     `json:"location"`
	LetterCode       LetterCode `json:"letterCode"`
	HasPatchApply    bool       `json:"hasPatchApply"`
}
