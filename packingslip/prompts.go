// C:\Users\wasab\OneDrive\デスクトップ\DECOPRESS\packingslip\prompts.go
package packingslip

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"decopress/model"
	"decopress/prompt"
)

var ErrCancelled = errors.New("packing slip cancelled by user")

const shipDateFormat = "01/02/2006"

// 問い合わせキー (HTTP リクエストの answers でも同じキーを使う)
const (
	KeyShipDate = "ship_date"
	KeyPartial  = "partial"
	KeyPartOf   = "partial_of"
	KeyOrderQty = "order_qty"
	KeyShipQty  = "ship_qty"
	KeyBoxes    = "boxes"
	KeyComment  = "comment"
)

// AskShipment は出荷日・分納・数量・コメントをユーザーに問い合わせます。
// 数量と箱数はアセット行があるときだけ聞き、先頭アセットの数量をヒントに出します。
func AskShipment(ctx context.Context, in prompt.Provider, assets []model.AssetLine, today time.Time) (model.ShipmentFacts, error) {
	var facts model.ShipmentFacts

	shipDate, ok, err := in.Ask(ctx, prompt.Request{
		Key:     KeyShipDate,
		Label:   "Enter the ship date",
		Default: today.Format(shipDateFormat),
	})
	if err != nil {
		return facts, err
	}
	shipDate = strings.TrimSpace(shipDate)
	if !ok || shipDate == "" {
		return facts, ErrCancelled
	}
	facts.ShipDate = shipDate

	partial, err := prompt.Confirm(ctx, in, KeyPartial, "Is this a partial shipment?")
	if err != nil {
		return facts, err
	}
	if partial {
		part, ok, err := in.Ask(ctx, prompt.Request{Key: KeyPartOf, Label: "Enter partial number (e.g., '1 of 3')"})
		if err != nil {
			return facts, err
		}
		if ok {
			facts.Partial = strings.TrimSpace(part)
		}
	}

	if len(assets) > 0 {
		hint := fmt.Sprintf("expected: %d", assets[0].Quantity)
		for _, q := range []struct {
			key, label string
			dst        *string
		}{
			{KeyOrderQty, "Enter the order quantity", &facts.OrderQty},
			{KeyShipQty, "Enter the ship quantity", &facts.ShipQty},
			{KeyBoxes, "Enter the number of boxes", &facts.Boxes},
		} {
			ans, ok, err := in.Ask(ctx, prompt.Request{Key: q.key, Label: q.label, Hint: hint})
			if err != nil {
				return facts, err
			}
			if ok && isDigits(strings.TrimSpace(ans)) {
				*q.dst = strings.TrimSpace(ans)
			}
		}
	}

	comment, ok, err := in.Ask(ctx, prompt.Request{Key: KeyComment, Label: "Enter any comments (optional)"})
	if err != nil {
		return facts, err
	}
	if ok {
		facts.Comment = strings.TrimSpace(comment)
	}
	return facts, nil
}

func isDigits(s string) bool {
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
