// C:\Users\wasab\OneDrive\デスクトップ\DECOPRESS\model\slip_types.go
package model

// ListJob はジョブ一覧の1行から読み取ったジョブ情報です。
type ListJob struct {
	JobNumber   string `json:"jobNumber"`
	Customer    string `json:"customer"`
	Description string `json:"description"`
	JobStatus   string `json:"jobStatus"`
	OrderNumber string `json:"orderNumber"`
	DateIn      string `json:"dateIn"`
	ShipDate    string `json:"shipDate"`
}

type ShippingBlock struct {
	Company string `json:"company"`
	Address string `json:"address"`
	Contact string `json:"contact"`
	Notes   string `json:"notes"`
}

// Lines は空でない行だけを改行で連結した配送先ブロックを返します。
func (b ShippingBlock) Lines() []string {
	var lines []string
	for _, s := range []string{b.Company, b.Address, b.Contact, b.Notes} {
		if s != "" {
			lines = append(lines, s)
		}
	}
	return lines
}

// AssetLine は詳細ページのアセット (SKU) 行です。
type AssetLine struct {
	Tag         string `json:"tag"`
	Description string `json:"description"`
	Quantity    int    `json:"quantity"`
}

// ShipmentFacts は出荷時にユーザーが入力する値です。
type ShipmentFacts struct {
	ShipDate string `json:"shipDate"`
	OrderQty string `json:"orderQty,omitempty"`
	ShipQty  string `json:"shipQty,omitempty"`
	Boxes    string `json:"boxes,omitempty"`
	Partial  string `json:"partial,omitempty"`
	Comment  string `json:"comment,omitempty"`
}

// SlipJob は納品書1枚分のジョブ情報です。
type SlipJob struct {
	ListJob
	SelectedContact string        `json:"selectedContact"`
	Shipping        ShippingBlock `json:"shipping"`
	Assets          []AssetLine   `json:"assets"`
	Shipment        ShipmentFacts `json:"shipment"`
}
