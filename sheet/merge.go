// C:\Users\wasab\OneDrive\デスクトップ\DECOPRESS\sheet\merge.go
package sheet

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

// Region は結合セル範囲 (両端を含む) です。
type Region struct {
	Anchor         string
	MinCol, MinRow int
	MaxCol, MaxRow int
}

func (r Region) contains(col, row int) bool {
	return col >= r.MinCol && col <= r.MaxCol && row >= r.MinRow && row <= r.MaxRow
}

// Writer はシートの結合セルを把握した上で値を書き込みます。
type Writer struct {
	File    *excelize.File
	Sheet   string
	regions []Region
}

// NewWriter は sheet (空ならアクティブシート) の結合セル一覧を読み込みます。
func NewWriter(f *excelize.File, sheet string) (*Writer, error) {
	if sheet == "" {
		sheet = f.GetSheetName(f.GetActiveSheetIndex())
	}
	merged, err := f.GetMergeCells(sheet)
	if err != nil {
		return nil, fmt.Errorf("read merged cells of %q: %w", sheet, err)
	}
	w := &Writer{File: f, Sheet: sheet}
	for _, mc := range merged {
		start, end := mc.GetStartAxis(), mc.GetEndAxis()
		c1, r1, err := excelize.CellNameToCoordinates(start)
		if err != nil {
			return nil, fmt.Errorf("merged range %s:%s: %w", start, end, err)
		}
		c2, r2, err := excelize.CellNameToCoordinates(end)
		if err != nil {
			return nil, fmt.Errorf("merged range %s:%s: %w", start, end, err)
		}
		r := Region{
			MinCol: min(c1, c2), MinRow: min(r1, r2),
			MaxCol: max(c1, c2), MaxRow: max(r1, r2),
		}
		if r.Anchor, err = excelize.CoordinatesToCellName(r.MinCol, r.MinRow); err != nil {
			return nil, err
		}
		w.regions = append(w.regions, r)
	}
	return w, nil
}

// Regions は読み込んだ結合範囲を返します。
func (w *Writer) Regions() []Region {
	return w.regions
}

func (w *Writer) regionAt(cell string) (Region, bool, error) {
	col, row, err := excelize.CellNameToCoordinates(cell)
	if err != nil {
		return Region{}, false, err
	}
	for _, r := range w.regions {
		if r.contains(col, row) {
			return r, true, nil
		}
	}
	return Region{}, false, nil
}

// IsMerged は cell が結合範囲に含まれるか (左上セルも含む) を返します。
func (w *Writer) IsMerged(cell string) bool {
	_, ok, err := w.regionAt(cell)
	return err == nil && ok
}

// Anchor は cell を含む結合範囲の左上セルを返します。結合されていなければ cell そのものです。
func (w *Writer) Anchor(cell string) (string, error) {
	r, ok, err := w.regionAt(cell)
	if err != nil {
		return "", err
	}
	if ok {
		return r.Anchor, nil
	}
	return cell, nil
}

// Set は結合範囲内なら左上セルへ書き込み先を移して値を設定します。
func (w *Writer) Set(cell string, value any) error {
	target, err := w.Anchor(cell)
	if err != nil {
		return fmt.Errorf("cell %s: %w", cell, err)
	}
	return w.File.SetCellValue(w.Sheet, target, value)
}

// SetUnmerged は結合範囲内のセルには書き込まず false を返します。
func (w *Writer) SetUnmerged(cell string, value any) (bool, error) {
	if _, ok, err := w.regionAt(cell); err != nil || ok {
		return false, err
	}
	if err := w.File.SetCellValue(w.Sheet, cell, value); err != nil {
		return false, err
	}
	return true, nil
}

// At は列名と行番号からセル名を作ります ("B", 5 → "B5")。
func At(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
