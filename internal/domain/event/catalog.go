package event

import (
	"fmt"
	"strings"
)

// MaxQuantity は1回の選択で注文できる数量の上限
const MaxQuantity = 1000

// Variant はサイズ・色ごとの在庫
type Variant struct {
	Size  string `json:"size"`
	Color string `json:"color"`
	Stock int    `json:"stock"`
}

// MerchandiseItem は販売商品
type MerchandiseItem struct {
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Price       int       `json:"price"`
	Variants    []Variant `json:"variants,omitempty"`
}

// Selection は参加者が選んだ商品
type Selection struct {
	ItemIndex int
	Size      string
	Color     string
	Quantity  int
}

// Validate は商品定義を検証する
func (i MerchandiseItem) Validate() error {
	if strings.TrimSpace(i.Name) == "" {
		return fmt.Errorf("%w: item name is required", ErrInvalidFormField)
	}
	if i.Price < 0 {
		return ErrInvalidPrice
	}
	seen := make(map[[2]string]bool, len(i.Variants))
	for _, v := range i.Variants {
		if v.Stock < 0 {
			return ErrInvalidStock
		}
		key := [2]string{v.Size, v.Color}
		if seen[key] {
			return fmt.Errorf("%w: %s (%s/%s)", ErrDuplicateVariant, i.Name, v.Size, v.Color)
		}
		seen[key] = true
	}
	return nil
}

// TracksStock は在庫管理対象かを返す。バリエーションなしの商品は在庫を持たない
func (i MerchandiseItem) TracksStock() bool {
	return len(i.Variants) > 0
}

// TotalStock は全バリエーションの在庫合計
func (i MerchandiseItem) TotalStock() int {
	total := 0
	for _, v := range i.Variants {
		total += v.Stock
	}
	return total
}

func (i *MerchandiseItem) variant(size, color string) (*Variant, bool) {
	for idx := range i.Variants {
		if i.Variants[idx].Size == size && i.Variants[idx].Color == color {
			return &i.Variants[idx], true
		}
	}
	return nil, false
}

// Lookup は選択に対応する商品とバリエーションを返す。
// 在庫管理しない商品の場合 Variant は nil
func (e *Event) Lookup(sel Selection) (*MerchandiseItem, *Variant, error) {
	if sel.ItemIndex < 0 || sel.ItemIndex >= len(e.Items) {
		return nil, nil, fmt.Errorf("%w: index %d", ErrItemNotFound, sel.ItemIndex)
	}
	item := &e.Items[sel.ItemIndex]
	if !item.TracksStock() {
		return item, nil, nil
	}
	v, ok := item.variant(sel.Size, sel.Color)
	if !ok {
		return nil, nil, fmt.Errorf("%w: %s (%s/%s)", ErrVariantNotFound, item.Name, sel.Size, sel.Color)
	}
	return item, v, nil
}

// AdjustStock は在庫を delta だけ増減し、残数を返す。
// 減算で在庫が負になる場合は変更せずにエラーを返す
func (e *Event) AdjustStock(itemIndex int, size, color string, delta int) (int, error) {
	item, v, err := e.Lookup(Selection{ItemIndex: itemIndex, Size: size, Color: color})
	if err != nil {
		return 0, err
	}
	if v == nil {
		return 0, nil
	}
	if v.Stock+delta < 0 {
		return v.Stock, fmt.Errorf("%w: %s (%s/%s) has %d left", ErrInsufficientStock, item.Name, size, color, v.Stock)
	}
	v.Stock += delta
	return v.Stock, nil
}
