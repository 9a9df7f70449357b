package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// CartLine 购物车行
type CartLine struct {
	ID        string `json:"id"`         // 商品 ID
	Name      string `json:"name"`       // 商品名称
	UnitPrice Money  `json:"unit_price"` // 单价
	Image     string `json:"image"`      // 图片地址
	Quantity  int    `json:"quantity"`   // 数量（>=1）
}

// Subtotal 行小计
func (l CartLine) Subtotal() Money {
	return l.UnitPrice.Times(l.Quantity)
}

// Equal 按值比较两行
func (l CartLine) Equal(other CartLine) bool {
	return l.ID == other.ID &&
		l.Name == other.Name &&
		l.Image == other.Image &&
		l.Quantity == other.Quantity &&
		l.UnitPrice.Equal(other.UnitPrice)
}

// CartLines 按加入顺序排列的购物车行，存储为 JSON
type CartLines []CartLine

// Clone 返回独立副本
func (c CartLines) Clone() CartLines {
	if len(c) == 0 {
		return CartLines{}
	}
	out := make(CartLines, len(c))
	copy(out, c)
	return out
}

// Equal 按值比较（顺序敏感）
func (c CartLines) Equal(other CartLines) bool {
	if len(c) != len(other) {
		return false
	}
	for i := range c {
		if !c[i].Equal(other[i]) {
			return false
		}
	}
	return true
}

// Value 实现 driver.Valuer 接口
func (c CartLines) Value() (driver.Value, error) {
	if c == nil {
		c = CartLines{}
	}
	b, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan 实现 sql.Scanner 接口
func (c *CartLines) Scan(value interface{}) error {
	if value == nil {
		*c = CartLines{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported cart lines column type %T", value)
	}
	if len(raw) == 0 {
		*c = CartLines{}
		return nil
	}
	return json.Unmarshal(raw, c)
}
