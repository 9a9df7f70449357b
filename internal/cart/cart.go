package cart

import (
	"errors"
	"strings"

	"github.com/storefront-next/internal/constants"
	"github.com/storefront-next/internal/models"
)

// Line 购物车行
type Line = models.CartLine

// ErrInvalidItem 商品缺少 ID 或单价为负
var ErrInvalidItem = errors.New("cart: invalid item")

// Item 加入购物车的商品
type Item struct {
	ID        string
	Name      string
	UnitPrice models.Money
	Image     string
}

func (i Item) validate() error {
	if strings.TrimSpace(i.ID) == "" || i.UnitPrice.IsNegative() {
		return ErrInvalidItem
	}
	return nil
}

// State 购物车状态
type State string

// 购物车状态
const (
	StateUninitialized State = constants.CartStateUninitialized
	StateLoading       State = constants.CartStateLoading
	StateReady         State = constants.CartStateReady
)

// OwnerKind 购物车归属类型
type OwnerKind string

// 购物车归属类型
const (
	OwnerGuest OwnerKind = constants.OwnerKindGuest
	OwnerUser  OwnerKind = constants.OwnerKindUser
)

// Owner 购物车归属
type Owner struct {
	Kind OwnerKind `json:"kind"`
	ID   string    `json:"id,omitempty"`
}

// Guest 访客归属
func Guest() Owner {
	return Owner{Kind: OwnerGuest}
}

// User 用户归属
func User(id string) Owner {
	return Owner{Kind: OwnerUser, ID: id}
}

// Snapshot 购物车状态的只读快照
type Snapshot struct {
	State      State        `json:"state"`
	Owner      Owner        `json:"owner"`
	Lines      []Line       `json:"lines"`
	TotalItems int          `json:"total_items"`
	TotalPrice models.Money `json:"total_price"`
	Revision   uint64       `json:"revision"`
}

// TotalItems 商品总件数
func TotalItems(lines []Line) int {
	total := 0
	for _, line := range lines {
		total += line.Quantity
	}
	return total
}

// TotalPrice 商品总价（精确计算）
func TotalPrice(lines []Line) models.Money {
	total := models.NewMoneyFromInt(0)
	for _, line := range lines {
		total = total.Plus(line.Subtotal())
	}
	return total
}

// mutation 对购物车行做纯函数变换，返回新切片与是否发生变化
type mutation func(models.CartLines) (models.CartLines, bool)

func indexOf(lines models.CartLines, id string) int {
	for i := range lines {
		if lines[i].ID == id {
			return i
		}
	}
	return -1
}

// normalize 整理外部读入的快照：丢弃数量不足 1 或缺少 ID 的行，
// 相同 ID 的行合并到首次出现的位置并累加数量
func normalize(lines models.CartLines) models.CartLines {
	out := make(models.CartLines, 0, len(lines))
	for _, line := range lines {
		if line.Quantity < 1 || strings.TrimSpace(line.ID) == "" {
			continue
		}
		if i := indexOf(out, line.ID); i >= 0 {
			out[i].Quantity += line.Quantity
			continue
		}
		out = append(out, line)
	}
	return out
}

func addItem(item Item) mutation {
	return func(lines models.CartLines) (models.CartLines, bool) {
		next := lines.Clone()
		if i := indexOf(next, item.ID); i >= 0 {
			next[i].Quantity++
			return next, true
		}
		return append(next, Line{
			ID:        item.ID,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Image:     item.Image,
			Quantity:  1,
		}), true
	}
}

func removeItem(id string) mutation {
	return func(lines models.CartLines) (models.CartLines, bool) {
		i := indexOf(lines, id)
		if i < 0 {
			return lines, false
		}
		next := make(models.CartLines, 0, len(lines)-1)
		next = append(next, lines[:i]...)
		return append(next, lines[i+1:]...), true
	}
}

func updateQuantity(id string, quantity int) mutation {
	if quantity <= 0 {
		return removeItem(id)
	}
	return func(lines models.CartLines) (models.CartLines, bool) {
		i := indexOf(lines, id)
		if i < 0 || lines[i].Quantity == quantity {
			return lines, false
		}
		next := lines.Clone()
		next[i].Quantity = quantity
		return next, true
	}
}

func clearCart() mutation {
	return func(lines models.CartLines) (models.CartLines, bool) {
		if len(lines) == 0 {
			return lines, false
		}
		return models.CartLines{}, true
	}
}
