package catalog

import (
	"hash/fnv"
	"strings"

	"github.com/storefront-next/internal/models"
)

// priceBand 价格区间，单位为整数货币
type priceBand struct {
	min  int64
	span int64
}

var (
	bandFruit     = priceBand{min: 40, span: 50}
	bandVegetable = priceBand{min: 30, span: 40}
	bandDairy     = priceBand{min: 50, span: 60}
	bandSnack     = priceBand{min: 20, span: 30}
	bandBeverage  = priceBand{min: 25, span: 40}
	bandBakery    = priceBand{min: 30, span: 35}
	bandOther     = priceBand{min: 50, span: 100}
)

// PriceFor 按分类与名称区间给出稳定价格，同一商品 ID 结果不变
func PriceFor(item Item) models.Money {
	band := bandOf(item)
	h := fnv.New32a()
	_, _ = h.Write([]byte(item.ID))
	return models.NewMoneyFromInt(band.min + int64(h.Sum32())%band.span)
}

func bandOf(item Item) priceBand {
	category := strings.ToLower(item.Category)
	name := strings.ToLower(item.Name)
	switch {
	case strings.Contains(category, "fruit") || containsAny(name, "apple", "orange", "banana"):
		return bandFruit
	case strings.Contains(category, "vegetable"):
		return bandVegetable
	case strings.Contains(category, "dairy") || containsAny(name, "milk", "cheese"):
		return bandDairy
	case strings.Contains(category, "snack") || strings.Contains(name, "chips"):
		return bandSnack
	case strings.Contains(category, "beverage") || containsAny(name, "water", "juice"):
		return bandBeverage
	case strings.Contains(category, "bakery") || strings.Contains(name, "bread"):
		return bandBakery
	}
	return bandOther
}

func containsAny(s string, needles ...string) bool {
	for _, needle := range needles {
		if strings.Contains(s, needle) {
			return true
		}
	}
	return false
}
