package catalog

import (
	"bytes"
	"encoding/json"
	"regexp"
	"strings"

	"github.com/storefront-next/internal/models"
)

// Item 商品目录条目
type Item struct {
	ID          string       `json:"id"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	Image       string       `json:"image"`
	Category    string       `json:"category"`
	Brand       string       `json:"brand"`
	Price       models.Money `json:"price"`
}

// Query 商品筛选条件
type Query struct {
	Category string
	Brand    string
	Country  string
}

func (q Query) normalize(defaultCountry string) Query {
	out := Query{
		Category: strings.ToLower(strings.TrimSpace(q.Category)),
		Brand:    strings.TrimSpace(q.Brand),
		Country:  strings.ToUpper(strings.TrimSpace(q.Country)),
	}
	if out.Country == "" {
		out.Country = strings.ToUpper(strings.TrimSpace(defaultCountry))
	}
	return out
}

func (q Query) empty() bool {
	return q.Category == "" && q.Brand == "" && q.Country == ""
}

func (q Query) cacheKey() string {
	return "catalog:items:" + q.Category + "|" + q.Brand + "|" + q.Country
}

// upstreamItem 上游返回的原始条目，id 可能是数字或字符串
type upstreamItem struct {
	ID          json.RawMessage `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Image       string          `json:"image"`
	Category    string          `json:"category"`
	Brand       string          `json:"brand"`
}

func (u upstreamItem) toItem() (Item, bool) {
	id := decodeID(u.ID)
	if id == "" {
		return Item{}, false
	}
	item := Item{
		ID:          id,
		Name:        strings.TrimSpace(u.Name),
		Description: strings.TrimSpace(u.Description),
		Image:       NormalizeImageURL(u.Image),
		Category:    strings.TrimSpace(u.Category),
		Brand:       strings.TrimSpace(u.Brand),
	}
	item.Price = PriceFor(item)
	return item, true
}

func decodeID(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var text string
	if err := json.Unmarshal(raw, &text); err == nil {
		return strings.TrimSpace(text)
	}
	var number json.Number
	if err := json.Unmarshal(raw, &number); err == nil {
		return number.String()
	}
	return ""
}

var repeatedSlashes = regexp.MustCompile(`/{2,}`)

// NormalizeImageURL 合并重复斜杠并统一为 https 协议
func NormalizeImageURL(raw string) string {
	value := strings.TrimSpace(raw)
	if value == "" {
		return ""
	}
	value = repeatedSlashes.ReplaceAllString(value, "/")
	lower := strings.ToLower(value)
	switch {
	case strings.HasPrefix(lower, "https:/"):
		return "https://" + value[len("https:/"):]
	case strings.HasPrefix(lower, "http:/"):
		return "https://" + value[len("http:/"):]
	}
	return value
}
