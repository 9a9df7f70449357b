package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/storefront-next/internal/cache"
	"github.com/storefront-next/internal/config"
	"github.com/storefront-next/internal/constants"
	"github.com/storefront-next/internal/logger"

	"github.com/sony/gobreaker/v2"
	"golang.org/x/sync/singleflight"
)

var (
	ErrRequestFailed   = errors.New("catalog request failed")
	ErrResponseInvalid = errors.New("catalog response invalid")
	ErrItemNotFound    = errors.New("catalog item not found")
)

const (
	defaultTimeout     = 5 * time.Second
	defaultBreakerOpen = 30 * time.Second
	defaultBreakerTrip = 5
	maxResponseBytes   = 8 << 20
)

// Options 商品目录客户端配置
type Options struct {
	BaseURL         string
	ItemsPath       string
	AllItemsPath    string
	Timeout         time.Duration
	MaxItems        int
	CacheTTL        time.Duration
	BreakerFailures uint32
	BreakerOpen     time.Duration
	DefaultCountry  string
	HTTPClient      *http.Client
}

// OptionsFromConfig 从应用配置构建客户端配置
func OptionsFromConfig(cfg config.CatalogConfig) Options {
	return Options{
		BaseURL:         cfg.BaseURL,
		ItemsPath:       cfg.ItemsPath,
		AllItemsPath:    cfg.AllItemsPath,
		Timeout:         time.Duration(cfg.TimeoutMS) * time.Millisecond,
		MaxItems:        cfg.MaxItems,
		CacheTTL:        time.Duration(cfg.CacheTTLSeconds) * time.Second,
		BreakerFailures: uint32(max(cfg.BreakerFailures, 0)),
		BreakerOpen:     time.Duration(cfg.BreakerOpenSecs) * time.Second,
		DefaultCountry:  cfg.DefaultCountry,
	}
}

// Client 商品目录数据源客户端
type Client struct {
	opts    Options
	http    *http.Client
	breaker *gobreaker.CircuitBreaker[[]Item]
	group   singleflight.Group
}

// NewClient 创建商品目录客户端
func NewClient(opts Options) *Client {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}
	if opts.MaxItems <= 0 {
		opts.MaxItems = constants.CatalogDefaultMaxItems
	}
	if opts.BreakerFailures == 0 {
		opts.BreakerFailures = defaultBreakerTrip
	}
	if opts.BreakerOpen <= 0 {
		opts.BreakerOpen = defaultBreakerOpen
	}
	if strings.TrimSpace(opts.AllItemsPath) == "" {
		opts.AllItemsPath = "/"
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	trip := opts.BreakerFailures
	breaker := gobreaker.NewCircuitBreaker[[]Item](gobreaker.Settings{
		Name:    "catalog",
		Timeout: opts.BreakerOpen,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= trip
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warnw("catalog_breaker_state_changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return &Client{opts: opts, http: httpClient, breaker: breaker}
}

// ListItems 拉取商品列表，最多保留 MaxItems 条
// 上游异常时记录日志并返回空列表
func (c *Client) ListItems(ctx context.Context, query Query) []Item {
	items, err := c.list(ctx, query.normalize(c.opts.DefaultCountry))
	if err != nil {
		logger.Warnw("catalog_list_failed",
			"category", query.Category,
			"brand", query.Brand,
			"country", query.Country,
			"error", err,
		)
		return []Item{}
	}
	return items
}

// GetItem 按 ID 查找商品
func (c *Client) GetItem(ctx context.Context, id string) (*Item, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, ErrItemNotFound
	}
	items, err := c.list(ctx, Query{})
	if err != nil {
		return nil, err
	}
	for i := range items {
		if items[i].ID == id {
			item := items[i]
			return &item, nil
		}
	}
	return nil, ErrItemNotFound
}

func (c *Client) list(ctx context.Context, query Query) ([]Item, error) {
	key := query.cacheKey()
	var cached []Item
	if hit, err := cache.GetJSON(ctx, key, &cached); err != nil {
		logger.Warnw("catalog_cache_read_failed", "key", key, "error", err)
	} else if hit {
		return cached, nil
	}

	value, err, _ := c.group.Do(key, func() (interface{}, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.opts.Timeout)
		defer cancel()
		items, err := c.breaker.Execute(func() ([]Item, error) {
			return c.fetch(fetchCtx, query)
		})
		if err != nil {
			return nil, err
		}
		if c.opts.CacheTTL > 0 {
			if err := cache.SetJSON(fetchCtx, key, items, c.opts.CacheTTL); err != nil {
				logger.Warnw("catalog_cache_write_failed", "key", key, "error", err)
			}
		}
		return items, nil
	})
	if err != nil {
		return nil, err
	}
	return value.([]Item), nil
}

func (c *Client) fetch(ctx context.Context, query Query) ([]Item, error) {
	endpoint := c.endpoint(query)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: build request failed: %v", ErrRequestFailed, err)
	}
	req.Header.Set("Accept", "application/json")
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: status %d", ErrRequestFailed, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read response failed: %v", ErrRequestFailed, err)
	}

	var raw []upstreamItem
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrResponseInvalid, err)
	}
	items := make([]Item, 0, min(len(raw), c.opts.MaxItems))
	for _, entry := range raw {
		if len(items) >= c.opts.MaxItems {
			break
		}
		item, ok := entry.toItem()
		if !ok {
			continue
		}
		items = append(items, item)
	}
	return items, nil
}

func (c *Client) endpoint(query Query) string {
	base := strings.TrimRight(strings.TrimSpace(c.opts.BaseURL), "/")
	path := c.opts.AllItemsPath
	values := url.Values{}
	if !query.empty() {
		path = c.opts.ItemsPath
		if query.Category != "" {
			values.Set("cat", query.Category)
		}
		if query.Brand != "" {
			values.Set("brand", query.Brand)
		}
		if query.Country != "" {
			values.Set("country", query.Country)
		}
	}
	path = strings.TrimSpace(path)
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if encoded := values.Encode(); encoded != "" {
		return base + path + "?" + encoded
	}
	return base + path
}

// Page 按页切分商品列表，返回当前页与总页数
func Page(items []Item, page, pageSize int) ([]Item, int) {
	if pageSize <= 0 {
		pageSize = constants.CatalogDefaultPageSize
	}
	totalPages := (len(items) + pageSize - 1) / pageSize
	if page < 1 {
		page = 1
	}
	start := (page - 1) * pageSize
	if start >= len(items) {
		return []Item{}, totalPages
	}
	end := min(start+pageSize, len(items))
	return items[start:end], totalPages
}
