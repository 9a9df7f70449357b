package cart

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/storefront-next/internal/identity"
	"github.com/storefront-next/internal/models"
	"github.com/storefront-next/internal/store"

	"github.com/google/go-cmp/cmp"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var errBackendDown = errors.New("backend down")

var moneyComparer = cmp.Comparer(func(a, b models.Money) bool { return a.Equal(b) })

// memLocal 内存版本地存储
type memLocal struct {
	mu       sync.Mutex
	lines    models.CartLines
	present  bool
	saves    int
	failLoad bool
}

func (s *memLocal) Load(ctx context.Context) (models.CartLines, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failLoad {
		return models.CartLines{}, &store.Error{Op: "load", Backend: "local", Err: errBackendDown}
	}
	return s.lines.Clone(), nil
}

func (s *memLocal) Save(ctx context.Context, lines models.CartLines) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saves++
	if len(lines) == 0 {
		s.lines = nil
		s.present = false
		return nil
	}
	s.lines = lines.Clone()
	s.present = true
	return nil
}

func (s *memLocal) Subscribe(fn func(models.CartLines)) func() {
	return func() {}
}

func (s *memLocal) snapshot() (models.CartLines, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lines.Clone(), s.present
}

// memRemote 内存版远端存储，保存后同步通知订阅者
type memRemote struct {
	mu       sync.Mutex
	carts    map[string]models.CartLines
	subs     map[string]map[int]func(models.CartLines)
	nextSub  int
	failSave bool
	// holdInitial 为真时首次投递暂存，由 releaseInitial 发出（即使已取消订阅）
	holdInitial bool
	held        []func()
	scopes      map[string]*remoteScope
}

func newMemRemote() *memRemote {
	return &memRemote{
		carts:  map[string]models.CartLines{},
		subs:   map[string]map[int]func(models.CartLines){},
		scopes: map[string]*remoteScope{},
	}
}

func (b *memRemote) factory(ownerID string) store.Store {
	b.mu.Lock()
	defer b.mu.Unlock()
	scope, ok := b.scopes[ownerID]
	if !ok {
		scope = &remoteScope{backend: b, ownerID: ownerID}
		b.scopes[ownerID] = scope
	}
	return scope
}

func (b *memRemote) seed(ownerID string, lines models.CartLines) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.carts[ownerID] = lines.Clone()
}

func (b *memRemote) cart(ownerID string) (models.CartLines, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	lines, ok := b.carts[ownerID]
	return lines.Clone(), ok
}

func (b *memRemote) subscribers(ownerID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[ownerID])
}

// write 模拟其他设备写入
func (b *memRemote) write(ownerID string, lines models.CartLines) {
	_ = b.factory(ownerID).Save(context.Background(), lines)
}

func (b *memRemote) releaseInitial() {
	b.mu.Lock()
	held := b.held
	b.held = nil
	b.mu.Unlock()
	for _, deliver := range held {
		deliver()
	}
}

type remoteScope struct {
	backend *memRemote
	ownerID string
}

func (s *remoteScope) Load(ctx context.Context) (models.CartLines, error) {
	lines, _ := s.backend.cart(s.ownerID)
	return lines, nil
}

func (s *remoteScope) Save(ctx context.Context, lines models.CartLines) error {
	b := s.backend
	b.mu.Lock()
	if b.failSave {
		b.mu.Unlock()
		return &store.Error{Op: "save", Backend: "remote", Err: errBackendDown}
	}
	if len(lines) == 0 {
		delete(b.carts, s.ownerID)
	} else {
		b.carts[s.ownerID] = lines.Clone()
	}
	targets := make([]func(models.CartLines), 0, len(b.subs[s.ownerID]))
	for _, fn := range b.subs[s.ownerID] {
		targets = append(targets, fn)
	}
	b.mu.Unlock()
	for _, fn := range targets {
		fn(lines.Clone())
	}
	return nil
}

func (s *remoteScope) Subscribe(fn func(models.CartLines)) func() {
	b := s.backend
	b.mu.Lock()
	b.nextSub++
	id := b.nextSub
	if b.subs[s.ownerID] == nil {
		b.subs[s.ownerID] = map[int]func(models.CartLines){}
	}
	b.subs[s.ownerID][id] = fn
	initial := b.carts[s.ownerID].Clone()
	hold := b.holdInitial
	if hold {
		b.held = append(b.held, func() { fn(initial) })
	}
	b.mu.Unlock()
	if !hold {
		fn(initial)
	}
	return func() {
		b.mu.Lock()
		delete(b.subs[s.ownerID], id)
		b.mu.Unlock()
	}
}

// fakeProvider 可手动切换身份的提供方
type fakeProvider struct {
	mu        sync.Mutex
	current   *identity.Identity
	listeners map[int]func(*identity.Identity)
	next      int
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{listeners: map[int]func(*identity.Identity){}}
}

func (p *fakeProvider) Current() *identity.Identity {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.current
}

func (p *fakeProvider) OnChange(fn func(*identity.Identity)) func() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.next++
	id := p.next
	p.listeners[id] = fn
	return func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		delete(p.listeners, id)
	}
}

func (p *fakeProvider) set(id *identity.Identity) {
	p.mu.Lock()
	p.current = id
	targets := make([]func(*identity.Identity), 0, len(p.listeners))
	for _, fn := range p.listeners {
		targets = append(targets, fn)
	}
	p.mu.Unlock()
	for _, fn := range targets {
		fn(id)
	}
}

func (p *fakeProvider) signIn(id string) {
	p.set(&identity.Identity{ID: id})
}

func (p *fakeProvider) signOut() {
	p.set(nil)
}

func (p *fakeProvider) SignIn(ctx context.Context, creds identity.Credentials) error { return nil }
func (p *fakeProvider) SignUp(ctx context.Context, creds identity.Credentials) error { return nil }
func (p *fakeProvider) SignOut(ctx context.Context) error                          { return nil }

type harness struct {
	local    *memLocal
	remote   *memRemote
	provider *fakeProvider
	manager  *Manager
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		local:    &memLocal{},
		remote:   newMemRemote(),
		provider: newFakeProvider(),
	}
	h.manager = NewManager(h.local, h.remote.factory, WithSaveTimeout(time.Second), WithLoadTimeout(time.Second))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := h.manager.Close(ctx); err != nil {
			t.Errorf("close manager failed: %v", err)
		}
	})
	return h
}

func (h *harness) start(t *testing.T) Snapshot {
	t.Helper()
	h.manager.Start(h.provider)
	return h.ready(t)
}

// ready 等待 Ready 并排空持久化队列
func (h *harness) ready(t *testing.T) Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := h.manager.WaitReady(ctx); err != nil {
		t.Fatalf("manager not ready: %v", err)
	}
	if err := h.manager.Flush(ctx); err != nil {
		t.Fatalf("flush failed: %v", err)
	}
	return h.manager.Snapshot()
}

func (h *harness) flush(t *testing.T) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	// 投递回调会再次入队，两轮保证回显处理完毕
	for i := 0; i < 2; i++ {
		if err := h.manager.Flush(ctx); err != nil {
			t.Fatalf("flush failed: %v", err)
		}
	}
}

func item(id, name string, price int64) Item {
	return Item{ID: id, Name: name, UnitPrice: models.NewMoneyFromInt(price), Image: "https://img.example/" + id + ".png"}
}

func line(id, name string, price int64, quantity int) Line {
	return Line{ID: id, Name: name, UnitPrice: models.NewMoneyFromInt(price), Image: "https://img.example/" + id + ".png", Quantity: quantity}
}

func assertLines(t *testing.T, want []Line, got []Line) {
	t.Helper()
	if len(want) == 0 && len(got) == 0 {
		return
	}
	if diff := cmp.Diff(want, got, moneyComparer); diff != "" {
		t.Fatalf("lines mismatch (-want +got):\n%s", diff)
	}
}
