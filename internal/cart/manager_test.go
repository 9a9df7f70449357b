package cart

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/storefront-next/internal/models"
)

func TestAddItemSameIDIncrementsQuantity(t *testing.T) {
	for calls := 1; calls <= 12; calls++ {
		lines := models.CartLines{}
		for i := 0; i < calls; i++ {
			lines, _ = addItem(item("1", "Apple", 40))(lines)
		}
		if len(lines) != 1 || lines[0].Quantity != calls {
			t.Fatalf("after %d adds want one line qty %d got %+v", calls, calls, lines)
		}
	}
}

func TestUpdateQuantityNonPositiveRemoves(t *testing.T) {
	base := models.CartLines{line("1", "Apple", 40, 2), line("2", "Orange", 30, 1)}
	for _, n := range []int{0, -5} {
		next, changed := updateQuantity("1", n)(base)
		if !changed {
			t.Fatalf("updateQuantity(%d) should change cart", n)
		}
		assertLines(t, []Line{line("2", "Orange", 30, 1)}, next)
	}
	next, changed := removeItem("missing")(base)
	if changed {
		t.Fatalf("removing absent id should be a no-op")
	}
	assertLines(t, base, next)
	if _, changed := updateQuantity("missing", 3)(base); changed {
		t.Fatalf("updating absent id should be a no-op")
	}
	if base[0].Quantity != 2 {
		t.Fatalf("mutations must not modify their input")
	}
}

func TestTotalPriceIsExact(t *testing.T) {
	if got := TotalPrice(nil); !got.Equal(models.NewMoneyFromInt(0)) {
		t.Fatalf("empty total want 0 got %s", got)
	}
	dime, _ := models.ParseMoney("0.10")
	fifth, _ := models.ParseMoney("0.20")
	lines := []Line{
		{ID: "a", UnitPrice: dime, Quantity: 3},
		{ID: "b", UnitPrice: fifth, Quantity: 1},
	}
	want, _ := models.ParseMoney("0.50")
	if got := TotalPrice(lines); !got.Equal(want) {
		t.Fatalf("total want %s got %s", want, got)
	}
	if got := TotalItems(lines); got != 4 {
		t.Fatalf("total items want 4 got %d", got)
	}
}

func TestAddItemRejectsInvalidItem(t *testing.T) {
	h := newHarness(t)
	h.start(t)
	if err := h.manager.AddItem(Item{Name: "no id", UnitPrice: models.NewMoneyFromInt(1)}); !errors.Is(err, ErrInvalidItem) {
		t.Fatalf("missing id want ErrInvalidItem got %v", err)
	}
	if err := h.manager.AddItem(Item{ID: "x", UnitPrice: models.NewMoneyFromInt(-1)}); !errors.Is(err, ErrInvalidItem) {
		t.Fatalf("negative price want ErrInvalidItem got %v", err)
	}
}

func TestGuestAddsApplesAndOrange(t *testing.T) {
	h := newHarness(t)
	snap := h.start(t)
	if snap.State != StateReady || snap.Owner != Guest() {
		t.Fatalf("want Ready(Guest) got %s/%+v", snap.State, snap.Owner)
	}

	_ = h.manager.AddItem(item("1", "Apple", 40))
	_ = h.manager.AddItem(item("1", "Apple", 40))
	_ = h.manager.AddItem(item("2", "Orange", 30))

	snap = h.manager.Snapshot()
	if len(snap.Lines) != 2 || snap.TotalItems != 3 {
		t.Fatalf("want 2 lines / 3 items got %d / %d", len(snap.Lines), snap.TotalItems)
	}
	if !snap.TotalPrice.Equal(models.NewMoneyFromInt(110)) {
		t.Fatalf("total price want 110 got %s", snap.TotalPrice)
	}

	h.flush(t)
	saved, present := h.local.snapshot()
	if !present {
		t.Fatalf("guest cart should be persisted locally")
	}
	assertLines(t, []Line{line("1", "Apple", 40, 2), line("2", "Orange", 30, 1)}, saved)
}

func TestSignInMigratesGuestCartWhenRemoteEmpty(t *testing.T) {
	h := newHarness(t)
	h.start(t)
	_ = h.manager.AddItem(item("1", "Apple", 40))
	_ = h.manager.AddItem(item("1", "Apple", 40))

	h.provider.signIn("u-1")
	snap := h.ready(t)
	h.flush(t)

	want := []Line{line("1", "Apple", 40, 2)}
	if snap.Owner != User("u-1") {
		t.Fatalf("owner want User(u-1) got %+v", snap.Owner)
	}
	assertLines(t, want, snap.Lines)
	remote, ok := h.remote.cart("u-1")
	if !ok {
		t.Fatalf("remote record should exist after migration")
	}
	assertLines(t, want, remote)
	if _, present := h.local.snapshot(); present {
		t.Fatalf("local snapshot should be deleted after migration")
	}
}

func TestSignInAdoptsNonEmptyRemoteCart(t *testing.T) {
	h := newHarness(t)
	remoteLines := models.CartLines{line("7", "Milk", 55, 1), line("8", "Bread", 35, 2), line("9", "Juice", 25, 1)}
	h.remote.seed("u-1", remoteLines)
	h.start(t)
	_ = h.manager.AddItem(item("1", "Apple", 40))
	h.flush(t)

	h.provider.signIn("u-1")
	snap := h.ready(t)
	h.flush(t)
	assertLines(t, remoteLines, snap.Lines)
	if _, present := h.local.snapshot(); !present {
		t.Fatalf("local snapshot is only deleted on the next guest transition")
	}

	h.provider.signOut()
	snap = h.ready(t)
	if snap.Owner != Guest() || len(snap.Lines) != 0 {
		t.Fatalf("discarded guest cart should not come back, got %+v", snap)
	}
	if _, present := h.local.snapshot(); present {
		t.Fatalf("local snapshot should be deleted on guest transition")
	}
}

func TestSignOutRevertsToLocalAndStopsRemote(t *testing.T) {
	h := newHarness(t)
	h.remote.seed("u-1", models.CartLines{line("7", "Milk", 55, 1)})
	h.provider.signIn("u-1")
	h.start(t)
	if h.remote.subscribers("u-1") != 1 {
		t.Fatalf("want one remote subscription")
	}

	h.provider.signOut()
	snap := h.ready(t)
	if snap.Owner != Guest() || len(snap.Lines) != 0 {
		t.Fatalf("want empty guest cart got %+v", snap)
	}
	if h.remote.subscribers("u-1") != 0 {
		t.Fatalf("remote subscription should be torn down")
	}

	revision := h.manager.Snapshot().Revision
	h.remote.write("u-1", models.CartLines{line("8", "Bread", 35, 4)})
	h.flush(t)
	after := h.manager.Snapshot()
	if after.Revision != revision || len(after.Lines) != 0 {
		t.Fatalf("remote writes after sign out must not change state, got %+v", after)
	}
}

func TestRemoteWinsDiscardsGuestCartOnSignOut(t *testing.T) {
	h := newHarness(t)
	h.local.lines = models.CartLines{line("3", "Chips", 20, 1)}
	h.local.present = true
	h.remote.seed("u-1", models.CartLines{line("7", "Milk", 55, 1)})
	h.start(t)
	h.provider.signIn("u-1")
	h.ready(t)
	_ = h.manager.AddItem(item("8", "Bread", 35))
	h.flush(t)

	// 由于远端胜出，访客购物车被丢弃
	h.provider.signOut()
	snap := h.ready(t)
	if len(snap.Lines) != 0 {
		t.Fatalf("guest cart after remote-wins should be empty got %+v", snap.Lines)
	}
	remote, _ := h.remote.cart("u-1")
	assertLines(t, []Line{line("7", "Milk", 55, 1), line("8", "Bread", 35, 1)}, remote)
}

func TestMutationsWhileLoadingReplayInOrder(t *testing.T) {
	h := newHarness(t)
	h.remote.holdInitial = true
	h.provider.signIn("u-1")
	h.manager.Start(h.provider)

	if got := h.manager.Snapshot().State; got != StateLoading {
		t.Fatalf("state want loading got %s", got)
	}
	_ = h.manager.AddItem(item("1", "Apple", 40))
	_ = h.manager.AddItem(item("2", "Orange", 30))
	h.manager.UpdateQuantity("1", 5)
	h.manager.RemoveItem("2")

	h.remote.releaseInitial()
	snap := h.ready(t)
	h.flush(t)
	assertLines(t, []Line{line("1", "Apple", 40, 5)}, snap.Lines)
	remote, _ := h.remote.cart("u-1")
	assertLines(t, []Line{line("1", "Apple", 40, 5)}, remote)
}

func TestLateDeliveryForPreviousIdentityIsDiscarded(t *testing.T) {
	h := newHarness(t)
	h.remote.seed("u-1", models.CartLines{line("7", "Milk", 55, 1)})
	h.remote.seed("u-2", models.CartLines{line("8", "Bread", 35, 2)})
	h.remote.holdInitial = true
	h.provider.signIn("u-1")
	h.manager.Start(h.provider)

	h.remote.holdInitial = false
	h.provider.signIn("u-2")
	snap := h.ready(t)
	assertLines(t, []Line{line("8", "Bread", 35, 2)}, snap.Lines)

	// u-1 的首次投递迟到
	h.remote.releaseInitial()
	h.flush(t)
	snap = h.manager.Snapshot()
	if snap.Owner != User("u-2") {
		t.Fatalf("owner want u-2 got %+v", snap.Owner)
	}
	assertLines(t, []Line{line("8", "Bread", 35, 2)}, snap.Lines)
}

func TestOwnEchoesDoNotRegressCart(t *testing.T) {
	h := newHarness(t)
	h.provider.signIn("u-1")
	h.start(t)

	var mu sync.Mutex
	var quantities []int
	h.manager.Subscribe(func(s Snapshot) {
		mu.Lock()
		defer mu.Unlock()
		if len(s.Lines) > 0 {
			quantities = append(quantities, s.Lines[0].Quantity)
		}
	})
	for i := 0; i < 5; i++ {
		_ = h.manager.AddItem(item("1", "Apple", 40))
	}
	h.flush(t)

	snap := h.manager.Snapshot()
	assertLines(t, []Line{line("1", "Apple", 40, 5)}, snap.Lines)
	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < len(quantities); i++ {
		if quantities[i] < quantities[i-1] {
			t.Fatalf("observer saw quantity regress: %v", quantities)
		}
	}
	if len(quantities) != 5 {
		t.Fatalf("want exactly one notification per mutation got %v", quantities)
	}
}

func TestForeignRemoteChangeReplacesCart(t *testing.T) {
	h := newHarness(t)
	h.provider.signIn("u-1")
	h.start(t)
	_ = h.manager.AddItem(item("1", "Apple", 40))
	h.flush(t)

	h.remote.write("u-1", models.CartLines{line("9", "Juice", 25, 3)})
	h.flush(t)
	assertLines(t, []Line{line("9", "Juice", 25, 3)}, h.manager.Snapshot().Lines)

	h.remote.write("u-1", nil)
	h.flush(t)
	if lines := h.manager.Snapshot().Lines; len(lines) != 0 {
		t.Fatalf("remote delete should empty the cart got %+v", lines)
	}
}

func TestSaveFailureKeepsInMemoryCart(t *testing.T) {
	h := newHarness(t)
	h.provider.signIn("u-1")
	h.start(t)
	h.remote.mu.Lock()
	h.remote.failSave = true
	h.remote.mu.Unlock()

	_ = h.manager.AddItem(item("1", "Apple", 40))
	h.flush(t)
	assertLines(t, []Line{line("1", "Apple", 40, 1)}, h.manager.Snapshot().Lines)
	if _, ok := h.remote.cart("u-1"); ok {
		t.Fatalf("failed save should not create a record")
	}
}

func TestFailedMigrationKeepsLocalSnapshot(t *testing.T) {
	h := newHarness(t)
	h.start(t)
	_ = h.manager.AddItem(item("1", "Apple", 40))
	h.flush(t)
	h.remote.mu.Lock()
	h.remote.failSave = true
	h.remote.mu.Unlock()

	h.provider.signIn("u-1")
	snap := h.ready(t)
	h.flush(t)
	assertLines(t, []Line{line("1", "Apple", 40, 1)}, snap.Lines)
	if _, present := h.local.snapshot(); !present {
		t.Fatalf("local snapshot must survive a failed migration")
	}
}

func TestLocalLoadFailureDegradesToEmpty(t *testing.T) {
	h := newHarness(t)
	h.local.failLoad = true
	snap := h.start(t)
	if snap.State != StateReady || len(snap.Lines) != 0 {
		t.Fatalf("failed load want Ready with empty cart got %+v", snap)
	}
}

func TestClearCartDeletesActiveBackend(t *testing.T) {
	h := newHarness(t)
	h.start(t)
	_ = h.manager.AddItem(item("1", "Apple", 40))
	h.flush(t)
	h.manager.ClearCart()
	h.flush(t)
	if _, present := h.local.snapshot(); present {
		t.Fatalf("guest clear should delete the local snapshot")
	}

	h.provider.signIn("u-1")
	h.ready(t)
	_ = h.manager.AddItem(item("2", "Orange", 30))
	h.flush(t)
	h.manager.ClearCart()
	h.flush(t)
	if _, ok := h.remote.cart("u-1"); ok {
		t.Fatalf("user clear should delete the remote record")
	}
}

func TestNoopMutationsDoNotNotify(t *testing.T) {
	h := newHarness(t)
	h.start(t)
	calls := 0
	unsubscribe := h.manager.Subscribe(func(Snapshot) { calls++ })
	h.manager.RemoveItem("absent")
	h.manager.UpdateQuantity("absent", 2)
	h.manager.ClearCart()
	if calls != 0 {
		t.Fatalf("no-op mutations notified %d times", calls)
	}
	_ = h.manager.AddItem(item("1", "Apple", 40))
	unsubscribe()
	_ = h.manager.AddItem(item("1", "Apple", 40))
	if calls != 1 {
		t.Fatalf("want one notification before unsubscribe got %d", calls)
	}
}

func TestCloseStopsEverything(t *testing.T) {
	h := newHarness(t)
	h.provider.signIn("u-1")
	h.start(t)
	_ = h.manager.AddItem(item("1", "Apple", 40))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := h.manager.Close(ctx); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	remote, _ := h.remote.cart("u-1")
	assertLines(t, []Line{line("1", "Apple", 40, 1)}, remote)
	if h.remote.subscribers("u-1") != 0 {
		t.Fatalf("close should unsubscribe remote")
	}

	revision := h.manager.Snapshot().Revision
	_ = h.manager.AddItem(item("2", "Orange", 30))
	h.provider.signOut()
	if h.manager.Snapshot().Revision != revision {
		t.Fatalf("closed manager must ignore mutations and identity changes")
	}
}

func TestSignOutRevertsToWhateverLocalHolds(t *testing.T) {
	h := newHarness(t)
	h.start(t)
	_ = h.manager.AddItem(item("1", "Apple", 40))
	h.flush(t)
	h.remote.mu.Lock()
	h.remote.failSave = true
	h.remote.mu.Unlock()
	h.provider.signIn("u-1")
	h.ready(t)
	h.flush(t)

	h.provider.signOut()
	snap := h.ready(t)
	if snap.Owner != Guest() {
		t.Fatalf("owner want guest got %+v", snap.Owner)
	}
	assertLines(t, []Line{line("1", "Apple", 40, 1)}, snap.Lines)
}

func TestNormalizeDropsInvalidAndMergesDuplicates(t *testing.T) {
	got := normalize(models.CartLines{
		line("1", "Apple", 40, 0),
		line("2", "Orange", 30, 2),
		line("", "Nameless", 10, 1),
		line("3", "Milk", 55, -1),
		line("2", "Orange", 30, 3),
	})
	assertLines(t, []Line{line("2", "Orange", 30, 5)}, got)
	if got := normalize(nil); got == nil || len(got) != 0 {
		t.Fatalf("nil snapshot want empty cart got %#v", got)
	}
}

func TestMalformedLocalSnapshotIsNormalized(t *testing.T) {
	h := newHarness(t)
	h.local.lines = models.CartLines{
		line("1", "Apple", 40, 0),
		line("2", "Orange", 30, 2),
		line("2", "Orange", 30, 3),
	}
	h.local.present = true

	snap := h.start(t)
	assertLines(t, []Line{line("2", "Orange", 30, 5)}, snap.Lines)
	if snap.TotalItems != 5 {
		t.Fatalf("total items want 5 got %d", snap.TotalItems)
	}

	h.manager.RemoveItem("2")
	if lines := h.manager.Snapshot().Lines; len(lines) != 0 {
		t.Fatalf("removing the merged line should empty the cart got %+v", lines)
	}
}

func TestMalformedRemoteSnapshotIsNormalized(t *testing.T) {
	h := newHarness(t)
	h.remote.seed("u-1", models.CartLines{
		line("7", "Milk", 55, 1),
		line("7", "Milk", 55, 1),
		line("8", "Bread", 35, 0),
	})
	h.provider.signIn("u-1")
	snap := h.start(t)
	assertLines(t, []Line{line("7", "Milk", 55, 2)}, snap.Lines)

	h.remote.write("u-1", models.CartLines{line("9", "Juice", 25, 0), line("9", "Juice", 25, 2), line("9", "Juice", 25, 1)})
	h.flush(t)
	assertLines(t, []Line{line("9", "Juice", 25, 3)}, h.manager.Snapshot().Lines)
}
