package approval

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	reservationRepo "barberbook/database/repository/reservation"
	"barberbook/database/store"
	"barberbook/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

type names struct{}

func (names) GetName(context.Context, string) string { return "Sam" }

// flakyStore fails writes on demand.
type flakyStore struct {
	*store.MemoryStore
	fail bool
}

func (f *flakyStore) Update(ctx context.Context, kind store.Kind, id string, fields store.Document) error {
	if f.fail {
		return errors.New("unavailable")
	}
	return f.MemoryStore.Update(ctx, kind, id, fields)
}

func (f *flakyStore) Delete(ctx context.Context, kind store.Kind, id string) error {
	if f.fail {
		return errors.New("unavailable")
	}
	return f.MemoryStore.Delete(ctx, kind, id)
}

func setup(t *testing.T) (*Dashboard, *reservationRepo.DocumentReservationRepo, *flakyStore) {
	t.Helper()
	s := &flakyStore{MemoryStore: store.NewMemoryStore()}
	repo := reservationRepo.NewDocumentReservationRepo(s, names{}, zap.NewNop())
	for _, id := range []string{"r1", "r2"} {
		_, err := repo.Create(context.Background(), models.Reservation{
			ID: id, ProviderID: "p1", CustomerID: "u1", ServiceName: "Cut",
			Price: decimal.NewFromInt(20), ScheduledAt: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		})
		if err != nil {
			t.Fatalf("seed: %v", err)
		}
	}
	_, _ = repo.Create(context.Background(), models.Reservation{
		ID: "other", ProviderID: "p2", CustomerID: "u1", ServiceName: "Cut",
		Price: decimal.NewFromInt(20), ScheduledAt: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
	})

	d := NewDashboard("p1", repo, zap.NewNop())
	if err := d.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	t.Cleanup(d.Stop)
	select {
	case <-d.Ready():
	case <-time.After(2 * time.Second):
		t.Fatalf("dashboard never became ready")
	}
	return d, repo, s
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met in time")
}

func find(items []models.Reservation, id string) (models.Reservation, bool) {
	for _, r := range items {
		if r.ID == id {
			return r, true
		}
	}
	return models.Reservation{}, false
}

func TestSnapshotScopedToProvider(t *testing.T) {
	d, _, _ := setup(t)
	items, loaded := d.Snapshot()
	if !loaded || len(items) != 2 {
		t.Fatalf("expected the provider's 2 reservations, got %d (loaded=%v)", len(items), loaded)
	}
	if _, ok := find(items, "other"); ok {
		t.Fatalf("another provider's reservation leaked into the dashboard")
	}
}

func TestApproveTwoStep(t *testing.T) {
	d, repo, _ := setup(t)
	ctx := context.Background()

	token, err := d.RequestApprove("r1")
	if err != nil {
		t.Fatalf("request: %v", err)
	}

	// Nothing changes until the request is confirmed.
	if r, _ := repo.Get(ctx, "r1"); r.Approved {
		t.Fatalf("request alone must not approve")
	}

	if err := d.ConfirmApprove(ctx, token); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	eventually(t, func() bool {
		items, _ := d.Snapshot()
		r, ok := find(items, "r1")
		return ok && r.Approved
	})

	if err := d.ConfirmApprove(ctx, token); !errors.Is(err, ErrUnknownToken) {
		t.Fatalf("expected spent token to be rejected, got %v", err)
	}
	if _, err := d.RequestApprove("r1"); !errors.Is(err, ErrAlreadyApproved) {
		t.Fatalf("expected ErrAlreadyApproved, got %v", err)
	}
}

func TestCancelRemovesFromSnapshot(t *testing.T) {
	d, _, _ := setup(t)
	token, err := d.RequestCancel("r2")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if err := d.ConfirmCancel(context.Background(), token); err != nil {
		t.Fatalf("confirm: %v", err)
	}
	eventually(t, func() bool {
		items, _ := d.Snapshot()
		_, ok := find(items, "r2")
		return !ok && len(items) == 1
	})
}

func TestDismissLeavesStoreUntouched(t *testing.T) {
	d, repo, _ := setup(t)
	token, _ := d.RequestCancel("r1")
	if !d.Dismiss(token) {
		t.Fatalf("expected pending token to be dismissed")
	}
	if err := d.ConfirmCancel(context.Background(), token); !errors.Is(err, ErrUnknownToken) {
		t.Fatalf("expected dismissed token to be rejected, got %v", err)
	}
	if _, err := repo.Get(context.Background(), "r1"); err != nil {
		t.Fatalf("reservation should still exist, got %v", err)
	}
}

func TestRequestValidation(t *testing.T) {
	d, _, _ := setup(t)
	if _, err := d.RequestApprove("other"); !errors.Is(err, ErrNotInSnapshot) {
		t.Fatalf("expected ErrNotInSnapshot, got %v", err)
	}
	token, _ := d.RequestCancel("r1")
	if err := d.ConfirmApprove(context.Background(), token); !errors.Is(err, ErrActionMismatch) {
		t.Fatalf("expected ErrActionMismatch, got %v", err)
	}
	// A mismatched confirm does not spend the token.
	if p, err := d.Confirm(context.Background(), token); err != nil || p.Action != ActionCancel {
		t.Fatalf("expected generic confirm to cancel, got %+v %v", p, err)
	}
}

func TestFailedMutationKeepsSnapshot(t *testing.T) {
	d, _, s := setup(t)
	before, _ := d.Snapshot()

	s.fail = true
	token, _ := d.RequestApprove("r1")
	if err := d.ConfirmApprove(context.Background(), token); !errors.Is(err, models.ErrWriteFailure) {
		t.Fatalf("expected ErrWriteFailure, got %v", err)
	}
	after, loaded := d.Snapshot()
	if !loaded || len(after) != len(before) {
		t.Fatalf("snapshot changed after failed mutation")
	}
	if r, _ := find(after, "r1"); r.Approved {
		t.Fatalf("failed approval must not be applied optimistically")
	}

	// The subscription is still live.
	s.fail = false
	token, _ = d.RequestCancel("r2")
	_ = d.ConfirmCancel(context.Background(), token)
	eventually(t, func() bool {
		items, _ := d.Snapshot()
		return len(items) == 1
	})
}

func TestStopIsIdempotent(t *testing.T) {
	d, repo, _ := setup(t)
	d.Stop()
	d.Stop()

	if _, err := d.RequestApprove("r1"); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped, got %v", err)
	}
	_ = repo.Cancel(context.Background(), "r1")
	time.Sleep(20 * time.Millisecond)
	if items, _ := d.Snapshot(); len(items) != 2 {
		t.Fatalf("stopped dashboard must not receive snapshots, got %d items", len(items))
	}
}

func TestListenersReceiveSnapshots(t *testing.T) {
	d, repo, _ := setup(t)
	got := make(chan int, 4)
	remove := d.AddListener(func(items []models.Reservation) { got <- len(items) })
	defer remove()

	_ = repo.Cancel(context.Background(), "r1")
	select {
	case n := <-got:
		if n != 1 {
			t.Fatalf("expected 1 item, got %d", n)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("listener not called")
	}
}

func TestRegistryReusesDashboards(t *testing.T) {
	s := store.NewMemoryStore()
	repo := reservationRepo.NewDocumentReservationRepo(s, names{}, zap.NewNop())
	reg := NewRegistry(repo, zap.NewNop())
	defer reg.CloseAll()

	a, err := reg.Get(context.Background(), "p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	b, _ := reg.Get(context.Background(), "p1")
	if a != b {
		t.Fatalf("expected the same dashboard for one provider")
	}
	reg.Close("p1")
	c, _ := reg.Get(context.Background(), "p1")
	if c == a {
		t.Fatalf("expected a fresh dashboard after Close")
	}
	if _, err := a.RequestApprove("x"); !errors.Is(err, ErrStopped) {
		t.Fatalf("closed dashboard should be stopped, got %v", err)
	}
}

func TestApprovalIsMonotonicAndLeavesOthersUnchanged(t *testing.T) {
	d, repo, _ := setup(t)
	ctx := context.Background()
	initial, _ := d.Snapshot()
	before, _ := find(initial, "r2")

	var (
		mu        sync.Mutex
		snapshots [][]models.Reservation
	)
	remove := d.AddListener(func(items []models.Reservation) {
		mu.Lock()
		snapshots = append(snapshots, items)
		mu.Unlock()
	})
	defer remove()

	token, err := d.RequestApprove("r1")
	if err != nil {
		t.Fatalf("request: %v", err)
	}
	if err := d.ConfirmApprove(ctx, token); err != nil {
		t.Fatalf("confirm: %v", err)
	}

	// Later writes keep producing snapshots for the same provider.
	if err := repo.Approve(ctx, "r1"); err != nil {
		t.Fatalf("repeat approve: %v", err)
	}
	_, err = repo.Create(ctx, models.Reservation{
		ID: "r3", ProviderID: "p1", CustomerID: "u2", ServiceName: "Color",
		Price: decimal.NewFromInt(50), ScheduledAt: time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	eventually(t, func() bool {
		items, _ := d.Snapshot()
		_, ok := find(items, "r3")
		return ok
	})

	mu.Lock()
	defer mu.Unlock()
	if len(snapshots) == 0 {
		t.Fatalf("expected snapshots after approval")
	}
	seenApproved := false
	for i, items := range snapshots {
		r1, ok := find(items, "r1")
		if !ok {
			t.Fatalf("snapshot %d lost r1", i)
		}
		if seenApproved && !r1.Approved {
			t.Fatalf("snapshot %d shows r1 unapproved after approval", i)
		}
		seenApproved = seenApproved || r1.Approved
		r2, ok := find(items, "r2")
		if !ok || r2.Approved != before.Approved || r2.ServiceName != before.ServiceName ||
			!r2.Price.Equal(before.Price) || !r2.ScheduledAt.Equal(before.ScheduledAt) {
			t.Fatalf("snapshot %d changed r2: %+v, want %+v", i, r2, before)
		}
	}
	if !seenApproved {
		t.Fatalf("approval never reached a snapshot")
	}
}

func TestStopClosesDone(t *testing.T) {
	d, _, _ := setup(t)
	select {
	case <-d.Done():
		t.Fatalf("done closed before stop")
	default:
	}
	d.Stop()
	select {
	case <-d.Done():
	case <-time.After(time.Second):
		t.Fatalf("done not closed by stop")
	}
}

// gatedSource blocks subscriptions for one provider until release is closed.
type gatedSource struct {
	ReservationSource
	blocked string
	entered chan struct{}
	release chan struct{}
}

func (g *gatedSource) SubscribeForProvider(ctx context.Context, providerID string, onChange func([]models.Reservation)) (store.Unsubscribe, error) {
	if providerID == g.blocked {
		close(g.entered)
		<-g.release
	}
	return g.ReservationSource.SubscribeForProvider(ctx, providerID, onChange)
}

func TestRegistrySlowStartDoesNotBlockOthers(t *testing.T) {
	repo := reservationRepo.NewDocumentReservationRepo(store.NewMemoryStore(), names{}, zap.NewNop())
	src := &gatedSource{ReservationSource: repo, blocked: "slow", entered: make(chan struct{}), release: make(chan struct{})}
	reg := NewRegistry(src, zap.NewNop())
	defer reg.CloseAll()

	slow := make(chan *Dashboard, 1)
	go func() {
		d, _ := reg.Get(context.Background(), "slow")
		slow <- d
	}()
	<-src.entered

	fast := make(chan error, 1)
	go func() {
		_, err := reg.Get(context.Background(), "p1")
		fast <- err
	}()
	select {
	case err := <-fast:
		if err != nil {
			t.Fatalf("get: %v", err)
		}
	case <-time.After(2 * time.Second):
		close(src.release)
		t.Fatalf("a slow subscription blocked another provider's dashboard")
	}

	close(src.release)
	select {
	case d := <-slow:
		if d == nil {
			t.Fatalf("slow dashboard failed to start")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("slow dashboard never started")
	}
}

func TestRegistryRefusesAfterCloseAll(t *testing.T) {
	repo := reservationRepo.NewDocumentReservationRepo(store.NewMemoryStore(), names{}, zap.NewNop())
	reg := NewRegistry(repo, zap.NewNop())
	d, err := reg.Get(context.Background(), "p1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	reg.CloseAll()
	select {
	case <-d.Done():
	default:
		t.Fatalf("CloseAll did not stop the dashboard")
	}
	if _, err := reg.Get(context.Background(), "p1"); !errors.Is(err, ErrStopped) {
		t.Fatalf("expected ErrStopped after CloseAll, got %v", err)
	}
}
