package services

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/mallmap/core/internal/adapters/document"
	"github.com/mallmap/core/internal/adapters/repository"
	"github.com/mallmap/core/internal/domain/entities"
	"github.com/mallmap/core/internal/domain/geo"
	"github.com/mallmap/core/internal/infrastructure/logger"
	"github.com/mallmap/core/internal/ports"
)

var (
	admin   = &entities.Caller{Username: "admin", Role: entities.RoleAdmin}
	manager = &entities.Caller{Username: "manager", Role: entities.RoleManager}
	store   = &entities.Caller{Username: "store", Role: entities.RoleStore}
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []ports.StatusEvent
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, events ...ports.StatusEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

type countingMetrics struct {
	mu                                           sync.Mutex
	mallToggles, storeToggles, cascades, updates int
	persistFailures                              []string
}

func (m *countingMetrics) MallToggled(bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.mallToggles++
}

func (m *countingMetrics) StoreToggled(_ bool, cascade bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.storeToggles++
	if cascade {
		m.cascades++
	}
}

func (m *countingMetrics) StoreUpdated() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates++
}

func (m *countingMetrics) PersistFailed(op string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.persistFailures = append(m.persistFailures, op)
}

// failingDoc reads like an empty backend and refuses every write.
type failingDoc struct{}

func (failingDoc) Read(context.Context) ([]byte, error) { return nil, ports.ErrDocumentNotFound }
func (failingDoc) Write(context.Context, []byte) error  { return errors.New("disk full") }
func (failingDoc) Ping(context.Context) error           { return nil }
func (failingDoc) Name() string                         { return "failing" }

type fixture struct {
	svc     *MallService
	repo    *repository.MallRepositoryImpl
	doc     ports.DocumentStore
	events  *recordingPublisher
	metrics *countingMetrics
}

func newFixture(t *testing.T, doc ports.DocumentStore) *fixture {
	t.Helper()
	if doc == nil {
		doc = document.NewMemory(nil)
	}
	repo := repository.NewMallRepository(doc, logger.NewNop(), repository.WithJitter(func() float64 { return 0 }))
	if err := repo.Load(context.Background()); err != nil {
		t.Fatalf("Load: %v", err)
	}
	events := &recordingPublisher{}
	metrics := &countingMetrics{}
	return &fixture{
		svc:     NewMallService(repo, events, metrics, logger.NewNop()),
		repo:    repo,
		doc:     doc,
		events:  events,
		metrics: metrics,
	}
}

func (f *fixture) stored(t *testing.T) []entities.Mall {
	t.Helper()
	data, err := f.doc.Read(context.Background())
	if err != nil {
		t.Fatalf("read document: %v", err)
	}
	var malls []entities.Mall
	if err := json.Unmarshal(data, &malls); err != nil {
		t.Fatalf("decode document: %v", err)
	}
	return malls
}

func TestAuthorize(t *testing.T) {
	tests := []struct {
		name    string
		caller  *entities.Caller
		allowed []entities.Role
		want    error
	}{
		{"nil caller", nil, []entities.Role{entities.RoleAdmin}, entities.ErrUnauthenticated},
		{"allowed", admin, []entities.Role{entities.RoleAdmin}, nil},
		{"one of many", store, entities.AllRoles, nil},
		{"wrong role", manager, []entities.Role{entities.RoleAdmin}, entities.ErrForbidden},
		{"unknown role", &entities.Caller{Username: "x", Role: "owner"}, []entities.Role{"owner"}, entities.ErrForbidden},
		{"no roles allowed", admin, nil, entities.ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := Authorize(tt.caller, tt.allowed...); !errors.Is(err, tt.want) || (tt.want == nil && err != nil) {
				t.Fatalf("Authorize = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestToggleMall_ClosingCascadesToStores(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	status, err := f.svc.ToggleMall(ctx, 1, admin)
	if err != nil {
		t.Fatalf("ToggleMall: %v", err)
	}
	if status.ID != 1 || status.Name != "Villaggio Mall" || status.IsOpen {
		t.Fatalf("unexpected status %+v", status)
	}

	for _, malls := range [][]entities.Mall{f.repo.List(ctx), f.stored(t)} {
		m := entities.FindMall(malls, 1)
		if m.IsOpen {
			t.Fatalf("mall 1 should be closed")
		}
		for _, s := range m.Stores {
			if s.IsOpen {
				t.Fatalf("store %d should be closed after cascade", s.ID)
			}
		}
	}

	// one mall event plus one per store the cascade closed
	if len(f.events.events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(f.events.events))
	}
	if ev := f.events.events[0]; ev.Type != ports.EventMallToggled || ev.Actor != "admin" || *ev.IsOpen {
		t.Fatalf("unexpected mall event %+v", ev)
	}
	for _, ev := range f.events.events[1:] {
		if ev.Type != ports.EventStoreToggled || !ev.Cascade || *ev.IsOpen {
			t.Fatalf("unexpected cascade event %+v", ev)
		}
	}
	if f.metrics.mallToggles != 1 || f.metrics.cascades != 2 {
		t.Fatalf("unexpected metrics: %d mall toggles, %d cascades", f.metrics.mallToggles, f.metrics.cascades)
	}
}

func TestToggleMall_OpeningDoesNotReopenStores(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	if _, err := f.svc.ToggleMall(ctx, 1, admin); err != nil {
		t.Fatal(err)
	}
	status, err := f.svc.ToggleMall(ctx, 1, admin)
	if err != nil {
		t.Fatal(err)
	}
	if !status.IsOpen {
		t.Fatalf("mall should be open again")
	}
	m, _ := f.repo.FindMall(ctx, 1)
	for _, s := range m.Stores {
		if s.IsOpen {
			t.Fatalf("store %d must stay closed after reopening the mall", s.ID)
		}
	}
}

func TestToggleMall_Errors(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	if _, err := f.svc.ToggleMall(ctx, 999, admin); !errors.Is(err, entities.ErrMallNotFound) || !errors.Is(err, entities.ErrNotFound) {
		t.Fatalf("expected ErrMallNotFound, got %v", err)
	}
	if _, err := f.svc.ToggleMall(ctx, 1, manager); !errors.Is(err, entities.ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
	if _, err := f.svc.ToggleMall(ctx, 1, nil); !errors.Is(err, entities.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if len(f.events.events) != 0 {
		t.Fatalf("failed operations must not publish events")
	}
}

func TestToggleStore_RefusedWhileMallClosed(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	if _, err := f.svc.ToggleMall(ctx, 1, admin); err != nil {
		t.Fatal(err)
	}
	_, err := f.svc.ToggleStore(ctx, 1, 1, manager)
	if !errors.Is(err, entities.ErrInvalidOperation) {
		t.Fatalf("expected ErrInvalidOperation, got %v", err)
	}
	if err.Error() != "cannot open store while mall is closed: invalid operation" {
		t.Fatalf("unexpected message %q", err.Error())
	}
	s, _, _ := f.repo.FindStore(ctx, 1, nil)
	if s.IsOpen {
		t.Fatalf("store must stay closed")
	}
}

func TestToggleStore_FlipsExactlyOnce(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	status, err := f.svc.ToggleStore(ctx, 2, 4, manager)
	if err != nil {
		t.Fatalf("ToggleStore: %v", err)
	}
	if status.ID != 4 || status.Name != "Virgin Megastore" || !status.IsOpen || status.MallID != 2 {
		t.Fatalf("unexpected status %+v", status)
	}
	stored := entities.FindMall(f.stored(t), 2).FindStore(4)
	if !stored.IsOpen {
		t.Fatalf("toggle not persisted")
	}

	status, err = f.svc.ToggleStore(ctx, 2, 4, manager)
	if err != nil || status.IsOpen {
		t.Fatalf("second toggle should close the store: %+v, %v", status, err)
	}
	if f.metrics.storeToggles != 2 || len(f.events.events) != 2 {
		t.Fatalf("expected two toggles recorded, got %d metrics %d events", f.metrics.storeToggles, len(f.events.events))
	}
}

func TestToggleStore_ConcurrentTogglesSerialize(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	// an even number of flips must land back on the starting state
	const n = 50
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := f.svc.ToggleStore(ctx, 1, 1, manager); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("ToggleStore: %v", err)
	}

	if !entities.FindMall(f.repo.List(ctx), 1).FindStore(1).IsOpen {
		t.Fatalf("store 1 should be open after %d toggles", n)
	}
	if !entities.FindMall(f.stored(t), 1).FindStore(1).IsOpen {
		t.Fatalf("persisted store 1 should be open after %d toggles", n)
	}
	if f.metrics.storeToggles != n || len(f.events.events) != n {
		t.Fatalf("expected %d toggles recorded, got %d metrics %d events", n, f.metrics.storeToggles, len(f.events.events))
	}
}

func TestToggleStore_Errors(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	tests := []struct {
		name    string
		mallID  int
		storeID int
		caller  *entities.Caller
		want    error
	}{
		{"unknown mall", 999, 1, manager, entities.ErrMallNotFound},
		{"store in other mall", 1, 3, manager, entities.ErrStoreNotFound},
		{"unknown store", 1, 999, manager, entities.ErrStoreNotFound},
		{"admin not allowed", 1, 1, admin, entities.ErrForbidden},
		{"store not allowed", 1, 1, store, entities.ErrForbidden},
		{"anonymous", 1, 1, nil, entities.ErrUnauthenticated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.ToggleStore(ctx, tt.mallID, tt.storeID, tt.caller); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestUpdateStore_SkipsEmptyFields(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	before, _, _ := f.repo.FindStore(ctx, 1, nil)
	got, err := f.svc.UpdateStore(ctx, 1, 1, entities.StorePatch{Name: "", Description: "New text"}, store)
	if err != nil {
		t.Fatalf("UpdateStore: %v", err)
	}
	if got.Name != before.Name || got.Description != "New text" || got.OpeningHours != before.OpeningHours {
		t.Fatalf("only description should change: %+v", got)
	}
	if got.MallID != 1 || got.MallName != "Villaggio Mall" {
		t.Fatalf("expected mall annotation, got %d %q", got.MallID, got.MallName)
	}
	if entities.FindMall(f.stored(t), 1).FindStore(1).Description != "New text" {
		t.Fatalf("update not persisted")
	}
	if f.metrics.updates != 1 || len(f.events.events) != 1 || f.events.events[0].Type != ports.EventStoreUpdated {
		t.Fatalf("expected one store.updated event, got %+v", f.events.events)
	}
}

func TestUpdateStore_OpeningHoursOnly(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	before, _, _ := f.repo.FindStore(ctx, 1, nil)
	got, err := f.svc.UpdateStore(ctx, 1, 1, entities.StorePatch{OpeningHours: "9-5"}, store)
	if err != nil {
		t.Fatalf("UpdateStore: %v", err)
	}
	if got.OpeningHours != "9-5" || got.MallID != 1 {
		t.Fatalf("unexpected result %+v", got)
	}
	if got.Name != before.Name || got.Type != before.Type || got.IsOpen != before.IsOpen {
		t.Fatalf("unrelated fields changed: %+v", got)
	}
}

func TestUpdateStore_Contact(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	// Carrefour starts without contact details
	got, err := f.svc.UpdateStore(ctx, 1, 2, entities.StorePatch{
		Contact: &entities.ContactPatch{Phone: "+974 4444 0000"},
	}, store)
	if err != nil {
		t.Fatalf("UpdateStore: %v", err)
	}
	if got.Contact == nil || got.Contact.Phone != "+974 4444 0000" || got.Contact.Email != "" {
		t.Fatalf("unexpected contact %+v", got.Contact)
	}
}

func TestUpdateStore_Errors(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	bound := &entities.Caller{Username: "zara", Role: entities.RoleStore, StoreID: 1}

	tests := []struct {
		name    string
		mallID  int
		storeID int
		patch   entities.StorePatch
		caller  *entities.Caller
		want    error
	}{
		{"manager not allowed", 1, 1, entities.StorePatch{Name: "x"}, manager, entities.ErrForbidden},
		{"anonymous", 1, 1, entities.StorePatch{Name: "x"}, nil, entities.ErrUnauthenticated},
		{"unknown mall", 999, 1, entities.StorePatch{Name: "x"}, store, entities.ErrMallNotFound},
		{"unknown store", 1, 999, entities.StorePatch{Name: "x"}, store, entities.ErrStoreNotFound},
		{"bad email", 1, 1, entities.StorePatch{Contact: &entities.ContactPatch{Email: "not-an-email"}}, store, entities.ErrValidation},
		{"bad website", 1, 1, entities.StorePatch{Contact: &entities.ContactPatch{Website: "nope"}}, store, entities.ErrValidation},
		{"bound to another store", 1, 2, entities.StorePatch{Name: "x"}, bound, entities.ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := f.svc.UpdateStore(ctx, tt.mallID, tt.storeID, tt.patch, tt.caller); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}

	if _, err := f.svc.UpdateStore(ctx, 1, 1, entities.StorePatch{Name: "Zara Home"}, bound); err != nil {
		t.Fatalf("bound account editing its own store: %v", err)
	}
	s, _, _ := f.repo.FindStore(ctx, 2, nil)
	if s.Name != "Carrefour" {
		t.Fatalf("forbidden update leaked into store 2: %q", s.Name)
	}
}

func TestMutations_PersistFailure(t *testing.T) {
	f := newFixture(t, failingDoc{})
	ctx := context.Background()

	_, err := f.svc.ToggleMall(ctx, 1, admin)
	if !errors.Is(err, entities.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}

	// the in-memory change is kept
	m, _ := f.repo.FindMall(ctx, 1)
	if m.IsOpen {
		t.Fatalf("in-memory toggle should survive a failed write")
	}
	if len(f.events.events) != 0 {
		t.Fatalf("no events may be published for an unpersisted change")
	}
	if len(f.metrics.persistFailures) != 1 || f.metrics.persistFailures[0] != "toggle_mall" {
		t.Fatalf("unexpected persist failure metrics %v", f.metrics.persistFailures)
	}

	if _, err := f.svc.UpdateStore(ctx, 2, 3, entities.StorePatch{Type: "Fashion"}, store); !errors.Is(err, entities.ErrPersistence) {
		t.Fatalf("expected ErrPersistence, got %v", err)
	}
}

func TestMutations_PublishFailureDoesNotFailRequest(t *testing.T) {
	f := newFixture(t, nil)
	f.events.err = errors.New("broker down")

	if _, err := f.svc.ToggleStore(context.Background(), 2, 3, manager); err != nil {
		t.Fatalf("publish failures must be swallowed, got %v", err)
	}
}

func TestListMalls(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	for _, c := range []*entities.Caller{admin, manager, store} {
		malls, err := f.svc.ListMalls(ctx, c)
		if err != nil || len(malls) != 2 {
			t.Fatalf("ListMalls(%s): %d malls, %v", c.Role, len(malls), err)
		}
	}
	if _, err := f.svc.ListMalls(ctx, nil); !errors.Is(err, entities.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}

	// callers get copies
	malls, _ := f.svc.ListMalls(ctx, admin)
	malls[0].Stores[0].Name = "mutated"
	again, _ := f.svc.ListMalls(ctx, admin)
	if again[0].Stores[0].Name == "mutated" {
		t.Fatalf("ListMalls leaked internal state")
	}
}

func TestNearbyMalls(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	villaggio := geo.Point{Latitude: 25.2606, Longitude: 51.4430}

	malls, err := f.svc.NearbyMalls(ctx, manager, ports.NearbyQuery{Center: villaggio, RadiusMeters: 1000})
	if err != nil {
		t.Fatalf("NearbyMalls: %v", err)
	}
	if len(malls) != 1 || malls[0].ID != 1 {
		t.Fatalf("expected only Villaggio, got %+v", malls)
	}

	malls, err = f.svc.NearbyMalls(ctx, manager, ports.NearbyQuery{Center: villaggio, RadiusMeters: 50_000})
	if err != nil || len(malls) != 2 || malls[0].ID != 1 || malls[1].ID != 2 {
		t.Fatalf("expected both malls in order, got %+v, %v", malls, err)
	}

	invalid := []ports.NearbyQuery{
		{Center: geo.Point{Latitude: 91, Longitude: 0}, RadiusMeters: 10},
		{Center: villaggio, RadiusMeters: 0},
		{Center: villaggio, RadiusMeters: MaxNearbyRadiusMeters + 1},
		{Center: villaggio, RadiusMeters: math.NaN()},
		{Center: villaggio, RadiusMeters: math.Inf(1)},
	}
	for _, q := range invalid {
		if _, err := f.svc.NearbyMalls(ctx, manager, q); !errors.Is(err, entities.ErrValidation) {
			t.Fatalf("query %+v: expected ErrValidation, got %v", q, err)
		}
	}
}

func TestListStoresFlattened(t *testing.T) {
	f := newFixture(t, nil)

	views := f.svc.ListStoresFlattened(context.Background())
	if len(views) != 4 {
		t.Fatalf("expected 4 stores, got %d", len(views))
	}
	if views[0].MallID != 1 || views[0].MallName != "Villaggio Mall" {
		t.Fatalf("unexpected annotation %+v", views[0])
	}
	if views[3].Website != "https://www.virginmegastore.qa" {
		t.Fatalf("contact website must win, got %q", views[3].Website)
	}
	if views[1].Website != "https://www.carrefour.com" {
		t.Fatalf("unexpected synthesized website %q", views[1].Website)
	}

	empty := newFixture(t, document.NewMemory([]byte(`[]`)))
	if got := empty.svc.ListStoresFlattened(context.Background()); got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}
