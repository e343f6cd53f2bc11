package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"math/rand/v2"
	"strings"
	"sync"

	"github.com/mallmap/core/internal/domain/entities"
	"github.com/mallmap/core/internal/infrastructure/logger"
	"github.com/mallmap/core/internal/ports"
)

// StoreJitterDegrees bounds the random offset applied to flattened store
// coordinates on both axes.
const StoreJitterDegrees = 0.005

// MallRepositoryImpl implements the MallRepository interface on top of a
// DocumentStore. All mutations go through Mutate, which holds the write lock
// across lookup, change and persist.
type MallRepositoryImpl struct {
	mu     sync.RWMutex
	malls  []entities.Mall
	doc    ports.DocumentStore
	logger *logger.Logger
	jitter func() float64

	// unverified is set when Load fell back to defaults after a read error
	// other than a missing or corrupt document. Writes stay blocked until the
	// backend confirms it holds nothing.
	unverified bool
}

// errUndecodable marks a document that was read but could not be decoded.
var errUndecodable = errors.New("undecodable mall document")

// MallRepositoryOption customizes a MallRepositoryImpl.
type MallRepositoryOption func(*MallRepositoryImpl)

// WithJitter replaces the random source used by FlattenStores. fn must return
// values in [-1, 1].
func WithJitter(fn func() float64) MallRepositoryOption {
	return func(r *MallRepositoryImpl) {
		r.jitter = fn
	}
}

// WithMalls seeds the in-memory collection without reading the document.
func WithMalls(malls []entities.Mall) MallRepositoryOption {
	return func(r *MallRepositoryImpl) {
		r.malls = entities.CloneMalls(malls)
	}
}

// NewMallRepository creates a new mall repository
func NewMallRepository(doc ports.DocumentStore, logger *logger.Logger, opts ...MallRepositoryOption) *MallRepositoryImpl {
	r := &MallRepositoryImpl{
		malls:  []entities.Mall{},
		doc:    doc,
		logger: logger.WithComponent("mall_repository"),
		jitter: func() float64 { return rand.Float64()*2 - 1 },
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load replaces the in-memory collection with the stored document. A missing,
// unreadable or corrupt document falls back to DefaultMalls so the service
// stays usable without its data file.
func (r *MallRepositoryImpl) Load(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	unverified := false
	malls, err := r.readDocument(ctx)
	if err != nil {
		switch {
		case errors.Is(err, ports.ErrDocumentNotFound):
			r.logger.Warnw("Mall document not found, using default dataset", "backend", r.doc.Name())
		case errors.Is(err, errUndecodable):
			r.logger.Warnw("Mall document unusable, using default dataset", "backend", r.doc.Name(), "error", err)
		default:
			r.logger.Errorw("Mall document unreadable, using default dataset until the backend recovers", "backend", r.doc.Name(), "error", err)
			unverified = true
		}
		malls = DefaultMalls()
	}

	r.mu.Lock()
	r.malls = malls
	r.unverified = unverified
	r.mu.Unlock()

	r.logger.Infow("Mall dataset loaded", "malls", len(malls), "stores", countStores(malls))
	return nil
}

func (r *MallRepositoryImpl) readDocument(ctx context.Context) ([]entities.Mall, error) {
	data, err := r.doc.Read(ctx)
	if err != nil {
		return nil, err
	}

	var malls []entities.Mall
	if err := json.Unmarshal(data, &malls); err != nil {
		return nil, fmt.Errorf("%w: %w", errUndecodable, err)
	}
	if malls == nil {
		malls = []entities.Mall{}
	}
	return malls, nil
}

// List returns a deep copy of every mall.
func (r *MallRepositoryImpl) List(ctx context.Context) []entities.Mall {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return entities.CloneMalls(r.malls)
}

// FindMall returns a copy of the mall with the given id.
func (r *MallRepositoryImpl) FindMall(ctx context.Context, id int) (entities.Mall, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	m := entities.FindMall(r.malls, id)
	if m == nil {
		return entities.Mall{}, entities.ErrMallNotFound
	}
	return m.Clone(), nil
}

// FindStore returns copies of the store and its owning mall.
func (r *MallRepositoryImpl) FindStore(ctx context.Context, storeID int, mallID *int) (entities.Store, entities.Mall, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if mallID != nil {
		m := entities.FindMall(r.malls, *mallID)
		if m == nil {
			return entities.Store{}, entities.Mall{}, entities.ErrMallNotFound
		}
		s := m.FindStore(storeID)
		if s == nil {
			return entities.Store{}, entities.Mall{}, entities.ErrStoreNotFound
		}
		return s.Clone(), m.Clone(), nil
	}

	for i := range r.malls {
		if s := r.malls[i].FindStore(storeID); s != nil {
			return s.Clone(), r.malls[i].Clone(), nil
		}
	}
	return entities.Store{}, entities.Mall{}, entities.ErrStoreNotFound
}

// Mutate applies fn to the live collection and persists the result. When the
// write fails the in-memory change is kept and ErrPersistence is returned.
func (r *MallRepositoryImpl) Mutate(ctx context.Context, fn func(malls []entities.Mall) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := fn(r.malls); err != nil {
		return err
	}
	return r.persistLocked(ctx)
}

// Persist overwrites the document with the current collection.
func (r *MallRepositoryImpl) Persist(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.persistLocked(ctx)
}

func (r *MallRepositoryImpl) persistLocked(ctx context.Context) error {
	if err := r.checkUnverifiedLocked(ctx); err != nil {
		return err
	}

	data, err := json.MarshalIndent(r.malls, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encode: %w", entities.ErrPersistence, err)
	}
	if err := r.doc.Write(ctx, data); err != nil {
		r.logger.Errorw("Failed to persist mall document", "backend", r.doc.Name(), "error", err)
		return fmt.Errorf("%w: %w", entities.ErrPersistence, err)
	}
	return nil
}

// checkUnverifiedLocked refuses to overwrite a document that exists but was
// never loaded because the backend failed to read it.
func (r *MallRepositoryImpl) checkUnverifiedLocked(ctx context.Context) error {
	if !r.unverified {
		return nil
	}

	_, err := r.doc.Read(ctx)
	switch {
	case errors.Is(err, ports.ErrDocumentNotFound):
		r.unverified = false
		return nil
	case err != nil:
		return fmt.Errorf("%w: %s backend still unreadable: %w", entities.ErrPersistence, r.doc.Name(), err)
	default:
		r.logger.Errorw("Refusing to overwrite mall document that was not loaded", "backend", r.doc.Name())
		return fmt.Errorf("%w: %s backend holds a document that was not loaded, restart to reload it", entities.ErrPersistence, r.doc.Name())
	}
}

// FlattenStores yields every store across all malls with jittered display
// coordinates. Each iteration works on a fresh snapshot, so the sequence can
// be ranged over repeatedly; coordinates differ between runs.
func (r *MallRepositoryImpl) FlattenStores() iter.Seq[entities.StoreView] {
	return func(yield func(entities.StoreView) bool) {
		malls := r.List(context.Background())
		for i := range malls {
			m := &malls[i]
			for _, s := range m.Stores {
				if !yield(r.storeView(m, s)) {
					return
				}
			}
		}
	}
}

func (r *MallRepositoryImpl) storeView(m *entities.Mall, s entities.Store) entities.StoreView {
	website := ""
	if s.Contact != nil {
		website = s.Contact.Website
	}
	if website == "" {
		website = synthesizeWebsite(s.Name)
	}

	return entities.StoreView{
		StoreWithMall: s.WithMall(m),
		Latitude:      m.Latitude + r.jitter()*StoreJitterDegrees,
		Longitude:     m.Longitude + r.jitter()*StoreJitterDegrees,
		Website:       website,
	}
}

// Ping checks the document backend.
func (r *MallRepositoryImpl) Ping(ctx context.Context) error {
	return r.doc.Ping(ctx)
}

func synthesizeWebsite(name string) string {
	slug := strings.ToLower(strings.Join(strings.Fields(name), ""))
	return "https://www." + slug + ".com"
}

func countStores(malls []entities.Mall) int {
	n := 0
	for _, m := range malls {
		n += len(m.Stores)
	}
	return n
}
