package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"slices"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/mallmap/core/internal/domain/entities"
	"github.com/mallmap/core/internal/domain/geo"
	"github.com/mallmap/core/internal/infrastructure/logger"
	"github.com/mallmap/core/internal/ports"
)

// MaxNearbyRadiusMeters caps the nearby-malls query.
const MaxNearbyRadiusMeters = 200_000

// MallService handles mall and store operations
type MallService struct {
	repo      ports.MallRepository
	publisher ports.EventPublisher
	metrics   ports.StatusMetrics
	validate  *validator.Validate
	logger    *logger.Logger
	now       func() time.Time
}

// NewMallService creates a new mall service. publisher and metrics may be nil.
func NewMallService(repo ports.MallRepository, publisher ports.EventPublisher, metrics ports.StatusMetrics, logger *logger.Logger) *MallService {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	if metrics == nil {
		metrics = noopMetrics{}
	}
	return &MallService{
		repo:      repo,
		publisher: publisher,
		metrics:   metrics,
		validate:  validator.New(),
		logger:    logger.WithComponent("mall_service"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// ListMalls returns every mall with its stores.
func (s *MallService) ListMalls(ctx context.Context, caller *entities.Caller) ([]entities.Mall, error) {
	if err := Authorize(caller, entities.AllRoles...); err != nil {
		return nil, err
	}
	return s.repo.List(ctx), nil
}

// NearbyMalls returns the malls within query.RadiusMeters of query.Center,
// in dataset order.
func (s *MallService) NearbyMalls(ctx context.Context, caller *entities.Caller, query ports.NearbyQuery) ([]entities.Mall, error) {
	if err := Authorize(caller, entities.AllRoles...); err != nil {
		return nil, err
	}
	if !query.Center.Valid() {
		return nil, fmt.Errorf("%w: coordinates out of range", entities.ErrValidation)
	}
	if math.IsNaN(query.RadiusMeters) || query.RadiusMeters <= 0 || query.RadiusMeters > MaxNearbyRadiusMeters {
		return nil, fmt.Errorf("%w: radius must be in (0, %d] meters", entities.ErrValidation, MaxNearbyRadiusMeters)
	}
	return geo.FilterWithinRadius(s.repo.List(ctx), query.Center, query.RadiusMeters), nil
}

// ListStoresFlattened returns every store with display coordinates.
func (s *MallService) ListStoresFlattened(ctx context.Context) []entities.StoreView {
	out := slices.Collect(s.repo.FlattenStores())
	if out == nil {
		out = []entities.StoreView{}
	}
	return out
}

// ToggleMall flips a mall's status. Closing a mall closes all of its stores.
func (s *MallService) ToggleMall(ctx context.Context, mallID int, caller *entities.Caller) (*ports.MallStatus, error) {
	if err := Authorize(caller, entities.RoleAdmin); err != nil {
		return nil, err
	}

	var (
		status ports.MallStatus
		closed []int
	)
	err := s.repo.Mutate(ctx, func(malls []entities.Mall) error {
		m := entities.FindMall(malls, mallID)
		if m == nil {
			return entities.ErrMallNotFound
		}
		closed = m.Toggle()
		status = ports.MallStatus{ID: m.ID, Name: m.Name, IsOpen: m.IsOpen}
		return nil
	})
	if err != nil {
		return nil, s.mutationFailed("toggle_mall", err)
	}

	s.metrics.MallToggled(status.IsOpen)
	events := []ports.StatusEvent{s.event(ports.EventMallToggled, caller, status.ID, 0, &status.IsOpen)}
	for _, id := range closed {
		s.metrics.StoreToggled(false, true)
		ev := s.event(ports.EventStoreToggled, caller, status.ID, id, boolPtr(false))
		ev.Cascade = true
		events = append(events, ev)
	}
	s.publish(ctx, events...)

	s.logger.LogUserAction(caller.Username, "toggle_mall", map[string]interface{}{
		"mall_id":       status.ID,
		"is_open":       status.IsOpen,
		"stores_closed": len(closed),
	})
	return &status, nil
}

// ToggleStore flips a store's status. A closed store cannot be opened while
// its mall is closed.
func (s *MallService) ToggleStore(ctx context.Context, mallID, storeID int, caller *entities.Caller) (*ports.StoreStatus, error) {
	if err := Authorize(caller, entities.RoleManager); err != nil {
		return nil, err
	}

	var status ports.StoreStatus
	err := s.repo.Mutate(ctx, func(malls []entities.Mall) error {
		m, st, err := locate(malls, mallID, storeID)
		if err != nil {
			return err
		}
		if err := m.ToggleStore(st); err != nil {
			return err
		}
		status = ports.StoreStatus{ID: st.ID, Name: st.Name, IsOpen: st.IsOpen, MallID: m.ID}
		return nil
	})
	if err != nil {
		return nil, s.mutationFailed("toggle_store", err)
	}

	s.metrics.StoreToggled(status.IsOpen, false)
	s.publish(ctx, s.event(ports.EventStoreToggled, caller, status.MallID, status.ID, &status.IsOpen))

	s.logger.LogUserAction(caller.Username, "toggle_store", map[string]interface{}{
		"mall_id":  status.MallID,
		"store_id": status.ID,
		"is_open":  status.IsOpen,
	})
	return &status, nil
}

// UpdateStore applies the non-empty fields of patch to a store. A store
// account bound to a store id may only edit that store.
func (s *MallService) UpdateStore(ctx context.Context, mallID, storeID int, patch entities.StorePatch, caller *entities.Caller) (*entities.StoreWithMall, error) {
	if err := Authorize(caller, entities.RoleStore); err != nil {
		return nil, err
	}
	if err := s.validate.Struct(patch); err != nil {
		return nil, fmt.Errorf("%w: %s", entities.ErrValidation, err.Error())
	}

	var updated entities.StoreWithMall
	err := s.repo.Mutate(ctx, func(malls []entities.Mall) error {
		m, st, err := locate(malls, mallID, storeID)
		if err != nil {
			return err
		}
		if caller.StoreID != 0 && caller.StoreID != st.ID {
			return entities.ErrForbidden
		}
		st.Apply(patch)
		updated = st.WithMall(m)
		return nil
	})
	if err != nil {
		if errors.Is(err, entities.ErrForbidden) {
			s.logger.LogSecurityEvent("store_binding_violation", caller.Username, "", map[string]interface{}{
				"bound_store_id":  caller.StoreID,
				"target_store_id": storeID,
			})
		}
		return nil, s.mutationFailed("update_store", err)
	}

	s.metrics.StoreUpdated()
	s.publish(ctx, s.event(ports.EventStoreUpdated, caller, updated.MallID, updated.ID, nil))

	s.logger.LogUserAction(caller.Username, "update_store", map[string]interface{}{
		"mall_id":  updated.MallID,
		"store_id": updated.ID,
	})
	return &updated, nil
}

func locate(malls []entities.Mall, mallID, storeID int) (*entities.Mall, *entities.Store, error) {
	m := entities.FindMall(malls, mallID)
	if m == nil {
		return nil, nil, entities.ErrMallNotFound
	}
	st := m.FindStore(storeID)
	if st == nil {
		return nil, nil, entities.ErrStoreNotFound
	}
	return m, st, nil
}

func (s *MallService) mutationFailed(op string, err error) error {
	if errors.Is(err, entities.ErrPersistence) {
		s.metrics.PersistFailed(op)
	}
	return err
}

func (s *MallService) event(typ ports.EventType, caller *entities.Caller, mallID, storeID int, isOpen *bool) ports.StatusEvent {
	return ports.StatusEvent{
		Type:       typ,
		MallID:     mallID,
		StoreID:    storeID,
		IsOpen:     isOpen,
		Actor:      caller.Username,
		Role:       caller.Role,
		OccurredAt: s.now(),
	}
}

// publish runs after the document is persisted, so a failure is logged
// and never reported to the caller.
func (s *MallService) publish(ctx context.Context, events ...ports.StatusEvent) {
	if err := s.publisher.Publish(ctx, events...); err != nil {
		s.logger.Warnw("Failed to publish status events", "events", len(events), "error", err)
	}
}

func boolPtr(b bool) *bool { return &b }

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, ...ports.StatusEvent) error { return nil }

func (noopPublisher) Close() error { return nil }

type noopMetrics struct{}

func (noopMetrics) MallToggled(bool)        {}
func (noopMetrics) StoreToggled(bool, bool) {}
func (noopMetrics) StoreUpdated()           {}
func (noopMetrics) PersistFailed(string)    {}
