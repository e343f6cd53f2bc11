package entities

import (
	"errors"
	"fmt"

	"github.com/mallmap/core/internal/domain/geo"
)

// ValidateDataset checks the structural rules of a mall collection: ids are
// positive, mall ids are unique, store ids are unique across all malls, names
// are set and coordinates are on the globe. Malls outside Qatar are reported
// as warnings only.
func ValidateDataset(malls []Mall) (warnings []string, err error) {
	var errs []error
	mallIDs := make(map[int]struct{}, len(malls))
	storeIDs := make(map[int]int)

	for i, m := range malls {
		where := fmt.Sprintf("malls[%d]", i)
		if m.ID <= 0 {
			errs = append(errs, fmt.Errorf("%s: id must be positive", where))
		} else if _, dup := mallIDs[m.ID]; dup {
			errs = append(errs, fmt.Errorf("%s: duplicate mall id %d", where, m.ID))
		}
		mallIDs[m.ID] = struct{}{}

		if m.Name == "" {
			errs = append(errs, fmt.Errorf("%s: name is required", where))
		}
		loc := m.Location()
		if !loc.Valid() {
			errs = append(errs, fmt.Errorf("%s: coordinates (%f, %f) out of range", where, m.Latitude, m.Longitude))
		} else if !geo.InQatar(loc) {
			warnings = append(warnings, fmt.Sprintf("%s: %q lies outside Qatar", where, m.Name))
		}
		if !m.IsOpen {
			for _, s := range m.Stores {
				if s.IsOpen {
					warnings = append(warnings, fmt.Sprintf("%s: store %d is open inside a closed mall", where, s.ID))
				}
			}
		}

		for j, s := range m.Stores {
			swhere := fmt.Sprintf("%s.stores[%d]", where, j)
			if s.ID <= 0 {
				errs = append(errs, fmt.Errorf("%s: id must be positive", swhere))
			} else if owner, dup := storeIDs[s.ID]; dup {
				errs = append(errs, fmt.Errorf("%s: store id %d already used in mall %d", swhere, s.ID, owner))
			}
			storeIDs[s.ID] = m.ID

			if s.Name == "" {
				errs = append(errs, fmt.Errorf("%s: name is required", swhere))
			}
		}
	}

	if len(errs) > 0 {
		return warnings, fmt.Errorf("%w: %w", ErrValidation, errors.Join(errs...))
	}
	return warnings, nil
}
