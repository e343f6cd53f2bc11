package services

import (
	"slices"

	"github.com/mallmap/core/internal/domain/entities"
)

// Authorize admits caller when its role is one of allowed. A nil caller is
// unauthenticated; an unrecognized role is never admitted.
func Authorize(caller *entities.Caller, allowed ...entities.Role) error {
	if caller == nil {
		return entities.ErrUnauthenticated
	}
	if !caller.Role.IsValid() || !slices.Contains(allowed, caller.Role) {
		return entities.ErrForbidden
	}
	return nil
}
