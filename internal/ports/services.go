package ports

import (
	"context"

	"github.com/mallmap/core/internal/domain/entities"
	"github.com/mallmap/core/internal/domain/geo"
)

// AuthService interface for authentication operations
type AuthService interface {
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	ValidateToken(tokenString string) (*entities.Caller, error)
}

// MallService interface for mall and store operations
type MallService interface {
	ListMalls(ctx context.Context, caller *entities.Caller) ([]entities.Mall, error)
	NearbyMalls(ctx context.Context, caller *entities.Caller, query NearbyQuery) ([]entities.Mall, error)
	ListStoresFlattened(ctx context.Context) []entities.StoreView
	ToggleMall(ctx context.Context, mallID int, caller *entities.Caller) (*MallStatus, error)
	ToggleStore(ctx context.Context, mallID, storeID int, caller *entities.Caller) (*StoreStatus, error)
	UpdateStore(ctx context.Context, mallID, storeID int, patch entities.StorePatch, caller *entities.Caller) (*entities.StoreWithMall, error)
}

// Request/Response DTOs

// LoginRequest represents login request
type LoginRequest struct {
	Username string `json:"username" validate:"required,max=64"`
	Password string `json:"password" validate:"required,min=6,max=128"`
}

// AuthResponse represents authentication response
type AuthResponse struct {
	Token     string           `json:"token"`
	TokenType string           `json:"tokenType"`
	ExpiresIn int64            `json:"expiresIn"`
	User      *entities.Caller `json:"user"`
}

// MallStatus is the result of a mall toggle.
type MallStatus struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	IsOpen bool   `json:"isOpen"`
}

// StoreStatus is the result of a store toggle.
type StoreStatus struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	IsOpen bool   `json:"isOpen"`
	MallID int    `json:"mallId"`
}

// NearbyQuery selects malls within RadiusMeters of Center.
type NearbyQuery struct {
	Center       geo.Point
	RadiusMeters float64
}

// StatusMetrics records domain counters for status changes.
type StatusMetrics interface {
	MallToggled(isOpen bool)
	StoreToggled(isOpen, cascade bool)
	StoreUpdated()
	PersistFailed(operation string)
}
