package entities

import (
	"errors"
	"fmt"

	"github.com/mallmap/core/internal/domain/geo"
)

// Common errors
var (
	ErrNotFound           = errors.New("not found")
	ErrMallNotFound       = fmt.Errorf("mall %w", ErrNotFound)
	ErrStoreNotFound      = fmt.Errorf("store %w", ErrNotFound)
	ErrUnauthenticated    = errors.New("authentication required")
	ErrForbidden          = errors.New("insufficient permissions")
	ErrInvalidOperation   = errors.New("invalid operation")
	ErrMallClosed         = fmt.Errorf("cannot open store while mall is closed: %w", ErrInvalidOperation)
	ErrPersistence        = errors.New("failed to persist data")
	ErrValidation         = errors.New("validation failed")
	ErrInvalidCredentials = errors.New("invalid credentials")
)

// Role is the caller's permission level.
type Role string

const (
	RoleAdmin   Role = "admin"
	RoleManager Role = "manager"
	RoleStore   Role = "store"
)

// AllRoles lists every recognized role.
var AllRoles = []Role{RoleAdmin, RoleManager, RoleStore}

// IsValid reports whether r is one of the recognized roles.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleManager, RoleStore:
		return true
	}
	return false
}

// Contact holds a store's optional contact channels.
type Contact struct {
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty"`
	Website string `json:"website,omitempty"`
}

// Store is a retail unit owned by exactly one mall.
type Store struct {
	ID           int      `json:"id"`
	Name         string   `json:"name"`
	Type         string   `json:"type"`
	OpeningHours string   `json:"opening_hours"`
	IsOpen       bool     `json:"isOpen"`
	Description  string   `json:"description,omitempty"`
	Contact      *Contact `json:"contact,omitempty"`
}

// Mall is a location owning an ordered list of stores.
type Mall struct {
	ID        int     `json:"id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	IsOpen    bool    `json:"isOpen"`
	Stores    []Store `json:"stores"`
}

// StoreWithMall is a store annotated with its owning mall.
type StoreWithMall struct {
	Store
	MallID   int    `json:"mallId"`
	MallName string `json:"mallName"`
}

// StoreView is the display projection of a store used by the map.
// Coordinates are jittered around the mall and never persisted.
type StoreView struct {
	StoreWithMall
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Website   string  `json:"website"`
}

// StorePatch carries the editable store fields. Empty values are skipped.
type StorePatch struct {
	Name         string        `json:"name" validate:"omitempty,max=120"`
	Description  string        `json:"description" validate:"omitempty,max=2000"`
	OpeningHours string        `json:"opening_hours" validate:"omitempty,max=120"`
	Type         string        `json:"type" validate:"omitempty,max=60"`
	Contact      *ContactPatch `json:"contact"`
}

// ContactPatch carries the editable contact fields. Empty values are skipped.
type ContactPatch struct {
	Phone   string `json:"phone" validate:"omitempty,max=40"`
	Email   string `json:"email" validate:"omitempty,email"`
	Website string `json:"website" validate:"omitempty,url"`
}

// Caller is an authenticated principal resolved from a token. A non-zero
// StoreID binds a store account to that single store.
type Caller struct {
	Username string `json:"username"`
	Role     Role   `json:"role"`
	StoreID  int    `json:"storeId,omitempty"`
}

// User is a configured account able to log in.
type User struct {
	Username     string `json:"username"`
	PasswordHash string `json:"-"`
	Role         Role   `json:"role"`
	StoreID      int    `json:"storeId,omitempty"`
}

// Caller returns the principal for u.
func (u *User) Caller() *Caller {
	return &Caller{Username: u.Username, Role: u.Role, StoreID: u.StoreID}
}

// Business logic methods for Mall

// Location implements geo.Locatable.
func (m Mall) Location() geo.Point {
	return geo.Point{Latitude: m.Latitude, Longitude: m.Longitude}
}

// FindStore returns a pointer into m.Stores, or nil.
func (m *Mall) FindStore(storeID int) *Store {
	for i := range m.Stores {
		if m.Stores[i].ID == storeID {
			return &m.Stores[i]
		}
	}
	return nil
}

// Toggle flips the mall's status. Closing cascades to every store; opening
// leaves stores as they are. It returns the ids of stores the cascade closed.
func (m *Mall) Toggle() []int {
	m.IsOpen = !m.IsOpen
	if m.IsOpen {
		return nil
	}

	var closed []int
	for i := range m.Stores {
		if m.Stores[i].IsOpen {
			closed = append(closed, m.Stores[i].ID)
		}
		m.Stores[i].IsOpen = false
	}
	return closed
}

// ToggleStore flips s, refusing to open it while m is closed.
func (m *Mall) ToggleStore(s *Store) error {
	if !s.IsOpen && !m.IsOpen {
		return ErrMallClosed
	}
	s.IsOpen = !s.IsOpen
	return nil
}

// Clone returns a deep copy of m.
func (m Mall) Clone() Mall {
	out := m
	if m.Stores != nil {
		out.Stores = make([]Store, len(m.Stores))
		for i, s := range m.Stores {
			out.Stores[i] = s.Clone()
		}
	}
	return out
}

// Business logic methods for Store

// Clone returns a deep copy of s.
func (s Store) Clone() Store {
	out := s
	if s.Contact != nil {
		c := *s.Contact
		out.Contact = &c
	}
	return out
}

// WithMall annotates s with its owning mall.
func (s Store) WithMall(m *Mall) StoreWithMall {
	return StoreWithMall{Store: s.Clone(), MallID: m.ID, MallName: m.Name}
}

// Apply writes the non-empty fields of p onto s.
func (s *Store) Apply(p StorePatch) {
	setIfPresent(&s.Name, p.Name)
	setIfPresent(&s.Description, p.Description)
	setIfPresent(&s.OpeningHours, p.OpeningHours)
	setIfPresent(&s.Type, p.Type)

	if p.Contact == nil || p.Contact.isEmpty() {
		return
	}
	if s.Contact == nil {
		s.Contact = &Contact{}
	}
	setIfPresent(&s.Contact.Phone, p.Contact.Phone)
	setIfPresent(&s.Contact.Email, p.Contact.Email)
	setIfPresent(&s.Contact.Website, p.Contact.Website)
}

func (c *ContactPatch) isEmpty() bool {
	return c.Phone == "" && c.Email == "" && c.Website == ""
}

func setIfPresent(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

// CloneMalls deep-copies a mall collection.
func CloneMalls(malls []Mall) []Mall {
	out := make([]Mall, len(malls))
	for i := range malls {
		out[i] = malls[i].Clone()
	}
	return out
}

// FindMall returns a pointer into malls, or nil.
func FindMall(malls []Mall, id int) *Mall {
	for i := range malls {
		if malls[i].ID == id {
			return &malls[i]
		}
	}
	return nil
}
