package catalog

import (
	"context"
	"errors"
	"log/slog"
	"strings"
)

// Store abstracts repository usage for the service.
type Store interface {
	CreateComponent(ctx context.Context, c Component) (int64, error)
	UpdateComponent(ctx context.Context, c Component) error
	GetComponent(ctx context.Context, id int64) (Component, error)
	ListComponents(ctx context.Context) ([]Component, error)
	ListBelowMinimum(ctx context.Context) ([]Component, error)
	CreateMenuItem(ctx context.Context, m MenuItem) (int64, error)
	GetMenuItem(ctx context.Context, id int64) (MenuItem, error)
	ListMenuItems(ctx context.Context) ([]MenuItem, error)
	CreateAddon(ctx context.Context, a Addon) (int64, error)
	GetAddon(ctx context.Context, id int64) (Addon, error)
	ListAddons(ctx context.Context) ([]Addon, error)
	SetRecipe(ctx context.Context, unitID int64, kind UnitKind, lines []RecipeLine) error
	Resolve(ctx context.Context, unitID int64, kind UnitKind) ([]RecipeLine, error)
}

// Service coordinates catalog authoring.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService builds Service.
func NewService(store Store, logger *slog.Logger) *Service {
	return &Service{store: store, logger: logger}
}

// CreateComponent registers a new inventory component with zero stock.
func (s *Service) CreateComponent(ctx context.Context, c Component) (Component, error) {
	c.Name = strings.TrimSpace(c.Name)
	c.Unit = strings.TrimSpace(c.Unit)
	if c.Name == "" || c.Unit == "" {
		return Component{}, errors.New("catalog: component name and unit required")
	}
	if c.MinimumStock.IsNegative() {
		return Component{}, errors.New("catalog: minimum stock must not be negative")
	}
	id, err := s.store.CreateComponent(ctx, c)
	if err != nil {
		return Component{}, err
	}
	return s.store.GetComponent(ctx, id)
}

// UpdateComponent changes descriptive fields of a component.
func (s *Service) UpdateComponent(ctx context.Context, c Component) (Component, error) {
	c.Name = strings.TrimSpace(c.Name)
	c.Unit = strings.TrimSpace(c.Unit)
	if c.Name == "" || c.Unit == "" {
		return Component{}, errors.New("catalog: component name and unit required")
	}
	if c.MinimumStock.IsNegative() {
		return Component{}, errors.New("catalog: minimum stock must not be negative")
	}
	if err := s.store.UpdateComponent(ctx, c); err != nil {
		return Component{}, err
	}
	return s.store.GetComponent(ctx, c.ID)
}

// GetComponent fetches a component.
func (s *Service) GetComponent(ctx context.Context, id int64) (Component, error) {
	return s.store.GetComponent(ctx, id)
}

// ListComponents lists all components.
func (s *Service) ListComponents(ctx context.Context) ([]Component, error) {
	return s.store.ListComponents(ctx)
}

// CreateMenuItem registers a menu item.
func (s *Service) CreateMenuItem(ctx context.Context, m MenuItem) (MenuItem, error) {
	m.Name = strings.TrimSpace(m.Name)
	if m.Name == "" {
		return MenuItem{}, errors.New("catalog: menu item name required")
	}
	if m.PriceCents < 0 {
		return MenuItem{}, errors.New("catalog: price must not be negative")
	}
	id, err := s.store.CreateMenuItem(ctx, m)
	if err != nil {
		return MenuItem{}, err
	}
	return s.store.GetMenuItem(ctx, id)
}

// ListMenuItems lists active menu items.
func (s *Service) ListMenuItems(ctx context.Context) ([]MenuItem, error) {
	return s.store.ListMenuItems(ctx)
}

// CreateAddon registers an addon.
func (s *Service) CreateAddon(ctx context.Context, a Addon) (Addon, error) {
	a.Name = strings.TrimSpace(a.Name)
	if a.Name == "" {
		return Addon{}, errors.New("catalog: addon name required")
	}
	if a.PriceCents < 0 {
		return Addon{}, errors.New("catalog: price must not be negative")
	}
	id, err := s.store.CreateAddon(ctx, a)
	if err != nil {
		return Addon{}, err
	}
	return s.store.GetAddon(ctx, id)
}

// ListAddons lists active addons.
func (s *Service) ListAddons(ctx context.Context) ([]Addon, error) {
	return s.store.ListAddons(ctx)
}

// SetRecipe replaces a sellable unit's bill of materials. The referenced unit
// must exist; lines must carry positive per-unit quantities.
func (s *Service) SetRecipe(ctx context.Context, unitID int64, kind UnitKind, lines []RecipeLine) error {
	if !kind.Valid() {
		return ErrInvalidKind
	}
	switch kind {
	case UnitKindMenuItem:
		if _, err := s.store.GetMenuItem(ctx, unitID); err != nil {
			return err
		}
	case UnitKindAddon:
		if _, err := s.store.GetAddon(ctx, unitID); err != nil {
			return err
		}
	}
	for _, line := range lines {
		if !line.QuantityPerUnit.IsPositive() {
			return ErrInvalidRecipe
		}
		if _, err := s.store.GetComponent(ctx, line.ComponentID); err != nil {
			return err
		}
	}
	if err := s.store.SetRecipe(ctx, unitID, kind, lines); err != nil {
		return err
	}
	s.logger.Info("recipe updated", "unit_id", unitID, "kind", string(kind), "lines", len(lines))
	return nil
}

// GetRecipe returns the authored bill of materials for a sellable unit.
func (s *Service) GetRecipe(ctx context.Context, unitID int64, kind UnitKind) ([]RecipeLine, error) {
	return s.store.Resolve(ctx, unitID, kind)
}
