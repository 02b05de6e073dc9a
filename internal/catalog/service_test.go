package catalog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type memoryStore struct {
	components map[int64]Component
	menuItems  map[int64]MenuItem
	addons     map[int64]Addon
	recipes    map[string][]RecipeLine
	nextID     int64
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		components: make(map[int64]Component),
		menuItems:  make(map[int64]MenuItem),
		addons:     make(map[int64]Addon),
		recipes:    make(map[string][]RecipeLine),
	}
}

func (s *memoryStore) recipeKey(unitID int64, kind UnitKind) string {
	return fmt.Sprintf("%s:%d", kind, unitID)
}

func (s *memoryStore) CreateComponent(ctx context.Context, c Component) (int64, error) {
	s.nextID++
	c.ID = s.nextID
	s.components[c.ID] = c
	return c.ID, nil
}

func (s *memoryStore) UpdateComponent(ctx context.Context, c Component) error {
	existing, ok := s.components[c.ID]
	if !ok {
		return ErrComponentNotFound
	}
	existing.Name = c.Name
	existing.Unit = c.Unit
	existing.MinimumStock = c.MinimumStock
	s.components[c.ID] = existing
	return nil
}

func (s *memoryStore) GetComponent(ctx context.Context, id int64) (Component, error) {
	c, ok := s.components[id]
	if !ok {
		return Component{}, ErrComponentNotFound
	}
	return c, nil
}

func (s *memoryStore) ListComponents(ctx context.Context) ([]Component, error) {
	var out []Component
	for _, c := range s.components {
		out = append(out, c)
	}
	return out, nil
}

func (s *memoryStore) ListBelowMinimum(ctx context.Context) ([]Component, error) {
	var out []Component
	for _, c := range s.components {
		if c.BelowMinimum() {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *memoryStore) CreateMenuItem(ctx context.Context, m MenuItem) (int64, error) {
	s.nextID++
	m.ID = s.nextID
	s.menuItems[m.ID] = m
	return m.ID, nil
}

func (s *memoryStore) GetMenuItem(ctx context.Context, id int64) (MenuItem, error) {
	m, ok := s.menuItems[id]
	if !ok {
		return MenuItem{}, ErrMenuItemNotFound
	}
	return m, nil
}

func (s *memoryStore) ListMenuItems(ctx context.Context) ([]MenuItem, error) {
	var out []MenuItem
	for _, m := range s.menuItems {
		out = append(out, m)
	}
	return out, nil
}

func (s *memoryStore) CreateAddon(ctx context.Context, a Addon) (int64, error) {
	s.nextID++
	a.ID = s.nextID
	s.addons[a.ID] = a
	return a.ID, nil
}

func (s *memoryStore) GetAddon(ctx context.Context, id int64) (Addon, error) {
	a, ok := s.addons[id]
	if !ok {
		return Addon{}, ErrAddonNotFound
	}
	return a, nil
}

func (s *memoryStore) ListAddons(ctx context.Context) ([]Addon, error) {
	var out []Addon
	for _, a := range s.addons {
		out = append(out, a)
	}
	return out, nil
}

func (s *memoryStore) SetRecipe(ctx context.Context, unitID int64, kind UnitKind, lines []RecipeLine) error {
	s.recipes[s.recipeKey(unitID, kind)] = lines
	return nil
}

func (s *memoryStore) Resolve(ctx context.Context, unitID int64, kind UnitKind) ([]RecipeLine, error) {
	return s.recipes[s.recipeKey(unitID, kind)], nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func TestCreateComponentStartsAtZeroStock(t *testing.T) {
	svc := NewService(newMemoryStore(), testLogger())

	c, err := svc.CreateComponent(context.Background(), Component{Name: "  Beef ", Unit: "kg", MinimumStock: dec("2")})
	require.NoError(t, err)
	require.Equal(t, "Beef", c.Name)
	require.True(t, c.CurrentStock.IsZero())
	require.True(t, c.MinimumStock.Equal(dec("2")))
}

func TestCreateComponentValidation(t *testing.T) {
	svc := NewService(newMemoryStore(), testLogger())
	ctx := context.Background()

	_, err := svc.CreateComponent(ctx, Component{Name: "", Unit: "kg"})
	require.Error(t, err)
	_, err = svc.CreateComponent(ctx, Component{Name: "Beef", Unit: ""})
	require.Error(t, err)
	_, err = svc.CreateComponent(ctx, Component{Name: "Beef", Unit: "kg", MinimumStock: dec("-1")})
	require.Error(t, err)
}

func TestUpdateComponentKeepsStock(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(store, testLogger())
	ctx := context.Background()

	c, err := svc.CreateComponent(ctx, Component{Name: "Beef", Unit: "kg"})
	require.NoError(t, err)

	// Stock mutations go through the ledger; UpdateComponent must not touch them.
	stocked := store.components[c.ID]
	stocked.CurrentStock = dec("7")
	store.components[c.ID] = stocked

	updated, err := svc.UpdateComponent(ctx, Component{ID: c.ID, Name: "Ground beef", Unit: "kg", MinimumStock: dec("1")})
	require.NoError(t, err)
	require.Equal(t, "Ground beef", updated.Name)
	require.True(t, updated.CurrentStock.Equal(dec("7")))
}

func TestSetRecipeValidatesReferences(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(store, testLogger())
	ctx := context.Background()

	c, err := svc.CreateComponent(ctx, Component{Name: "Beef", Unit: "kg"})
	require.NoError(t, err)
	m, err := svc.CreateMenuItem(ctx, MenuItem{Name: "Burger", PriceCents: 2500})
	require.NoError(t, err)

	err = svc.SetRecipe(ctx, m.ID, UnitKindMenuItem, []RecipeLine{{ComponentID: c.ID, QuantityPerUnit: dec("0.2")}})
	require.NoError(t, err)

	lines, err := svc.GetRecipe(ctx, m.ID, UnitKindMenuItem)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	require.True(t, lines[0].QuantityPerUnit.Equal(dec("0.2")))

	// Unknown unit, unknown component and non-positive quantities are rejected.
	err = svc.SetRecipe(ctx, 999, UnitKindMenuItem, nil)
	require.ErrorIs(t, err, ErrMenuItemNotFound)
	err = svc.SetRecipe(ctx, m.ID, UnitKindMenuItem, []RecipeLine{{ComponentID: 999, QuantityPerUnit: dec("1")}})
	require.ErrorIs(t, err, ErrComponentNotFound)
	err = svc.SetRecipe(ctx, m.ID, UnitKindMenuItem, []RecipeLine{{ComponentID: c.ID, QuantityPerUnit: dec("0")}})
	require.ErrorIs(t, err, ErrInvalidRecipe)
	err = svc.SetRecipe(ctx, m.ID, UnitKind("BOGUS"), nil)
	require.ErrorIs(t, err, ErrInvalidKind)
}

func TestResolveUnknownUnitIsEmpty(t *testing.T) {
	svc := NewService(newMemoryStore(), testLogger())

	lines, err := svc.GetRecipe(context.Background(), 42, UnitKindAddon)
	require.NoError(t, err)
	require.Empty(t, lines)
}

func TestListBelowMinimum(t *testing.T) {
	store := newMemoryStore()
	svc := NewService(store, testLogger())
	ctx := context.Background()

	low, err := svc.CreateComponent(ctx, Component{Name: "Beef", Unit: "kg", MinimumStock: dec("2")})
	require.NoError(t, err)
	_, err = svc.CreateComponent(ctx, Component{Name: "Buns", Unit: "pcs", MinimumStock: dec("0")})
	require.NoError(t, err)

	got, err := store.ListBelowMinimum(ctx)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, low.ID, got[0].ID)
}
