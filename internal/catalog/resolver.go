package catalog

import "context"

// Resolver returns the bill of materials for a sellable unit.
//
// An empty result means the unit is not stock-tracked: every downstream
// stock operation becomes a no-op for it. Unknown unit ids resolve to an
// empty recipe rather than an error, since recipe completeness is not
// guaranteed by authoring.
type Resolver interface {
	Resolve(ctx context.Context, unitID int64, kind UnitKind) ([]RecipeLine, error)
}
