// Package variant derives selectable size and color options from a product's
// variants and tracks the shopper's current selection.
//
// Selection is attribute-wise: choosing a size keeps the chosen color and vice
// versa, without checking that the resulting pair exists as a variant. Callers
// that care can consult Matches.
package variant

import (
	"slices"

	"github.com/xenking/mbjj-storefront/internal/domain/product"
)

// Selection holds the currently chosen variant attributes.
type Selection struct {
	Size  string
	Color string
}

// Resolver computes option sets for a variant list and holds a Selection.
// It is not safe for concurrent use; the owning view serializes access.
type Resolver struct {
	variants []product.Variant
	sizes    []string
	colors   []string
	sel      Selection
}

// NewResolver returns a Resolver for the given variants. The selection starts
// at the first variant, or empty when there are none.
func NewResolver(variants []product.Variant) *Resolver {
	r := &Resolver{
		variants: variants,
		sizes:    distinct(variants, func(v product.Variant) string { return v.Size }),
		colors:   distinct(variants, func(v product.Variant) string { return v.Color }),
	}
	if len(variants) > 0 {
		r.sel = Selection{Size: variants[0].Size, Color: variants[0].Color}
	}
	return r
}

// AvailableSizes returns distinct non-empty sizes in order of first occurrence.
func (r *Resolver) AvailableSizes() []string {
	return slices.Clone(r.sizes)
}

// AvailableColors returns distinct non-empty colors in order of first occurrence.
func (r *Resolver) AvailableColors() []string {
	return slices.Clone(r.colors)
}

// SelectSize sets the selected size, leaving the color unchanged.
func (r *Resolver) SelectSize(size string) {
	r.sel.Size = size
}

// SelectColor sets the selected color, leaving the size unchanged.
func (r *Resolver) SelectColor(color string) {
	r.sel.Color = color
}

// Selection returns the current selection.
func (r *Resolver) Selection() Selection {
	return r.sel
}

// Matches reports whether some variant has exactly the selected size and color.
// A product without variants always matches the empty selection.
func (r *Resolver) Matches() bool {
	if len(r.variants) == 0 {
		return r.sel == Selection{}
	}
	for _, v := range r.variants {
		if v.Size == r.sel.Size && v.Color == r.sel.Color {
			return true
		}
	}
	return false
}

func distinct(variants []product.Variant, attr func(product.Variant) string) []string {
	seen := make(map[string]struct{}, len(variants))
	out := make([]string, 0, len(variants))
	for _, v := range variants {
		val := attr(v)
		if val == "" {
			continue
		}
		if _, ok := seen[val]; ok {
			continue
		}
		seen[val] = struct{}{}
		out = append(out, val)
	}
	return out
}
