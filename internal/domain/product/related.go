package product

// RelatedLimit is the maximum number of related products shown for a product.
const RelatedLimit = 3

// Related returns up to limit products from catalog that share the category of
// current, excluding current itself. Catalog order is preserved.
func Related(catalog []Product, current Product, limit int) []Product {
	if limit <= 0 {
		return nil
	}

	out := make([]Product, 0, min(limit, len(catalog)))
	for _, p := range catalog {
		if p.ID == current.ID || p.Category != current.Category {
			continue
		}
		out = append(out, p)
		if len(out) == limit {
			break
		}
	}
	return out
}
