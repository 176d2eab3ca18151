package storefront

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Category name to category_id mapping for the store's fixed catalog tree.
// Wine color names share the parent wine category and are narrowed by
// variant value after fetching.
var categoryByName = map[string]int64{
	"tinto":         31974513,
	"branco":        31974513,
	"rose":          31974513,
	"amana":         31974539,
	"una":           31974540,
	"singular":      32613020,
	"cafe":          31974516,
	"em grao":       31974553,
	"em po":         31974549,
	"diversos":      31974526,
	"experiencias":  31974528,
	"vale-presente": 31974530,
}

var wineTypes = map[string]bool{
	"tinto":  true,
	"branco": true,
	"rose":   true,
}

// normalizeName lowercases, strips accents and trims a category name.
func normalizeName(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}

// categoryID resolves a normalized category name to its id.
func categoryID(normalized string) (int64, bool) {
	id, ok := categoryByName[normalized]
	return id, ok
}

// isWineType reports whether the normalized category is a wine color, which
// needs client-side variant filtering on top of the parent category.
func isWineType(normalized string) bool {
	return wineTypes[normalized]
}

// filterByVariantValue keeps products with a variant value matching the
// wanted normalized name (e.g. "tinto").
func filterByVariantValue(products []Product, want string) []Product {
	filtered := make([]Product, 0, len(products))
	for _, p := range products {
		if productHasVariantValue(p, want) {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

func productHasVariantValue(p Product, want string) bool {
	for _, v := range p.Variants {
		for _, val := range v.Values {
			if normalizeName(val.PT) == want {
				return true
			}
		}
	}
	return false
}

// SimilarProducts picks up to limit products sharing a category with ref,
// topping up with unrelated products when the category alone is too small.
func SimilarProducts(ref *Product, all []Product, limit int) []Product {
	if limit <= 0 {
		limit = 4
	}

	refCategories := make(map[int64]bool, len(ref.Categories))
	for _, c := range ref.Categories {
		refCategories[c.ID] = true
	}

	var same, others []Product
	for _, p := range all {
		if p.ID == ref.ID {
			continue
		}
		shared := false
		for _, c := range p.Categories {
			if refCategories[c.ID] {
				shared = true
				break
			}
		}
		if shared {
			same = append(same, p)
		} else {
			others = append(others, p)
		}
	}

	result := same
	if len(result) > limit {
		return result[:limit]
	}
	for _, p := range others {
		if len(result) >= limit {
			break
		}
		result = append(result, p)
	}
	return result
}
