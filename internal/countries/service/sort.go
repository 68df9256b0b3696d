package service

import (
	"slices"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"atlas/internal/countries/upstream"
)

// sortByName returns a copy of in ordered by common name using English
// collation, so accented names such as "Åland Islands" sort next to "Albania"
// rather than after "Zimbabwe". Ties keep their input order.
func sortByName(in []upstream.Country) []upstream.Country {
	out := slices.Clone(in)
	// A Collator is not safe for concurrent use; build one per call.
	col := collate.New(language.English)
	slices.SortStableFunc(out, func(a, b upstream.Country) int {
		return col.CompareString(a.Name.Common, b.Name.Common)
	})
	return out
}
