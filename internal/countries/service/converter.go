package service

import (
	"maps"
	"slices"

	"atlas/internal/countries/models"
	"atlas/internal/countries/upstream"
)

// toCountry maps an upstream record to the reduced listing shape.
func toCountry(c upstream.Country) models.Country {
	capital := ""
	if len(c.Capital) > 0 {
		capital = c.Capital[0]
	}
	timezones := []string{}
	if len(c.Timezones) > 0 {
		timezones = slices.Clone(c.Timezones)
	}
	return models.Country{
		Name:       c.Name.Common,
		Code:       c.CCA2,
		Flag:       c.Flags.SVG,
		Population: c.Population,
		Region:     c.Region,
		Capital:    capital,
		Timezone:   timezones,
	}
}

// toCountryDetail adds currencies, languages, and borders to the reduced shape.
func toCountryDetail(c upstream.Country) models.Country {
	out := toCountry(c)
	out.Currencies = toCurrencies(c.Currencies)
	out.Languages = toLanguages(c.Languages, c.Name.NativeName)
	out.Borders = slices.Clone(c.Borders)
	return out
}

func toCountries(in []upstream.Country) []models.Country {
	out := make([]models.Country, 0, len(in))
	for _, c := range in {
		out = append(out, toCountry(c))
	}
	return out
}

// toCurrencies flattens the code-keyed map in code order.
func toCurrencies(in map[string]upstream.Currency) []models.Currency {
	if len(in) == 0 {
		return nil
	}
	out := make([]models.Currency, 0, len(in))
	for _, code := range slices.Sorted(maps.Keys(in)) {
		cur := in[code]
		out = append(out, models.Currency{Code: code, Name: cur.Name, Symbol: cur.Symbol})
	}
	return out
}

// toLanguages pairs each language with the country's common name in that
// language, in language-code order. NativeName is empty when not provided.
func toLanguages(langs map[string]string, native map[string]upstream.NativeName) []models.Language {
	if len(langs) == 0 {
		return nil
	}
	out := make([]models.Language, 0, len(langs))
	for _, code := range slices.Sorted(maps.Keys(langs)) {
		out = append(out, models.Language{Name: langs[code], NativeName: native[code].Common})
	}
	return out
}
