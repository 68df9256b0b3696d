package upstream

// Country is the subset of the restcountries v3.1 record the service reads.
type Country struct {
	Name       Name                `json:"name"`
	CCA2       string              `json:"cca2"`
	CCA3       string              `json:"cca3,omitempty"`
	Flags      Flags               `json:"flags"`
	Region     string              `json:"region"`
	Capital    []string            `json:"capital,omitempty"`
	Population int64               `json:"population"`
	Timezones  []string            `json:"timezones,omitempty"`
	Currencies map[string]Currency `json:"currencies,omitempty"`
	// Languages maps an ISO 639-3 code to the English language name.
	Languages map[string]string `json:"languages,omitempty"`
	Borders   []string          `json:"borders,omitempty"`
}

type Name struct {
	Common   string `json:"common"`
	Official string `json:"official"`
	// NativeName is keyed by the same language codes as Country.Languages.
	NativeName map[string]NativeName `json:"nativeName,omitempty"`
}

type NativeName struct {
	Official string `json:"official"`
	Common   string `json:"common"`
}

type Flags struct {
	PNG string `json:"png"`
	SVG string `json:"svg"`
	Alt string `json:"alt,omitempty"`
}

type Currency struct {
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}
