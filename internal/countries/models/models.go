// Package models holds the country records served by the API and consumed by the dashboard.
package models

import (
	"strings"

	s "atlas/pkg/string"
	"atlas/pkg/validation"
)

// Country is the record shape returned by every endpoint. Listing endpoints return
// the reduced form; the detail endpoint also fills Currencies, Languages, and Borders.
type Country struct {
	Name       string     `json:"name"`
	Code       string     `json:"code"`
	Flag       string     `json:"flag"`
	Population int64      `json:"population"`
	Region     string     `json:"region"`
	Capital    string     `json:"capital"`
	Timezone   []string   `json:"timezone"`
	Currencies []Currency `json:"currencies,omitempty"`
	Languages  []Language `json:"languages,omitempty"`
	Borders    []string   `json:"borders,omitempty"`
}

type Currency struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

type Language struct {
	Name       string `json:"name"`
	NativeName string `json:"nativeName"`
}

// SearchParams filters the snapshot. Empty fields do not filter.
type SearchParams struct {
	Name     string `json:"name,omitempty"`
	Capital  string `json:"capital,omitempty"`
	Region   string `json:"region,omitempty"`
	Timezone string `json:"timezone,omitempty"`
}

// Normalize trims surrounding whitespace from every field.
func (p *SearchParams) Normalize() {
	s.TrimStrings(&p.Name, &p.Capital, &p.Region, &p.Timezone)
}

// Empty reports whether no filter is set.
func (p SearchParams) Empty() bool {
	return p.Name == "" && p.Capital == "" && p.Region == "" && p.Timezone == ""
}

// CodeRequest is the path parameter of the detail endpoint.
type CodeRequest struct {
	Code string `validate:"required,countrycode"`
}

// Normalize trims and upper-cases the code.
func (r *CodeRequest) Normalize() {
	r.Code = strings.ToUpper(strings.TrimSpace(r.Code))
}

func (r *CodeRequest) Validate() error {
	return validation.Validate(r)
}
