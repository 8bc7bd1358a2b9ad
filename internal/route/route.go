// Package route builds storefront links to search result pages.
package route

import (
	"net/url"
	"strings"
)

// DefaultSearchPath is the storefront path of the search results page.
const DefaultSearchPath = "/search"

// Query string parameter names understood by the search page.
const (
	ParamTerm         = "q"
	ParamCategory     = "c"
	ParamManufacturer = "m"
)

// SearchParams targets a plain search for a term.
type SearchParams struct {
	Term string
}

// CategoryParams targets a search for a term scoped to one category.
type CategoryParams struct {
	Term       string
	CategoryID string
}

// ManufacturerParams targets a search for a term scoped to one manufacturer.
type ManufacturerParams struct {
	Term           string
	ManufacturerID string
}

// Builder builds search links relative to a base URL.
type Builder struct {
	base string
}

// NewBuilder returns a Builder rooted at base, e.g. "/search" or
// "https://shop.example.com/search". A base that is empty once trailing
// slashes are removed uses DefaultSearchPath.
func NewBuilder(base string) *Builder {
	base = strings.TrimRight(strings.TrimSpace(base), "/")
	if base == "" {
		base = DefaultSearchPath
	}
	return &Builder{base: base}
}

// Search returns the link re-running a search for p.Term.
func (b *Builder) Search(p SearchParams) string {
	return b.build(url.Values{ParamTerm: {p.Term}})
}

// Category returns the link searching p.Term within p.CategoryID.
func (b *Builder) Category(p CategoryParams) string {
	return b.build(url.Values{ParamTerm: {p.Term}, ParamCategory: {p.CategoryID}})
}

// Manufacturer returns the link searching p.Term within p.ManufacturerID.
func (b *Builder) Manufacturer(p ManufacturerParams) string {
	return b.build(url.Values{ParamTerm: {p.Term}, ParamManufacturer: {p.ManufacturerID}})
}

func (b *Builder) build(v url.Values) string {
	return b.base + "?" + v.Encode()
}
