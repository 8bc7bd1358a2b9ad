package route

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuilder_Search(t *testing.T) {
	b := NewBuilder("")

	assert.Equal(t, "/search?q=red+shoes", b.Search(SearchParams{Term: "red shoes"}))
}

func TestBuilder_Category(t *testing.T) {
	b := NewBuilder("https://shop.example.com/search/")

	assert.Equal(t, "https://shop.example.com/search?c=42&q=shoes", b.Category(CategoryParams{Term: "shoes", CategoryID: "42"}))
}

func TestBuilder_Manufacturer(t *testing.T) {
	b := NewBuilder("/search")

	assert.Equal(t, "/search?m=7&q=%C3%A7anta", b.Manufacturer(ManufacturerParams{Term: "çanta", ManufacturerID: "7"}))
}

func TestNewBuilder_SlashOnlyBaseUsesDefaultPath(t *testing.T) {
	for _, base := range []string{"/", "//", " / "} {
		b := NewBuilder(base)

		assert.Equal(t, "/search?q=shoes", b.Search(SearchParams{Term: "shoes"}), "base %q", base)
	}
}
