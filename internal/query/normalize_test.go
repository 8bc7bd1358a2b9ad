package query

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront-search/internal/domain"
)

func testSettings() domain.Settings {
	return domain.Settings{
		InstantSearchEnabled:          true,
		InstantSearchTermMinLength:    3,
		InstantSearchNumberOfProducts: 10,
		SearchFields:                  []string{"name", "shortdescription", "tagname"},
		DefaultPageSize:               24,
		MaxPageSize:                   100,
		DefaultLanguage:               "en",
	}
}

func TestNormalize_RejectsShortTerm(t *testing.T) {
	for _, mode := range []domain.Mode{domain.ModeInstant, domain.ModeFull} {
		for _, term := range []string{"", "  ", "ab", " ab "} {
			_, err := Normalize(domain.RawQuery{Term: term}, mode, testSettings())

			var tooShort *TermTooShortError
			require.ErrorAs(t, err, &tooShort, "mode=%s term=%q", mode, term)
			assert.Equal(t, 3, tooShort.MinLength)
		}
	}
}

func TestNormalize_CountsRunesNotBytes(t *testing.T) {
	q, err := Normalize(domain.RawQuery{Term: "çöş"}, domain.ModeFull, testSettings())

	require.NoError(t, err)
	assert.Equal(t, "çöş", q.Term)
}

func TestNormalize_InstantOverridesFields(t *testing.T) {
	q, err := Normalize(domain.RawQuery{
		Term:   "shoes",
		Fields: []string{"sku", "fulldescription"},
	}, domain.ModeInstant, testSettings())

	require.NoError(t, err)
	assert.Equal(t, []string{"name", "shortdescription", "tagname"}, q.Fields)
}

func TestNormalize_InstantAddsSKUWhenEnabled(t *testing.T) {
	settings := testSettings()
	settings.SearchFields = append(settings.SearchFields, "sku")

	q, err := Normalize(domain.RawQuery{Term: "shoes"}, domain.ModeInstant, settings)

	require.NoError(t, err)
	assert.Equal(t, []string{"name", "shortdescription", "tagname", "sku"}, q.Fields)
}

func TestNormalize_InstantClampsLimitAndForcesRelevance(t *testing.T) {
	settings := testSettings()
	settings.InstantSearchNumberOfProducts = 50

	q, err := Normalize(domain.RawQuery{
		Term:    "shoes",
		Page:    4,
		PerPage: 40,
		Sort:    domain.SortPriceDesc,
	}, domain.ModeInstant, settings)

	require.NoError(t, err)
	assert.Equal(t, 0, q.Offset)
	assert.Equal(t, 16, q.Limit)
	assert.Equal(t, domain.SortRelevance, q.Sort)
}

func TestNormalize_InstantUsesConfiguredLimitBelowCeiling(t *testing.T) {
	q, err := Normalize(domain.RawQuery{Term: "shoes"}, domain.ModeInstant, testSettings())

	require.NoError(t, err)
	assert.Equal(t, 10, q.Limit)
}

func TestNormalize_FullKeepsCallerFieldsAndSort(t *testing.T) {
	q, err := Normalize(domain.RawQuery{
		Term:    "shoes",
		Fields:  []string{"sku", " Name ", "sku"},
		Page:    3,
		PerPage: 12,
		Sort:    domain.SortNewest,
	}, domain.ModeFull, testSettings())

	require.NoError(t, err)
	assert.Equal(t, []string{"sku", "name"}, q.Fields)
	assert.Equal(t, 24, q.Offset)
	assert.Equal(t, 12, q.Limit)
	assert.Equal(t, 3, q.Page())
	assert.Equal(t, domain.SortNewest, q.Sort)
}

func TestNormalize_FullDefaults(t *testing.T) {
	q, err := Normalize(domain.RawQuery{Term: "  shoes "}, domain.ModeFull, testSettings())

	require.NoError(t, err)
	assert.Equal(t, "shoes", q.Term)
	assert.Equal(t, []string{"name", "shortdescription", "tagname"}, q.Fields)
	assert.Equal(t, 0, q.Offset)
	assert.Equal(t, 24, q.Limit)
	assert.Equal(t, domain.SortRelevance, q.Sort)
	assert.Equal(t, "en", q.Language)
}

func TestNormalize_FullClampsToMaxPageSize(t *testing.T) {
	q, err := Normalize(domain.RawQuery{Term: "shoes", PerPage: 500}, domain.ModeFull, testSettings())

	require.NoError(t, err)
	assert.Equal(t, 100, q.Limit)
}

func TestNormalize_KeepsLanguageAndFilters(t *testing.T) {
	q, err := Normalize(domain.RawQuery{
		Term:           "shoes",
		Language:       "de",
		CategoryID:     "cat-1",
		ManufacturerID: "m-2",
	}, domain.ModeFull, testSettings())

	require.NoError(t, err)
	assert.Equal(t, "de", q.Language)
	assert.Equal(t, "cat-1", q.CategoryID)
	assert.Equal(t, "m-2", q.ManufacturerID)
}

func TestNormalize_FullCapsHugePageWithoutOverflow(t *testing.T) {
	for _, page := range []int{1 << 62, math.MaxInt} {
		q, err := Normalize(domain.RawQuery{Term: "shoes", Page: page}, domain.ModeFull, testSettings())
		require.NoError(t, err)

		assert.Equal(t, 24, q.Limit)
		assert.GreaterOrEqual(t, q.Offset, 0, "page %d", page)
		assert.Equal(t, math.MaxInt/24, q.Page(), "page %d", page)
	}
}
