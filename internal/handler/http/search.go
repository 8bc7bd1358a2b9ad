package http

import (
	"errors"
	"log/slog"
	"mime"
	"net/http"
	"strings"

	"github.com/utafrali/storefront-search/internal/domain"
	"github.com/utafrali/storefront-search/internal/service"
	"github.com/utafrali/storefront-search/internal/visit"
	"github.com/utafrali/storefront-search/pkg/httputil"
	"github.com/utafrali/storefront-search/pkg/middleware"
	"github.com/utafrali/storefront-search/pkg/pagination"
	"github.com/utafrali/storefront-search/pkg/validator"
)

// LanguageMatcher picks the supported language closest to the requested ones.
type LanguageMatcher interface {
	Match(requested ...string) string
}

// SearchHandler handles HTTP requests for search endpoints.
type SearchHandler struct {
	service   *service.SearchService
	languages LanguageMatcher
	logger    *slog.Logger
}

// NewSearchHandler creates a new search HTTP handler.
func NewSearchHandler(svc *service.SearchService, languages LanguageMatcher, logger *slog.Logger) *SearchHandler {
	return &SearchHandler{
		service:   svc,
		languages: languages,
		logger:    logger,
	}
}

// --- Request DTOs ---

// SearchRequest holds the query string parameters of a full search.
// Paging is parsed separately by pkg/pagination.
type SearchRequest struct {
	Term           string   `query:"q" validate:"max=200"`
	Fields         []string `query:"fields" validate:"max=5,dive,oneof=name shortdescription fulldescription tagname sku"`
	Sort           string   `query:"sort" validate:"omitempty,oneof=relevance price_asc price_desc newest name_asc name_desc"`
	Language       string   `query:"lang" validate:"omitempty,bcp47_language_tag"`
	CategoryID     string   `query:"c" validate:"max=64"`
	ManufacturerID string   `query:"m" validate:"max=64"`
}

// InstantRequest is the instant search input, sent as query string, form or JSON body.
type InstantRequest struct {
	Term     string `json:"q" query:"q" validate:"max=200"`
	Language string `json:"lang,omitempty" query:"lang" validate:"omitempty,bcp47_language_tag"`
}

// --- Response DTOs ---

// InstantResponse is the instant search outcome plus the rendering flags
// the search box needs.
type InstantResponse struct {
	*domain.Outcome
	ShowProductImages bool `json:"show_product_images"`
}

// BoxResponse is the search box model rendered on every storefront page.
type BoxResponse struct {
	InstantSearchEnabled bool   `json:"instant_search_enabled"`
	ShowProductImages    bool   `json:"show_product_images"`
	TermMinLength        int    `json:"term_min_length"`
	CurrentQuery         string `json:"current_query"`
}

// --- Handlers ---

// Search handles GET /api/v1/search
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	paging, err := pagination.FromRequest(r)
	if err != nil {
		var pe *pagination.ParamError
		if errors.As(err, &pe) {
			httputil.WriteInvalidParameter(w, r, pe.Param, pe)
			return
		}
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	q := r.URL.Query()
	req := SearchRequest{
		Term:           q.Get("q"),
		Fields:         splitFields(q["fields"]),
		Sort:           strings.ToLower(strings.TrimSpace(q.Get("sort"))),
		Language:       strings.TrimSpace(q.Get("lang")),
		CategoryID:     strings.TrimSpace(q.Get("c")),
		ManufacturerID: strings.TrimSpace(q.Get("m")),
	}
	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	raw := domain.RawQuery{
		Term:           req.Term,
		Fields:         req.Fields,
		Page:           paging.Page,
		PerPage:        paging.PerPage,
		Sort:           req.Sort,
		Language:       h.languages.Match(req.Language, r.Header.Get("Accept-Language")),
		CategoryID:     req.CategoryID,
		ManufacturerID: req.ManufacturerID,
	}
	page := visit.Page{
		CustomerID: middleware.CustomerIDFromContext(r.Context()),
		StoreID:    middleware.StoreIDFromContext(r.Context()),
		URL:        pageURL(r),
	}

	outcome, err := h.service.Search(r.Context(), raw, page)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteData(w, outcome)
}

// Instant handles GET and POST /api/v1/search/instant. A missing or too
// short term is answered with 204.
func (h *SearchHandler) Instant(w http.ResponseWriter, r *http.Request) {
	req, err := decodeInstantRequest(r)
	if err != nil {
		httputil.WriteValidationError(w, r, err)
		return
	}

	raw := domain.RawQuery{
		Term:     req.Term,
		Language: h.languages.Match(req.Language, r.Header.Get("Accept-Language")),
	}
	outcome, err := h.service.Instant(r.Context(), raw)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	if outcome == nil {
		httputil.WriteNoContent(w)
		return
	}

	httputil.WriteData(w, InstantResponse{
		Outcome:           outcome,
		ShowProductImages: h.service.Settings().ShowProductImagesInInstant,
	})
}

// Box handles GET /api/v1/search/box
func (h *SearchHandler) Box(w http.ResponseWriter, r *http.Request) {
	settings := h.service.Settings()
	httputil.WriteData(w, BoxResponse{
		InstantSearchEnabled: settings.InstantSearchEnabled,
		ShowProductImages:    settings.ShowProductImagesInInstant,
		TermMinLength:        settings.InstantSearchTermMinLength,
		CurrentQuery:         strings.TrimSpace(r.URL.Query().Get("q")),
	})
}

// decodeInstantRequest reads the instant search input from a JSON body,
// a form body or the query string, in that order of preference.
func decodeInstantRequest(r *http.Request) (InstantRequest, error) {
	var req InstantRequest
	if r.Method == http.MethodPost {
		mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
		if mediaType == "application/json" {
			err := validator.DecodeAndValidate(r, &req)
			return req, err
		}
		if err := r.ParseForm(); err != nil {
			return req, err
		}
		req.Term = r.PostForm.Get("q")
		req.Language = r.PostForm.Get("lang")
	}
	if req.Term == "" && req.Language == "" {
		req.Term = r.URL.Query().Get("q")
		req.Language = r.URL.Query().Get("lang")
	}
	req.Language = strings.TrimSpace(req.Language)
	return req, validator.Validate(req)
}

// splitFields accepts both fields=name,sku and repeated fields parameters.
func splitFields(values []string) []string {
	var fields []string
	for _, v := range values {
		for _, f := range strings.Split(v, ",") {
			if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
				fields = append(fields, f)
			}
		}
	}
	return fields
}

// pageURL is the storefront URL of the current request without its query
// string, recorded as the customer's last visited page.
func pageURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil {
		scheme = "https"
	} else if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		scheme = proto
	}
	host := r.Host
	if fwd := r.Header.Get("X-Forwarded-Host"); fwd != "" {
		host = fwd
	}
	return scheme + "://" + host + r.URL.Path
}
