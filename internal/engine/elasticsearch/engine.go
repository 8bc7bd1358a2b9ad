package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/utafrali/storefront-search/internal/domain"
	"github.com/utafrali/storefront-search/internal/engine"
)

const (
	spellSuggestion     = "spellcheck"
	aggTopCategories    = "top_categories"
	aggTopManufacturers = "top_manufacturers"
)

// Engine is an Elasticsearch-backed implementation of engine.Searcher.
type Engine struct {
	client    *elasticsearch.Client
	indexName string
	logger    *slog.Logger
}

type esSource struct {
	Source domain.Product `json:"_source"`
}

type esTermsAggregation struct {
	Buckets []struct {
		Key      string `json:"key"`
		DocCount int    `json:"doc_count"`
		Sample   struct {
			Hits struct {
				Hits []esSource `json:"hits"`
			} `json:"hits"`
		} `json:"sample"`
	} `json:"buckets"`
}

// esSearchResponse is the structure used to decode Elasticsearch search responses.
type esSearchResponse struct {
	Took int `json:"took"`
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []esSource `json:"hits"`
	} `json:"hits"`
	Suggest map[string][]struct {
		Options []struct {
			Text  string  `json:"text"`
			Score float64 `json:"score"`
		} `json:"options"`
	} `json:"suggest"`
	Aggregations map[string]esTermsAggregation `json:"aggregations"`
}

// esBulkResponse is the structure used to decode Elasticsearch bulk responses.
type esBulkResponse struct {
	Errors bool `json:"errors"`
	Items  []struct {
		Index struct {
			ID     string `json:"_id"`
			Status int    `json:"status"`
			Error  struct {
				Type   string `json:"type"`
				Reason string `json:"reason"`
			} `json:"error"`
		} `json:"index"`
	} `json:"items"`
}

// esErrorResponse is used to decode Elasticsearch error responses.
type esErrorResponse struct {
	Error struct {
		Type   string `json:"type"`
		Reason string `json:"reason"`
	} `json:"error"`
	Status int `json:"status"`
}

// New creates a new Elasticsearch engine connected to the given URL.
// It ensures the products index exists, creating it if necessary.
// If indexName is empty, DefaultIndexName is used.
func New(esURL string, indexName string, logger *slog.Logger) (*Engine, error) {
	if indexName == "" {
		indexName = DefaultIndexName
	}

	client, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{esURL},
	})
	if err != nil {
		return nil, fmt.Errorf("elasticsearch: failed to create client: %w", err)
	}

	e := &Engine{
		client:    client,
		indexName: indexName,
		logger:    logger,
	}

	if err := e.ensureIndex(); err != nil {
		return nil, fmt.Errorf("elasticsearch: failed to ensure index: %w", err)
	}

	return e, nil
}

// Ping checks whether the Elasticsearch cluster is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	res, err := e.client.Ping(e.client.Ping.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("elasticsearch ping: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return fmt.Errorf("elasticsearch ping: unexpected status %s", res.Status())
	}
	return nil
}

// ensureIndex checks whether the products index exists and creates it if not.
func (e *Engine) ensureIndex() error {
	res, err := e.client.Indices.Exists([]string{e.indexName})
	if err != nil {
		return fmt.Errorf("check index exists: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	// Status 200 means the index exists.
	if res.StatusCode == 200 {
		e.logger.Info("elasticsearch index already exists", "index", e.indexName)
		return nil
	}

	res, err = e.client.Indices.Create(
		e.indexName,
		e.client.Indices.Create.WithBody(strings.NewReader(buildIndexMapping())),
	)
	if err != nil {
		return fmt.Errorf("create index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return responseError("create index", res)
	}

	e.logger.Info("elasticsearch index created", "index", e.indexName)
	return nil
}

// Search executes query against Elasticsearch. The same request returns
// the product page, phrase suggestions for the term and the top category
// and manufacturer buckets.
func (e *Engine) Search(ctx context.Context, query *domain.Query) (*domain.SearchResult, error) {
	data, err := json.Marshal(e.buildSearchRequest(query))
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search: marshal query: %w", err)
	}

	res, err := e.client.Search(
		e.client.Search.WithIndex(e.indexName),
		e.client.Search.WithBody(bytes.NewReader(data)),
		e.client.Search.WithContext(ctx),
		e.client.Search.WithTrackTotalHits(true),
	)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return nil, responseError("elasticsearch search", res)
	}

	return decodeSearchResponse(res.Body)
}

// decodeSearchResponse maps an Elasticsearch search response body onto a SearchResult.
func decodeSearchResponse(body io.Reader) (*domain.SearchResult, error) {
	var esResp esSearchResponse
	if err := json.NewDecoder(body).Decode(&esResp); err != nil {
		return nil, fmt.Errorf("elasticsearch search: decode response: %w", err)
	}

	hits := make([]domain.Hit, 0, len(esResp.Hits.Hits))
	for i := range esResp.Hits.Hits {
		hits = append(hits, esResp.Hits.Hits[i].Source.ToHit())
	}

	// Options arrive ordered by score; keep that order and drop duplicates.
	suggestions := make([]string, 0)
	seen := make(map[string]struct{})
	for _, entry := range esResp.Suggest[spellSuggestion] {
		for _, opt := range entry.Options {
			if _, dup := seen[opt.Text]; dup || opt.Text == "" {
				continue
			}
			seen[opt.Text] = struct{}{}
			suggestions = append(suggestions, opt.Text)
		}
	}

	return &domain.SearchResult{
		Hits:             hits,
		TotalCount:       esResp.Hits.Total.Value,
		Suggestions:      suggestions,
		TopCategories:    bucketHits(esResp.Aggregations[aggTopCategories], (*domain.Product).CategoryHit),
		TopManufacturers: bucketHits(esResp.Aggregations[aggTopManufacturers], (*domain.Product).ManufacturerHit),
		TookMs:           int64(esResp.Took),
	}, nil
}

func bucketHits(agg esTermsAggregation, toHit func(*domain.Product) domain.Hit) []domain.Hit {
	hits := make([]domain.Hit, 0, len(agg.Buckets))
	for _, b := range agg.Buckets {
		if b.Key == "" {
			continue
		}
		if len(b.Sample.Hits.Hits) == 0 {
			hits = append(hits, domain.Hit{ID: b.Key})
			continue
		}
		hit := toHit(&b.Sample.Hits.Hits[0].Source)
		hit.ID = b.Key
		hits = append(hits, hit)
	}
	return hits
}

// buildSearchRequest constructs the Elasticsearch request body as a map.
func (e *Engine) buildSearchRequest(query *domain.Query) map[string]interface{} {
	must := map[string]interface{}{
		"multi_match": map[string]interface{}{
			"query":         query.Term,
			"fields":        searchFields(query.Fields, query.Language),
			"type":          "best_fields",
			"fuzziness":     "AUTO",
			"prefix_length": 1,
		},
	}

	limit := query.Limit
	if limit < 1 {
		limit = 20
	}

	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must":   []interface{}{must},
				"filter": buildFilters(query),
			},
		},
		"from":             max(query.Offset, 0),
		"size":             limit,
		"track_total_hits": true,
		"sort":             buildSort(query.Sort),
		"suggest": map[string]interface{}{
			"text": query.Term,
			spellSuggestion: map[string]interface{}{
				"phrase": map[string]interface{}{
					"field":      "name.spell",
					"size":       engine.MaxSuggestions,
					"gram_size":  1,
					"max_errors": 2,
					"direct_generator": []interface{}{
						map[string]interface{}{
							"field":           "name.spell",
							"suggest_mode":    "missing",
							"min_word_length": 3,
						},
					},
				},
			},
		},
		"aggs": map[string]interface{}{
			aggTopCategories:    topHitsAggregation("category_id", "category_name"),
			aggTopManufacturers: topHitsAggregation("manufacturer_id", "manufacturer_name"),
		},
	}
}

// topHitsAggregation buckets matches by idField and samples one document per
// bucket to read the entity name from. Products without an id are not bucketed.
func topHitsAggregation(idField, nameField string) map[string]interface{} {
	return map[string]interface{}{
		"terms": map[string]interface{}{
			"field":   idField,
			"size":    engine.MaxTopHits,
			"exclude": []string{""},
		},
		"aggs": map[string]interface{}{
			"sample": map[string]interface{}{
				"top_hits": map[string]interface{}{
					"size":    1,
					"_source": []string{idField, nameField, "localized.*." + nameField},
				},
			},
		},
	}
}

// searchFields maps searchable field names onto index fields with boosts.
func searchFields(fields []string, language string) []string {
	out := make([]string, 0, len(fields)*2)
	for _, f := range fields {
		switch f {
		case domain.FieldName:
			out = append(out, "name^3", "name.autocomplete^2")
			if language != "" {
				out = append(out, "localized."+language+".name^3")
			}
		case domain.FieldShortDescription:
			out = append(out, "short_description")
			if language != "" {
				out = append(out, "localized."+language+".short_description")
			}
		case domain.FieldFullDescription:
			out = append(out, "full_description")
		case domain.FieldTagName:
			out = append(out, "tags^2")
		case domain.FieldSKU:
			out = append(out, "sku^4")
		}
	}
	if len(out) == 0 {
		out = append(out, "name^3")
	}
	return out
}

// buildFilters constructs the filter clauses based on the search query.
func buildFilters(query *domain.Query) []interface{} {
	filters := []interface{}{
		map[string]interface{}{"term": map[string]interface{}{"published": true}},
	}

	if query.CategoryID != "" {
		filters = append(filters, map[string]interface{}{
			"term": map[string]interface{}{"category_id": query.CategoryID},
		})
	}
	if query.ManufacturerID != "" {
		filters = append(filters, map[string]interface{}{
			"term": map[string]interface{}{"manufacturer_id": query.ManufacturerID},
		})
	}

	return filters
}

// buildSort constructs the sort clause based on the sort option.
func buildSort(sortBy string) []interface{} {
	switch sortBy {
	case domain.SortPriceAsc:
		return []interface{}{map[string]interface{}{"price": "asc"}}
	case domain.SortPriceDesc:
		return []interface{}{map[string]interface{}{"price": "desc"}}
	case domain.SortNewest:
		return []interface{}{map[string]interface{}{"created_at": "desc"}}
	case domain.SortNameAsc:
		return []interface{}{map[string]interface{}{"name.keyword": "asc"}}
	case domain.SortNameDesc:
		return []interface{}{map[string]interface{}{"name.keyword": "desc"}}
	default:
		return []interface{}{map[string]interface{}{"_score": "desc"}}
	}
}

// BulkIndex adds or updates multiple products in the Elasticsearch index
// using the bulk NDJSON API.
func (e *Engine) BulkIndex(ctx context.Context, products []domain.Product) error {
	if len(products) == 0 {
		return nil
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for i := range products {
		action := map[string]interface{}{
			"index": map[string]interface{}{
				"_index": e.indexName,
				"_id":    products[i].ID,
			},
		}
		if err := enc.Encode(action); err != nil {
			return fmt.Errorf("elasticsearch bulk index: encode action: %w", err)
		}
		if err := enc.Encode(products[i]); err != nil {
			return fmt.Errorf("elasticsearch bulk index: encode document: %w", err)
		}
	}

	res, err := e.client.Bulk(
		bytes.NewReader(buf.Bytes()),
		e.client.Bulk.WithIndex(e.indexName),
		e.client.Bulk.WithRefresh("true"),
		e.client.Bulk.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("elasticsearch bulk index: %w", err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return responseError("elasticsearch bulk index", res)
	}

	var bulkResp esBulkResponse
	if err := json.NewDecoder(res.Body).Decode(&bulkResp); err != nil {
		return fmt.Errorf("elasticsearch bulk index: decode response: %w", err)
	}

	if bulkResp.Errors {
		var errMsgs []string
		for _, item := range bulkResp.Items {
			if item.Index.Error.Type != "" {
				errMsgs = append(errMsgs, fmt.Sprintf("id=%s: %s: %s", item.Index.ID, item.Index.Error.Type, item.Index.Error.Reason))
			}
		}
		return fmt.Errorf("elasticsearch bulk index: partial errors: %s", strings.Join(errMsgs, "; "))
	}

	e.logger.Info("bulk indexed products", "count", len(products))
	return nil
}

// responseError turns an Elasticsearch error response into an error for op.
func responseError(op string, res *esapi.Response) error {
	var errResp esErrorResponse
	if decErr := json.NewDecoder(res.Body).Decode(&errResp); decErr == nil && errResp.Error.Type != "" {
		return fmt.Errorf("%s: %s: %s", op, errResp.Error.Type, errResp.Error.Reason)
	}
	return fmt.Errorf("%s: unexpected status %s", op, res.Status())
}
