package elasticsearch

// DefaultIndexName is the default Elasticsearch index used for product documents.
const DefaultIndexName = "storefront_products"

// buildIndexMapping returns the full JSON mapping for the products index,
// including custom analyzers for autocomplete, spell checking and Turkish
// language support. Localized values live under localized.<lang>.*.
func buildIndexMapping() string {
	return `{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 0,
    "analysis": {
      "analyzer": {
        "turkish_analyzer": {
          "type": "custom",
          "tokenizer": "standard",
          "filter": ["lowercase", "turkish_stop", "turkish_stemmer"]
        },
        "autocomplete_analyzer": {
          "type": "custom",
          "tokenizer": "autocomplete_tokenizer",
          "filter": ["lowercase"]
        },
        "autocomplete_search": {
          "type": "custom",
          "tokenizer": "standard",
          "filter": ["lowercase"]
        },
        "spell_analyzer": {
          "type": "custom",
          "tokenizer": "standard",
          "filter": ["lowercase", "asciifolding"]
        }
      },
      "tokenizer": {
        "autocomplete_tokenizer": {
          "type": "edge_ngram",
          "min_gram": 2,
          "max_gram": 20,
          "token_chars": ["letter", "digit"]
        }
      },
      "filter": {
        "turkish_stop": {
          "type": "stop",
          "stopwords": "_turkish_"
        },
        "turkish_stemmer": {
          "type": "stemmer",
          "language": "turkish"
        }
      }
    }
  },
  "mappings": {
    "dynamic_templates": [
      {
        "localized_text": {
          "path_match": "localized.*",
          "match_mapping_type": "string",
          "mapping": { "type": "text", "analyzer": "turkish_analyzer", "fields": { "keyword": { "type": "keyword", "ignore_above": 256 } } }
        }
      }
    ],
    "properties": {
      "id":                { "type": "keyword" },
      "name":              { "type": "text", "analyzer": "turkish_analyzer", "fields": { "keyword": { "type": "keyword", "ignore_above": 256 }, "autocomplete": { "type": "text", "analyzer": "autocomplete_analyzer", "search_analyzer": "autocomplete_search" }, "spell": { "type": "text", "analyzer": "spell_analyzer" } } },
      "short_description": { "type": "text", "analyzer": "turkish_analyzer" },
      "full_description":  { "type": "text", "analyzer": "turkish_analyzer" },
      "sku":               { "type": "keyword", "normalizer": "lowercase" },
      "tags":              { "type": "text", "analyzer": "turkish_analyzer", "fields": { "keyword": { "type": "keyword" } } },
      "category_id":       { "type": "keyword" },
      "category_name":     { "type": "text", "analyzer": "turkish_analyzer", "fields": { "keyword": { "type": "keyword" } } },
      "manufacturer_id":   { "type": "keyword" },
      "manufacturer_name": { "type": "text", "analyzer": "turkish_analyzer", "fields": { "keyword": { "type": "keyword" } } },
      "price":             { "type": "long" },
      "currency":          { "type": "keyword" },
      "published":         { "type": "boolean" },
      "localized":         { "type": "object" },
      "created_at":        { "type": "date" }
    }
  }
}`
}
