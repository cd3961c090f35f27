package elasticsearch

// DefaultIndexName is the default Elasticsearch index used for product documents.
const DefaultIndexName = "ecommerce_products"

// buildIndexMapping returns the JSON mapping for the products index. The
// searchable text fields use the wildcard type so substring queries stay
// cheap on long descriptions.
func buildIndexMapping() string {
	return `{
  "settings": {
    "number_of_shards": 1,
    "number_of_replicas": 0,
    "analysis": {
      "normalizer": {
        "lowercase_normalizer": {
          "type": "custom",
          "filter": ["lowercase"]
        }
      }
    }
  },
  "mappings": {
    "properties": {
      "id":                { "type": "keyword" },
      "name":              { "type": "wildcard", "fields": { "sort": { "type": "keyword", "normalizer": "lowercase_normalizer", "ignore_above": 256 } } },
      "slug":              { "type": "keyword" },
      "description":       { "type": "wildcard" },
      "short_description": { "type": "wildcard" },
      "sku":               { "type": "wildcard" },
      "base_price":        { "type": "long" },
      "compare_at_price":  { "type": "long" },
      "stock_quantity":    { "type": "integer" },
      "is_featured":       { "type": "boolean" },
      "is_active":         { "type": "boolean" },
      "status":            { "type": "keyword" },
      "category_id":       { "type": "keyword" },
      "images":            { "type": "keyword", "index": false },
      "created_at":        { "type": "date" }
    }
  }
}`
}
