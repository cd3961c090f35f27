package elasticsearch

import (
	"time"

	"github.com/utafrali/storefront-search/internal/domain"
)

// StatusPublished is the only product status visible to search.
const StatusPublished = "published"

// Document is a product as stored in the index.
type Document struct {
	ID               string    `json:"id"`
	Name             string    `json:"name"`
	Slug             string    `json:"slug"`
	Description      string    `json:"description"`
	ShortDescription string    `json:"short_description"`
	SKU              string    `json:"sku"`
	BasePrice        int64     `json:"base_price"`
	CompareAtPrice   *int64    `json:"compare_at_price,omitempty"`
	StockQuantity    int       `json:"stock_quantity"`
	IsFeatured       bool      `json:"is_featured"`
	IsActive         bool      `json:"is_active"`
	Status           string    `json:"status"`
	CategoryID       *string   `json:"category_id,omitempty"`
	Images           []string  `json:"images"`
	CreatedAt        time.Time `json:"created_at"`
}

// NewDocument builds a published, active document from a candidate.
func NewDocument(c domain.Candidate) Document {
	return Document{
		ID:               c.ID,
		Name:             c.Name,
		Slug:             c.Slug,
		Description:      c.Description,
		ShortDescription: c.ShortDescription,
		SKU:              c.SKU,
		BasePrice:        c.Price,
		CompareAtPrice:   c.CompareAtPrice,
		StockQuantity:    c.StockQuantity,
		IsFeatured:       c.IsFeatured,
		IsActive:         true,
		Status:           StatusPublished,
		CategoryID:       c.CategoryID,
		Images:           c.Images,
		CreatedAt:        c.CreatedAt,
	}
}

// Candidate converts the document back to the domain type.
func (d Document) Candidate() domain.Candidate {
	images := d.Images
	if images == nil {
		images = []string{}
	}
	return domain.Candidate{
		ID:               d.ID,
		Name:             d.Name,
		Slug:             d.Slug,
		Description:      d.Description,
		ShortDescription: d.ShortDescription,
		SKU:              d.SKU,
		Price:            d.BasePrice,
		CompareAtPrice:   d.CompareAtPrice,
		StockQuantity:    d.StockQuantity,
		IsFeatured:       d.IsFeatured,
		CreatedAt:        d.CreatedAt,
		CategoryID:       d.CategoryID,
		Images:           images,
	}
}

// Suggestion converts the document to an autocomplete summary.
func (d Document) Suggestion() domain.Suggestion {
	s := domain.Suggestion{
		ID:    d.ID,
		Name:  d.Name,
		Slug:  d.Slug,
		Price: d.BasePrice,
	}
	if len(d.Images) > 0 {
		img := d.Images[0]
		s.Image = &img
	}
	return s
}
