package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/utafrali/storefront-search/internal/domain"
	"github.com/utafrali/storefront-search/internal/repository"
	"github.com/utafrali/storefront-search/pkg/database"
)

// DB is the subset of pgxpool.Pool used by the repository.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

const candidateColumns = `
		p.id, p.name, p.slug,
		COALESCE(p.description, ''), COALESCE(p.short_description, ''), COALESCE(p.sku, ''),
		p.base_price, p.compare_at_price, p.stock_quantity, p.is_featured,
		p.created_at, p.category_id,
		ARRAY(SELECT i.url FROM product_images i WHERE i.product_id = p.id ORDER BY i.sort_order, i.id) AS images`

// CandidateRepository implements repository.CandidateRepository using PostgreSQL.
type CandidateRepository struct {
	db DB
}

// NewCandidateRepository creates a new PostgreSQL-backed candidate repository.
func NewCandidateRepository(db DB) *CandidateRepository {
	return &CandidateRepository{db: db}
}

// Ping checks the connection.
func (r *CandidateRepository) Ping(ctx context.Context) error {
	return r.db.Ping(ctx)
}

// FindMatching returns one window of matching products with the total count.
func (r *CandidateRepository) FindMatching(ctx context.Context, filter repository.CandidateFilter) (candidates []domain.Candidate, total int, err error) {
	where, args := buildConditions(filter)
	argIndex := len(args) + 1

	// Use count(*) OVER() for total count in a single query.
	query := fmt.Sprintf(`
		SELECT %s,
			   count(*) OVER() AS total_count
		FROM products p
		WHERE %s
		ORDER BY %s
		LIMIT $%d OFFSET $%d`,
		candidateColumns, where, orderBy(filter.SortBy, filter.Order), argIndex, argIndex+1,
	)

	ctx, done := database.TraceQuery(ctx, "search.find_matching", query)
	defer func() { done(err) }()

	rows, err := r.db.Query(ctx, query, append(args, filter.Limit, filter.Offset)...)
	if err != nil {
		return nil, 0, fmt.Errorf("find matching products: %w", err)
	}
	defer rows.Close()

	candidates = []domain.Candidate{}
	for rows.Next() {
		var c domain.Candidate
		if err := rows.Scan(
			&c.ID,
			&c.Name,
			&c.Slug,
			&c.Description,
			&c.ShortDescription,
			&c.SKU,
			&c.Price,
			&c.CompareAtPrice,
			&c.StockQuantity,
			&c.IsFeatured,
			&c.CreatedAt,
			&c.CategoryID,
			&c.Images,
			&total,
		); err != nil {
			return nil, 0, fmt.Errorf("scan candidate row: %w", err)
		}
		if c.Images == nil {
			c.Images = []string{}
		}
		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate candidate rows: %w", err)
	}

	// A window past the last match carries no window count.
	if len(candidates) == 0 && filter.Offset > 0 {
		countQuery := "SELECT count(*) FROM products p WHERE " + where
		if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
			return nil, 0, fmt.Errorf("count matching products: %w", err)
		}
	}

	return candidates, total, nil
}

// SuggestByName returns lightweight summaries of products whose name
// contains the query, featured first then alphabetical.
func (r *CandidateRepository) SuggestByName(ctx context.Context, filter repository.SuggestionFilter) (suggestions []domain.Suggestion, err error) {
	query := `
		SELECT p.id, p.name, p.slug, p.base_price,
			   (SELECT i.url FROM product_images i WHERE i.product_id = p.id ORDER BY i.sort_order, i.id LIMIT 1) AS image
		FROM products p
		WHERE p.status = 'published' AND p.is_active AND p.name ILIKE $1
		ORDER BY p.is_featured DESC, p.name ASC, p.id ASC
		LIMIT $2`

	ctx, done := database.TraceQuery(ctx, "search.suggest", query)
	defer func() { done(err) }()

	rows, err := r.db.Query(ctx, query, containsPattern(filter.Query), filter.Limit)
	if err != nil {
		return nil, fmt.Errorf("suggest products: %w", err)
	}
	defer rows.Close()

	suggestions = []domain.Suggestion{}
	for rows.Next() {
		var s domain.Suggestion
		if err := rows.Scan(&s.ID, &s.Name, &s.Slug, &s.Price, &s.Image); err != nil {
			return nil, fmt.Errorf("scan suggestion row: %w", err)
		}
		suggestions = append(suggestions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate suggestion rows: %w", err)
	}

	return suggestions, nil
}

func buildConditions(filter repository.CandidateFilter) (string, []any) {
	var (
		conditions = []string{"p.status = 'published'", "p.is_active"}
		args       []any
		argIndex   = 1
	)

	if filter.Query != "" {
		conditions = append(conditions, fmt.Sprintf(
			"(p.name ILIKE $%d OR p.description ILIKE $%d OR p.short_description ILIKE $%d OR p.sku ILIKE $%d)",
			argIndex, argIndex, argIndex, argIndex))
		args = append(args, containsPattern(filter.Query))
		argIndex++
	}

	if filter.CategoryID != nil {
		conditions = append(conditions, fmt.Sprintf("p.category_id = $%d", argIndex))
		args = append(args, *filter.CategoryID)
		argIndex++
	}

	if filter.MinPrice != nil {
		conditions = append(conditions, fmt.Sprintf("p.base_price >= $%d", argIndex))
		args = append(args, *filter.MinPrice)
		argIndex++
	}

	if filter.MaxPrice != nil {
		conditions = append(conditions, fmt.Sprintf("p.base_price <= $%d", argIndex))
		args = append(args, *filter.MaxPrice)
	}

	if filter.InStock {
		conditions = append(conditions, "p.stock_quantity > 0")
	}

	return strings.Join(conditions, " AND "), args
}

func orderBy(sortBy, order string) string {
	dir := "DESC"
	if order == domain.OrderAsc {
		dir = "ASC"
	}

	switch sortBy {
	case domain.SortName:
		return "p.name " + dir + ", p.id ASC"
	case domain.SortPrice:
		return "p.base_price " + dir + ", p.id ASC"
	case domain.SortDate:
		return "p.created_at " + dir + ", p.id ASC"
	default:
		return "p.created_at DESC, p.id ASC"
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern builds an ILIKE pattern matching s anywhere, with LIKE
// metacharacters in s taken literally.
func containsPattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
