package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"minerva/internal/domain/article"
	"minerva/pkg/errors"
)

// Compile-time check
var _ article.Repository = (*ArticleRepository)(nil)

// ArticleRepository implements article.Repository
type ArticleRepository struct {
	db DBTX
}

// NewArticleRepository creates a new article repository
func NewArticleRepository(db DBTX) *ArticleRepository {
	return &ArticleRepository{db: db}
}

// Create creates a new knowledge-base article
func (r *ArticleRepository) Create(ctx context.Context, a *article.Article) error {
	query := `
		INSERT INTO articles (
			organization_id, title, body, category, status,
			author_agent_id, source_ticket_id
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7
		)
		RETURNING id, created_at, updated_at
	`

	return r.db.QueryRowContext(ctx, query,
		a.OrganizationID, a.Title, a.Body, a.Category, a.Status,
		a.AuthorAgentID, a.SourceTicketID,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
}

// GetByID retrieves an article by ID
func (r *ArticleRepository) GetByID(ctx context.Context, id uuid.UUID) (*article.Article, error) {
	query := `
		SELECT id, organization_id, title, body, category, status,
		       author_agent_id, source_ticket_id, created_at, updated_at
		FROM articles
		WHERE id = $1
	`

	a := &article.Article{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&a.ID, &a.OrganizationID, &a.Title, &a.Body, &a.Category, &a.Status,
		&a.AuthorAgentID, &a.SourceTicketID, &a.CreatedAt, &a.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, errors.ErrNotFound
	}
	if err != nil {
		return nil, errors.Wrap(err, "get article by id")
	}
	return a, nil
}

// ListByCategory retrieves articles in a category, newest first
func (r *ArticleRepository) ListByCategory(ctx context.Context, organizationID uuid.UUID, category string, limit int) ([]article.Article, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, organization_id, title, body, category, status,
		       author_agent_id, source_ticket_id, created_at, updated_at
		FROM articles
		WHERE organization_id = $1 AND category = $2
		ORDER BY created_at DESC
		LIMIT $3
	`

	rows, err := r.db.QueryContext(ctx, query, organizationID, category, limit)
	if err != nil {
		return nil, errors.Wrap(err, "list articles")
	}
	defer rows.Close()

	var articles []article.Article
	for rows.Next() {
		a := article.Article{}
		err := rows.Scan(
			&a.ID, &a.OrganizationID, &a.Title, &a.Body, &a.Category, &a.Status,
			&a.AuthorAgentID, &a.SourceTicketID, &a.CreatedAt, &a.UpdatedAt,
		)
		if err != nil {
			return nil, errors.Wrap(err, "scan article")
		}
		articles = append(articles, a)
	}
	return articles, rows.Err()
}
