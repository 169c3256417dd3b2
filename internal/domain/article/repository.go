package article

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines the interface for knowledge-base article data access
type Repository interface {
	Create(ctx context.Context, a *Article) error
	GetByID(ctx context.Context, id uuid.UUID) (*Article, error)
	ListByCategory(ctx context.Context, organizationID uuid.UUID, category string, limit int) ([]Article, error)
}
