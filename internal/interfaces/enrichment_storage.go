package interfaces

import (
	"context"
	"errors"

	"github.com/ternarybob/faultlens/internal/models"
)

// ErrRecordNotFound is returned when an enrichment record does not exist
var ErrRecordNotFound = errors.New("enrichment record not found")

// EnrichmentStorage persists enrichment history
type EnrichmentStorage interface {
	Save(ctx context.Context, record *models.EnrichmentRecord) error
	Get(ctx context.Context, id string) (*models.EnrichmentRecord, error)
	// List returns the newest records first; limit <= 0 returns all
	List(ctx context.Context, limit int) ([]*models.EnrichmentRecord, error)
	ListByTest(ctx context.Context, testName string, limit int) ([]*models.EnrichmentRecord, error)
	Delete(ctx context.Context, id string) error
	Close() error
}
