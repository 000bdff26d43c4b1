package storage

import (
	"context"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/faultlens/internal/common"
	"github.com/ternarybob/faultlens/internal/interfaces"
	"github.com/ternarybob/faultlens/internal/models"
	"github.com/ternarybob/faultlens/internal/storage/badger"
)

// NewEnrichmentStorage opens badger-backed history, or a storage that keeps
// nothing when history is disabled.
func NewEnrichmentStorage(logger arbor.ILogger, config *common.BadgerConfig) (interfaces.EnrichmentStorage, error) {
	if config.Disabled {
		logger.Debug().Msg("Enrichment history disabled")
		return discardStorage{}, nil
	}

	db, err := badger.NewBadgerDB(logger, config)
	if err != nil {
		return nil, err
	}
	return badger.NewEnrichmentStorage(db, logger), nil
}

type discardStorage struct{}

func (discardStorage) Save(ctx context.Context, record *models.EnrichmentRecord) error { return nil }

func (discardStorage) Get(ctx context.Context, id string) (*models.EnrichmentRecord, error) {
	return nil, interfaces.ErrRecordNotFound
}

func (discardStorage) List(ctx context.Context, limit int) ([]*models.EnrichmentRecord, error) {
	return []*models.EnrichmentRecord{}, nil
}

func (discardStorage) ListByTest(ctx context.Context, testName string, limit int) ([]*models.EnrichmentRecord, error) {
	return []*models.EnrichmentRecord{}, nil
}

func (discardStorage) Delete(ctx context.Context, id string) error { return interfaces.ErrRecordNotFound }

func (discardStorage) Close() error { return nil }
