package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/faultlens/internal/interfaces"
	"github.com/ternarybob/faultlens/internal/models"
	"github.com/timshannon/badgerhold/v4"
)

// EnrichmentStorage implements interfaces.EnrichmentStorage on badgerhold
type EnrichmentStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

var _ interfaces.EnrichmentStorage = (*EnrichmentStorage)(nil)

// NewEnrichmentStorage creates enrichment history storage over db
func NewEnrichmentStorage(db *BadgerDB, logger arbor.ILogger) *EnrichmentStorage {
	return &EnrichmentStorage{db: db, logger: logger}
}

func (s *EnrichmentStorage) Save(ctx context.Context, record *models.EnrichmentRecord) error {
	if record.ID == "" {
		return fmt.Errorf("enrichment record ID is required")
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	if err := s.db.Store().Upsert(record.ID, record); err != nil {
		return fmt.Errorf("failed to save enrichment record: %w", err)
	}

	s.logger.Trace().Str("id", record.ID).Str("test", record.TestName).Msg("Enrichment record saved")
	return nil
}

func (s *EnrichmentStorage) Get(ctx context.Context, id string) (*models.EnrichmentRecord, error) {
	var record models.EnrichmentRecord
	if err := s.db.Store().Get(id, &record); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, fmt.Errorf("%w: %s", interfaces.ErrRecordNotFound, id)
		}
		return nil, fmt.Errorf("failed to get enrichment record: %w", err)
	}
	return &record, nil
}

func (s *EnrichmentStorage) List(ctx context.Context, limit int) ([]*models.EnrichmentRecord, error) {
	return s.find(badgerhold.Where("ID").Ne(""), limit)
}

func (s *EnrichmentStorage) ListByTest(ctx context.Context, testName string, limit int) ([]*models.EnrichmentRecord, error) {
	return s.find(badgerhold.Where("TestName").Eq(testName).Index("TestName"), limit)
}

func (s *EnrichmentStorage) find(query *badgerhold.Query, limit int) ([]*models.EnrichmentRecord, error) {
	query = query.SortBy("CreatedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}

	var records []models.EnrichmentRecord
	if err := s.db.Store().Find(&records, query); err != nil {
		return nil, fmt.Errorf("failed to list enrichment records: %w", err)
	}

	result := make([]*models.EnrichmentRecord, len(records))
	for i := range records {
		result[i] = &records[i]
	}
	return result, nil
}

func (s *EnrichmentStorage) Delete(ctx context.Context, id string) error {
	if err := s.db.Store().Delete(id, &models.EnrichmentRecord{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return fmt.Errorf("%w: %s", interfaces.ErrRecordNotFound, id)
		}
		return fmt.Errorf("failed to delete enrichment record: %w", err)
	}
	return nil
}

func (s *EnrichmentStorage) Close() error {
	return s.db.Close()
}
