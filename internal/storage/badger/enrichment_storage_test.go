package badger

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/faultlens/internal/common"
	"github.com/ternarybob/faultlens/internal/interfaces"
	"github.com/ternarybob/faultlens/internal/models"
)

func newTestStorage(t *testing.T) *EnrichmentStorage {
	t.Helper()

	db, err := NewBadgerDB(arbor.NewLogger(), &common.BadgerConfig{Path: t.TempDir()})
	require.NoError(t, err)

	storage := NewEnrichmentStorage(db, arbor.NewLogger())
	t.Cleanup(func() { storage.Close() })
	return storage
}

func TestEnrichmentStorage_SaveGetDelete(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	record := &models.EnrichmentRecord{
		ID:           "enr_1",
		TestName:     "TestCheckout",
		ErrorMessage: "element not visible",
		Frames:       []models.VideoFrame{{Position: 0.5, MimeType: "image/jpeg", Tool: "ffmpeg"}},
		FrameReason:  models.AbsencePartial,
	}
	require.NoError(t, storage.Save(ctx, record))
	assert.False(t, record.CreatedAt.IsZero())

	loaded, err := storage.Get(ctx, "enr_1")
	require.NoError(t, err)
	assert.Equal(t, "TestCheckout", loaded.TestName)
	assert.Equal(t, models.AbsencePartial, loaded.FrameReason)
	require.Len(t, loaded.Frames, 1)
	assert.Equal(t, "ffmpeg", loaded.Frames[0].Tool)

	require.NoError(t, storage.Delete(ctx, "enr_1"))
	_, err = storage.Get(ctx, "enr_1")
	assert.True(t, errors.Is(err, interfaces.ErrRecordNotFound))
	assert.True(t, errors.Is(storage.Delete(ctx, "enr_1"), interfaces.ErrRecordNotFound))
}

func TestEnrichmentStorage_SaveRequiresID(t *testing.T) {
	storage := newTestStorage(t)
	assert.Error(t, storage.Save(context.Background(), &models.EnrichmentRecord{TestName: "x"}))
}

func TestEnrichmentStorage_ListNewestFirst(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	base := time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		name := "TestCheckout"
		if i%2 == 1 {
			name = "TestLogin"
		}
		require.NoError(t, storage.Save(ctx, &models.EnrichmentRecord{
			ID:        fmt.Sprintf("enr_%d", i),
			TestName:  name,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}

	all, err := storage.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 5)
	assert.Equal(t, "enr_4", all[0].ID)
	assert.Equal(t, "enr_0", all[4].ID)

	limited, err := storage.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, limited, 2)
	assert.Equal(t, "enr_3", limited[1].ID)

	logins, err := storage.ListByTest(ctx, "TestLogin", 0)
	require.NoError(t, err)
	require.Len(t, logins, 2)
	assert.Equal(t, "enr_3", logins[0].ID)
	assert.Equal(t, "enr_1", logins[1].ID)

	none, err := storage.ListByTest(ctx, "TestMissing", 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}
