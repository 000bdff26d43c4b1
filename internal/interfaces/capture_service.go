package interfaces

import (
	"context"

	"github.com/ternarybob/faultlens/internal/models"
)

// ArtifactCollector captures page state from a live browser context
type ArtifactCollector interface {
	Capture(ctx context.Context) *models.PageArtifacts
}
