package common

import (
	"github.com/google/uuid"
)

// NewEnrichmentID generates a unique enrichment record ID with the "enr_" prefix
// Format: enr_<uuid>
func NewEnrichmentID() string {
	return "enr_" + uuid.New().String()
}
