package ports

import "railclaim/internal/catalog"

// CatalogPort hands out the catalog snapshot in force. *catalog.Store
// satisfies it; the snapshot may change between calls but never mid-read.
type CatalogPort interface {
	Current() *catalog.Snapshot
}
