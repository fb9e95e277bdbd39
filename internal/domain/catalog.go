package domain

import "github.com/google/uuid"

// CatalogItem is the local replica of a catalog entry, kept in sync from
// catalog events. Only existence, name and description are needed here.
type CatalogItem struct {
	ID          uuid.UUID `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
}
