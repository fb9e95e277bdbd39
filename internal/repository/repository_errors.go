package repository

import "errors"

var (
	ErrInventoryItemNotFound = errors.New("inventory item not found")
	ErrCatalogItemNotFound   = errors.New("catalog item not found")
	ErrDuplicateKey          = errors.New("inventory item already exists")
	ErrVersionConflict       = errors.New("inventory item version conflict")
)

const uniqueViolationCode = "23505"
