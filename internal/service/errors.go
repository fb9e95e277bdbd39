package service

import (
	"errors"

	"github.com/sakashimaa/go-pet-project/inventory/internal/repository"
)

var (
	ErrUnknownItem          = errors.New("unknown catalog item")
	ErrInvalidCommand       = errors.New("invalid command")
	ErrConcurrencyExhausted = errors.New("inventory mutation retries exhausted")
)

// IsPermanent reports errors that redelivering the same command cannot fix.
func IsPermanent(err error) bool {
	return errors.Is(err, ErrUnknownItem) || errors.Is(err, ErrInvalidCommand)
}

func isWriteConflict(err error) bool {
	return errors.Is(err, repository.ErrVersionConflict) || errors.Is(err, repository.ErrDuplicateKey)
}
