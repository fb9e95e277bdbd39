package service

import (
	"context"

	"github.com/sakashimaa/go-pet-project/inventory/internal/domain"
	"golang.org/x/sync/errgroup"
)

type Publisher interface {
	Publish(ctx context.Context, event domain.Event) error
}

// publishAll issues every event concurrently and waits for all of them.
// The first failure is returned; the command is then safe to redeliver.
func publishAll(ctx context.Context, publisher Publisher, events ...domain.Event) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, event := range events {
		g.Go(func() error {
			return publisher.Publish(gctx, event)
		})
	}

	return g.Wait()
}
