package srv

import (
	"context"
	"errors"
	"time"

	"github.com/sandevgo/docqa/pkg/log"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

// ErrStopped is returned by a Service whose work is done. It stops the
// group like a failure but Run reports it as a clean exit.
var ErrStopped = errors.New("service stopped")

type Service interface {
	Start(ctx context.Context) error
	Shutdown(ctx context.Context) error
}

// Run starts every service and blocks until ctx is cancelled or one of them
// fails. Services are then shut down in reverse order of registration.
func Run(ctx context.Context, services []Service) error {
	logger := log.FromCtx(ctx)
	g, gctx := errgroup.WithContext(ctx)

	for _, service := range services {
		g.Go(func() error {
			err := service.Start(gctx)
			switch {
			case err == nil, errors.Is(err, context.Canceled):
				return nil
			case errors.Is(err, ErrStopped):
				logger.Debug().Msgf("%T finished", service)
				return err
			default:
				logger.Error().Err(err).Msgf("%T stopped with error", service)
				return err
			}
		})
	}

	<-gctx.Done()
	shutdown(ctx, services)

	if err := g.Wait(); err != nil && !errors.Is(err, ErrStopped) {
		return err
	}
	return nil
}

func shutdown(ctx context.Context, services []Service) {
	logger := log.FromCtx(ctx)
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()

	for i := len(services) - 1; i >= 0; i-- {
		if err := services[i].Shutdown(sctx); err != nil {
			logger.Error().Err(err).Msgf("%T failed to shutdown", services[i])
		}
	}
}
