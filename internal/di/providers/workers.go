package providers

import (
	"context"
	"time"

	"github.com/samber/do/v2"

	"github.com/bookhavenapp/bookhaven-server/internal/config"
	"github.com/bookhavenapp/bookhaven-server/internal/logger"
	"github.com/bookhavenapp/bookhaven-server/internal/service"
)

// TokenSweepJob runs periodic expired-token cleanup.
type TokenSweepJob struct {
	cancel context.CancelFunc
}

// Shutdown implements do.Shutdownable.
func (j *TokenSweepJob) Shutdown() error {
	j.cancel()
	return nil
}

// ProvideTokenSweepJob provides the periodic expired-token sweep job.
func ProvideTokenSweepJob(i do.Injector) (*TokenSweepJob, error) {
	cfg := do.MustInvoke[*config.Config](i)
	authService := do.MustInvoke[*service.AuthService](i)
	log := do.MustInvoke[*logger.Logger](i)

	ctx, cancel := context.WithCancel(context.Background())

	sweep := func() {
		if count, err := authService.SweepExpired(ctx, time.Now()); err != nil {
			log.Warn("Token sweep failed", "error", err)
		} else if count > 0 {
			log.Info("Token sweep completed", "cleared", count)
		}
	}

	go func() {
		ticker := time.NewTicker(cfg.Sweep.Interval)
		defer ticker.Stop()

		// Initial sweep on startup
		sweep()

		for {
			select {
			case <-ticker.C:
				sweep()
			case <-ctx.Done():
				return
			}
		}
	}()

	log.Info("Token sweep job started", "interval", cfg.Sweep.Interval)

	return &TokenSweepJob{cancel: cancel}, nil
}
