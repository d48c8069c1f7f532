package providers

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/samber/do/v2"

	"github.com/bookhavenapp/bookhaven-server/internal/config"
	"github.com/bookhavenapp/bookhaven-server/internal/logger"
	"github.com/bookhavenapp/bookhaven-server/internal/ratelimit"
)

// throttleKeyPrefix namespaces throttle counters in the shared Redis.
const throttleKeyPrefix = "throttle:"

// ThrottleHandle wraps the throttle policy and its Redis client.
// Policy is nil when throttling is disabled by configuration.
type ThrottleHandle struct {
	Policy   *ratelimit.Policy
	FailOpen bool
	client   *redis.Client
}

// Shutdown implements do.Shutdownable.
func (h *ThrottleHandle) Shutdown() error {
	if h.client != nil {
		return h.client.Close()
	}
	return nil
}

// ProvideThrottle provides the request throttle policy backed by Redis.
// An unreachable Redis at startup is logged but not fatal; the middleware
// handles runtime outages according to the fail-open setting.
func ProvideThrottle(i do.Injector) (*ThrottleHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	if !cfg.Throttle.Enabled {
		log.Info("Request throttling disabled by configuration")
		return &ThrottleHandle{}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	counter := ratelimit.NewRedisCounter(client, throttleKeyPrefix)

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := counter.Ping(ctx); err != nil {
		log.Warn("Throttle counter store unreachable at startup",
			"addr", cfg.Redis.Addr,
			"fail_open", cfg.Throttle.FailOpen,
			"error", err,
		)
	}

	rules := ratelimit.DefaultRules(
		int64(cfg.Throttle.GlobalLimit),
		int64(cfg.Throttle.BookWriteLimit),
		cfg.Throttle.Window,
	)

	log.Info("Request throttling enabled",
		"global_limit", cfg.Throttle.GlobalLimit,
		"book_write_limit", cfg.Throttle.BookWriteLimit,
		"window", cfg.Throttle.Window,
		"fail_open", cfg.Throttle.FailOpen,
	)

	return &ThrottleHandle{
		Policy:   ratelimit.NewPolicy(counter, rules),
		FailOpen: cfg.Throttle.FailOpen,
		client:   client,
	}, nil
}
