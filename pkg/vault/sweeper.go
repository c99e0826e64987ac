package vault

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"telepost/pkg/logger"
)

// Sweeper periodically removes expired share records on a cron schedule.
type Sweeper struct {
	vault    *Vault
	schedule string
	runner   *cron.Cron
}

func NewSweeper(v *Vault, schedule string) *Sweeper {
	return &Sweeper{vault: v, schedule: schedule}
}

// Start registers the sweep job and starts the scheduler. A vault without
// a TTL needs no sweeping, so Start is a no-op then.
func (s *Sweeper) Start() error {
	if s.vault.ttl <= 0 {
		logger.InfoC("vault", "Token expiry disabled, sweeper not started")
		return nil
	}

	s.runner = cron.New()
	_, err := s.runner.AddFunc(s.schedule, func() {
		removed, err := s.vault.SweepExpired(context.Background())
		if err != nil {
			logger.ErrorCF("vault", "Token sweep failed", map[string]interface{}{
				logger.FieldError: err.Error(),
			})
			return
		}
		if removed > 0 {
			logger.InfoCF("vault", "Expired share tokens removed", map[string]interface{}{
				logger.FieldCount: removed,
			})
		}
	})
	if err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.schedule, err)
	}

	s.runner.Start()
	logger.InfoCF("vault", "Token sweeper started", map[string]interface{}{
		"schedule": s.schedule,
	})
	return nil
}

func (s *Sweeper) Stop() {
	if s.runner != nil {
		<-s.runner.Stop().Done()
	}
}
