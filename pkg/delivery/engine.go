// Package delivery fans a finished post out to destination channels.
// Failures are isolated per target: one unreachable channel never aborts
// the rest of a broadcast.
package delivery

import (
	"context"
	"errors"
	"time"

	"golang.org/x/time/rate"

	"telepost/pkg/logger"
	"telepost/pkg/post"
	"telepost/pkg/registry"
	"telepost/pkg/transport"
)

// errDetailLimit is how much of a transport error ends up in the report.
const errDetailLimit = 50

// Sender is the slice of the transport the engine needs.
type Sender interface {
	SendPost(ctx context.Context, chatID int64, p *post.Post, protect bool) error
}

// TargetError records one failed target.
type TargetError struct {
	ChatID int64
	Title  string
	Detail string
}

// Report aggregates a fan-out: totals plus per-target errors in target
// order.
type Report struct {
	Sent   int
	Failed int
	Errors []TargetError
}

type Engine struct {
	sender  Sender
	limiter *rate.Limiter
	sleep   func(ctx context.Context, d time.Duration) error
}

// NewEngine builds an engine that paces consecutive sends at least
// sendInterval apart. A zero interval disables pacing.
func NewEngine(sender Sender, sendInterval time.Duration) *Engine {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if sendInterval > 0 {
		limiter = rate.NewLimiter(rate.Every(sendInterval), 1)
	}
	return &Engine{
		sender:  sender,
		limiter: limiter,
		sleep:   sleepCtx,
	}
}

// Deliver sends p to every target sequentially. Each target gets one
// rate-limit retry; any other transport error is recorded and the fan-out
// moves on. The returned report covers every target exactly once.
func (e *Engine) Deliver(ctx context.Context, p *post.Post, targets []registry.Channel) Report {
	var report Report
	for _, target := range targets {
		if err := e.limiter.Wait(ctx); err != nil {
			report.Failed++
			report.Errors = append(report.Errors, TargetError{
				ChatID: target.ChatID,
				Title:  target.Title,
				Detail: truncate(err.Error(), errDetailLimit),
			})
			continue
		}

		if err := e.sendWithRetry(ctx, target.ChatID, p); err != nil {
			report.Failed++
			report.Errors = append(report.Errors, TargetError{
				ChatID: target.ChatID,
				Title:  target.Title,
				Detail: truncate(err.Error(), errDetailLimit),
			})
			logger.WarnCF("delivery", "Send failed", map[string]interface{}{
				logger.FieldChatID: target.ChatID,
				logger.FieldError:  err.Error(),
			})
			continue
		}

		report.Sent++
		logger.InfoCF("delivery", "Posted to channel", map[string]interface{}{
			logger.FieldChatID: target.ChatID,
			logger.FieldChannel: target.Title,
		})
	}
	return report
}

// SendOne delivers p to a single chat through the same rate-limit-aware
// retry path the fan-out uses. Preview sends go through here so they
// behave exactly like a broadcast send.
func (e *Engine) SendOne(ctx context.Context, chatID int64, p *post.Post) error {
	if err := e.limiter.Wait(ctx); err != nil {
		return err
	}
	return e.sendWithRetry(ctx, chatID, p)
}

// sendWithRetry is the single retry-wrapped send used for every content
// kind: on a rate-limit signal it sleeps the mandated duration and retries
// exactly once.
func (e *Engine) sendWithRetry(ctx context.Context, chatID int64, p *post.Post) error {
	err := e.sender.SendPost(ctx, chatID, p, false)
	var rl *transport.RateLimitError
	if !errors.As(err, &rl) {
		return err
	}

	logger.WarnCF("delivery", "Rate limited, retrying once", map[string]interface{}{
		logger.FieldChatID: chatID,
		"retry_after":      rl.RetryAfter.String(),
	})
	if err := e.sleep(ctx, rl.RetryAfter); err != nil {
		return err
	}
	return e.sender.SendPost(ctx, chatID, p, false)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen]
}
