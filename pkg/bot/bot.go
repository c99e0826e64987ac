// Package bot is the Telegram-facing runtime: it polls updates, classifies
// them, and routes admins into the composition wizard and everyone else
// into the file-release gate.
package bot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mymmrac/telego"

	"telepost/pkg/gate"
	"telepost/pkg/lifecycle"
	"telepost/pkg/logger"
	"telepost/pkg/transport"
	"telepost/pkg/wizard"
)

const component = "bot"

const (
	maxConcurrentHandlers = 32
	stopWaitPeriod        = 5 * time.Second
	pollRestartDelay      = 5 * time.Second
)

type cancelGuard struct {
	mu     sync.Mutex
	cancel context.CancelFunc
}

func (g *cancelGuard) set(cancel context.CancelFunc) {
	g.mu.Lock()
	g.cancel = cancel
	g.mu.Unlock()
}

func (g *cancelGuard) cancelAndClear() {
	g.mu.Lock()
	cancel := g.cancel
	g.cancel = nil
	g.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

type Bot struct {
	bot     *telego.Bot
	client  transport.Client
	machine *wizard.Machine
	gate    *gate.Resolver
	isAdmin func(int64) bool

	runCancel cancelGuard
	runner    *lifecycle.LoopRunner

	handleSem chan struct{}
	handleWG  sync.WaitGroup
}

func New(b *telego.Bot, client transport.Client, machine *wizard.Machine, resolver *gate.Resolver, isAdmin func(int64) bool) *Bot {
	return &Bot{
		bot:       b,
		client:    client,
		machine:   machine,
		gate:      resolver,
		isAdmin:   isAdmin,
		runner:    lifecycle.NewLoopRunner(),
		handleSem: make(chan struct{}, maxConcurrentHandlers),
	}
}

// Start begins long polling. It returns once polling is established; the
// update loop runs until the context is canceled or Stop is called.
func (b *Bot) Start(ctx context.Context) error {
	if b.runner.Running() {
		return nil
	}
	logger.InfoC(component, "Starting bot (polling mode)")

	runCtx, cancel := context.WithCancel(ctx)
	b.runCancel.set(cancel)

	updates, err := b.bot.UpdatesViaLongPolling(runCtx, nil)
	if err != nil {
		cancel()
		return fmt.Errorf("failed to start updates polling: %w", err)
	}
	logger.InfoCF(component, "Bot connected", map[string]interface{}{
		"username": b.client.BotHandle(),
	})

	b.runner.Start(func(stop <-chan struct{}) {
		b.pollLoop(runCtx, stop, updates)
	})
	return nil
}

func (b *Bot) pollLoop(runCtx context.Context, stop <-chan struct{}, updates <-chan telego.Update) {
	for {
		select {
		case <-stop:
			return
		case <-runCtx.Done():
			return
		case update, ok := <-updates:
			if !ok {
				logger.WarnC(component, "Updates channel closed unexpectedly, attempting to restart polling...")

				select {
				case <-stop:
					return
				case <-runCtx.Done():
					return
				case <-time.After(pollRestartDelay):
				}

				newUpdates, err := b.bot.UpdatesViaLongPolling(runCtx, nil)
				if err != nil {
					logger.ErrorCF(component, "Failed to restart updates polling", map[string]interface{}{
						logger.FieldError: err.Error(),
					})
					continue
				}
				updates = newUpdates
				logger.InfoC(component, "Updates polling restarted successfully")
				continue
			}
			b.dispatch(runCtx, update)
		}
	}
}

// Stop cancels polling, waits for the poll loop to exit, then waits,
// bounded, for in-flight handlers to drain.
func (b *Bot) Stop() {
	if !b.runner.Running() {
		return
	}
	logger.InfoC(component, "Stopping bot")
	b.runCancel.cancelAndClear()
	b.runner.Stop()

	done := make(chan struct{})
	go func() {
		b.handleWG.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(stopWaitPeriod):
		logger.WarnC(component, "Timeout waiting for update handlers to stop")
	}
}

// dispatch hands one update to a bounded worker, recovering panics so a
// single bad update never takes the poll loop down.
func (b *Bot) dispatch(runCtx context.Context, update telego.Update) {
	b.handleWG.Add(1)
	go func(u telego.Update) {
		defer b.handleWG.Done()

		select {
		case <-runCtx.Done():
			return
		case b.handleSem <- struct{}{}:
		}
		defer func() { <-b.handleSem }()
		defer func() {
			if r := recover(); r != nil {
				logger.ErrorCF(component, "Recovered panic in update handler", map[string]interface{}{
					"panic": fmt.Sprintf("%v", r),
				})
			}
		}()

		b.handleUpdate(runCtx, u)
	}(update)
}

func (b *Bot) handleUpdate(ctx context.Context, update telego.Update) {
	switch {
	case update.CallbackQuery != nil:
		b.handleCallbackQuery(ctx, update.CallbackQuery)
	case update.Message != nil:
		b.handleMessage(ctx, update.Message)
	}
}

func (b *Bot) handleMessage(ctx context.Context, msg *telego.Message) {
	if msg.From == nil || msg.Chat.Type != telego.ChatTypePrivate {
		return
	}
	actorID := msg.From.ID
	ev := classifyMessage(msg)

	if !b.isAdmin(actorID) {
		b.handleVisitor(ctx, actorID, msg.Chat.ID, ev)
		return
	}

	if err := b.machine.Handle(ctx, ev); err != nil {
		logger.ErrorCF(component, "Wizard handler failed", map[string]interface{}{
			logger.FieldActorID: actorID,
			logger.FieldError:   err.Error(),
		})
	}
}

func (b *Bot) handleCallbackQuery(ctx context.Context, cq *telego.CallbackQuery) {
	// Always acknowledge so the client stops its spinner, even when the
	// press goes nowhere.
	if err := b.bot.AnswerCallbackQuery(ctx, &telego.AnswerCallbackQueryParams{
		CallbackQueryID: cq.ID,
	}); err != nil {
		logger.WarnCF(component, "Callback acknowledgement failed", map[string]interface{}{
			logger.FieldError: err.Error(),
		})
	}
	if cq.Message == nil {
		return
	}

	actorID := cq.From.ID
	chatID := cq.Message.GetChat().ID

	if token, ok := retryToken(cq.Data); ok {
		b.resolveAndRespond(ctx, actorID, chatID, token)
		return
	}
	if !b.isAdmin(actorID) {
		return
	}

	ev := wizard.Event{
		Kind:     wizard.EventCallback,
		ActorID:  actorID,
		ChatID:   chatID,
		Callback: cq.Data,
	}
	if err := b.machine.Handle(ctx, ev); err != nil {
		logger.ErrorCF(component, "Wizard callback failed", map[string]interface{}{
			logger.FieldActorID: actorID,
			logger.FieldError:   err.Error(),
		})
	}
}
