package telegram

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Handler processes one normalized inbound event. Implementations must not
// panic across the boundary; the poller still guards each dispatch.
type Handler interface {
	HandleUpdate(ctx context.Context, ev Event)
}

// CursorStore persists the long-poll offset between process runs.
type CursorStore interface {
	Load(ctx context.Context) (int64, error)
	Save(ctx context.Context, offset int64) error
}

// Poller drives the getUpdates long-poll loop and fans updates out to worker
// goroutines. A slow handler for one chat must not stall delivery to others,
// so each update is dispatched on its own goroutine bounded by a semaphore.
type Poller struct {
	Client  *Client
	Handler Handler
	Cursor  CursorStore
}

// PollerConfig bundles the tunables for Run.
type PollerConfig struct {
	PollTimeoutSec int
	MaxConcurrency int
}

// Run polls until ctx is done. Transport failures back off exponentially
// (2s doubling to a 15s cap) and reset on the first successful poll. The
// offset advances past a batch only after every update in it was dispatched.
func (p *Poller) Run(ctx context.Context, cfg PollerConfig) error {
	timeoutSec := cfg.PollTimeoutSec
	if timeoutSec <= 0 {
		timeoutSec = 30
	}
	maxConc := cfg.MaxConcurrency
	if maxConc <= 0 {
		maxConc = 8
	}

	var offset int64
	if p.Cursor != nil {
		saved, err := p.Cursor.Load(ctx)
		if err != nil {
			log.Warn().Err(err).Msg("poll cursor load failed, starting from live updates")
		} else {
			offset = saved
		}
	}

	log.Info().Int("poll_timeout_sec", timeoutSec).Int("max_concurrency", maxConc).Msg("telegram poller started")

	sem := make(chan struct{}, maxConc)
	backoff := 2 * time.Second

	for {
		if err := ctx.Err(); err != nil {
			log.Info().Msg("telegram poller stopping")
			return nil
		}

		updates, err := p.Client.GetUpdates(ctx, offset, timeoutSec)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Warn().Err(err).Dur("backoff", backoff).Msg("getUpdates failed")
			if !sleepOrDone(ctx, backoff) {
				return nil
			}
			if backoff < 15*time.Second {
				backoff *= 2
				if backoff > 15*time.Second {
					backoff = 15 * time.Second
				}
			}
			continue
		}
		backoff = 2 * time.Second

		var wg sync.WaitGroup
		next := offset
		for _, u := range updates {
			if u.UpdateID >= next {
				next = u.UpdateID + 1
			}
			ev, ok := NormalizeUpdate(u)
			if !ok {
				continue
			}

			wg.Add(1)
			sem <- struct{}{}
			go func(ev Event) {
				defer wg.Done()
				defer func() { <-sem }()
				defer func() {
					if rec := recover(); rec != nil {
						log.Error().Interface("panic", rec).Int64("chat_id", ev.ChatID).Msg("handler panic recovered")
					}
				}()
				p.Handler.HandleUpdate(ctx, ev)
			}(ev)
		}
		wg.Wait()

		if next > offset {
			offset = next
			if p.Cursor != nil {
				if err := p.Cursor.Save(ctx, offset); err != nil {
					log.Warn().Err(err).Int64("offset", offset).Msg("poll cursor save failed")
				}
			}
		}
	}
}

func sleepOrDone(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
