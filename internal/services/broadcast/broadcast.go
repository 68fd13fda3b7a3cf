// Package broadcast delivers one message to every current subscriber.
package broadcast

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"motibot/internal/storage"
	kit "motibot/internal/transport"
	logx "motibot/pkg/logx"
)

type Config struct {
	// RatePerSec caps outbound sends; Telegram throttles bots around 30/s.
	RatePerSec int
}

// Report summarizes one broadcast cycle.
type Report struct {
	Attempted int
	Failed    int
}

type Service struct {
	store   storage.Store
	adapter kit.Adapter
	limiter *rate.Limiter
	log     logx.Logger
}

func New(cfg Config, store storage.Store, adapter kit.Adapter, log logx.Logger) *Service {
	rps := cfg.RatePerSec
	if rps <= 0 {
		rps = 25
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		store:   store,
		adapter: adapter,
		limiter: rate.NewLimiter(rate.Limit(rps), rps),
		log:     log,
	}
}

// Run reads the subscriber list once and attempts delivery to each id.
// A failed recipient is logged and skipped; there is no retry within a
// cycle. The returned error is non-nil only when the list itself could not
// be read or the context ended mid-cycle.
func (s *Service) Run(ctx context.Context, text string) (Report, error) {
	var rep Report

	ids, err := s.store.List(ctx)
	if err != nil {
		s.log.Error("broadcast aborted, subscriber list unavailable", logx.Err(err))
		return rep, err
	}

	start := time.Now()
	s.log.Info("broadcast started", logx.Int("total", len(ids)))

	for _, id := range ids {
		if err := s.limiter.Wait(ctx); err != nil {
			return rep, err
		}
		rep.Attempted++
		if err := s.adapter.SendText(ctx, id, text); err != nil {
			rep.Failed++
			s.log.Warn("broadcast send failed", logx.Int64("chat_id", id), logx.Err(err))
		}
	}

	fields := []logx.Field{
		logx.Int("attempted", rep.Attempted),
		logx.Int("failed", rep.Failed),
		logx.Duration("dur", time.Since(start)),
	}
	if rep.Failed > 0 {
		s.log.Warn("broadcast finished with failures", fields...)
	} else {
		s.log.Info("broadcast finished", fields...)
	}
	return rep, nil
}
