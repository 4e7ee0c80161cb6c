package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/eleccia/chatbot-engine/internal/session"
	"github.com/eleccia/chatbot-engine/pkg/logger"
	"github.com/eleccia/chatbot-engine/pkg/metrics"
)

// Finalizer archives an idle session. Satisfied by *Engine.
type Finalizer interface {
	FinalizeIdle(ctx context.Context, userID string) error
}

// Sweeper periodically archives sessions whose remaining TTL has fallen
// below the threshold, so conversations abandoned mid-dialogue still end up
// in the durable record instead of silently evaporating.
type Sweeper struct {
	store     session.Store
	finalizer Finalizer
	interval  time.Duration
	threshold time.Duration
	logger    *logger.Logger
}

func NewSweeper(store session.Store, finalizer Finalizer, interval, threshold time.Duration, log *logger.Logger) *Sweeper {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Sweeper{
		store:     store,
		finalizer: finalizer,
		interval:  interval,
		threshold: threshold,
		logger:    log,
	}
}

// Run sweeps on every tick until the context is canceled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	s.logger.Info("expiration sweeper started",
		zap.Duration("interval", s.interval),
		zap.Duration("threshold", s.threshold),
	)
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("expiration sweeper stopped")
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.logger.Error("sweep pass failed", zap.Error(err))
			}
		}
	}
}

// Sweep runs a single pass and returns how many sessions were archived.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	metrics.SweepRuns.Inc()
	keys, err := s.store.KeysNearExpiry(ctx, s.threshold)
	if err != nil {
		metrics.StoreErrors.WithLabelValues("session").Inc()
		return 0, err
	}
	swept := 0
	for _, userID := range keys {
		if err := s.finalizer.FinalizeIdle(ctx, userID); err != nil {
			if errors.Is(err, ErrNoActiveSession) {
				// Expired between the scan and the lock. Nothing to do.
				continue
			}
			s.logger.WithUser(userID).Error("sweeping idle session", zap.Error(err))
			continue
		}
		swept++
	}
	if swept > 0 {
		metrics.SweptSessions.Add(float64(swept))
		s.logger.Info("sweep pass finished",
			zap.Int("candidates", len(keys)),
			zap.Int("swept", swept),
		)
	}
	return swept, nil
}
