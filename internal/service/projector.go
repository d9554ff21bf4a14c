package service

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"

	"wolf-tap/internal/model"
	"wolf-tap/internal/pkg/metrics"
)

// Broadcaster pushes a snapshot to every subscribed client.
type Broadcaster interface {
	Broadcast(entries []model.LeaderboardEntry)
}

// Projector periodically computes the leaderboard, caches it and pushes it
// to subscribers.
type Projector struct {
	board    *LeaderboardService
	hub      Broadcaster
	cache    SnapshotCache
	cron     *cron.Cron
	interval time.Duration
	timeout  time.Duration
}

// NewProjector creates a projector running every interval. hub and cache may be nil.
func NewProjector(board *LeaderboardService, hub Broadcaster, cache SnapshotCache, interval time.Duration) *Projector {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Projector{
		board:    board,
		hub:      hub,
		cache:    cache,
		cron:     cron.New(),
		interval: interval,
		timeout:  interval,
	}
}

// Start schedules the projection and runs one immediately.
func (p *Projector) Start(ctx context.Context) error {
	spec := fmt.Sprintf("@every %s", p.interval)
	if _, err := p.cron.AddFunc(spec, func() { p.tick(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule leaderboard projection: %w", err)
	}
	p.cron.Start()
	log.Info().Dur("interval", p.interval).Msg("Leaderboard projector started")
	go p.tick(ctx)
	return nil
}

// Stop waits for a running projection to finish.
func (p *Projector) Stop() {
	<-p.cron.Stop().Done()
	log.Info().Msg("Leaderboard projector stopped")
}

func (p *Projector) tick(parent context.Context) {
	ctx, cancel := context.WithTimeout(parent, p.timeout)
	defer cancel()
	if _, err := p.Project(ctx); err != nil {
		log.Error().Err(err).Msg("Leaderboard projection failed")
	}
}

// Project computes one snapshot, caches it and broadcasts it.
func (p *Projector) Project(ctx context.Context) ([]model.LeaderboardEntry, error) {
	entries, err := p.board.Snapshot(ctx, p.board.Size())
	if err != nil {
		metrics.LeaderboardBroadcasts.WithLabelValues("error").Inc()
		return nil, err
	}
	if p.cache != nil {
		if err := p.cache.Store(ctx, entries); err != nil {
			log.Warn().Err(err).Msg("Leaderboard cache write failed")
		}
	}
	if p.hub != nil {
		p.hub.Broadcast(entries)
	}
	metrics.LeaderboardBroadcasts.WithLabelValues("ok").Inc()
	log.Debug().Int("entries", len(entries)).Msg("Leaderboard projected")
	return entries, nil
}
