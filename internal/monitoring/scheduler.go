package monitoring

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// EventPruner deletes activity events created before a cutoff.
type EventPruner interface {
	PruneEvents(ctx context.Context, before time.Time) (int64, error)
}

// Scheduler runs periodic maintenance jobs on a cron schedule.
type Scheduler struct {
	cron      *cron.Cron
	events    EventPruner
	retention time.Duration
	now       func() time.Time
}

// NewScheduler creates a scheduler that prunes events older than retention
// whenever schedule fires. schedule uses the standard five-field cron syntax or a
// descriptor such as "@daily".
func NewScheduler(events EventPruner, retention time.Duration, schedule string) (*Scheduler, error) {
	s := &Scheduler{
		cron:      cron.New(),
		events:    events,
		retention: retention,
		now:       time.Now,
	}
	if _, err := s.cron.AddFunc(schedule, s.pruneEvents); err != nil {
		return nil, err
	}
	return s, nil
}

// Run starts the scheduler in its own goroutine.
func (s *Scheduler) Run() {
	log.Info().Msg("Starting background scheduler...")
	s.cron.Start()
}

// Stop halts the scheduler and waits for a running job to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	log.Info().Msg("Stopped background scheduler.")
}

func (s *Scheduler) pruneEvents() {
	cutoff := s.now().Add(-s.retention)
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	n, err := s.events.PruneEvents(ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Time("cutoff", cutoff).Msg("Scheduler: failed to prune activity events")
		return
	}
	log.Info().Int64("deleted", n).Time("cutoff", cutoff).Msg("Scheduler: pruned activity events")
}
