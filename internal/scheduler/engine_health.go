package scheduler

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// EngineProbe records the reachability of the execution engine
type EngineProbe interface {
	Check(ctx context.Context) error
}

// EngineHealthJob probes the execution engine on a schedule
type EngineHealthJob struct {
	probe   EngineProbe
	timeout time.Duration
	log     zerolog.Logger
}

// NewEngineHealthJob creates a new EngineHealthJob
func NewEngineHealthJob(probe EngineProbe, timeout time.Duration, log zerolog.Logger) *EngineHealthJob {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &EngineHealthJob{
		probe:   probe,
		timeout: timeout,
		log:     log.With().Str("job", "engine_health").Logger(),
	}
}

// Name returns the job name
func (j *EngineHealthJob) Name() string {
	return "engine_health"
}

// Run executes a single probe
func (j *EngineHealthJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	if err := j.probe.Check(ctx); err != nil {
		j.log.Debug().Err(err).Msg("Execution engine probe failed")
		return err
	}
	return nil
}
