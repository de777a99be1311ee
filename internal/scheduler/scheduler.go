package scheduler

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/jeovahfialho/papertrader/pkg/logger"
	"go.uber.org/zap"
)

type taskFn func(ctx context.Context) error

type Scheduler struct {
	scheduler gocron.Scheduler
}

func New() (*Scheduler, error) {
	scheduler, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("erro ao criar scheduler: %w", err)
	}
	return &Scheduler{scheduler: scheduler}, nil
}

func (s *Scheduler) Start() {
	s.scheduler.Start()
}

func (s *Scheduler) Stop() error {
	return s.scheduler.Shutdown()
}

func (s *Scheduler) createJob(jobDefinition gocron.JobDefinition, name string, fn taskFn, startImmediately bool) error {
	opts := []gocron.JobOption{
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	}

	if startImmediately {
		opts = append(opts, gocron.WithStartAt(gocron.WithStartImmediately()))
	}

	if _, err := s.scheduler.NewJob(jobDefinition, gocron.NewTask(taskWithRecover(fn, name)), opts...); err != nil {
		return fmt.Errorf("erro ao criar job %s: %w", name, err)
	}

	return nil
}

func (s *Scheduler) NewIntervalJob(name string, fn taskFn, interval time.Duration, startImmediately bool) error {
	return s.createJob(gocron.DurationJob(interval), name, fn, startImmediately)
}

func taskWithRecover(fn taskFn, jobName string) func(ctx context.Context) {
	return func(ctx context.Context) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recuperado no job",
					zap.String("job", jobName),
					zap.Any("panic", r),
					zap.String("stacktrace", string(debug.Stack())))
			}
		}()

		start := time.Now()
		logger.Debug("job iniciado", zap.String("job", jobName))

		if err := fn(ctx); err != nil {
			logger.Error("job falhou", zap.String("job", jobName), zap.Error(err))
			return
		}

		logger.Debug("job concluído",
			zap.String("job", jobName),
			zap.Duration("duration", time.Since(start)))
	}
}
