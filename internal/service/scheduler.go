package service

import (
	"context"
	"errors"
	"time"

	"PickForge/internal/config"
	"PickForge/internal/model"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Pipelines 定时任务调用的流程
type Pipelines interface {
	RunPicks(ctx context.Context, req PicksRequest) ([]PackResult, error)
	RunFeatured(ctx context.Context, req FeaturedRequest) (FeaturedResult, error)
}

// Scheduler 按 cron 表达式运行 daily/weekly/featured 流程
type Scheduler struct {
	cron      *cron.Cron
	pipelines Pipelines
	cfg       config.ScheduleConfig
	timeout   time.Duration
	logger    *logrus.Logger
}

func NewScheduler(pipelines Pipelines, cfg config.ScheduleConfig, logger *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron:      cron.New(cron.WithLogger(cron.VerbosePrintfLogger(logger))),
		pipelines: pipelines,
		cfg:       cfg,
		timeout:   10 * time.Minute,
		logger:    logger,
	}
}

// Start 注册任务并启动；表达式为空的任务不注册
func (s *Scheduler) Start() error {
	jobs := []struct {
		name string
		spec string
		run  func(ctx context.Context) error
	}{
		{"daily", s.cfg.DailyCron, s.picksJob(model.ModeDaily)},
		{"weekly", s.cfg.WeeklyCron, s.picksJob(model.ModeWeekly)},
		{"featured", s.cfg.FeaturedCron, s.featuredJob},
	}
	for _, job := range jobs {
		if job.spec == "" {
			continue
		}
		if _, err := s.cron.AddFunc(job.spec, s.wrap(job.name, job.run)); err != nil {
			return err
		}
		s.logger.WithFields(logrus.Fields{"job": job.name, "spec": job.spec}).Info("定时任务已注册")
	}
	s.cron.Start()
	return nil
}

// Stop 等待运行中的任务结束，最多 5 秒
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
		s.logger.Info("定时任务已停止")
	case <-time.After(5 * time.Second):
		s.logger.Warn("定时任务停止超时")
	}
}

// Entries 已注册任务数
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

func (s *Scheduler) wrap(name string, run func(ctx context.Context) error) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
		defer cancel()
		start := time.Now()
		if err := run(ctx); err != nil {
			s.logger.WithError(err).WithField("job", name).Error("定时任务失败")
			return
		}
		s.logger.WithFields(logrus.Fields{"job": name, "elapsed": time.Since(start).String()}).Info("定时任务完成")
	}
}

func (s *Scheduler) picksJob(mode model.Mode) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		results, err := s.pipelines.RunPicks(ctx, PicksRequest{Mode: string(mode)})
		if errors.Is(err, ErrNoSelection) {
			s.logger.WithField("mode", mode).Warn(err.Error())
			return nil
		}
		for _, r := range results {
			s.logger.WithFields(logrus.Fields{"mode": r.Mode, "selected": r.Selected, "output": r.Output}).Info("推荐包已生成")
		}
		return err
	}
}

func (s *Scheduler) featuredJob(ctx context.Context) error {
	res, err := s.pipelines.RunFeatured(ctx, FeaturedRequest{
		SyncCalendar:          true,
		BuildFeatured:         true,
		GenerateFeaturedPicks: true,
	})
	if err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{
		"featured_date": res.FeaturedDate,
		"selected":      res.FeaturedSelected,
		"upserted":      res.UpsertedEventsCount,
	}).Info("精选流程完成")
	return nil
}
