// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает расписание: ночная сверка кармы и кредитов
// всех агентов против источников истины.
package jobs

import (
	"context"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"creddit.dev/creddit/internal/features/agents"
	"creddit.dev/creddit/internal/features/rewards"
	"creddit.dev/creddit/internal/features/voting"
)

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron          *cron.Cron
	agentService  *agents.Service
	votingService *voting.Service
	rewardService *rewards.Service
	cronSpec      string
}

// NewScheduler создаёт планировщик задач.
// cronSpec — расписание сверки; пустая строка отключает её.
func NewScheduler(agentService *agents.Service, votingService *voting.Service, rewardService *rewards.Service, cronSpec string) *Scheduler {
	return &Scheduler{
		cron:          cron.New(),
		agentService:  agentService,
		votingService: votingService,
		rewardService: rewardService,
		cronSpec:      cronSpec,
	}
}

// Start запускает все фоновые задачи.
func (s *Scheduler) Start(ctx context.Context) {
	if s.cronSpec == "" {
		log.Info("Сверка балансов по расписанию отключена")
		return
	}

	if _, err := s.cron.AddFunc(s.cronSpec, func() {
		log.Info("[CRON] Ночная сверка балансов")
		if err := s.ReconcileAll(ctx); err != nil {
			log.WithError(err).Error("[CRON] Ошибка сверки")
		}
	}); err != nil {
		log.WithError(err).Error("Некорректное cron-выражение, сверка не запланирована")
		return
	}

	s.cron.Start()
	log.Infof("Планировщик задач запущен (%s)", s.cronSpec)
}

// Stop останавливает планировщик.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}

// ReconcileAll прогоняет сверку кармы и кредитов по всем агентам.
// Ошибки по отдельным агентам логируются и не прерывают обход:
// лучше сверить остальных, чем бросить всё на первом сбое.
func (s *Scheduler) ReconcileAll(ctx context.Context) error {
	ids, err := s.agentService.ListIDs(ctx)
	if err != nil {
		return err
	}

	for _, id := range ids {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if _, err := s.votingService.ReconcileKarma(ctx, id); err != nil {
			log.WithError(err).WithField("agent_id", id).Error("[CRON] Ошибка сверки кармы")
		}
		if _, err := s.rewardService.ReconcileCreditBalance(ctx, id); err != nil {
			log.WithError(err).WithField("agent_id", id).Error("[CRON] Ошибка сверки кредитов")
		}
	}

	log.WithField("agents", len(ids)).Info("[CRON] Сверка балансов завершена")
	return nil
}
