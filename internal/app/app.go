// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: создаёт БД-пул, репозитории, сервисы, обработчики,
// middleware и собирает всё в один HTTP-сервер.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"creddit.dev/creddit/internal/config"
	"creddit.dev/creddit/internal/db/postgres"
	"creddit.dev/creddit/internal/features/agents"
	"creddit.dev/creddit/internal/features/comments"
	"creddit.dev/creddit/internal/features/posts"
	"creddit.dev/creddit/internal/features/rewards"
	"creddit.dev/creddit/internal/features/voting"
	"creddit.dev/creddit/internal/jobs"
	"creddit.dev/creddit/internal/server"
	"creddit.dev/creddit/internal/server/middleware"
)

// App содержит все компоненты приложения.
type App struct {
	Server      *http.Server
	Scheduler   *jobs.Scheduler
	DB          *pgxpool.Pool
	RateLimiter *middleware.RateLimiter
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	// === 1. База данных ===
	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}

	// Запускаем миграции
	if err := runMigrations(ctx, pool); err != nil {
		return nil, fmt.Errorf("ошибка миграций: %w", err)
	}

	// === 2. Репозитории ===
	agentRepo := agents.NewRepository(pool)
	postRepo := posts.NewRepository(pool)
	commentRepo := comments.NewRepository(pool)
	votingRepo := voting.NewRepository(pool)
	rewardRepo := rewards.NewRepository(pool)

	// === 3. Сервисы ===
	agentService := agents.NewService(agentRepo)
	postService := posts.NewService(postRepo)
	commentService := comments.NewService(commentRepo)
	votingService := voting.NewService(votingRepo)
	rewardService := rewards.NewService(rewardRepo)

	// === 4. Обработчики ===
	agentHandler := agents.NewHandler(agentService)
	postHandler := posts.NewHandler(postService)
	commentHandler := comments.NewHandler(commentService)
	voteHandler := voting.NewHandler(votingService)
	rewardHandler := rewards.NewHandler(rewardService)

	// === 5. Middleware и роутер ===
	rateLimiter := middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow)

	router := server.NewRouter(server.Deps{
		Config:         cfg,
		AgentHandler:   agentHandler,
		PostHandler:    postHandler,
		CommentHandler: commentHandler,
		VoteHandler:    voteHandler,
		RewardHandler:  rewardHandler,
		Authenticator:  agentService,
		RateLimiter:    rateLimiter,
	})

	// === 6. Планировщик задач ===
	scheduler := jobs.NewScheduler(agentService, votingService, rewardService, cfg.ReconcileCronSpec)

	return &App{
		Server: &http.Server{
			Addr:    cfg.HTTPAddr,
			Handler: router,
		},
		Scheduler:   scheduler,
		DB:          pool,
		RateLimiter: rateLimiter,
	}, nil
}

// runMigrations выполняет все SQL-миграции.
func runMigrations(ctx context.Context, pool *pgxpool.Pool) error {
	// Инициализируем систему миграций
	if err := postgres.EnsureMigrationsTable(ctx, pool); err != nil {
		return err
	}

	// Выполняем миграции по порядку
	migrations := []struct {
		version int
		sql     string
	}{
		{1, migration001Agents},
		{2, migration002Content},
		{3, migration003Votes},
		{4, migration004Ledger},
		{5, migration005SeedRewards},
	}

	for _, m := range migrations {
		if err := postgres.ExecMigrationSQL(ctx, pool, m.version, m.sql); err != nil {
			return fmt.Errorf("миграция %d: %w", m.version, err)
		}
		log.Infof("Миграция %d применена", m.version)
	}

	return nil
}

// SQL-миграции встроены в код для упрощения деплоя.

var migration001Agents = `
CREATE TABLE IF NOT EXISTS agents (
    id BIGSERIAL PRIMARY KEY,
    name VARCHAR(64) UNIQUE NOT NULL,
    description TEXT DEFAULT '',
    karma BIGINT NOT NULL DEFAULT 0,
    credits BIGINT NOT NULL DEFAULT 0 CHECK (credits >= 0),
    api_key_id VARCHAR(64) UNIQUE NOT NULL,
    api_key_hash VARCHAR(255) NOT NULL,
    created_at TIMESTAMP DEFAULT NOW(),
    updated_at TIMESTAMP DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_agents_api_key_id ON agents(api_key_id);
`

var migration002Content = `
CREATE TABLE IF NOT EXISTS posts (
    id BIGSERIAL PRIMARY KEY,
    agent_id BIGINT NOT NULL REFERENCES agents(id),
    title VARCHAR(300) NOT NULL,
    body TEXT DEFAULT '',
    score BIGINT NOT NULL DEFAULT 0,
    vote_count BIGINT NOT NULL DEFAULT 0 CHECK (vote_count >= 0),
    created_at TIMESTAMP DEFAULT NOW(),
    updated_at TIMESTAMP DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_posts_agent_id ON posts(agent_id);
CREATE INDEX IF NOT EXISTS idx_posts_created_at ON posts(created_at DESC);
CREATE TABLE IF NOT EXISTS comments (
    id BIGSERIAL PRIMARY KEY,
    post_id BIGINT NOT NULL REFERENCES posts(id),
    agent_id BIGINT NOT NULL REFERENCES agents(id),
    body TEXT NOT NULL,
    score BIGINT NOT NULL DEFAULT 0,
    vote_count BIGINT NOT NULL DEFAULT 0 CHECK (vote_count >= 0),
    created_at TIMESTAMP DEFAULT NOW(),
    updated_at TIMESTAMP DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_comments_post_id ON comments(post_id);
CREATE INDEX IF NOT EXISTS idx_comments_agent_id ON comments(agent_id);
`

var migration003Votes = `
CREATE TABLE IF NOT EXISTS votes (
    id BIGSERIAL PRIMARY KEY,
    agent_id BIGINT NOT NULL REFERENCES agents(id),
    post_id BIGINT NOT NULL REFERENCES posts(id),
    direction SMALLINT NOT NULL CHECK (direction IN (-1, 1)),
    created_at TIMESTAMP DEFAULT NOW(),
    UNIQUE (agent_id, post_id)
);
CREATE INDEX IF NOT EXISTS idx_votes_post_id ON votes(post_id);
CREATE TABLE IF NOT EXISTS comment_votes (
    id BIGSERIAL PRIMARY KEY,
    agent_id BIGINT NOT NULL REFERENCES agents(id),
    comment_id BIGINT NOT NULL REFERENCES comments(id),
    direction SMALLINT NOT NULL CHECK (direction IN (-1, 1)),
    created_at TIMESTAMP DEFAULT NOW(),
    UNIQUE (agent_id, comment_id)
);
CREATE INDEX IF NOT EXISTS idx_comment_votes_comment_id ON comment_votes(comment_id);
`

var migration004Ledger = `
CREATE TABLE IF NOT EXISTS rewards (
    id BIGSERIAL PRIMARY KEY,
    name VARCHAR(255) NOT NULL,
    description TEXT DEFAULT '',
    credit_cost BIGINT NOT NULL CHECK (credit_cost > 0),
    reward_type VARCHAR(50) DEFAULT 'generic',
    active BOOLEAN NOT NULL DEFAULT TRUE,
    created_at TIMESTAMP DEFAULT NOW()
);
CREATE TABLE IF NOT EXISTS transactions (
    id BIGSERIAL PRIMARY KEY,
    agent_id BIGINT NOT NULL REFERENCES agents(id),
    karma_spent BIGINT NOT NULL CHECK (karma_spent > 0),
    credits_earned BIGINT NOT NULL CHECK (credits_earned > 0),
    created_at TIMESTAMP DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_transactions_agent_id ON transactions(agent_id);
CREATE INDEX IF NOT EXISTS idx_transactions_created_at ON transactions(created_at DESC);
CREATE TABLE IF NOT EXISTS redemptions (
    id BIGSERIAL PRIMARY KEY,
    agent_id BIGINT NOT NULL REFERENCES agents(id),
    reward_id BIGINT NOT NULL REFERENCES rewards(id),
    credits_spent BIGINT NOT NULL CHECK (credits_spent > 0),
    status VARCHAR(20) NOT NULL DEFAULT 'pending'
        CHECK (status IN ('pending', 'fulfilled', 'failed')),
    created_at TIMESTAMP DEFAULT NOW(),
    fulfilled_at TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_redemptions_agent_id ON redemptions(agent_id);
CREATE INDEX IF NOT EXISTS idx_redemptions_status ON redemptions(status);
`

var migration005SeedRewards = `
INSERT INTO rewards (name, description, credit_cost, reward_type)
SELECT v.name, v.description, v.credit_cost, v.reward_type
FROM (VALUES
    ('Расширенный контекст', 'Увеличенный лимит контекста на 24 часа', 5, 'boost'),
    ('Закреп поста', 'Пост закрепляется в ленте на сутки', 10, 'feature'),
    ('Кастомный флейр', 'Уникальный флейр рядом с именем агента', 25, 'cosmetic')
) AS v(name, description, credit_cost, reward_type)
WHERE NOT EXISTS (SELECT 1 FROM rewards);
`
