package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Kira/internal/domain"
	"github.com/shaiso/Kira/internal/evaluator"
	"github.com/shaiso/Kira/internal/repo"
	"github.com/shaiso/Kira/internal/telemetry"
)

// ScriptStore — хранилище scripts и их версий.
type ScriptStore interface {
	Create(ctx context.Context, script *domain.Script) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Script, error)
	List(ctx context.Context) ([]domain.Script, error)
	Update(ctx context.Context, script *domain.Script) error
	Delete(ctx context.Context, id uuid.UUID) error
	CreateVersion(ctx context.Context, v *domain.ScriptVersion) error
	GetVersion(ctx context.Context, scriptID uuid.UUID, version int) (*domain.ScriptVersion, error)
	GetLatestVersion(ctx context.Context, scriptID uuid.UUID) (*domain.ScriptVersion, error)
	ListVersions(ctx context.Context, scriptID uuid.UUID) ([]domain.ScriptVersion, error)
}

// EvaluationStore — хранилище evaluations.
type EvaluationStore interface {
	Create(ctx context.Context, e *domain.Evaluation) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Evaluation, error)
	GetByIdempotencyKey(ctx context.Context, scriptID uuid.UUID, key string) (*domain.Evaluation, error)
	List(ctx context.Context, filter repo.EvaluationFilter) ([]domain.Evaluation, error)
	Update(ctx context.Context, e *domain.Evaluation) error
}

// ScheduleStore — хранилище schedules.
type ScheduleStore interface {
	Create(ctx context.Context, s *domain.Schedule) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Schedule, error)
	List(ctx context.Context, filter repo.ScheduleFilter) ([]domain.Schedule, error)
	Delete(ctx context.Context, id uuid.UUID) error
	SetEnabled(ctx context.Context, id uuid.UUID, enabled bool) (*domain.Schedule, error)
}

// Publisher отправляет evaluation воркерам.
type Publisher interface {
	PublishEvaluationPending(ctx context.Context, id uuid.UUID) error
}

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	scripts     ScriptStore
	evaluations EvaluationStore
	schedules   ScheduleStore
	publisher   Publisher
	evaluator   *evaluator.Evaluator
	inline      bool
	timeout     time.Duration
	logger      *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	Scripts     ScriptStore
	Evaluations EvaluationStore
	Schedules   ScheduleStore

	// Publisher — nil, если брокер недоступен.
	Publisher Publisher

	// Evaluator вычисляет ad-hoc запросы и evaluations в режиме Inline.
	Evaluator *evaluator.Evaluator

	// Inline — вычислять evaluations в обработчике запроса.
	// Без Publisher вычисления всегда выполняются inline.
	Inline bool

	// Timeout — ограничение на одно вычисление (по умолчанию 30s).
	Timeout time.Duration

	Logger *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Evaluator == nil {
		cfg.Evaluator = evaluator.New(evaluator.WithLogger(cfg.Logger))
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Handler{
		scripts:     cfg.Scripts,
		evaluations: cfg.Evaluations,
		schedules:   cfg.Schedules,
		publisher:   cfg.Publisher,
		evaluator:   cfg.Evaluator,
		inline:      cfg.Inline || cfg.Publisher == nil,
		timeout:     cfg.Timeout,
		logger:      cfg.Logger,
	}
}

// log возвращает логгер запроса.
func (h *Handler) log(r *http.Request) *slog.Logger {
	return telemetry.FromContext(r.Context(), h.logger)
}

// evaluate выполняет запрос с ограничением по времени.
func (h *Handler) evaluate(ctx context.Context, req evaluator.Request) *evaluator.Outcome {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()
	return h.evaluator.Run(ctx, req)
}
