package evaluator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/Kira/internal/domain"
	"github.com/shaiso/Kira/internal/mq"
	"github.com/shaiso/Kira/internal/repo"
	"github.com/shaiso/Kira/internal/telemetry"
)

// Значения конфигурации по умолчанию.
const (
	defaultPollInterval = 10 * time.Second
	defaultTimeout      = 30 * time.Second
	defaultBatchSize    = 50
	defaultPrefetch     = 5
)

// EvaluationStore — хранилище evaluations.
type EvaluationStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Evaluation, error)
	ListPending(ctx context.Context, limit int) ([]domain.Evaluation, error)
	Claim(ctx context.Context, e *domain.Evaluation) error
	Update(ctx context.Context, e *domain.Evaluation) error
}

// VersionStore — источник исходных текстов.
type VersionStore interface {
	GetVersion(ctx context.Context, scriptID uuid.UUID, version int) (*domain.ScriptVersion, error)
}

// CompletionPublisher публикует evaluation.completed.
type CompletionPublisher interface {
	PublishEvaluationCompleted(ctx context.Context, payload mq.EvaluationCompletedPayload) error
}

// Service вычисляет сохранённые evaluations.
//
// Service — stateless компонент kira-worker, который:
//   - получает evaluation.pending из очереди (event-driven);
//   - периодически забирает PENDING evaluations из БД (polling fallback);
//   - вычисляет script с таймаутом;
//   - сохраняет выходы и публикует evaluation.completed.
//
// Таймаут проверяется между вызовами узлов: после его истечения
// оставшиеся узлы отказывают с "evaluation cancelled". Уже запущенная
// функция не прерывается.
//
// Несколько экземпляров могут работать параллельно: Claim гарантирует,
// что evaluation вычисляется один раз.
type Service struct {
	evaluations EvaluationStore
	versions    VersionStore
	publisher   CompletionPublisher
	conn        *mq.Connection
	evaluator   *Evaluator

	pollInterval time.Duration
	timeout      time.Duration
	batchSize    int

	logger     *slog.Logger
	consumer   *mq.Consumer
	cancelFunc context.CancelFunc
	wg         sync.WaitGroup
}

// Config — конфигурация Service.
type Config struct {
	Evaluations EvaluationStore
	Versions    VersionStore

	// Publisher и Conn опциональны: без них работает только polling.
	Publisher CompletionPublisher
	Conn      *mq.Connection

	// Evaluator опционален; если nil — New() с логгером Service.
	Evaluator *Evaluator

	PollInterval time.Duration // интервал polling (default: 10s)
	Timeout      time.Duration // таймаут одного вычисления (default: 30s)
	BatchSize    int           // evaluations за один poll (default: 50)

	Logger *slog.Logger
}

// NewService создаёт Service.
func NewService(cfg Config) *Service {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Service{
		evaluations:  cfg.Evaluations,
		versions:     cfg.Versions,
		publisher:    cfg.Publisher,
		conn:         cfg.Conn,
		evaluator:    cfg.Evaluator,
		pollInterval: cfg.PollInterval,
		timeout:      cfg.Timeout,
		batchSize:    cfg.BatchSize,
		logger:       logger,
	}
	if s.evaluator == nil {
		s.evaluator = New(WithLogger(logger))
	}
	if s.pollInterval <= 0 {
		s.pollInterval = defaultPollInterval
	}
	if s.timeout <= 0 {
		s.timeout = defaultTimeout
	}
	if s.batchSize <= 0 {
		s.batchSize = defaultBatchSize
	}
	return s
}

// Start запускает consumer (если есть соединение) и polling.
func (s *Service) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	s.cancelFunc = cancel

	s.logger.Info("starting evaluation service",
		"poll_interval", s.pollInterval,
		"timeout", s.timeout,
		"batch_size", s.batchSize,
	)

	if s.conn != nil {
		s.consumer = mq.NewConsumer(s.conn, s.logger, mq.ConsumerConfig{
			Queue:    mq.QueueEvaluationsPending,
			Handler:  s.handlePending,
			Prefetch: defaultPrefetch,
		})

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			if err := s.consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				s.logger.Error("evaluation consumer error", "error", err)
			}
		}()
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.pollLoop(ctx)
	}()

	return nil
}

// Stop останавливает Service и ждёт завершения горутин.
func (s *Service) Stop() {
	s.logger.Info("stopping evaluation service...")

	if s.cancelFunc != nil {
		s.cancelFunc()
	}
	if s.consumer != nil {
		s.consumer.Stop()
	}
	s.wg.Wait()

	s.logger.Info("evaluation service stopped")
}

func (s *Service) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(s.pollInterval)
	defer ticker.Stop()

	// Первый poll сразу: подхватываем evaluations, созданные пока worker был выключен
	s.poll(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.poll(ctx)
		}
	}
}

func (s *Service) poll(ctx context.Context) {
	pending, err := s.evaluations.ListPending(ctx, s.batchSize)
	if err != nil {
		s.logger.Error("failed to list pending evaluations", "error", err)
		return
	}
	if len(pending) == 0 {
		return
	}

	s.logger.Debug("poll found pending evaluations", "count", len(pending))

	for i := range pending {
		if ctx.Err() != nil {
			return
		}
		err := s.Process(ctx, pending[i].ID)
		if err != nil && !errors.Is(err, ErrNotPending) {
			s.logger.Error("failed to process evaluation from poll",
				"evaluation_id", pending[i].ID,
				"error", err,
			)
		}
	}
}

// handlePending обрабатывает сообщение evaluation.pending.
func (s *Service) handlePending(ctx context.Context, delivery *mq.Delivery) error {
	payload, err := mq.ParsePayload[mq.EvaluationPendingPayload](&delivery.Message)
	if err != nil {
		s.logger.Error("failed to parse evaluation.pending payload", "error", err)
		return err
	}

	if err := s.Process(ctx, payload.EvaluationID); err != nil {
		// Уже обработано или удалено — ack
		if errors.Is(err, ErrEvaluationNotFound) || errors.Is(err, ErrNotPending) {
			s.logger.Debug("evaluation not processed", "evaluation_id", payload.EvaluationID, "reason", err)
			return nil
		}
		return err
	}
	return nil
}

// Process вычисляет одно evaluation.
//
// Ошибки вычисления не возвращаются: они сохраняются в evaluation
// как FAILED. Возвращаются только ошибки хранилища и ErrNotPending.
func (s *Service) Process(ctx context.Context, id uuid.UUID) error {
	e, err := s.evaluations.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return fmt.Errorf("%w: %s", ErrEvaluationNotFound, id)
		}
		return fmt.Errorf("get evaluation: %w", err)
	}
	if e.Status != domain.EvaluationStatusPending {
		return ErrNotPending
	}

	if err := s.evaluations.Claim(ctx, e); err != nil {
		if errors.Is(err, repo.ErrInvalidState) {
			return ErrNotPending
		}
		return fmt.Errorf("claim evaluation: %w", err)
	}

	logger := telemetry.WithEvaluationID(s.logger, e.ID.String())
	logger.Info("evaluation started",
		"script_id", e.ScriptID,
		"version", e.Version,
		"workflow", e.Workflow,
	)

	version, err := s.versions.GetVersion(ctx, e.ScriptID, e.Version)
	if err != nil {
		e.MarkFailed(nil, fmt.Sprintf("load script version %d: %v", e.Version, err))
	} else {
		runCtx, cancel := context.WithTimeout(ctx, s.timeout)
		out := s.evaluator.Run(runCtx, Request{
			Source:   version.Source,
			Workflow: e.Workflow,
			Inputs:   e.Inputs,
		})
		cancel()
		Apply(e, out)
	}

	if err := s.evaluations.Update(ctx, e); err != nil {
		return fmt.Errorf("update evaluation: %w", err)
	}

	logger.Info("evaluation finished",
		"status", e.Status,
		"duration", e.Duration(),
		"error", e.Error,
	)

	s.publishCompletion(ctx, e)
	return nil
}

// Apply переносит итог вычисления в evaluation.
func Apply(e *domain.Evaluation, out *Outcome) {
	if out.Status == domain.EvaluationStatusSucceeded {
		e.MarkSucceeded(out.Outputs)
		return
	}
	e.MarkFailed(out.Outputs, out.Error)
}

func (s *Service) publishCompletion(ctx context.Context, e *domain.Evaluation) {
	if s.publisher == nil {
		return
	}
	payload := mq.EvaluationCompletedPayload{
		EvaluationID: e.ID,
		ScriptID:     e.ScriptID,
		Status:       e.Status.String(),
		Error:        e.Error,
		DurationMs:   e.Duration().Milliseconds(),
	}
	if err := s.publisher.PublishEvaluationCompleted(ctx, payload); err != nil {
		// evaluation уже сохранено; подписчики увидят его через API
		s.logger.Warn("failed to publish evaluation.completed",
			"evaluation_id", e.ID,
			"error", err,
		)
	}
}
