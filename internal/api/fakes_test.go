package api

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/shaiso/Kira/internal/domain"
	"github.com/shaiso/Kira/internal/repo"
)

// memScripts — хранилище scripts в памяти.
type memScripts struct {
	mu       sync.Mutex
	scripts  map[uuid.UUID]domain.Script
	versions map[uuid.UUID][]domain.ScriptVersion
}

func newMemScripts() *memScripts {
	return &memScripts{
		scripts:  make(map[uuid.UUID]domain.Script),
		versions: make(map[uuid.UUID][]domain.ScriptVersion),
	}
}

func (m *memScripts) Create(_ context.Context, s *domain.Script) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, other := range m.scripts {
		if other.Name == s.Name {
			return repo.ErrAlreadyExists
		}
	}
	m.scripts[s.ID] = *s
	return nil
}

func (m *memScripts) GetByID(_ context.Context, id uuid.UUID) (*domain.Script, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.scripts[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &s, nil
}

func (m *memScripts) List(_ context.Context) ([]domain.Script, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Script, 0, len(m.scripts))
	for _, s := range m.scripts {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *memScripts) Update(_ context.Context, s *domain.Script) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.scripts[s.ID]; !ok {
		return repo.ErrNotFound
	}
	m.scripts[s.ID] = *s
	return nil
}

func (m *memScripts) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.scripts[id]; !ok {
		return repo.ErrNotFound
	}
	delete(m.scripts, id)
	delete(m.versions, id)
	return nil
}

func (m *memScripts) CreateVersion(_ context.Context, v *domain.ScriptVersion) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.scripts[v.ScriptID]; !ok {
		return repo.ErrNotFound
	}
	v.Version = len(m.versions[v.ScriptID]) + 1
	m.versions[v.ScriptID] = append(m.versions[v.ScriptID], *v)
	return nil
}

func (m *memScripts) GetVersion(_ context.Context, scriptID uuid.UUID, version int) (*domain.ScriptVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	vs := m.versions[scriptID]
	if version < 1 || version > len(vs) {
		return nil, repo.ErrNotFound
	}
	v := vs[version-1]
	return &v, nil
}

func (m *memScripts) GetLatestVersion(_ context.Context, scriptID uuid.UUID) (*domain.ScriptVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	vs := m.versions[scriptID]
	if len(vs) == 0 {
		return nil, repo.ErrNotFound
	}
	v := vs[len(vs)-1]
	return &v, nil
}

func (m *memScripts) ListVersions(_ context.Context, scriptID uuid.UUID) ([]domain.ScriptVersion, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.ScriptVersion(nil), m.versions[scriptID]...), nil
}

// memEvaluations — хранилище evaluations в памяти.
type memEvaluations struct {
	mu    sync.Mutex
	evals map[uuid.UUID]domain.Evaluation
}

func newMemEvaluations() *memEvaluations {
	return &memEvaluations{evals: make(map[uuid.UUID]domain.Evaluation)}
}

func (m *memEvaluations) Create(_ context.Context, e *domain.Evaluation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e.IdempotencyKey != "" {
		for _, other := range m.evals {
			if other.ScriptID == e.ScriptID && other.IdempotencyKey == e.IdempotencyKey {
				return repo.ErrAlreadyExists
			}
		}
	}
	m.evals[e.ID] = *e
	return nil
}

func (m *memEvaluations) GetByID(_ context.Context, id uuid.UUID) (*domain.Evaluation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.evals[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &e, nil
}

func (m *memEvaluations) GetByIdempotencyKey(_ context.Context, scriptID uuid.UUID, key string) (*domain.Evaluation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.evals {
		if e.ScriptID == scriptID && e.IdempotencyKey == key {
			return &e, nil
		}
	}
	return nil, repo.ErrNotFound
}

func (m *memEvaluations) List(_ context.Context, filter repo.EvaluationFilter) ([]domain.Evaluation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Evaluation
	for _, e := range m.evals {
		if filter.ScriptID != nil && e.ScriptID != *filter.ScriptID {
			continue
		}
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *memEvaluations) Update(_ context.Context, e *domain.Evaluation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.evals[e.ID]; !ok {
		return repo.ErrNotFound
	}
	m.evals[e.ID] = *e
	return nil
}

// memSchedules — хранилище schedules в памяти.
type memSchedules struct {
	mu        sync.Mutex
	schedules map[uuid.UUID]domain.Schedule
}

func newMemSchedules() *memSchedules {
	return &memSchedules{schedules: make(map[uuid.UUID]domain.Schedule)}
}

func (m *memSchedules) Create(_ context.Context, s *domain.Schedule) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.schedules[s.ID] = *s
	return nil
}

func (m *memSchedules) GetByID(_ context.Context, id uuid.UUID) (*domain.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.schedules[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &s, nil
}

func (m *memSchedules) List(_ context.Context, filter repo.ScheduleFilter) ([]domain.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Schedule
	for _, s := range m.schedules {
		if filter.Enabled != nil && s.Enabled != *filter.Enabled {
			continue
		}
		out = append(out, s)
	}
	return out, nil
}

func (m *memSchedules) Delete(_ context.Context, id uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.schedules[id]; !ok {
		return repo.ErrNotFound
	}
	delete(m.schedules, id)
	return nil
}

func (m *memSchedules) SetEnabled(_ context.Context, id uuid.UUID, enabled bool) (*domain.Schedule, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.schedules[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	s.Enabled = enabled
	m.schedules[id] = s
	return &s, nil
}

// recordingPublisher запоминает опубликованные ID.
type recordingPublisher struct {
	mu  sync.Mutex
	ids []uuid.UUID
	err error
}

func (p *recordingPublisher) PublishEvaluationPending(_ context.Context, id uuid.UUID) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.ids = append(p.ids, id)
	return nil
}

var errBroker = errors.New("broker unavailable")
