package repository

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/akave-ai/auditlens/internal/model"
)

// ErrNotFound is returned by updates addressing a missing input.
var ErrNotFound = errors.New("input not found")

// MemoryInputRepository keeps inputs in process memory; used when no
// database is configured. Contents are lost on restart.
type MemoryInputRepository struct {
	mu     sync.RWMutex
	inputs map[uuid.UUID]model.Input
	now    func() time.Time
}

func NewMemoryInputRepository() *MemoryInputRepository {
	return &MemoryInputRepository{
		inputs: make(map[uuid.UUID]model.Input),
		now:    time.Now,
	}
}

func (r *MemoryInputRepository) Create(_ context.Context, input *model.Input) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if input.ID == uuid.Nil {
		input.ID = uuid.New()
	}
	if _, exists := r.inputs[input.ID]; exists {
		return errors.New("insert input: duplicate id " + input.ID.String())
	}
	input.CreatedAt = r.now().UTC()
	r.inputs[input.ID] = *input
	return nil
}

// List returns all inputs, newest first.
func (r *MemoryInputRepository) List(_ context.Context) ([]model.Input, error) {
	r.mu.RLock()
	list := make([]model.Input, 0, len(r.inputs))
	for _, in := range r.inputs {
		list = append(list, in)
	}
	r.mu.RUnlock()
	slices.SortFunc(list, func(a, b model.Input) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return list, nil
}

func (r *MemoryInputRepository) GetByID(_ context.Context, id uuid.UUID) (*model.Input, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	in, ok := r.inputs[id]
	if !ok {
		return nil, nil
	}
	return &in, nil
}

func (r *MemoryInputRepository) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.inputs[id]
	delete(r.inputs, id)
	return ok, nil
}

func (r *MemoryInputRepository) UpdateState(_ context.Context, id uuid.UUID, state model.InputState) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	in, ok := r.inputs[id]
	if !ok {
		return ErrNotFound
	}
	in.DesiredState = state
	r.inputs[id] = in
	return nil
}
