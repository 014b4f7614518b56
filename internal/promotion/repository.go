package promotion

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/solatis/promokeeper/internal/types"
)

// Repository owns persisted promotions. Implementations must return
// copies: callers may modify what they receive.
type Repository interface {
	// List returns every promotion.
	List(ctx context.Context) ([]types.Promotion, error)

	// GetByID returns nil, nil when no promotion has the id.
	GetByID(ctx context.Context, id string) (*types.Promotion, error)

	// Create assigns identity and timestamps.
	Create(ctx context.Context, data types.PromotionData) (types.Promotion, error)

	// Update replaces the payload of an existing promotion, keeping its
	// CreatedAt. Returns types.ErrPromotionNotFound for a missing id.
	Update(ctx context.Context, id string, data types.PromotionData) (types.Promotion, error)

	// Delete reports whether a promotion was removed.
	Delete(ctx context.Context, id string) (bool, error)
}

// MemoryRepository is a process-local Repository preserving insertion
// order. Safe for concurrent use.
type MemoryRepository struct {
	mu    sync.RWMutex
	items map[string]types.Promotion
	order []string
	now   func() time.Time
}

// NewMemoryRepository returns a repository holding copies of seed.
func NewMemoryRepository(seed ...types.Promotion) *MemoryRepository {
	r := &MemoryRepository{
		items: make(map[string]types.Promotion, len(seed)),
		now:   time.Now,
	}
	for _, p := range seed {
		if _, dup := r.items[p.ID]; !dup {
			r.order = append(r.order, p.ID)
		}
		r.items[p.ID] = p.Clone()
	}
	return r
}

func (r *MemoryRepository) List(ctx context.Context) ([]types.Promotion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]types.Promotion, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.items[id].Clone())
	}
	return out, nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id string) (*types.Promotion, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	c := p.Clone()
	return &c, nil
}

func (r *MemoryRepository) Create(ctx context.Context, data types.PromotionData) (types.Promotion, error) {
	if err := ctx.Err(); err != nil {
		return types.Promotion{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now().UTC()
	p := types.Promotion{
		ID:            types.NewID(),
		PromotionData: data.Clone(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	r.items[p.ID] = p
	r.order = append(r.order, p.ID)
	return p.Clone(), nil
}

func (r *MemoryRepository) Update(ctx context.Context, id string, data types.PromotionData) (types.Promotion, error) {
	if err := ctx.Err(); err != nil {
		return types.Promotion{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.items[id]
	if !ok {
		return types.Promotion{}, errors.Wrapf(types.ErrPromotionNotFound, "%s", id)
	}
	p := types.Promotion{
		ID:            id,
		PromotionData: data.Clone(),
		CreatedAt:     existing.CreatedAt,
		UpdatedAt:     r.now().UTC(),
	}
	r.items[id] = p
	return p.Clone(), nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return false, nil
	}
	delete(r.items, id)
	for i, oid := range r.order {
		if oid == id {
			r.order = append(r.order[:i:i], r.order[i+1:]...)
			break
		}
	}
	return true, nil
}
