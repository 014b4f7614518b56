// Package api implements the PromotionAPI gRPC service.
//
// The service is a thin orchestration layer: each call builds a promotion
// Store over the caller's tenant-scoped repository, runs the matching store
// action, and maps the outcome to a gRPC status.
package api

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/solatis/promokeeper/internal/catalog"
	"github.com/solatis/promokeeper/internal/core/auth"
	"github.com/solatis/promokeeper/internal/core/metrics"
	"github.com/solatis/promokeeper/internal/promotion"
	"github.com/solatis/promokeeper/internal/rules"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// RepositoryFor returns the repository holding one tenant's promotions.
type RepositoryFor func(tenantID string) promotion.Repository

// MemoryRepositories keeps one in-memory repository per tenant for the
// life of the process.
func MemoryRepositories() RepositoryFor {
	var (
		mu    sync.Mutex
		repos = make(map[string]*promotion.MemoryRepository)
	)
	return func(tenantID string) promotion.Repository {
		mu.Lock()
		defer mu.Unlock()
		r, ok := repos[tenantID]
		if !ok {
			r = promotion.NewMemoryRepository()
			repos[tenantID] = r
		}
		return r
	}
}

// PromotionService implements PromotionAPIServer.
type PromotionService struct {
	repos   RepositoryFor
	catalog catalog.Catalog
	index   *catalog.Index
	engine  *rules.Engine
	audit   *AuditLog
	log     zerolog.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

var _ PromotionAPIServer = (*PromotionService)(nil)

// Option configures a PromotionService.
type Option func(*PromotionService)

// WithLogger sets the logger handed to per-request stores.
func WithLogger(log zerolog.Logger) Option {
	return func(s *PromotionService) { s.log = log }
}

// WithMetrics records store and validation metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *PromotionService) { s.metrics = m }
}

// WithAuditLog appends create/update/delete records to a.
func WithAuditLog(a *AuditLog) Option {
	return func(s *PromotionService) { s.audit = a }
}

// WithClock replaces time.Now for date defaults.
func WithClock(now func() time.Time) Option {
	return func(s *PromotionService) { s.now = now }
}

// NewPromotionService indexes the catalog and builds the CEL engine once.
func NewPromotionService(ctx context.Context, repos RepositoryFor, cat catalog.Catalog, opts ...Option) (*PromotionService, error) {
	if repos == nil {
		return nil, errors.New("repos cannot be nil")
	}
	if cat == nil {
		return nil, errors.New("catalog cannot be nil")
	}

	index, err := catalog.NewIndex(ctx, cat)
	if err != nil {
		return nil, errors.Wrap(err, "index catalog")
	}
	engine, err := rules.NewEngine(index.Attributes())
	if err != nil {
		return nil, errors.Wrap(err, "build rule engine")
	}

	s := &PromotionService{
		repos:   repos,
		catalog: cat,
		index:   index,
		engine:  engine,
		log:     zerolog.Nop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// store returns a fresh store over the caller's tenant.
func (s *PromotionService) store(ctx context.Context) (*promotion.Store, string, error) {
	tenantID := auth.TenantIDFromContext(ctx)
	if tenantID == "" {
		return nil, "", status.Error(codes.Internal, "missing tenant_id in context")
	}
	st := promotion.NewStore(s.repos(tenantID), s.index,
		promotion.WithLogger(s.log.With().Str("tenant_id", tenantID).Logger()),
		promotion.WithMetrics(s.metrics),
		promotion.WithClock(s.now),
	)
	return st, tenantID, nil
}
