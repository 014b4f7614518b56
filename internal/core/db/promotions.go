package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/solatis/promokeeper/internal/promotion"
	"github.com/solatis/promokeeper/internal/types"
)

var _ promotion.Repository = (*PromotionRepository)(nil)

// promotionRow mirrors the promotions table. Timestamps are RFC3339 text on
// both drivers so sqlite and postgres rows compare byte for byte.
type promotionRow struct {
	ID            string  `db:"promotion_id"`
	Name          string  `db:"name"`
	Description   string  `db:"description"`
	StartDate     string  `db:"start_date"`
	EndDate       string  `db:"end_date"`
	IsActive      bool    `db:"is_active"`
	DiscountType  string  `db:"discount_type"`
	DiscountValue float64 `db:"discount_value"`
	Rules         string  `db:"rules"`
	CreatedAt     string  `db:"created_at"`
	UpdatedAt     string  `db:"updated_at"`
}

// PromotionRepository is a promotion.Repository over the promotions table,
// scoped to one tenant. List order is id order, which for UUIDv7 ids is
// creation order.
type PromotionRepository struct {
	q        *Queries
	tenantID string
	now      func() time.Time
}

// NewPromotionRepository returns a repository reading and writing only the
// rows of tenantID.
func NewPromotionRepository(q *Queries, tenantID string) *PromotionRepository {
	return &PromotionRepository{q: q, tenantID: tenantID, now: time.Now}
}

// ForTenant returns a repository over the same connection for another tenant.
func (r *PromotionRepository) ForTenant(tenantID string) *PromotionRepository {
	return &PromotionRepository{q: r.q, tenantID: tenantID, now: r.now}
}

// TenantID returns the tenant the repository is scoped to.
func (r *PromotionRepository) TenantID() string {
	return r.tenantID
}

func (r *PromotionRepository) List(ctx context.Context) ([]types.Promotion, error) {
	var rows []promotionRow
	if err := r.q.Select(ctx, "list-promotions", &rows, r.tenantID); err != nil {
		return nil, errors.Wrap(err, "list promotions")
	}

	out := make([]types.Promotion, 0, len(rows))
	for _, row := range rows {
		p, err := row.toPromotion()
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *PromotionRepository) GetByID(ctx context.Context, id string) (*types.Promotion, error) {
	var row promotionRow
	err := r.q.Get(ctx, "get-promotion", &row, r.tenantID, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrapf(err, "get promotion %s", id)
	}

	p, err := row.toPromotion()
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *PromotionRepository) Create(ctx context.Context, data types.PromotionData) (types.Promotion, error) {
	now := r.now().UTC()
	p := types.Promotion{
		ID:            types.NewID(),
		PromotionData: data.Clone(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	rules, err := encodeRules(p.Rules)
	if err != nil {
		return types.Promotion{}, err
	}

	_, err = r.q.Exec(ctx, "insert-promotion",
		p.ID, r.tenantID, p.Name, p.Description,
		formatTime(p.StartDate), formatTime(p.EndDate), p.IsActive,
		string(p.DiscountType), p.DiscountValue, rules,
		formatTime(p.CreatedAt), formatTime(p.UpdatedAt),
	)
	if err != nil {
		return types.Promotion{}, errors.Wrap(err, "insert promotion")
	}
	return p, nil
}

func (r *PromotionRepository) Update(ctx context.Context, id string, data types.PromotionData) (types.Promotion, error) {
	rules, err := encodeRules(data.Rules)
	if err != nil {
		return types.Promotion{}, err
	}

	res, err := r.q.Exec(ctx, "update-promotion",
		data.Name, data.Description,
		formatTime(data.StartDate), formatTime(data.EndDate), data.IsActive,
		string(data.DiscountType), data.DiscountValue, rules,
		formatTime(r.now().UTC()),
		r.tenantID, id,
	)
	if err != nil {
		return types.Promotion{}, errors.Wrapf(err, "update promotion %s", id)
	}
	if n, err := res.RowsAffected(); err != nil {
		return types.Promotion{}, errors.Wrapf(err, "update promotion %s", id)
	} else if n == 0 {
		return types.Promotion{}, errors.Wrapf(types.ErrPromotionNotFound, "%s", id)
	}

	// Reread for the stored CreatedAt.
	p, err := r.GetByID(ctx, id)
	if err != nil {
		return types.Promotion{}, err
	}
	if p == nil {
		return types.Promotion{}, errors.Wrapf(types.ErrPromotionNotFound, "%s", id)
	}
	return *p, nil
}

func (r *PromotionRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.q.Exec(ctx, "delete-promotion", r.tenantID, id)
	if err != nil {
		return false, errors.Wrapf(err, "delete promotion %s", id)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, errors.Wrapf(err, "delete promotion %s", id)
	}
	return n > 0, nil
}

func (row promotionRow) toPromotion() (types.Promotion, error) {
	p := types.Promotion{
		ID: row.ID,
		PromotionData: types.PromotionData{
			Name:          row.Name,
			Description:   row.Description,
			IsActive:      row.IsActive,
			DiscountType:  types.DiscountType(row.DiscountType),
			DiscountValue: row.DiscountValue,
		},
	}

	var err error
	for _, f := range []struct {
		dst *time.Time
		src string
	}{
		{&p.StartDate, row.StartDate},
		{&p.EndDate, row.EndDate},
		{&p.CreatedAt, row.CreatedAt},
		{&p.UpdatedAt, row.UpdatedAt},
	} {
		if *f.dst, err = time.Parse(time.RFC3339Nano, f.src); err != nil {
			return types.Promotion{}, errors.Wrapf(err, "promotion %s: bad timestamp", row.ID)
		}
	}

	if err := json.Unmarshal([]byte(row.Rules), &p.Rules); err != nil {
		return types.Promotion{}, errors.Wrapf(err, "promotion %s: bad rules column", row.ID)
	}
	return p, nil
}

func encodeRules(rules []types.Rule) (string, error) {
	if rules == nil {
		rules = []types.Rule{}
	}
	raw, err := json.Marshal(rules)
	if err != nil {
		return "", errors.Wrap(err, "encode rules")
	}
	return string(raw), nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
