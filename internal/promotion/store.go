package promotion

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/solatis/promokeeper/internal/core/metrics"
	"github.com/solatis/promokeeper/internal/rules"
	"github.com/solatis/promokeeper/internal/types"
)

/*
 * Promotion store.
 *
 * An injectable state container holding the promotion list, the promotion
 * being viewed or edited, and the edit form. It is the only writer of form
 * state; the repository remains the source of truth for promotions.
 *
 * Repository-backed actions set IsLoading and clear Error before the call,
 * then record the outcome. The lock is released while the repository runs,
 * so overlapping actions are last-write-wins on IsLoading, Error and
 * CurrentPromotion. Failures map to one fixed message per action:
 *   - reads record the message and do not return the error
 *   - create/update record the message and return the error
 *   - delete records the message and returns false
 *
 * Editor actions apply the pure reducers of editor.go to the held form.
 * Condition actions first check the attribute, operator and value against
 * the attribute lookup.
 */

// Fixed error messages recorded in State.Error.
const (
	MsgFetchPromotionsFailed = "Failed to fetch promotions"
	MsgFetchPromotionFailed  = "Failed to fetch promotion"
	MsgCreateFailed          = "Failed to create promotion"
	MsgUpdateFailed          = "Failed to update promotion"
	MsgDeleteFailed          = "Failed to delete promotion"
)

// State is a snapshot of the store.
type State struct {
	Promotions       []types.Promotion
	IsLoading        bool
	Error            string
	CurrentPromotion *types.Promotion
	FormState        FormState
}

// Store is the promotion state container. Safe for concurrent use.
type Store struct {
	repo    Repository
	lookup  rules.AttributeLookup
	log     zerolog.Logger
	metrics *metrics.Metrics
	now     func() time.Time

	mu    sync.Mutex
	state State
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Store) { s.log = log }
}

// WithMetrics records repository calls and validation failures.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// WithClock replaces time.Now for date defaults.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore returns a store with an empty promotion list and a new form.
func NewStore(repo Repository, lookup rules.AttributeLookup, opts ...Option) *Store {
	s := &Store{
		repo:   repo,
		lookup: lookup,
		log:    zerolog.Nop(),
		now:    time.Now,
		state:  State{FormState: NewFormState()},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Snapshot returns a deep copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := State{
		IsLoading: s.state.IsLoading,
		Error:     s.state.Error,
		FormState: s.state.FormState.Clone(),
	}
	if s.state.Promotions != nil {
		out.Promotions = make([]types.Promotion, len(s.state.Promotions))
		for i, p := range s.state.Promotions {
			out.Promotions[i] = p.Clone()
		}
	}
	if s.state.CurrentPromotion != nil {
		c := s.state.CurrentPromotion.Clone()
		out.CurrentPromotion = &c
	}
	return out
}

// FormState returns a copy of the form.
func (s *Store) FormState() FormState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state.FormState.Clone()
}

func (s *Store) begin() FormState {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.IsLoading = true
	s.state.Error = ""
	return s.state.FormState.Clone()
}

// fail records msg, clears IsLoading, and logs err.
func (s *Store) fail(action, msg string, err error) {
	s.mu.Lock()
	s.state.IsLoading = false
	s.state.Error = msg
	s.mu.Unlock()
	s.log.Error().Err(err).Str("action", action).Msg(msg)
}

func (s *Store) observe(action string, start time.Time, err error, found bool) {
	outcome := metrics.OutcomeOK
	switch {
	case err != nil:
		outcome = metrics.OutcomeError
	case !found:
		outcome = metrics.OutcomeNotFound
	}
	s.metrics.ObserveRepository(action, outcome, time.Since(start))
}

// FetchPromotions replaces the promotion list from the repository.
func (s *Store) FetchPromotions(ctx context.Context) {
	s.begin()
	start := time.Now()
	list, err := s.repo.List(ctx)
	s.observe("list", start, err, true)
	if err != nil {
		s.fail("list", MsgFetchPromotionsFailed, err)
		return
	}

	s.mu.Lock()
	s.state.Promotions = list
	s.state.IsLoading = false
	s.mu.Unlock()
	s.log.Debug().Int("count", len(list)).Msg("Fetched promotions")
}

// FetchPromotionByID loads one promotion as the current promotion and, when
// found, projects it into the form. A missing id clears CurrentPromotion.
func (s *Store) FetchPromotionByID(ctx context.Context, id string) {
	s.begin()
	start := time.Now()
	p, err := s.repo.GetByID(ctx, id)
	s.observe("get", start, err, p != nil)
	if err != nil {
		s.fail("get", MsgFetchPromotionFailed, err)
		return
	}

	s.mu.Lock()
	s.state.CurrentPromotion = p
	s.state.IsLoading = false
	s.mu.Unlock()

	if p != nil {
		s.InitFormStateFromPromotion(*p)
	}
}

// CreatePromotion persists the form as a new promotion, appends it to the
// list and makes it current.
func (s *Store) CreatePromotion(ctx context.Context) (types.Promotion, error) {
	fs := s.begin()
	data := ToPromotionData(fs, s.now())

	start := time.Now()
	p, err := s.repo.Create(ctx, data)
	s.observe("create", start, err, true)
	if err != nil {
		s.fail("create", MsgCreateFailed, err)
		return types.Promotion{}, errors.Wrap(err, MsgCreateFailed)
	}

	s.mu.Lock()
	s.state.Promotions = append(s.state.Promotions, p)
	current := p.Clone()
	s.state.CurrentPromotion = &current
	s.state.IsLoading = false
	s.mu.Unlock()

	s.log.Info().Str("promotion_id", p.ID).Str("name", p.Name).Msg("Created promotion")
	return p.Clone(), nil
}

// UpdatePromotion persists the form over promotion id, replaces it in the
// list and makes it current.
func (s *Store) UpdatePromotion(ctx context.Context, id string) (types.Promotion, error) {
	fs := s.begin()
	data := ToPromotionData(fs, s.now())

	start := time.Now()
	p, err := s.repo.Update(ctx, id, data)
	s.observe("update", start, err, true)
	if err != nil {
		s.fail("update", MsgUpdateFailed, err)
		return types.Promotion{}, errors.Wrap(err, MsgUpdateFailed)
	}

	s.mu.Lock()
	for i := range s.state.Promotions {
		if s.state.Promotions[i].ID == id {
			s.state.Promotions[i] = p
		}
	}
	current := p.Clone()
	s.state.CurrentPromotion = &current
	s.state.IsLoading = false
	s.mu.Unlock()

	s.log.Info().Str("promotion_id", p.ID).Msg("Updated promotion")
	return p.Clone(), nil
}

// DeletePromotion removes a promotion and drops it from the list. Returns
// false when the repository fails or holds no such promotion.
func (s *Store) DeletePromotion(ctx context.Context, id string) bool {
	s.begin()
	start := time.Now()
	ok, err := s.repo.Delete(ctx, id)
	s.observe("delete", start, err, ok)
	if err != nil {
		s.fail("delete", MsgDeleteFailed, err)
		return false
	}

	s.mu.Lock()
	if ok {
		kept := s.state.Promotions[:0:0]
		for _, p := range s.state.Promotions {
			if p.ID != id {
				kept = append(kept, p)
			}
		}
		s.state.Promotions = kept
	}
	s.state.IsLoading = false
	s.mu.Unlock()

	if ok {
		s.log.Info().Str("promotion_id", id).Msg("Deleted promotion")
	}
	return ok
}

// SetFormState replaces the form.
func (s *Store) SetFormState(fs FormState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.FormState = fs.Clone()
}

// UpdateFormState applies fn to a copy of the form and stores the result.
func (s *Store) UpdateFormState(fn func(FormState) FormState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.FormState = fn(s.state.FormState.Clone())
}

// ResetFormState replaces the form with a new-promotion form.
func (s *Store) ResetFormState() {
	s.SetFormState(NewFormState())
}

// InitFormStateFromPromotion projects p into the form. Rules sharing a slot
// are merged and logged.
func (s *Store) InitFormStateFromPromotion(p types.Promotion) {
	if dups := DuplicateSlots(p.PromotionData); len(dups) > 0 {
		names := make([]string, len(dups))
		for i, d := range dups {
			names[i] = d.String()
		}
		s.log.Warn().Str("promotion_id", p.ID).Strs("slots", names).
			Msg("Promotion has several rules per slot; groups merged, last operator kept")
	}
	s.SetFormState(ToFormState(p.PromotionData))
}

// ValidateForm validates the form and counts failing fields.
func (s *Store) ValidateForm() ValidationErrors {
	errs := Validate(s.FormState())
	for _, f := range errs.Fields() {
		s.metrics.ValidationFailed(f)
	}
	return errs
}

// AddRuleGroup appends an empty AND group to the slot.
func (s *Store) AddRuleGroup(slot Slot) {
	s.UpdateFormState(func(fs FormState) FormState { return AddRuleGroup(fs, slot) })
}

// RemoveRuleGroup removes a group; mandatory slots are refilled.
func (s *Store) RemoveRuleGroup(slot Slot, groupIndex int) {
	s.UpdateFormState(func(fs FormState) FormState { return RemoveRuleGroup(fs, slot, groupIndex) })
}

// UpdateRuleGroupOperator sets one group's operator.
func (s *Store) UpdateRuleGroupOperator(slot Slot, groupIndex int, op types.LogicalOperator) error {
	if !op.Valid() {
		return errors.Wrapf(types.ErrInvalidLogicalOperator, "%q", op)
	}
	s.UpdateFormState(func(fs FormState) FormState { return UpdateRuleGroupOperator(fs, slot, groupIndex, op) })
	return nil
}

// UpdateRuleGroupsOperator sets the slot-level operator.
func (s *Store) UpdateRuleGroupsOperator(slot Slot, op types.LogicalOperator) error {
	if !op.Valid() {
		return errors.Wrapf(types.ErrInvalidLogicalOperator, "%q", op)
	}
	s.UpdateFormState(func(fs FormState) FormState { return UpdateRuleGroupsOperator(fs, slot, op) })
	return nil
}

// AddCondition appends a checked condition. raw is coerced to the
// attribute's value type; nil takes the type default.
func (s *Store) AddCondition(slot Slot, groupIndex int, attributeID, operator string, raw any) error {
	cond, err := s.checkedCondition(attributeID, operator, raw)
	if err != nil {
		return err
	}
	s.UpdateFormState(func(fs FormState) FormState {
		return AddCondition(fs, slot, groupIndex, cond.AttributeID, cond.Operator, cond.Value)
	})
	return nil
}

// RemoveCondition removes one condition.
func (s *Store) RemoveCondition(slot Slot, groupIndex, conditionIndex int) {
	s.UpdateFormState(func(fs FormState) FormState { return RemoveCondition(fs, slot, groupIndex, conditionIndex) })
}

// UpdateCondition replaces a condition's fields, keeping its id. When
// attributeID differs from the condition's current attribute, operator and
// raw are ignored and the condition is reset to the new attribute's
// defaults.
func (s *Store) UpdateCondition(slot Slot, groupIndex, conditionIndex int, attributeID, operator string, raw any) error {
	attr, ok := s.lookup.Attribute(attributeID)
	if !ok {
		return errors.Wrapf(types.ErrUnknownAttribute, "%s", attributeID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	fs := s.state.FormState
	if !validCondition(fs, slot, groupIndex, conditionIndex) {
		return nil
	}
	current := fs.Slots[slot].Groups[groupIndex].Conditions[conditionIndex]
	if current.AttributeID != attributeID {
		s.state.FormState = ChangeConditionAttribute(fs, slot, groupIndex, conditionIndex, attr)
		return nil
	}

	cond, err := checkCondition(attr, operator, raw)
	if err != nil {
		return err
	}
	s.state.FormState = UpdateCondition(fs, slot, groupIndex, conditionIndex, cond.AttributeID, cond.Operator, cond.Value)
	return nil
}

// ChangeConditionAttribute points a condition at another attribute and
// resets its operator and value.
func (s *Store) ChangeConditionAttribute(slot Slot, groupIndex, conditionIndex int, attributeID string) error {
	attr, ok := s.lookup.Attribute(attributeID)
	if !ok {
		return errors.Wrapf(types.ErrUnknownAttribute, "%s", attributeID)
	}
	s.UpdateFormState(func(fs FormState) FormState {
		return ChangeConditionAttribute(fs, slot, groupIndex, conditionIndex, attr)
	})
	return nil
}

func (s *Store) checkedCondition(attributeID, operator string, raw any) (types.Condition, error) {
	attr, ok := s.lookup.Attribute(attributeID)
	if !ok {
		return types.Condition{}, errors.Wrapf(types.ErrUnknownAttribute, "%s", attributeID)
	}
	return checkCondition(attr, operator, raw)
}

func checkCondition(attr types.Attribute, operator string, raw any) (types.Condition, error) {
	v, err := rules.CoerceValue(attr, raw)
	if err != nil {
		return types.Condition{}, err
	}
	cond := types.Condition{AttributeID: attr.ID, Operator: operator, Value: v}
	if err := rules.CheckCondition(attr, cond); err != nil {
		return types.Condition{}, err
	}
	return cond, nil
}
