package promotion

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/solatis/promokeeper/internal/core/metrics"
	"github.com/solatis/promokeeper/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBackend = errors.New("backend unavailable")

// failingRepository fails every call.
type failingRepository struct{}

func (failingRepository) List(context.Context) ([]types.Promotion, error) { return nil, errBackend }
func (failingRepository) GetByID(context.Context, string) (*types.Promotion, error) {
	return nil, errBackend
}
func (failingRepository) Create(context.Context, types.PromotionData) (types.Promotion, error) {
	return types.Promotion{}, errBackend
}
func (failingRepository) Update(context.Context, string, types.PromotionData) (types.Promotion, error) {
	return types.Promotion{}, errBackend
}
func (failingRepository) Delete(context.Context, string) (bool, error) { return false, errBackend }

// gatedRepository blocks List until release is closed.
type gatedRepository struct {
	*MemoryRepository
	entered chan struct{}
	release chan struct{}
}

func (r *gatedRepository) List(ctx context.Context) ([]types.Promotion, error) {
	close(r.entered)
	<-r.release
	return r.MemoryRepository.List(ctx)
}

func newTestStore(t *testing.T, repo Repository, opts ...Option) *Store {
	t.Helper()
	return NewStore(repo, testIndex(t), opts...)
}

func seededRepository(t *testing.T) (*MemoryRepository, []types.Promotion) {
	t.Helper()
	repo := NewMemoryRepository()
	var created []types.Promotion
	for _, data := range SamplePromotions() {
		p, err := repo.Create(context.Background(), data)
		require.NoError(t, err)
		created = append(created, p)
	}
	return repo, created
}

func TestNewStore_InitialState(t *testing.T) {
	s := newTestStore(t, NewMemoryRepository())
	snap := s.Snapshot()

	assert.Empty(t, snap.Promotions)
	assert.False(t, snap.IsLoading)
	assert.Empty(t, snap.Error)
	assert.Nil(t, snap.CurrentPromotion)
	assert.Len(t, snap.FormState.Slots[QualifierInclusions].Groups, 1)
}

func TestStore_FetchPromotions(t *testing.T) {
	repo, created := seededRepository(t)
	s := newTestStore(t, repo)

	s.FetchPromotions(context.Background())

	snap := s.Snapshot()
	require.Len(t, snap.Promotions, len(created))
	assert.Equal(t, created[0].ID, snap.Promotions[0].ID)
	assert.False(t, snap.IsLoading)
	assert.Empty(t, snap.Error)
}

func TestStore_IsLoadingDuringCall(t *testing.T) {
	repo := &gatedRepository{
		MemoryRepository: NewMemoryRepository(),
		entered:          make(chan struct{}),
		release:          make(chan struct{}),
	}
	s := newTestStore(t, repo)

	done := make(chan struct{})
	go func() {
		s.FetchPromotions(context.Background())
		close(done)
	}()

	<-repo.entered
	assert.True(t, s.Snapshot().IsLoading)
	close(repo.release)
	<-done
	assert.False(t, s.Snapshot().IsLoading)
}

func TestStore_Failures(t *testing.T) {
	m := metrics.New()
	s := newTestStore(t, failingRepository{}, WithMetrics(m))
	ctx := context.Background()

	s.FetchPromotions(ctx)
	snap := s.Snapshot()
	assert.Equal(t, MsgFetchPromotionsFailed, snap.Error)
	assert.False(t, snap.IsLoading)

	s.FetchPromotionByID(ctx, "p1")
	assert.Equal(t, MsgFetchPromotionFailed, s.Snapshot().Error)

	_, err := s.CreatePromotion(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, errBackend)
	assert.Equal(t, MsgCreateFailed, s.Snapshot().Error)

	_, err = s.UpdatePromotion(ctx, "p1")
	require.Error(t, err)
	assert.Equal(t, MsgUpdateFailed, s.Snapshot().Error)

	assert.False(t, s.DeletePromotion(ctx, "p1"))
	snap = s.Snapshot()
	assert.Equal(t, MsgDeleteFailed, snap.Error)
	assert.False(t, snap.IsLoading)
}

func TestStore_SuccessClearsError(t *testing.T) {
	s := newTestStore(t, failingRepository{})
	s.FetchPromotions(context.Background())
	require.NotEmpty(t, s.Snapshot().Error)

	s.repo = NewMemoryRepository()
	s.FetchPromotions(context.Background())
	assert.Empty(t, s.Snapshot().Error)
}

func TestStore_FetchPromotionByID(t *testing.T) {
	repo, created := seededRepository(t)
	s := newTestStore(t, repo)
	ctx := context.Background()

	mixed := created[3]
	s.FetchPromotionByID(ctx, mixed.ID)

	snap := s.Snapshot()
	require.NotNil(t, snap.CurrentPromotion)
	assert.Equal(t, mixed.ID, snap.CurrentPromotion.ID)
	assert.Equal(t, mixed.Name, snap.FormState.Name)
	assert.Len(t, snap.FormState.Slots[QualifierInclusions].Groups, 2)
	assert.Empty(t, snap.FormState.Slots[QualifierExclusions].Groups)

	s.FetchPromotionByID(ctx, "missing")
	snap = s.Snapshot()
	assert.Nil(t, snap.CurrentPromotion)
	assert.Empty(t, snap.Error)
	assert.Equal(t, mixed.Name, snap.FormState.Name, "a missing id leaves the form alone")
}

func TestStore_CreateUpdateDelete(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := newTestStore(t, NewMemoryRepository(), WithClock(func() time.Time { return now }))
	ctx := context.Background()

	s.UpdateFormState(func(fs FormState) FormState { return fs.WithName("Created") })
	require.NoError(t, s.AddCondition(QualifierInclusions, 0, "color1-a1", "=", "Black"))
	require.NoError(t, s.AddCondition(TargetInclusions, 0, "price1-a1", ">", 10))

	created, err := s.CreatePromotion(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Created", created.Name)
	assert.True(t, created.StartDate.Equal(time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)))

	snap := s.Snapshot()
	require.Len(t, snap.Promotions, 1)
	require.NotNil(t, snap.CurrentPromotion)
	assert.Equal(t, created.ID, snap.CurrentPromotion.ID)

	s.UpdateFormState(func(fs FormState) FormState { return fs.WithName("Renamed") })
	updated, err := s.UpdatePromotion(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, "Renamed", s.Snapshot().Promotions[0].Name)

	_, err = s.UpdatePromotion(ctx, "missing")
	assert.ErrorIs(t, err, types.ErrPromotionNotFound)
	assert.Equal(t, MsgUpdateFailed, s.Snapshot().Error)

	assert.False(t, s.DeletePromotion(ctx, "missing"))
	assert.Empty(t, s.Snapshot().Error)
	assert.Len(t, s.Snapshot().Promotions, 1)

	assert.True(t, s.DeletePromotion(ctx, created.ID))
	assert.Empty(t, s.Snapshot().Promotions)
}

func TestStore_ConditionChecks(t *testing.T) {
	s := newTestStore(t, NewMemoryRepository())

	err := s.AddCondition(QualifierInclusions, 0, "nope", "=", "x")
	assert.ErrorIs(t, err, types.ErrUnknownAttribute)

	err = s.AddCondition(QualifierInclusions, 0, "color1-a1", "contains", "Black")
	assert.ErrorIs(t, err, types.ErrInvalidOperator)

	err = s.AddCondition(QualifierInclusions, 0, "color1-a1", "=", "Purple")
	assert.ErrorIs(t, err, types.ErrInvalidEnumOption)

	err = s.AddCondition(QualifierInclusions, 0, "price1-a1", ">", "lots")
	assert.ErrorIs(t, err, types.ErrValueTypeMismatch)

	assert.Empty(t, s.FormState().Slots[QualifierInclusions].Groups[0].Conditions)

	require.NoError(t, s.AddCondition(QualifierInclusions, 0, "price1-a1", ">", "19.5"))
	c := s.FormState().Slots[QualifierInclusions].Groups[0].Conditions[0]
	assert.True(t, c.Value.Equal(types.NumberValue(19.5)))

	assert.ErrorIs(t, s.UpdateRuleGroupOperator(QualifierInclusions, 0, "XOR"), types.ErrInvalidLogicalOperator)
	assert.ErrorIs(t, s.UpdateRuleGroupsOperator(QualifierInclusions, ""), types.ErrInvalidLogicalOperator)
}

func TestStore_UpdateCondition(t *testing.T) {
	s := newTestStore(t, NewMemoryRepository())
	require.NoError(t, s.AddCondition(TargetInclusions, 0, "style1-a1", "contains", "sport"))
	id := s.FormState().Slots[TargetInclusions].Groups[0].Conditions[0].ID

	require.NoError(t, s.UpdateCondition(TargetInclusions, 0, 0, "style1-a1", "startsWith", "run"))
	c := s.FormState().Slots[TargetInclusions].Groups[0].Conditions[0]
	assert.Equal(t, id, c.ID)
	assert.Equal(t, "startsWith", c.Operator)
	assert.True(t, c.Value.Equal(types.StringValue("run")))

	// A new attribute resets operator and value whatever was passed.
	require.NoError(t, s.UpdateCondition(TargetInclusions, 0, 0, "color1-a1", "contains", "ignored"))
	c = s.FormState().Slots[TargetInclusions].Groups[0].Conditions[0]
	assert.Equal(t, id, c.ID)
	assert.Equal(t, "color1-a1", c.AttributeID)
	assert.Equal(t, "=", c.Operator)
	assert.True(t, c.Value.Equal(types.EnumValue("Black")))

	err := s.UpdateCondition(TargetInclusions, 0, 0, "color1-a1", ">", "Black")
	assert.ErrorIs(t, err, types.ErrInvalidOperator)

	assert.NoError(t, s.UpdateCondition(TargetInclusions, 3, 0, "color1-a1", "=", "Red"), "out of range is a no-op")

	require.NoError(t, s.ChangeConditionAttribute(TargetInclusions, 0, 0, "price1-a1"))
	c = s.FormState().Slots[TargetInclusions].Groups[0].Conditions[0]
	assert.Equal(t, "=", c.Operator)
	assert.True(t, c.Value.Equal(types.NumberValue(0)))
	assert.ErrorIs(t, s.ChangeConditionAttribute(TargetInclusions, 0, 0, "nope"), types.ErrUnknownAttribute)
}

func TestStore_FormActions(t *testing.T) {
	s := newTestStore(t, NewMemoryRepository())

	s.AddRuleGroup(QualifierExclusions)
	s.AddRuleGroup(QualifierExclusions)
	assert.Len(t, s.FormState().Slots[QualifierExclusions].Groups, 2)

	s.RemoveRuleGroup(QualifierExclusions, 0)
	assert.Len(t, s.FormState().Slots[QualifierExclusions].Groups, 1)

	s.RemoveRuleGroup(TargetInclusions, 0)
	assert.Len(t, s.FormState().Slots[TargetInclusions].Groups, 1)

	errs := s.ValidateForm()
	assert.ElementsMatch(t, []string{FieldName, FieldQualifierInclusions, FieldTargetInclusions}, errs.Fields())

	s.SetFormState(validForm())
	assert.True(t, s.ValidateForm().Valid())

	s.ResetFormState()
	assert.Empty(t, s.FormState().Name)
	assert.Empty(t, s.FormState().Slots[QualifierExclusions].Groups)
}

func TestStore_SnapshotIsACopy(t *testing.T) {
	repo, _ := seededRepository(t)
	s := newTestStore(t, repo)
	s.FetchPromotions(context.Background())

	snap := s.Snapshot()
	snap.Promotions[0].Name = "changed"
	snap.FormState.Slots[QualifierInclusions].Groups[0].Operator = types.OperatorOr

	again := s.Snapshot()
	assert.NotEqual(t, "changed", again.Promotions[0].Name)
	assert.Equal(t, types.OperatorAnd, again.FormState.Slots[QualifierInclusions].Groups[0].Operator)
}

func TestStore_InitFormStateFromPromotion_MergesDuplicates(t *testing.T) {
	s := newTestStore(t, NewMemoryRepository())
	p := types.Promotion{ID: "p", PromotionData: types.PromotionData{Rules: []types.Rule{
		types.NewRule(types.RuleTypeTarget, true),
		types.NewRule(types.RuleTypeTarget, true),
	}}}

	s.InitFormStateFromPromotion(p)
	assert.Len(t, s.FormState().Slots[TargetInclusions].Groups, 2)
}
