package api

import (
	"context"

	"github.com/solatis/promokeeper/internal/promotion"
	"github.com/solatis/promokeeper/internal/rules"
	"github.com/solatis/promokeeper/internal/types"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Audit actions.
const (
	AuditCreate = "create"
	AuditUpdate = "update"
	AuditDelete = "delete"
)

// fieldConditions carries condition coercion failures in ValidatePromotion.
const fieldConditions = "conditions"

func respond(v any) (*structpb.Struct, error) {
	out, err := toStruct(v)
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// storeFailure turns a store's recorded error message into UNAVAILABLE.
func storeFailure(st *promotion.Store) error {
	if msg := st.Snapshot().Error; msg != "" {
		return status.Error(codes.Unavailable, msg)
	}
	return nil
}

func requireID(req *wrapperspb.StringValue) (string, error) {
	return checkID(req.GetValue())
}

// checkID rejects empty and malformed promotion ids before any repository
// call.
func checkID(id string) (string, error) {
	if id == "" {
		return "", status.Error(codes.InvalidArgument, "promotion id is required")
	}
	if _, err := types.ParseID(id); err != nil {
		return "", status.Errorf(codes.InvalidArgument, "malformed promotion id %q", id)
	}
	return id, nil
}

// decodeForm reads a form and types its condition values against the
// catalog. Any failure is the caller's fault.
func (s *PromotionService) decodeForm(req *structpb.Struct) (promotion.FormState, error) {
	var fs promotion.FormState
	if err := fromStruct(req, &fs); err != nil {
		return promotion.FormState{}, err
	}
	return s.typedForm(fs)
}

func (s *PromotionService) typedForm(fs promotion.FormState) (promotion.FormState, error) {
	typed, err := promotion.CoerceConditions(fs, s.index)
	if err != nil {
		return promotion.FormState{}, status.Error(codes.InvalidArgument, err.Error())
	}
	return typed, nil
}

func (s *PromotionService) ListPromotions(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	st, _, err := s.store(ctx)
	if err != nil {
		return nil, err
	}
	st.FetchPromotions(ctx)
	if err := storeFailure(st); err != nil {
		return nil, err
	}

	list := st.Snapshot().Promotions
	if list == nil {
		list = []types.Promotion{}
	}
	return respond(map[string]any{
		"promotions": list,
		"etag":       computeETAG(list),
	})
}

func (s *PromotionService) GetPromotion(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	p, err := s.fetch(ctx, req)
	if err != nil {
		return nil, err
	}
	return respond(p)
}

func (s *PromotionService) fetch(ctx context.Context, req *wrapperspb.StringValue) (*types.Promotion, error) {
	id, err := requireID(req)
	if err != nil {
		return nil, err
	}
	st, _, err := s.store(ctx)
	if err != nil {
		return nil, err
	}
	st.FetchPromotionByID(ctx, id)
	if err := storeFailure(st); err != nil {
		return nil, err
	}
	p := st.Snapshot().CurrentPromotion
	if p == nil {
		return nil, status.Errorf(codes.NotFound, "promotion %s not found", id)
	}
	return p, nil
}

func (s *PromotionService) CreatePromotion(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	st, tenantID, err := s.store(ctx)
	if err != nil {
		return nil, err
	}
	fs, err := s.decodeForm(req)
	if err != nil {
		return nil, err
	}

	st.SetFormState(fs)
	if verrs := st.ValidateForm(); !verrs.Valid() {
		return nil, toStatus(verrs)
	}
	p, err := st.CreatePromotion(ctx)
	if err != nil {
		return nil, toStatus(err)
	}

	s.audit.Record(tenantID, AuditCreate, p.ID, p.Name)
	return respond(p)
}

func (s *PromotionService) UpdatePromotion(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	st, tenantID, err := s.store(ctx)
	if err != nil {
		return nil, err
	}

	var body updateRequest
	if err := fromStruct(req, &body); err != nil {
		return nil, err
	}
	if _, err := checkID(body.ID); err != nil {
		return nil, err
	}
	if _, ok := req.GetFields()["form"]; !ok {
		return nil, status.Error(codes.InvalidArgument, "form is required")
	}
	fs, err := s.typedForm(body.Form)
	if err != nil {
		return nil, err
	}

	st.SetFormState(fs)
	if verrs := st.ValidateForm(); !verrs.Valid() {
		return nil, toStatus(verrs)
	}
	p, err := st.UpdatePromotion(ctx, body.ID)
	if err != nil {
		return nil, toStatus(err)
	}

	s.audit.Record(tenantID, AuditUpdate, p.ID, p.Name)
	return respond(p)
}

func (s *PromotionService) DeletePromotion(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.BoolValue, error) {
	id, err := requireID(req)
	if err != nil {
		return nil, err
	}
	st, tenantID, err := s.store(ctx)
	if err != nil {
		return nil, err
	}

	ok := st.DeletePromotion(ctx, id)
	if err := storeFailure(st); err != nil {
		return nil, err
	}
	if ok {
		s.audit.Record(tenantID, AuditDelete, id, "")
	}
	return wrapperspb.Bool(ok), nil
}

// ValidatePromotion reports form problems as data, never as an error
// status, unless the request is not a form at all.
func (s *PromotionService) ValidatePromotion(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	st, _, err := s.store(ctx)
	if err != nil {
		return nil, err
	}

	var fs promotion.FormState
	if err := fromStruct(req, &fs); err != nil {
		return nil, err
	}
	typed, err := promotion.CoerceConditions(fs, s.index)
	if err != nil {
		return respond(map[string]any{
			"valid":  false,
			"errors": map[string]string{fieldConditions: err.Error()},
		})
	}

	st.SetFormState(typed)
	verrs := st.ValidateForm()
	return respond(map[string]any{
		"valid":  verrs.Valid(),
		"errors": map[string]string(verrs),
	})
}

func (s *PromotionService) ListAttributeCategories(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	var (
		cats []types.AttributeCategory
		err  error
	)
	switch et := types.EntityType(req.GetValue()); et {
	case "":
		cats, err = s.catalog.ListCategories(ctx)
	case types.EntityProduct, types.EntityCustomer, types.EntityOrder, types.EntityPayment, types.EntityEmployee:
		cats, err = s.catalog.ListCategoriesByEntityType(ctx, et)
	default:
		return nil, status.Errorf(codes.InvalidArgument, "unknown entity type %q", et)
	}
	if err != nil {
		return nil, toStatus(err)
	}
	return respond(map[string]any{"categories": categoryViews(cats)})
}

// attributeView adds the operator picker list to an attribute.
type attributeView struct {
	types.Attribute
	Operators []string `json:"operators"`
}

type categoryView struct {
	ID         string           `json:"id"`
	Name       string           `json:"name"`
	EntityType types.EntityType `json:"entityType"`
	Attributes []attributeView  `json:"attributes"`
}

func categoryViews(cats []types.AttributeCategory) []categoryView {
	views := make([]categoryView, 0, len(cats))
	for _, c := range cats {
		attrs := make([]attributeView, 0, len(c.Attributes))
		for _, a := range c.Attributes {
			attrs = append(attrs, attributeView{Attribute: a, Operators: rules.Operators(a.Type)})
		}
		views = append(views, categoryView{ID: c.ID, Name: c.Name, EntityType: c.EntityType, Attributes: attrs})
	}
	return views
}

type compiledRuleJSON struct {
	RuleID      string         `json:"ruleId"`
	Type        types.RuleType `json:"type"`
	IsInclusion bool           `json:"isInclusion"`
	Expression  string         `json:"expression"`
	Conditions  int            `json:"conditions"`
	Display     string         `json:"display"`
}

// CompilePromotion exports a stored promotion's rules as CEL. A tree that
// cannot be exported (e.g. an empty group) is FAILED_PRECONDITION.
func (s *PromotionService) CompilePromotion(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	p, err := s.fetch(ctx, req)
	if err != nil {
		return nil, err
	}

	compiled, err := s.engine.CompilePromotion(p.Rules)
	if err != nil {
		return nil, status.Error(codes.FailedPrecondition, err.Error())
	}

	byID := make(map[string]types.Rule, len(p.Rules))
	for _, r := range p.Rules {
		byID[r.ID] = r
	}
	f := rules.Formatter{Lookup: s.index}

	ruleList := make([]compiledRuleJSON, 0, len(compiled.Rules))
	for _, r := range compiled.Rules {
		ruleList = append(ruleList, compiledRuleJSON{
			RuleID:      r.RuleID,
			Type:        r.Type,
			IsInclusion: r.IsInclusion,
			Expression:  r.Expression,
			Conditions:  r.Conditions,
			Display:     f.Rule(byID[r.RuleID]),
		})
	}
	return respond(map[string]any{
		"promotionId": p.ID,
		"qualifier":   compiled.Qualifier,
		"target":      compiled.Target,
		"rules":       ruleList,
	})
}

func (s *PromotionService) GetSummary(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	st, _, err := s.store(ctx)
	if err != nil {
		return nil, err
	}
	st.FetchPromotions(ctx)
	if err := storeFailure(st); err != nil {
		return nil, err
	}
	return respond(promotion.Summarize(st.Snapshot().Promotions))
}
