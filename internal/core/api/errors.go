package api

import (
	"context"

	"github.com/pkg/errors"
	"github.com/solatis/promokeeper/internal/promotion"
	"github.com/solatis/promokeeper/internal/types"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Status mapping. Auth errors are mapped by the auth interceptor.
//
//	ValidationErrors              INVALID_ARGUMENT + BadRequest field violations
//	rule tree / value errors      INVALID_ARGUMENT
//	ErrPromotionNotFound          NOT_FOUND
//	ErrEmptyRuleGroup at export   FAILED_PRECONDITION
//	context deadline / cancel     DEADLINE_EXCEEDED / CANCELED
//	anything else                 UNAVAILABLE (storage)

var invalidArgument = []error{
	types.ErrUnknownAttribute,
	types.ErrInvalidOperator,
	types.ErrValueTypeMismatch,
	types.ErrInvalidEnumOption,
	types.ErrTooManyRuleGroups,
	types.ErrTooManyConditions,
	types.ErrInvalidLogicalOperator,
	types.ErrIndexOutOfRange,
}

func toStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	var verrs promotion.ValidationErrors
	if errors.As(err, &verrs) {
		return validationStatus(verrs)
	}
	for _, target := range invalidArgument {
		if errors.Is(err, target) {
			return status.Error(codes.InvalidArgument, err.Error())
		}
	}

	switch {
	case errors.Is(err, types.ErrPromotionNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, types.ErrEmptyRuleGroup):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return status.Error(codes.DeadlineExceeded, err.Error())
	case errors.Is(err, context.Canceled):
		return status.Error(codes.Canceled, err.Error())
	default:
		return status.Error(codes.Unavailable, err.Error())
	}
}

func validationStatus(verrs promotion.ValidationErrors) error {
	st := status.New(codes.InvalidArgument, verrs.Error())
	br := &errdetails.BadRequest{}
	for _, field := range verrs.Fields() {
		br.FieldViolations = append(br.FieldViolations, &errdetails.BadRequest_FieldViolation{
			Field:       field,
			Description: verrs[field],
		})
	}
	if detailed, err := st.WithDetails(br); err == nil {
		return detailed.Err()
	}
	return st.Err()
}

// FieldViolations extracts the per-field messages of an INVALID_ARGUMENT
// status produced for a failing form. Returns nil for other errors.
func FieldViolations(err error) map[string]string {
	st, ok := status.FromError(err)
	if !ok {
		return nil
	}
	var out map[string]string
	for _, d := range st.Details() {
		br, ok := d.(*errdetails.BadRequest)
		if !ok {
			continue
		}
		if out == nil {
			out = make(map[string]string)
		}
		for _, v := range br.GetFieldViolations() {
			out[v.GetField()] = v.GetDescription()
		}
	}
	return out
}
