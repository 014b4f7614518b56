package api

import (
	"encoding/json"

	"github.com/pkg/errors"
	"github.com/solatis/promokeeper/internal/promotion"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

// toStruct encodes v through its JSON form. Numbers become doubles, which
// every numeric field of the domain already is.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, errors.Wrap(err, "encode response")
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, errors.Wrap(err, "encode response")
	}
	return structpb.NewStruct(m)
}

// fromStruct decodes s into dst through its JSON form.
func fromStruct(s *structpb.Struct, dst any) error {
	if s == nil {
		return status.Error(codes.InvalidArgument, "empty request")
	}
	raw, err := protojson.Marshal(s)
	if err != nil {
		return status.Error(codes.InvalidArgument, err.Error())
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return status.Errorf(codes.InvalidArgument, "malformed request: %v", err)
	}
	return nil
}

// FormToStruct encodes a form for CreatePromotion/ValidatePromotion.
func FormToStruct(fs promotion.FormState) (*structpb.Struct, error) {
	return toStruct(fs)
}

// UpdateRequest builds the UpdatePromotion request body.
func UpdateRequest(id string, fs promotion.FormState) (*structpb.Struct, error) {
	return toStruct(updateRequest{ID: id, Form: fs})
}

type updateRequest struct {
	ID   string              `json:"id"`
	Form promotion.FormState `json:"form"`
}

// StructTo decodes a response Struct into dst, e.g. a types.Promotion.
func StructTo(s *structpb.Struct, dst any) error {
	raw, err := protojson.Marshal(s)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}
