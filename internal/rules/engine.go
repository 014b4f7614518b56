package rules

import (
	"strings"

	"github.com/google/cel-go/cel"
	"github.com/pkg/errors"
	"github.com/solatis/promokeeper/internal/types"
)

// Engine exports rule trees as CEL expressions and type-checks them against
// a fixed attribute set. It never evaluates: promotions carry no runtime data
// to evaluate against. Engine is immutable and safe for concurrent use.
type Engine struct {
	attrs map[string]types.Attribute
	env   *cel.Env
}

// NewEngine declares one CEL variable per attribute (see VariableName).
// Attributes must be well-formed and their variable names distinct.
func NewEngine(attrs []types.Attribute) (*Engine, error) {
	byID := make(map[string]types.Attribute, len(attrs))
	byVar := make(map[string]string, len(attrs))
	opts := make([]cel.EnvOption, 0, len(attrs))

	for _, a := range attrs {
		if err := CheckAttribute(a); err != nil {
			return nil, err
		}
		if _, dup := byID[a.ID]; dup {
			return nil, errors.Errorf("duplicate attribute %s", a.ID)
		}
		name := VariableName(a.ID)
		if other, clash := byVar[name]; clash {
			return nil, errors.Errorf("attributes %s and %s map to the same variable %s", other, a.ID, name)
		}
		byID[a.ID] = a
		byVar[name] = a.ID
		opts = append(opts, cel.Variable(name, celType(a.Type)))
	}

	env, err := cel.NewEnv(opts...)
	if err != nil {
		return nil, errors.Wrap(err, "build CEL environment")
	}
	return &Engine{attrs: byID, env: env}, nil
}

// Attribute looks up an attribute known to the engine.
func (e *Engine) Attribute(id string) (types.Attribute, bool) {
	a, ok := e.attrs[id]
	return a, ok
}

// VariableName maps an attribute id to its CEL identifier: "attr_" followed
// by the id with every character outside [A-Za-z0-9_] replaced by '_'.
func VariableName(attributeID string) string {
	var b strings.Builder
	b.Grow(len("attr_") + len(attributeID))
	b.WriteString("attr_")
	for _, r := range attributeID {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	return b.String()
}

func celType(t types.ValueType) *cel.Type {
	switch t {
	case types.ValueNumber:
		return cel.DoubleType
	case types.ValueBoolean:
		return cel.BoolType
	case types.ValueDate:
		return cel.TimestampType
	default:
		return cel.StringType
	}
}
