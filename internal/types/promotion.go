package types

import "time"

// Attribute is a typed attribute definition owned by the attribute catalog.
// Options is present iff Type is ValueEnum.
type Attribute struct {
	ID      string    `json:"id" yaml:"id" validate:"required"`
	Name    string    `json:"name" yaml:"name" validate:"required"`
	Type    ValueType `json:"type" yaml:"type" validate:"required,oneof=string number boolean date enum"`
	Options []string  `json:"options,omitempty" yaml:"options,omitempty" validate:"required_if=Type enum,max=256,unique,dive,required"`
}

// AttributeCategory groups attributes describing one entity type.
type AttributeCategory struct {
	ID         string      `json:"id" yaml:"id" validate:"required"`
	Name       string      `json:"name" yaml:"name" validate:"required"`
	EntityType EntityType  `json:"entityType" yaml:"entityType" validate:"required,oneof=Product Customer Order Payment Employee"`
	Attributes []Attribute `json:"attributes" yaml:"attributes" validate:"required,min=1,dive"`
}

// PromotionData is a promotion without identity or timestamps; the payload
// of repository create/update calls.
type PromotionData struct {
	Name          string       `json:"name"`
	Description   string       `json:"description"`
	StartDate     time.Time    `json:"startDate"`
	EndDate       time.Time    `json:"endDate"`
	IsActive      bool         `json:"isActive"`
	DiscountType  DiscountType `json:"discountType"`
	DiscountValue float64      `json:"discountValue"`
	Rules         []Rule       `json:"rules"`
}

// Promotion is a persisted discount campaign.
type Promotion struct {
	ID string `json:"id"`
	PromotionData
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Clone returns a deep copy of the promotion data.
func (d PromotionData) Clone() PromotionData {
	out := d
	if d.Rules != nil {
		out.Rules = make([]Rule, len(d.Rules))
		for i, r := range d.Rules {
			out.Rules[i] = r.Clone()
		}
	}
	return out
}

// Clone returns a deep copy of the promotion.
func (p Promotion) Clone() Promotion {
	out := p
	out.PromotionData = p.PromotionData.Clone()
	return out
}
