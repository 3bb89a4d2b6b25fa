package core

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

// maxFieldLength bounds free-text part fields.
const maxFieldLength = 255

// Normalize trims surrounding whitespace from all text fields.
func (in PartInput) Normalize() PartInput {
	in.DesignationCode = strings.TrimSpace(in.DesignationCode)
	in.ProductDesignation = strings.TrimSpace(in.ProductDesignation)
	in.Name = strings.TrimSpace(in.Name)
	in.Size = strings.TrimSpace(in.Size)
	in.Material = strings.TrimSpace(in.Material)
	return in
}

// Validate checks the fields required to create a part.
func (in PartInput) Validate() error {
	required := []struct {
		field, value string
	}{
		{"designation_code", in.DesignationCode},
		{"product_designation", in.ProductDesignation},
		{"name", in.Name},
	}
	for _, r := range required {
		if r.value == "" {
			return &ValidationError{Field: r.field, Message: "is required"}
		}
	}

	for _, f := range []struct {
		field, value string
	}{
		{"designation_code", in.DesignationCode},
		{"product_designation", in.ProductDesignation},
		{"name", in.Name},
		{"size", in.Size},
		{"material", in.Material},
	} {
		if utf8.RuneCountInString(f.value) > maxFieldLength {
			return &ValidationError{Field: f.field, Message: fmt.Sprintf("must be at most %d characters", maxFieldLength)}
		}
	}

	if in.QuantityTotal < 1 {
		return &ValidationError{Field: "quantity_total", Message: "must be at least 1"}
	}
	if in.RouteTemplateID != nil && *in.RouteTemplateID <= 0 {
		return &ValidationError{Field: "route_template_id", Message: "must be a positive id"}
	}
	return nil
}
