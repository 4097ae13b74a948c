package cart

import (
	"strings"

	dbtypes "github.com/angelmondragon/storefront-backend/pkg/db/types"
	"github.com/angelmondragon/storefront-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
)

// Variant is a (size, color) selection. Empty components mean no selection.
type Variant struct {
	Size  string
	Color string
}

// NewVariant trims surrounding whitespace; nil and blank inputs become no selection.
func NewVariant(size, color *string) Variant {
	return Variant{Size: clean(size), Color: clean(color)}
}

func clean(value *string) string {
	if value == nil {
		return ""
	}
	return strings.TrimSpace(*value)
}

// Validate checks each selected component against the product's declared set by exact match.
func (v Variant) Validate(product *models.Product) error {
	if err := checkComponent("size", v.Size, product.Sizes); err != nil {
		return err
	}
	return checkComponent("color", v.Color, product.Colors)
}

func checkComponent(field, value string, allowed dbtypes.StringList) error {
	if value == "" || allowed.Contains(value) {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, "invalid "+field+" for this product").
		WithReason(ReasonInvalidVariant).
		WithDetails(map[string]any{
			"field":   field,
			"value":   value,
			"allowed": append([]string{}, allowed...),
		})
}

// SizePtr returns the size as a nullable column value.
func (v Variant) SizePtr() *string {
	return optional(v.Size)
}

// ColorPtr returns the color as a nullable column value.
func (v Variant) ColorPtr() *string {
	return optional(v.Color)
}

func optional(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}
