package service

import (
	"strings"
	"unicode/utf8"

	"github.com/rl1809/inventory/internal/core/domain"
)

const minSKULength = 3

// normalize trims the product name. The SKU is kept exactly as entered.
func normalize(in domain.ProductInput) domain.ProductInput {
	in.Name = strings.TrimSpace(in.Name)
	return in
}

// validate checks every rule in order and reports all violations. The SKU
// length counts runes of the raw value, and the duplicate check runs only
// once the SKU is long enough.
func (s *InventoryService) validate(in domain.ProductInput) *domain.ValidationError {
	verr := &domain.ValidationError{}

	if in.Name == "" {
		verr.Add("name", domain.MsgNameRequired)
	}
	if strings.TrimSpace(in.SKU) == "" || utf8.RuneCountInString(in.SKU) < minSKULength {
		verr.Add("sku", domain.MsgSKUTooShort)
	} else if s.catalog.SkuExists(in.SKU) {
		verr.Add("sku", domain.MsgDuplicateSKU)
	}
	if !in.Price.IsPositive() {
		verr.Add("price", domain.MsgInvalidPrice)
	}
	if in.Stock < 0 {
		verr.Add("stock", domain.MsgNegativeStock)
	}
	if _, ok := s.categories[in.Category]; !ok {
		verr.Add("category", domain.MsgInvalidCategory)
	}

	if len(verr.Errors) == 0 {
		return nil
	}
	return verr
}
