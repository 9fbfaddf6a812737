package command

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/tair/storefront/internal/catalog/domain"
	"github.com/tair/storefront/pkg/logger"
	"github.com/tair/storefront/pkg/money"
)

// LegacyPrice accepts the price shapes found in exported catalog data:
// JSON numbers in major units and formatted strings such as "$1,299.00".
type LegacyPrice struct {
	Cents money.Cents
	Set   bool
}

func (p *LegacyPrice) UnmarshalJSON(raw []byte) error {
	raw = bytes.TrimSpace(raw)
	if bytes.Equal(raw, []byte("null")) {
		*p = LegacyPrice{}
		return nil
	}

	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return err
		}
		if s == "" {
			*p = LegacyPrice{}
			return nil
		}
		c, err := money.Parse(s)
		if err != nil {
			return err
		}
		*p = LegacyPrice{Cents: c, Set: true}
		return nil
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("%w: %s", money.ErrInvalidAmount, raw)
	}
	*p = LegacyPrice{Cents: money.FromFloat(f), Set: true}
	return nil
}

// LegacyProduct is one record of a seed file
type LegacyProduct struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Price         LegacyPrice `json:"price"`
	OriginalPrice LegacyPrice `json:"originalPrice"`
	Images        []string    `json:"images"`
	Category      string      `json:"category"`
	Sizes         []string    `json:"sizes"`
	Colors        []string    `json:"colors"`
	Description   string      `json:"description"`
}

// ImportProductsCommand carries a seed file's raw JSON array
type ImportProductsCommand struct {
	Source io.Reader
}

// ImportResult reports what an import stored and what it rejected
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Errors   []string `json:"errors,omitempty"`
}

// ImportProductsHandler upserts legacy catalog records. Invalid records are
// skipped and reported; the rest are imported.
type ImportProductsHandler struct {
	repo domain.ProductRepository
}

func NewImportProductsHandler(repo domain.ProductRepository) *ImportProductsHandler {
	return &ImportProductsHandler{repo: repo}
}

func (h *ImportProductsHandler) Handle(ctx context.Context, cmd ImportProductsCommand) (*ImportResult, error) {
	var raws []json.RawMessage
	if err := json.NewDecoder(cmd.Source).Decode(&raws); err != nil {
		return nil, fmt.Errorf("%w: seed must be a JSON array: %v", domain.ErrValidation, err)
	}

	result := &ImportResult{}
	skip := func(i int, err error) {
		result.Skipped++
		result.Errors = append(result.Errors, fmt.Sprintf("record %d: %v", i, err))
		logger.Warn(ctx).Err(err).Int("record", i).Msg("Skipping seed record")
	}

	for i, raw := range raws {
		var rec LegacyProduct
		if err := json.Unmarshal(raw, &rec); err != nil {
			skip(i, err)
			continue
		}
		if !rec.Price.Set {
			skip(i, fmt.Errorf("%w: price is required", domain.ErrValidation))
			continue
		}

		product := &domain.Product{ID: rec.ID}
		fields := ProductFields{
			Name:        rec.Name,
			PriceCents:  int64(rec.Price.Cents),
			Images:      rec.Images,
			Category:    rec.Category,
			Sizes:       rec.Sizes,
			Colors:      rec.Colors,
			Description: rec.Description,
			IsActive:    true,
		}
		if rec.OriginalPrice.Set {
			op := int64(rec.OriginalPrice.Cents)
			fields.OriginalPriceCents = &op
		}
		fields.apply(product)

		if err := product.Validate(); err != nil {
			skip(i, err)
			continue
		}
		if err := h.repo.Save(ctx, product); err != nil {
			return result, fmt.Errorf("failed to import product %s: %w", product.ID, err)
		}
		result.Imported++
	}

	logger.Info(ctx).
		Int("imported", result.Imported).
		Int("skipped", result.Skipped).
		Msg("Seed import finished")
	return result, nil
}
