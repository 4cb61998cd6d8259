// Package pricing derives every monetary field on an order. It is the single
// source of truth for item values, subtotal, shipping cost and total: order
// creation, item edits and item deletion all go through it, so totals can
// never drift from the item list.
package pricing

import (
	"fmt"

	"github.com/ovofacil/orderbot/internal/domain"
)

// Config is the read-only pricing configuration fetched per order.
type Config struct {
	ExtraValue        domain.Money `dynamodbav:"extra_value"`   // unit price per dozen, variant extra
	JumboValue        domain.Money `dynamodbav:"jumbo_value"`   // unit price per dozen, variant jumbo
	FreeShippingDozen int          `dynamodbav:"free_shipping"` // minimum dozens for free shipping
	ShippingValue     domain.Money `dynamodbav:"shipping_value"`
}

// UnitPrice returns the configured price for one dozen of the given variant.
func (c Config) UnitPrice(v domain.Variant) (domain.Money, error) {
	switch v {
	case domain.VariantExtra:
		return c.ExtraValue, nil
	case domain.VariantJumbo:
		return c.JumboValue, nil
	default:
		return 0, fmt.Errorf("no unit price configured for variant %q", v)
	}
}

// Totals is the derived monetary breakdown of a line-item list.
type Totals struct {
	Items        []domain.LineItem
	Subtotal     domain.Money
	TotalDozens  int
	ShippingCost domain.Money
	Total        domain.Money
}

// PriceItems computes line items and totals for paired quantity/variant
// lists. Shipping is waived when the dozen count reaches the configured
// threshold.
func PriceItems(quantities []int, variants []domain.Variant, cfg Config) (Totals, error) {
	if len(quantities) != len(variants) {
		return Totals{}, fmt.Errorf("quantity/variant length mismatch: %d != %d", len(quantities), len(variants))
	}

	t := Totals{Items: make([]domain.LineItem, 0, len(quantities))}
	for i, qty := range quantities {
		unit, err := cfg.UnitPrice(variants[i])
		if err != nil {
			return Totals{}, err
		}
		value := unit * domain.Money(qty)
		t.Items = append(t.Items, domain.LineItem{
			Variant:   variants[i],
			Quantity:  qty,
			ItemValue: value,
		})
		t.Subtotal += value
		t.TotalDozens += qty
	}

	if t.TotalDozens < cfg.FreeShippingDozen {
		t.ShippingCost = cfg.ShippingValue
	}
	t.Total = t.Subtotal + t.ShippingCost
	return t, nil
}

// Reprice recomputes all derived fields on an order from its current item
// list. Called after every item-level edit or deletion.
func Reprice(order *domain.Order, cfg Config) error {
	quantities := make([]int, len(order.Items))
	variants := make([]domain.Variant, len(order.Items))
	for i, it := range order.Items {
		quantities[i] = it.Quantity
		variants[i] = it.Variant
	}

	t, err := PriceItems(quantities, variants, cfg)
	if err != nil {
		return err
	}

	order.Items = t.Items
	order.Subtotal = t.Subtotal
	order.TotalDozens = t.TotalDozens
	order.ShippingCost = t.ShippingCost
	order.Total = t.Total
	return nil
}
