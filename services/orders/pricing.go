package main

import "github.com/shopspring/decimal"

var (
	taxRate               = decimal.RequireFromString("0.08")
	flatShipping          = decimal.NewFromInt(10)
	freeShippingThreshold = decimal.NewFromInt(100)
)

// Round2 rounds half away from zero to two decimal places.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

func LineTotal(unitPrice float64, quantity int) float64 {
	return decimal.NewFromFloat(unitPrice).
		Mul(decimal.NewFromInt(int64(quantity))).
		Round(2).
		InexactFloat64()
}

func Subtotal(items []OrderItem) float64 {
	sum := decimal.Zero
	for _, item := range items {
		sum = sum.Add(decimal.NewFromFloat(item.TotalPrice))
	}
	return sum.Round(2).InexactFloat64()
}

func Tax(subtotal float64) float64 {
	return decimal.NewFromFloat(subtotal).Mul(taxRate).Round(2).InexactFloat64()
}

// ShippingCost is a flat 10.00 below 100.00 of subtotal, free otherwise.
func ShippingCost(subtotal float64) float64 {
	if decimal.NewFromFloat(subtotal).LessThan(freeShippingThreshold) {
		return flatShipping.InexactFloat64()
	}
	return 0
}

// Total never goes below zero, whatever the discount.
func Total(subtotal, tax, shipping, discount float64) float64 {
	total := decimal.NewFromFloat(subtotal).
		Add(decimal.NewFromFloat(tax)).
		Add(decimal.NewFromFloat(shipping)).
		Sub(decimal.NewFromFloat(discount))

	if total.IsNegative() {
		return 0
	}
	return total.Round(2).InexactFloat64()
}
