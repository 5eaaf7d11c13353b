// internal/domain/cart/entity.go
package cart

import (
	"github.com/shopspring/decimal"
)

// Money is an amount in a currency
type Money struct {
	Amount       decimal.Decimal `json:"amount"`
	CurrencyCode string          `json:"currencyCode"`
}

// Product is the product a merchandise line belongs to
type Product struct {
	ID     string `json:"id"`
	Handle string `json:"handle"`
	Title  string `json:"title"`
}

// Merchandise is the purchasable variant referenced by a cart line
type Merchandise struct {
	ID      string  `json:"id"`
	Title   string  `json:"title"`
	Product Product `json:"product"`
}

// LineCost holds the cost of one cart line
type LineCost struct {
	TotalAmount       Money `json:"totalAmount"`
	AmountPerQuantity Money `json:"amountPerQuantity"`
}

// CartLine is one line item of a commerce cart
type CartLine struct {
	ID          string      `json:"id"`
	Quantity    int         `json:"quantity"`
	Cost        LineCost    `json:"cost"`
	Merchandise Merchandise `json:"merchandise"`
}

// CartCost holds the aggregate cost fields of a cart
type CartCost struct {
	SubtotalAmount Money `json:"subtotalAmount"`
	TotalAmount    Money `json:"totalAmount"`
	TotalTaxAmount Money `json:"totalTaxAmount"`
}

// Cart is the canonical cart owned by the commerce platform
type Cart struct {
	ID            string     `json:"id"`
	CheckoutURL   string     `json:"checkoutUrl,omitempty"`
	TotalQuantity int        `json:"totalQuantity"`
	Lines         []CartLine `json:"lines"`
	Cost          CartCost   `json:"cost"`
}

// Clone returns a deep copy of the cart
func (c *Cart) Clone() Cart {
	out := *c
	out.Lines = make([]CartLine, len(c.Lines))
	copy(out.Lines, c.Lines)
	return out
}

// Currency returns the cart's currency code, or fallback when unknown
func (c *Cart) Currency(fallback string) string {
	if c.Cost.TotalAmount.CurrencyCode != "" {
		return c.Cost.TotalAmount.CurrencyCode
	}
	if c.Cost.SubtotalAmount.CurrencyCode != "" {
		return c.Cost.SubtotalAmount.CurrencyCode
	}
	return fallback
}

// MembershipStatus is the benefit status reported on an enhanced cart
type MembershipStatus string

const (
	MembershipActive  MembershipStatus = "active"
	MembershipExpired MembershipStatus = "expired"
	MembershipNone    MembershipStatus = "none"
)

// CartServiceDiscount is the member discount applied to one cart line
type CartServiceDiscount struct {
	LineID             string          `json:"lineId"`
	MerchandiseID      string          `json:"merchandiseId"`
	ProductHandle      string          `json:"productHandle"`
	ServiceID          string          `json:"serviceId"`
	OriginalPrice      decimal.Decimal `json:"originalPrice"`
	DiscountAmount     decimal.Decimal `json:"discountAmount"`
	DiscountPercentage decimal.Decimal `json:"discountPercentage"`
	FinalPrice         decimal.Decimal `json:"finalPrice"`
}

// MembershipBenefits summarizes what the membership did to the cart
type MembershipBenefits struct {
	MembershipID     string                `json:"membershipId,omitempty"`
	ServiceDiscounts []CartServiceDiscount `json:"serviceDiscounts"`
	FreeDelivery     bool                  `json:"freeDelivery"`
	TotalSavings     decimal.Decimal       `json:"totalSavings"`
	MembershipStatus MembershipStatus      `json:"membershipStatus"`
	ValidationErrors []string              `json:"validationErrors"`
}

// DeliveryInfo describes the delivery charge outcome
type DeliveryInfo struct {
	IsFree       bool   `json:"isFree"`
	Reason       string `json:"reason"`
	OriginalCost *Money `json:"originalCost,omitempty"`
}

// EnhancedCart is a derived read model: the cart with membership benefits applied.
// It is plain data and is recomputed on every request.
type EnhancedCart struct {
	Cart
	MembershipBenefits MembershipBenefits `json:"membershipBenefits"`
	DeliveryInfo       DeliveryInfo       `json:"deliveryInfo"`
}

// BenefitsSummary is the UI projection of an enhanced cart
type BenefitsSummary struct {
	HasDiscounts    bool            `json:"hasDiscounts"`
	HasFreeDelivery bool            `json:"hasFreeDelivery"`
	TotalSavings    decimal.Decimal `json:"totalSavings"`
	DiscountCount   int             `json:"discountCount"`
	StatusMessage   string          `json:"statusMessage"`
}

// LineInput adds merchandise to a cart
type LineInput struct {
	MerchandiseID string `json:"merchandiseId" binding:"required"`
	Quantity      int    `json:"quantity" binding:"required,min=1"`
}

// LineUpdate changes the quantity of an existing line
type LineUpdate struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity" binding:"min=0"`
}
