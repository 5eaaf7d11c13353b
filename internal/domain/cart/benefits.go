// internal/domain/cart/benefits.go
package cart

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-membership/internal/domain/membership"
	"github.com/your-org/storefront-membership/internal/pkg/metrics"
)

const (
	ReasonMemberBenefit    = "Member Benefit"
	ReasonStandardDelivery = "Standard delivery charges apply"

	MsgBenefitsUnavailable   = "Unable to apply membership benefits at this time."
	MsgExpiredNoDiscounts    = "Membership has expired. Discounts will not be applied."
	MsgPaymentPending        = "Membership payment is pending. Benefits will apply once payment is confirmed."
	MsgRenewToRestore        = "Renew your membership to restore service discounts and free delivery."
	MsgNoEligibleItems       = "No items in this cart are eligible for member discounts."
	msgExpiresSoonFormat     = "Membership expires in %d days. Renew to keep your benefits."
	msgExpiredOnFormat       = "Membership expired on %s."
	benefitOpFetchMembership = "fetch membership"
	benefitOpCompute         = "compute benefits"
)

// ErrBenefitsUnavailable is matched by every BenefitError
var ErrBenefitsUnavailable = errors.New("membership benefits unavailable")

// BenefitError reports that benefits could not be computed. The cart
// returned alongside it is still usable: it carries zero benefits.
type BenefitError struct {
	Op         string
	CustomerID string
	Err        error
}

func (e *BenefitError) Error() string {
	if e.CustomerID == "" {
		return fmt.Sprintf("cart benefits: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("cart benefits: %s for customer %s: %v", e.Op, e.CustomerID, e.Err)
}

func (e *BenefitError) Unwrap() []error {
	return []error{ErrBenefitsUnavailable, e.Err}
}

// MembershipSource resolves a customer's membership
type MembershipSource interface {
	FindByCustomerID(ctx context.Context, customerID string) (*membership.Membership, error)
}

// CartMembershipValidation is the result of checking a customer's membership against a cart
type CartMembershipValidation struct {
	Validation membership.ValidationResult `json:"validation"`
	Membership *membership.Membership      `json:"membership,omitempty"`
}

// Aggregator applies membership benefits to commerce carts. It holds no
// per-request state and is safe for concurrent use.
type Aggregator struct {
	memberships  MembershipSource
	services     membership.ServiceMap
	validator    membership.Validator
	deliveryCost decimal.Decimal
	currency     string
	metrics      *metrics.Metrics
	log          logrus.FieldLogger

	// Now is the aggregator clock
	Now func() time.Time
}

// AggregatorConfig holds the aggregator's collaborators and program terms
type AggregatorConfig struct {
	Memberships          MembershipSource
	Services             membership.ServiceMap
	Validator            membership.Validator
	StandardDeliveryCost decimal.Decimal
	DefaultCurrency      string
	Metrics              *metrics.Metrics
	Logger               logrus.FieldLogger
}

// NewAggregator creates a new benefit aggregator
func NewAggregator(cfg AggregatorConfig) *Aggregator {
	services := cfg.Services
	if services == nil {
		services = membership.DefaultServiceMap()
	}

	return &Aggregator{
		memberships:  cfg.Memberships,
		services:     services,
		validator:    cfg.Validator,
		deliveryCost: cfg.StandardDeliveryCost,
		currency:     cfg.DefaultCurrency,
		metrics:      cfg.Metrics,
		log:          cfg.Logger,
		Now:          func() time.Time { return time.Now().UTC() },
	}
}

// ApplyBenefitsWithMembership decorates cart with the benefits of m. A nil
// membership yields an all-zero benefits record. The canonical cart is not
// modified.
func (a *Aggregator) ApplyBenefitsWithMembership(cart *Cart, m *membership.Membership) (enhanced *EnhancedCart, err error) {
	if cart == nil {
		cart = &Cart{}
	}

	defer func() {
		if r := recover(); r != nil {
			a.log.WithField("panic", r).Error("Recovered while applying membership benefits")
			enhanced = a.degraded(cart)
			err = &BenefitError{Op: benefitOpCompute, Err: fmt.Errorf("%v", r)}
		}
	}()

	enhanced = a.compute(cart, m)
	a.metrics.BenefitsApplied(string(enhanced.MembershipBenefits.MembershipStatus), enhanced.MembershipBenefits.TotalSavings.InexactFloat64())
	return enhanced, nil
}

// ApplyBenefitsForCustomer looks up the customer's membership and applies it.
// An empty customer id applies no membership. When the lookup fails the
// cart is returned with zero benefits together with a *BenefitError.
func (a *Aggregator) ApplyBenefitsForCustomer(ctx context.Context, cart *Cart, customerID string) (*EnhancedCart, error) {
	if cart == nil {
		cart = &Cart{}
	}
	if customerID == "" {
		return a.ApplyBenefitsWithMembership(cart, nil)
	}

	m, err := a.memberships.FindByCustomerID(ctx, customerID)
	if err != nil && !errors.Is(err, membership.ErrMembershipNotFound) {
		a.log.WithError(err).WithField("customer_id", customerID).Error("Failed to fetch membership for cart")
		a.metrics.BenefitsApplied("degraded", 0)
		return a.degraded(cart), &BenefitError{Op: benefitOpFetchMembership, CustomerID: customerID, Err: err}
	}

	enhanced, err := a.ApplyBenefitsWithMembership(cart, m)
	if err != nil {
		var be *BenefitError
		if errors.As(err, &be) {
			be.CustomerID = customerID
		}
	}
	return enhanced, err
}

// ValidateCartMembership checks the customer's membership for use on cart and
// adds cart specific advisories. It never modifies the cart.
func (a *Aggregator) ValidateCartMembership(ctx context.Context, cart *Cart, customerID string) (*CartMembershipValidation, error) {
	var m *membership.Membership
	if customerID != "" {
		found, err := a.memberships.FindByCustomerID(ctx, customerID)
		if err != nil && !errors.Is(err, membership.ErrMembershipNotFound) {
			return nil, &BenefitError{Op: benefitOpFetchMembership, CustomerID: customerID, Err: err}
		}
		m = found
	}

	validation := a.validator.Validate(m, a.Now())
	if m == nil {
		return &CartMembershipValidation{Validation: validation}, nil
	}

	if validation.IsExpired {
		validation.Errors = append(validation.Errors, MsgExpiredNoDiscounts)
	}
	if m.PaymentStatus == membership.PaymentPending {
		validation.Errors = append(validation.Errors, MsgPaymentPending)
	}
	if validation.Eligible() && validation.RequiresRenewal {
		validation.Errors = append(validation.Errors, fmt.Sprintf(msgExpiresSoonFormat, validation.DaysUntilExpiration))
	}
	if validation.Eligible() && cart != nil && len(cart.Lines) > 0 && !a.hasEligibleLine(cart, m) {
		validation.Errors = append(validation.Errors, MsgNoEligibleItems)
	}

	return &CartMembershipValidation{Validation: validation, Membership: m}, nil
}

// HandleExpiredMembership returns cart decorated as belonging to an expired
// member, whatever the membership record says.
func (a *Aggregator) HandleExpiredMembership(cart *Cart, expired *membership.Membership) *EnhancedCart {
	if cart == nil {
		cart = &Cart{}
	}

	errs := []string{membership.MsgExpired}
	if expired != nil && !expired.ExpirationDate.IsZero() {
		errs = append(errs, fmt.Sprintf(msgExpiredOnFormat, expired.ExpirationDate.Format("2006-01-02")))
	}
	errs = append(errs, MsgRenewToRestore)

	enhanced := &EnhancedCart{
		Cart: cart.Clone(),
		MembershipBenefits: MembershipBenefits{
			ServiceDiscounts: []CartServiceDiscount{},
			TotalSavings:     decimal.Zero,
			MembershipStatus: MembershipExpired,
			ValidationErrors: errs,
		},
		DeliveryInfo: a.standardDelivery(),
	}
	if expired != nil {
		enhanced.MembershipBenefits.MembershipID = expired.ID
	}

	a.metrics.BenefitsApplied(string(MembershipExpired), 0)
	return enhanced
}

// BenefitsSummary projects an enhanced cart for display. Total savings
// include the standard delivery cost when delivery was free.
func (a *Aggregator) BenefitsSummary(enhanced *EnhancedCart, locale string) BenefitsSummary {
	if enhanced == nil {
		return BenefitsSummary{TotalSavings: decimal.Zero, StatusMessage: statusMessage(locale, MembershipNone, decimal.Zero, "")}
	}

	benefits := enhanced.MembershipBenefits
	total := decimal.Zero
	for _, d := range benefits.ServiceDiscounts {
		total = total.Add(d.DiscountAmount)
	}
	if benefits.FreeDelivery {
		total = total.Add(a.deliveryCost)
	}

	return BenefitsSummary{
		HasDiscounts:    len(benefits.ServiceDiscounts) > 0,
		HasFreeDelivery: benefits.FreeDelivery,
		TotalSavings:    total,
		DiscountCount:   len(benefits.ServiceDiscounts),
		StatusMessage:   statusMessage(locale, benefits.MembershipStatus, total, enhanced.Currency(a.currency)),
	}
}

func (a *Aggregator) compute(cart *Cart, m *membership.Membership) *EnhancedCart {
	now := a.Now()
	validation := a.validator.Validate(m, now)
	eligible := m != nil && validation.Eligible()

	discounts := []CartServiceDiscount{}
	totalDiscount := decimal.Zero

	if eligible {
		for _, line := range cart.Lines {
			serviceID, ok := a.services.Resolve(line.Merchandise.Product.Handle)
			if !ok {
				continue
			}

			result := membership.CalculateDiscount(line.Cost.TotalAmount.Amount, m, serviceID, now)
			if !result.DiscountAmount.IsPositive() {
				continue
			}

			discounts = append(discounts, CartServiceDiscount{
				LineID:             line.ID,
				MerchandiseID:      line.Merchandise.ID,
				ProductHandle:      line.Merchandise.Product.Handle,
				ServiceID:          serviceID,
				OriginalPrice:      result.OriginalPrice,
				DiscountAmount:     result.DiscountAmount,
				DiscountPercentage: result.DiscountPercentage,
				FinalPrice:         result.FinalPrice,
			})
			totalDiscount = totalDiscount.Add(result.DiscountAmount)
		}
	}

	freeDelivery := eligible && m.Benefits.FreeDelivery

	enhanced := &EnhancedCart{Cart: cart.Clone()}

	subtotal := cart.Cost.SubtotalAmount.Amount.Sub(totalDiscount)
	total := cart.Cost.TotalAmount.Amount.Sub(totalDiscount)
	if freeDelivery {
		total = total.Sub(a.deliveryCost)
	}
	enhanced.Cost.SubtotalAmount.Amount = floorZero(subtotal)
	enhanced.Cost.TotalAmount.Amount = floorZero(total)

	errs := validation.Errors
	if errs == nil {
		errs = []string{}
	}

	enhanced.MembershipBenefits = MembershipBenefits{
		ServiceDiscounts: discounts,
		FreeDelivery:     freeDelivery,
		TotalSavings:     totalDiscount,
		MembershipStatus: membershipStatus(m, validation),
		ValidationErrors: errs,
	}
	if m != nil {
		enhanced.MembershipBenefits.MembershipID = m.ID
	}

	if freeDelivery {
		enhanced.DeliveryInfo = DeliveryInfo{
			IsFree: true,
			Reason: ReasonMemberBenefit,
			OriginalCost: &Money{
				Amount:       a.deliveryCost,
				CurrencyCode: cart.Currency(a.currency),
			},
		}
	} else {
		enhanced.DeliveryInfo = a.standardDelivery()
	}

	return enhanced
}

func (a *Aggregator) degraded(cart *Cart) *EnhancedCart {
	return &EnhancedCart{
		Cart: cart.Clone(),
		MembershipBenefits: MembershipBenefits{
			ServiceDiscounts: []CartServiceDiscount{},
			TotalSavings:     decimal.Zero,
			MembershipStatus: MembershipNone,
			ValidationErrors: []string{MsgBenefitsUnavailable},
		},
		DeliveryInfo: a.standardDelivery(),
	}
}

func (a *Aggregator) standardDelivery() DeliveryInfo {
	return DeliveryInfo{IsFree: false, Reason: ReasonStandardDelivery}
}

func (a *Aggregator) hasEligibleLine(cart *Cart, m *membership.Membership) bool {
	for _, line := range cart.Lines {
		serviceID, ok := a.services.Resolve(line.Merchandise.Product.Handle)
		if ok && m.Benefits.EligibleServices.Contains(serviceID) {
			return true
		}
	}
	return false
}

func membershipStatus(m *membership.Membership, v membership.ValidationResult) MembershipStatus {
	switch {
	case m == nil:
		return MembershipNone
	case v.Eligible():
		return MembershipActive
	case v.IsExpired:
		return MembershipExpired
	default:
		return MembershipNone
	}
}

func floorZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
