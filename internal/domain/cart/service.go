// internal/domain/cart/service.go
package cart

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
)

// Commerce is the headless commerce platform that owns canonical carts
type Commerce interface {
	CreateCart(ctx context.Context, lines []LineInput) (*Cart, error)
	GetCart(ctx context.Context, cartID string) (*Cart, error)
	AddLines(ctx context.Context, cartID string, lines []LineInput) (*Cart, error)
	UpdateLines(ctx context.Context, cartID string, lines []LineUpdate) (*Cart, error)
	RemoveLines(ctx context.Context, cartID string, lineIDs []string) (*Cart, error)
}

// CheckoutTracker records the benefits a customer used at checkout
type CheckoutTracker interface {
	TrackCheckout(ctx context.Context, customerID string, enhanced *EnhancedCart) error
}

// ErrInvalidCartRequest is returned for malformed cart actions
var ErrInvalidCartRequest = errors.New("invalid cart request")

// ActionResult is the outcome of a cart action. Only failures of the
// commerce platform make Success false; benefit failures are reported in
// BenefitsError and the cart carries zero benefits.
type ActionResult struct {
	Success       bool          `json:"success"`
	Error         string        `json:"error,omitempty"`
	BenefitsError string        `json:"benefitsError,omitempty"`
	Cart          *EnhancedCart `json:"cart,omitempty"`
	Err           error         `json:"-"`
}

// CheckoutResult is a cart ready to hand over to the platform checkout
type CheckoutResult struct {
	ActionResult
	CheckoutURL string          `json:"checkoutUrl,omitempty"`
	Summary     BenefitsSummary `json:"summary"`
}

// Service runs cart actions against the commerce platform and applies
// membership benefits to the resulting cart
type Service struct {
	commerce   Commerce
	aggregator *Aggregator
	tracker    CheckoutTracker
	log        logrus.FieldLogger
}

// NewService creates a new cart service. tracker may be nil.
func NewService(commerce Commerce, aggregator *Aggregator, tracker CheckoutTracker, log logrus.FieldLogger) *Service {
	return &Service{
		commerce:   commerce,
		aggregator: aggregator,
		tracker:    tracker,
		log:        log,
	}
}

// Create creates a new cart, optionally with initial lines
func (s *Service) Create(ctx context.Context, customerID string, lines []LineInput) ActionResult {
	for _, line := range lines {
		if err := validateLineInput(line); err != nil {
			return failed(err)
		}
	}

	c, err := s.commerce.CreateCart(ctx, lines)
	if err != nil {
		return s.commerceFailure("create cart", "", err)
	}
	return s.enhance(ctx, c, customerID)
}

// Get returns the cart with benefits applied
func (s *Service) Get(ctx context.Context, cartID, customerID string) ActionResult {
	if cartID == "" {
		return failed(fmt.Errorf("%w: cart id is required", ErrInvalidCartRequest))
	}

	c, err := s.commerce.GetCart(ctx, cartID)
	if err != nil {
		return s.commerceFailure("get cart", cartID, err)
	}
	return s.enhance(ctx, c, customerID)
}

// AddItem adds merchandise to the cart
func (s *Service) AddItem(ctx context.Context, cartID, customerID string, line LineInput) ActionResult {
	if cartID == "" {
		return failed(fmt.Errorf("%w: cart id is required", ErrInvalidCartRequest))
	}
	if err := validateLineInput(line); err != nil {
		return failed(err)
	}

	c, err := s.commerce.AddLines(ctx, cartID, []LineInput{line})
	if err != nil {
		return s.commerceFailure("add item", cartID, err)
	}
	return s.enhance(ctx, c, customerID)
}

// UpdateItem changes a line's quantity. A quantity of zero removes the line.
func (s *Service) UpdateItem(ctx context.Context, cartID, customerID string, update LineUpdate) ActionResult {
	if cartID == "" || update.ID == "" {
		return failed(fmt.Errorf("%w: cart id and line id are required", ErrInvalidCartRequest))
	}
	if update.Quantity < 0 {
		return failed(fmt.Errorf("%w: quantity cannot be negative", ErrInvalidCartRequest))
	}
	if update.Quantity == 0 {
		return s.RemoveItem(ctx, cartID, customerID, update.ID)
	}

	c, err := s.commerce.UpdateLines(ctx, cartID, []LineUpdate{update})
	if err != nil {
		return s.commerceFailure("update item", cartID, err)
	}
	return s.enhance(ctx, c, customerID)
}

// RemoveItem removes a line from the cart
func (s *Service) RemoveItem(ctx context.Context, cartID, customerID, lineID string) ActionResult {
	if cartID == "" || lineID == "" {
		return failed(fmt.Errorf("%w: cart id and line id are required", ErrInvalidCartRequest))
	}

	c, err := s.commerce.RemoveLines(ctx, cartID, []string{lineID})
	if err != nil {
		return s.commerceFailure("remove item", cartID, err)
	}
	return s.enhance(ctx, c, customerID)
}

// PrepareCheckout applies benefits one last time and records the benefits
// the customer is about to use
func (s *Service) PrepareCheckout(ctx context.Context, cartID, customerID, locale string) CheckoutResult {
	result := s.Get(ctx, cartID, customerID)
	if !result.Success {
		return CheckoutResult{ActionResult: result}
	}

	if s.tracker != nil && customerID != "" && result.BenefitsError == "" {
		if err := s.tracker.TrackCheckout(ctx, customerID, result.Cart); err != nil {
			s.log.WithError(err).WithField("cart_id", cartID).Warn("Failed to track checkout benefits")
		}
	}

	return CheckoutResult{
		ActionResult: result,
		CheckoutURL:  result.Cart.CheckoutURL,
		Summary:      s.aggregator.BenefitsSummary(result.Cart, locale),
	}
}

// Summary returns the benefits summary for a cart
func (s *Service) Summary(ctx context.Context, cartID, customerID, locale string) (BenefitsSummary, ActionResult) {
	result := s.Get(ctx, cartID, customerID)
	if !result.Success {
		return BenefitsSummary{}, result
	}
	return s.aggregator.BenefitsSummary(result.Cart, locale), result
}

// ValidateMembership checks the customer's membership against a cart
func (s *Service) ValidateMembership(ctx context.Context, cartID, customerID string) (*CartMembershipValidation, error) {
	c, err := s.commerce.GetCart(ctx, cartID)
	if err != nil {
		return nil, err
	}
	return s.aggregator.ValidateCartMembership(ctx, c, customerID)
}

func (s *Service) enhance(ctx context.Context, c *Cart, customerID string) ActionResult {
	enhanced, err := s.aggregator.ApplyBenefitsForCustomer(ctx, c, customerID)
	result := ActionResult{Success: true, Cart: enhanced}
	if err != nil {
		s.log.WithError(err).WithField("cart_id", c.ID).Warn("Serving cart without membership benefits")
		result.BenefitsError = MsgBenefitsUnavailable
	}
	return result
}

func (s *Service) commerceFailure(action, cartID string, err error) ActionResult {
	s.log.WithError(err).WithFields(logrus.Fields{
		"action":  action,
		"cart_id": cartID,
	}).Error("Commerce cart action failed")

	return ActionResult{
		Success: false,
		Error:   fmt.Sprintf("failed to %s: %v", action, err),
		Err:     err,
	}
}

func failed(err error) ActionResult {
	return ActionResult{Success: false, Error: err.Error(), Err: err}
}

func validateLineInput(line LineInput) error {
	if line.MerchandiseID == "" {
		return fmt.Errorf("%w: merchandise id is required", ErrInvalidCartRequest)
	}
	if line.Quantity < 1 {
		return fmt.Errorf("%w: quantity must be at least 1", ErrInvalidCartRequest)
	}
	return nil
}
