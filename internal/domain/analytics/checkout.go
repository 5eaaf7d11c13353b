// internal/domain/analytics/checkout.go
package analytics

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/your-org/storefront-membership/internal/domain/cart"
)

// TrackCheckout records one service_discount_applied event per discounted
// line and a free_delivery_used event when delivery was waived. Event ids are
// derived from the cart, so checking out the same cart again records nothing new.
func (s *Service) TrackCheckout(ctx context.Context, customerID string, enhanced *cart.EnhancedCart) error {
	if enhanced == nil {
		return nil
	}

	benefits := enhanced.MembershipBenefits
	var errs []error

	for _, d := range benefits.ServiceDiscounts {
		_, err := s.Track(ctx, Event{
			ID:           checkoutEventID(customerID, enhanced.ID, "line:"+d.LineID),
			Type:         EventServiceDiscountApplied,
			MembershipID: benefits.MembershipID,
			CustomerID:   customerID,
			ServiceID:    d.ServiceID,
			Amount:       d.DiscountAmount,
			OrderValue:   d.OriginalPrice,
			Data: Data{
				"cartId":             enhanced.ID,
				"lineId":             d.LineID,
				"productHandle":      d.ProductHandle,
				"discountPercentage": d.DiscountPercentage.String(),
			},
		})
		if err != nil && !errors.Is(err, ErrDuplicateEvent) {
			errs = append(errs, err)
		}
	}

	if benefits.FreeDelivery {
		value := decimal.Zero
		if enhanced.DeliveryInfo.OriginalCost != nil {
			value = enhanced.DeliveryInfo.OriginalCost.Amount
		}
		_, err := s.Track(ctx, Event{
			ID:           checkoutEventID(customerID, enhanced.ID, "delivery"),
			Type:         EventFreeDeliveryUsed,
			MembershipID: benefits.MembershipID,
			CustomerID:   customerID,
			Amount:       value,
			OrderValue:   enhanced.Cost.TotalAmount.Amount,
			Data:         Data{"cartId": enhanced.ID},
		})
		if err != nil && !errors.Is(err, ErrDuplicateEvent) {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}

func checkoutEventID(customerID, cartID, part string) string {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte("checkout:"+customerID+":"+cartID+":"+part)).String()
}
