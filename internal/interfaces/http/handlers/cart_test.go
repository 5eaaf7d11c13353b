package handlers

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-membership/internal/domain/analytics"
	"github.com/your-org/storefront-membership/internal/domain/cart"
	"github.com/your-org/storefront-membership/internal/infrastructure/commerce"
)

type cartResponse struct {
	Cart          cart.EnhancedCart `json:"cart"`
	BenefitsError string            `json:"benefitsError"`
}

func TestCart_GuestGetsNoBenefits(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodGet, "/api/v1/cart/cart-1", "", nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp cartResponse
	decodeData(t, w, &resp)
	assert.Empty(t, resp.BenefitsError)
	assert.Empty(t, resp.Cart.MembershipBenefits.ServiceDiscounts)
	assert.True(t, resp.Cart.MembershipBenefits.TotalSavings.IsZero())
	assert.False(t, resp.Cart.DeliveryInfo.IsFree)
	assert.Equal(t, "125", resp.Cart.Cost.TotalAmount.Amount.String())
}

func TestCart_MemberGetsBenefits(t *testing.T) {
	env := newTestEnv(t)
	env.seedActiveMember(t, "cust-1")

	w := env.do(t, http.MethodGet, "/api/v1/cart/cart-1", env.token(t, "cust-1", false), nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp cartResponse
	decodeData(t, w, &resp)
	require.Len(t, resp.Cart.MembershipBenefits.ServiceDiscounts, 1)
	assert.Equal(t, "15", resp.Cart.MembershipBenefits.ServiceDiscounts[0].DiscountAmount.String())
	assert.True(t, resp.Cart.DeliveryInfo.IsFree)
	assert.Equal(t, "40", resp.Cart.MembershipBenefits.TotalSavings.String())
	assert.Equal(t, "85", resp.Cart.Cost.TotalAmount.Amount.String())
}

func TestCart_CommerceFailures(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
	}{
		{"missing cart", fmt.Errorf("%w: cart-1", commerce.ErrCartNotFound), http.StatusNotFound},
		{"not configured", commerce.ErrNotConfigured, http.StatusServiceUnavailable},
		{"user errors", commerce.UserErrors{{Message: "Merchandise is sold out"}}, http.StatusUnprocessableEntity},
		{"platform down", fmt.Errorf("storefront returned status 503"), http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.commerce.err = tt.err

			w := env.do(t, http.MethodGet, "/api/v1/cart/cart-1", "", nil)

			assert.Equal(t, tt.status, w.Code, w.Body.String())
			body := decode(t, w)
			require.NotNil(t, body.Error)
			assert.NotEmpty(t, body.Error.Message)
		})
	}
}

func TestCart_LineActions(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/cart", "", map[string]interface{}{
		"lines": []map[string]interface{}{{"merchandiseId": "variant-1", "quantity": 1}},
	})
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = env.do(t, http.MethodPost, "/api/v1/cart/cart-1/lines", "", map[string]interface{}{
		"merchandiseId": "variant-2", "quantity": 2,
	})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, http.MethodPost, "/api/v1/cart/cart-1/lines", "", map[string]interface{}{
		"merchandiseId": "variant-2", "quantity": 0,
	})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPut, "/api/v1/cart/cart-1/lines/line-1", "", map[string]interface{}{"quantity": 3})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, http.MethodPut, "/api/v1/cart/cart-1/lines/line-1", "", map[string]interface{}{"quantity": -1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodDelete, "/api/v1/cart/cart-1/lines/line-1", "", nil)
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
}

func TestCart_UpdateLineNeedsQuantity(t *testing.T) {
	env := newTestEnv(t)

	for _, body := range []map[string]interface{}{{}, {"qty": 2}, {"quantity": nil}} {
		w := env.do(t, http.MethodPut, "/api/v1/cart/cart-1/lines/line-1", "", body)
		assert.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	}
	assert.Empty(t, env.commerce.removed)
	assert.Empty(t, env.commerce.updated)

	w := env.do(t, http.MethodPut, "/api/v1/cart/cart-1/lines/line-1", "", map[string]interface{}{"quantity": 0})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []string{"line-1"}, env.commerce.removed)
	assert.Empty(t, env.commerce.updated)
}

func TestCart_BenefitsSummaryLocale(t *testing.T) {
	env := newTestEnv(t)
	env.seedActiveMember(t, "cust-1")
	token := env.token(t, "cust-1", false)

	expected, result := env.cartService.Summary(context.Background(), "cart-1", "cust-1", "ar")
	require.True(t, result.Success)

	w := env.do(t, http.MethodGet, "/api/v1/cart/cart-1/benefits", token, nil, "Accept-Language", "ar-AE,ar;q=0.9")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var summary cart.BenefitsSummary
	decodeData(t, w, &summary)
	assert.Equal(t, expected.StatusMessage, summary.StatusMessage)
	assert.True(t, summary.HasFreeDelivery)
	assert.Equal(t, "40", summary.TotalSavings.String())

	w = env.do(t, http.MethodGet, "/api/v1/cart/cart-1/benefits?locale=en", token, nil, "Accept-Language", "ar")
	decodeData(t, w, &summary)
	assert.Equal(t, "You're saving AED 40.00 with your membership", summary.StatusMessage)
}

func TestCart_ValidateMembership(t *testing.T) {
	env := newTestEnv(t)
	env.seedActiveMember(t, "cust-1")

	w := env.do(t, http.MethodGet, "/api/v1/cart/cart-1/membership", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/cart/cart-1/membership", env.token(t, "cust-1", false), nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var validation cart.CartMembershipValidation
	decodeData(t, w, &validation)
	assert.True(t, validation.Validation.IsActive)
	require.NotNil(t, validation.Membership)
	assert.Equal(t, "mem-cust-1", validation.Membership.ID)
}

func TestCart_CheckoutTracksBenefits(t *testing.T) {
	env := newTestEnv(t)
	env.seedActiveMember(t, "cust-1")

	w := env.do(t, http.MethodPost, "/api/v1/cart/cart-1/checkout", env.token(t, "cust-1", false), nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		CheckoutURL string               `json:"checkoutUrl"`
		Summary     cart.BenefitsSummary `json:"summary"`
	}
	decodeData(t, w, &resp)
	assert.Equal(t, "https://shop.example.com/checkout/cart-1", resp.CheckoutURL)
	assert.Equal(t, 1, resp.Summary.DiscountCount)

	events, err := env.events.Query(context.Background(), analytics.Filter{CustomerID: "cust-1"})
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.ElementsMatch(t,
		[]analytics.EventType{analytics.EventServiceDiscountApplied, analytics.EventFreeDeliveryUsed},
		[]analytics.EventType{events[0].Type, events[1].Type})
}

func TestCart_RepeatedCheckoutTracksOnce(t *testing.T) {
	env := newTestEnv(t)
	env.seedActiveMember(t, "cust-1")
	token := env.token(t, "cust-1", false)

	for i := 0; i < 3; i++ {
		w := env.do(t, http.MethodPost, "/api/v1/cart/cart-1/checkout", token, nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	}

	events, err := env.events.Query(context.Background(), analytics.Filter{CustomerID: "cust-1"})
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestCart_GuestCheckoutIsNotTracked(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/cart/cart-1/checkout", "", nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Zero(t, env.events.Len())
}
