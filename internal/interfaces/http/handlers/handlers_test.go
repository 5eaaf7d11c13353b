package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-membership/internal/config"
	"github.com/your-org/storefront-membership/internal/domain/analytics"
	"github.com/your-org/storefront-membership/internal/domain/cart"
	"github.com/your-org/storefront-membership/internal/domain/membership"
	"github.com/your-org/storefront-membership/internal/interfaces/http/middleware"
	"github.com/your-org/storefront-membership/internal/pkg/auth"
	"github.com/your-org/storefront-membership/internal/pkg/logger"
)

type fakeCommerce struct {
	cart    *cart.Cart
	err     error
	updated []cart.LineUpdate
	removed []string
}

func (f *fakeCommerce) CreateCart(context.Context, []cart.LineInput) (*cart.Cart, error) {
	return f.cart, f.err
}

func (f *fakeCommerce) GetCart(context.Context, string) (*cart.Cart, error) {
	return f.cart, f.err
}

func (f *fakeCommerce) AddLines(context.Context, string, []cart.LineInput) (*cart.Cart, error) {
	return f.cart, f.err
}

func (f *fakeCommerce) UpdateLines(_ context.Context, _ string, lines []cart.LineUpdate) (*cart.Cart, error) {
	f.updated = append(f.updated, lines...)
	return f.cart, f.err
}

func (f *fakeCommerce) RemoveLines(_ context.Context, _ string, ids []string) (*cart.Cart, error) {
	f.removed = append(f.removed, ids...)
	return f.cart, f.err
}

type stubRenderer struct{}

func (stubRenderer) RenderAnalyticsReport(*analytics.ExportDocument) ([]byte, error) {
	return []byte("%PDF-1.4 stub"), nil
}

func aed(amount string) cart.Money {
	return cart.Money{Amount: decimal.RequireFromString(amount), CurrencyCode: "AED"}
}

func massageCart() *cart.Cart {
	return &cart.Cart{
		ID:            "cart-1",
		CheckoutURL:   "https://shop.example.com/checkout/cart-1",
		TotalQuantity: 1,
		Lines: []cart.CartLine{{
			ID:       "line-1",
			Quantity: 1,
			Cost:     cart.LineCost{TotalAmount: aed("100.00"), AmountPerQuantity: aed("100.00")},
			Merchandise: cart.Merchandise{
				ID:      "variant-1",
				Product: cart.Product{ID: "product-1", Handle: "home-massage-spa", Title: "Home Massage"},
			},
		}},
		Cost: cart.CartCost{
			SubtotalAmount: aed("100.00"),
			TotalAmount:    aed("125.00"),
			TotalTaxAmount: aed("0"),
		},
	}
}

type testEnv struct {
	router      *gin.Engine
	jwt         *auth.JWTManager
	memberships *membership.MemoryRepository
	events      *analytics.MemoryStore
	commerce    *fakeCommerce
	cartService *cart.Service
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		JWT: config.JWTConfig{Secret: "test-secret", Issuer: "storefront", AccessTokenExpiry: time.Hour},
		Membership: config.MembershipConfig{
			StandardDeliveryCost: decimal.NewFromInt(25),
			AnnualFee:            decimal.NewFromInt(99),
			ServiceDiscount:      decimal.RequireFromString("0.15"),
			EligibleServices:     []string{"massage", "cleaning"},
			Term:                 365 * 24 * time.Hour,
		},
		Analytics: config.AnalyticsConfig{ForwardTimeout: time.Second},
	}
	log := logger.Discard()

	repo := membership.NewMemoryRepository()
	store := analytics.NewMemoryStore()
	analyticsService := analytics.NewService(store, nil, repo, cfg, nil, log)
	t.Cleanup(analyticsService.Flush)

	membershipService := membership.NewService(repo, membership.PlanFromConfig(cfg), membership.Validator{}, analyticsService, nil, log)

	fc := &fakeCommerce{cart: massageCart()}
	aggregator := cart.NewAggregator(cart.AggregatorConfig{
		Memberships:          repo,
		StandardDeliveryCost: cfg.Membership.StandardDeliveryCost,
		DefaultCurrency:      "AED",
		Logger:               log,
	})
	cartService := cart.NewService(fc, aggregator, analyticsService, log)

	jwtManager := auth.NewJWTManager(cfg.JWT)
	router := gin.New()

	analyticsHandler := NewAnalyticsHandler(analyticsService, stubRenderer{}, log)
	analyticsGroup := router.Group("/api/membership/analytics", middleware.AuthMiddleware(jwtManager))
	analyticsGroup.GET("", analyticsHandler.Get)
	analyticsGroup.POST("", analyticsHandler.Track)

	membershipHandler := NewMembershipHandler(membershipService, log)
	membershipGroup := router.Group("/api/v1/membership", middleware.AuthMiddleware(jwtManager))
	membershipGroup.GET("", membershipHandler.GetMembership)
	membershipGroup.POST("/signup", membershipHandler.Signup)
	membershipGroup.POST("/renew", membershipHandler.Renew)
	membershipGroup.POST("/cancel", membershipHandler.Cancel)

	adminGroup := router.Group("/api/v1/admin", middleware.AuthMiddleware(jwtManager), middleware.StaffMiddleware())
	adminGroup.GET("/memberships/:customerId", membershipHandler.GetCustomerMembership)
	adminGroup.POST("/memberships/expire", membershipHandler.ExpireDue)

	cartHandler := NewCartHandler(cartService, log)
	cartGroup := router.Group("/api/v1/cart", middleware.OptionalAuthMiddleware(jwtManager))
	cartGroup.POST("", cartHandler.CreateCart)
	cartGroup.GET("/:id", cartHandler.GetCart)
	cartGroup.POST("/:id/lines", cartHandler.AddLine)
	cartGroup.PUT("/:id/lines/:lineId", cartHandler.UpdateLine)
	cartGroup.DELETE("/:id/lines/:lineId", cartHandler.RemoveLine)
	cartGroup.GET("/:id/benefits", cartHandler.GetBenefits)
	cartGroup.GET("/:id/membership", cartHandler.ValidateMembership)
	cartGroup.POST("/:id/checkout", cartHandler.Checkout)

	return &testEnv{
		router:      router,
		jwt:         jwtManager,
		memberships: repo,
		events:      store,
		commerce:    fc,
		cartService: cartService,
	}
}

func (e *testEnv) token(t *testing.T, customerID string, staff bool) string {
	t.Helper()
	token, err := e.jwt.GenerateAccessToken(customerID, customerID+"@example.com", staff)
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(t *testing.T, method, path, token string, body interface{}, headers ...string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) seedActiveMember(t *testing.T, customerID string) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, e.memberships.Save(context.Background(), &membership.Membership{
		ID:             "mem-" + customerID,
		CustomerID:     customerID,
		Status:         membership.StatusActive,
		StartDate:      now.AddDate(0, -1, 0),
		ExpirationDate: now.AddDate(0, 11, 0),
		PaymentStatus:  membership.PaymentPaid,
		Benefits: membership.Benefits{
			ServiceDiscount:  decimal.RequireFromString("0.15"),
			FreeDelivery:     true,
			EligibleServices: membership.ServiceList{"massage", "cleaning"},
			AnnualFee:        decimal.NewFromInt(99),
		},
	}))
}

type envelope struct {
	Success   bool            `json:"success"`
	Data      json.RawMessage `json:"data"`
	Timestamp string          `json:"timestamp"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	return env
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder, out interface{}) {
	t.Helper()
	env := decode(t, w)
	require.True(t, env.Success, w.Body.String())
	require.NoError(t, json.Unmarshal(env.Data, out))
}
