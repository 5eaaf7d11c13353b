// internal/infrastructure/commerce/client.go
package commerce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-membership/internal/config"
	"github.com/your-org/storefront-membership/internal/domain/cart"
)

var (
	// ErrCartNotFound is returned when the platform has no cart with the given id
	ErrCartNotFound = errors.New("cart not found")
	// ErrNotConfigured is returned when no storefront endpoint is configured
	ErrNotConfigured = errors.New("commerce storefront is not configured")
)

const accessTokenHeader = "X-Shopify-Storefront-Access-Token"

// UserError is a validation error reported by a cart mutation
type UserError struct {
	Field   []string `json:"field"`
	Message string   `json:"message"`
}

// UserErrors is the list of validation errors of one mutation
type UserErrors []UserError

func (e UserErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, ue := range e {
		msgs = append(msgs, ue.Message)
	}
	return "commerce rejected cart change: " + strings.Join(msgs, "; ")
}

// Client talks to the headless commerce Storefront GraphQL API
type Client struct {
	endpoint string
	token    string
	http     *http.Client
	log      logrus.FieldLogger
}

// NewClient creates a new Storefront API client
func NewClient(cfg config.CommerceConfig, log logrus.FieldLogger) *Client {
	return &Client{
		endpoint: cfg.StorefrontURL,
		token:    cfg.AccessToken,
		http:     &http.Client{Timeout: cfg.Timeout},
		log:      log,
	}
}

const cartFields = `
fragment CartFields on Cart {
  id
  checkoutUrl
  totalQuantity
  cost {
    subtotalAmount { amount currencyCode }
    totalAmount { amount currencyCode }
    totalTaxAmount { amount currencyCode }
  }
  lines(first: 100) {
    edges {
      node {
        id
        quantity
        cost {
          totalAmount { amount currencyCode }
          amountPerQuantity { amount currencyCode }
        }
        merchandise {
          ... on ProductVariant {
            id
            title
            product { id handle title }
          }
        }
      }
    }
  }
}`

const (
	getCartQuery = `query getCart($cartId: ID!) {
  cart(id: $cartId) { ...CartFields }
}` + cartFields

	createCartMutation = `mutation cartCreate($input: CartInput!) {
  cartCreate(input: $input) { cart { ...CartFields } userErrors { field message } }
}` + cartFields

	addLinesMutation = `mutation cartLinesAdd($cartId: ID!, $lines: [CartLineInput!]!) {
  cartLinesAdd(cartId: $cartId, lines: $lines) { cart { ...CartFields } userErrors { field message } }
}` + cartFields

	updateLinesMutation = `mutation cartLinesUpdate($cartId: ID!, $lines: [CartLineUpdateInput!]!) {
  cartLinesUpdate(cartId: $cartId, lines: $lines) { cart { ...CartFields } userErrors { field message } }
}` + cartFields

	removeLinesMutation = `mutation cartLinesRemove($cartId: ID!, $lineIds: [ID!]!) {
  cartLinesRemove(cartId: $cartId, lineIds: $lineIds) { cart { ...CartFields } userErrors { field message } }
}` + cartFields
)

// GetCart fetches a cart by id
func (c *Client) GetCart(ctx context.Context, cartID string) (*cart.Cart, error) {
	var data struct {
		Cart *cartNode `json:"cart"`
	}
	if err := c.do(ctx, getCartQuery, map[string]interface{}{"cartId": cartID}, &data); err != nil {
		return nil, err
	}
	if data.Cart == nil {
		return nil, fmt.Errorf("%w: %s", ErrCartNotFound, cartID)
	}
	return data.Cart.toCart(), nil
}

// CreateCart creates a cart with the given lines
func (c *Client) CreateCart(ctx context.Context, lines []cart.LineInput) (*cart.Cart, error) {
	var data struct {
		Result mutationPayload `json:"cartCreate"`
	}
	input := map[string]interface{}{"lines": lineInputs(lines)}
	if err := c.do(ctx, createCartMutation, map[string]interface{}{"input": input}, &data); err != nil {
		return nil, err
	}
	return data.Result.result("")
}

// AddLines adds merchandise lines to a cart
func (c *Client) AddLines(ctx context.Context, cartID string, lines []cart.LineInput) (*cart.Cart, error) {
	var data struct {
		Result mutationPayload `json:"cartLinesAdd"`
	}
	vars := map[string]interface{}{"cartId": cartID, "lines": lineInputs(lines)}
	if err := c.do(ctx, addLinesMutation, vars, &data); err != nil {
		return nil, err
	}
	return data.Result.result(cartID)
}

// UpdateLines changes line quantities
func (c *Client) UpdateLines(ctx context.Context, cartID string, lines []cart.LineUpdate) (*cart.Cart, error) {
	updates := make([]map[string]interface{}, 0, len(lines))
	for _, l := range lines {
		updates = append(updates, map[string]interface{}{"id": l.ID, "quantity": l.Quantity})
	}

	var data struct {
		Result mutationPayload `json:"cartLinesUpdate"`
	}
	vars := map[string]interface{}{"cartId": cartID, "lines": updates}
	if err := c.do(ctx, updateLinesMutation, vars, &data); err != nil {
		return nil, err
	}
	return data.Result.result(cartID)
}

// RemoveLines removes lines from a cart
func (c *Client) RemoveLines(ctx context.Context, cartID string, lineIDs []string) (*cart.Cart, error) {
	var data struct {
		Result mutationPayload `json:"cartLinesRemove"`
	}
	vars := map[string]interface{}{"cartId": cartID, "lineIds": lineIDs}
	if err := c.do(ctx, removeLinesMutation, vars, &data); err != nil {
		return nil, err
	}
	return data.Result.result(cartID)
}

type graphQLRequest struct {
	Query     string                 `json:"query"`
	Variables map[string]interface{} `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

func (c *Client) do(ctx context.Context, query string, vars map[string]interface{}, out interface{}) error {
	if c.endpoint == "" {
		return ErrNotConfigured
	}

	body, err := json.Marshal(graphQLRequest{Query: query, Variables: vars})
	if err != nil {
		return fmt.Errorf("failed to marshal storefront request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create storefront request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set(accessTokenHeader, c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to call storefront API: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("failed to read storefront response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		c.log.WithField("status", resp.StatusCode).Warn("Storefront API returned an error status")
		return fmt.Errorf("storefront API returned status %d", resp.StatusCode)
	}

	var gql graphQLResponse
	if err := json.Unmarshal(raw, &gql); err != nil {
		return fmt.Errorf("failed to decode storefront response: %w", err)
	}
	if len(gql.Errors) > 0 {
		msgs := make([]string, 0, len(gql.Errors))
		for _, e := range gql.Errors {
			msgs = append(msgs, e.Message)
		}
		return fmt.Errorf("storefront API error: %s", strings.Join(msgs, "; "))
	}

	if err := json.Unmarshal(gql.Data, out); err != nil {
		return fmt.Errorf("failed to decode storefront data: %w", err)
	}
	return nil
}

type mutationPayload struct {
	Cart       *cartNode  `json:"cart"`
	UserErrors UserErrors `json:"userErrors"`
}

func (p mutationPayload) result(cartID string) (*cart.Cart, error) {
	if len(p.UserErrors) > 0 {
		return nil, p.UserErrors
	}
	if p.Cart == nil {
		return nil, fmt.Errorf("%w: %s", ErrCartNotFound, cartID)
	}
	return p.Cart.toCart(), nil
}

type moneyNode struct {
	Amount       decimal.Decimal `json:"amount"`
	CurrencyCode string          `json:"currencyCode"`
}

type cartNode struct {
	ID            string `json:"id"`
	CheckoutURL   string `json:"checkoutUrl"`
	TotalQuantity int    `json:"totalQuantity"`
	Cost          struct {
		SubtotalAmount moneyNode  `json:"subtotalAmount"`
		TotalAmount    moneyNode  `json:"totalAmount"`
		TotalTaxAmount *moneyNode `json:"totalTaxAmount"`
	} `json:"cost"`
	Lines struct {
		Edges []struct {
			Node lineNode `json:"node"`
		} `json:"edges"`
	} `json:"lines"`
}

type lineNode struct {
	ID       string `json:"id"`
	Quantity int    `json:"quantity"`
	Cost     struct {
		TotalAmount       moneyNode `json:"totalAmount"`
		AmountPerQuantity moneyNode `json:"amountPerQuantity"`
	} `json:"cost"`
	Merchandise struct {
		ID      string `json:"id"`
		Title   string `json:"title"`
		Product struct {
			ID     string `json:"id"`
			Handle string `json:"handle"`
			Title  string `json:"title"`
		} `json:"product"`
	} `json:"merchandise"`
}

func (m moneyNode) toMoney() cart.Money {
	return cart.Money{Amount: m.Amount, CurrencyCode: m.CurrencyCode}
}

func (n *cartNode) toCart() *cart.Cart {
	c := &cart.Cart{
		ID:            n.ID,
		CheckoutURL:   n.CheckoutURL,
		TotalQuantity: n.TotalQuantity,
		Lines:         make([]cart.CartLine, 0, len(n.Lines.Edges)),
		Cost: cart.CartCost{
			SubtotalAmount: n.Cost.SubtotalAmount.toMoney(),
			TotalAmount:    n.Cost.TotalAmount.toMoney(),
			TotalTaxAmount: cart.Money{Amount: decimal.Zero, CurrencyCode: n.Cost.TotalAmount.CurrencyCode},
		},
	}
	if n.Cost.TotalTaxAmount != nil {
		c.Cost.TotalTaxAmount = n.Cost.TotalTaxAmount.toMoney()
	}

	for _, edge := range n.Lines.Edges {
		l := edge.Node
		c.Lines = append(c.Lines, cart.CartLine{
			ID:       l.ID,
			Quantity: l.Quantity,
			Cost: cart.LineCost{
				TotalAmount:       l.Cost.TotalAmount.toMoney(),
				AmountPerQuantity: l.Cost.AmountPerQuantity.toMoney(),
			},
			Merchandise: cart.Merchandise{
				ID:    l.Merchandise.ID,
				Title: l.Merchandise.Title,
				Product: cart.Product{
					ID:     l.Merchandise.Product.ID,
					Handle: l.Merchandise.Product.Handle,
					Title:  l.Merchandise.Product.Title,
				},
			},
		})
	}
	return c
}

func lineInputs(lines []cart.LineInput) []map[string]interface{} {
	out := make([]map[string]interface{}, 0, len(lines))
	for _, l := range lines {
		out = append(out, map[string]interface{}{"merchandiseId": l.MerchandiseID, "quantity": l.Quantity})
	}
	return out
}
