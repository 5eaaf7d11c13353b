package handlers

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-membership/internal/domain/analytics"
	"github.com/your-org/storefront-membership/internal/domain/membership"
)

func TestMembership_Lifecycle(t *testing.T) {
	env := newTestEnv(t)
	token := env.token(t, "cust-1", false)

	w := env.do(t, http.MethodGet, "/api/v1/membership", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var none struct {
		Membership *membership.Membership     `json:"membership"`
		Validation membership.ValidationResult `json:"validation"`
	}
	decodeData(t, w, &none)
	assert.Nil(t, none.Membership)
	assert.Equal(t, []string{membership.MsgNoMembership}, none.Validation.Errors)

	w = env.do(t, http.MethodPost, "/api/v1/membership/signup", token, nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created membership.Membership
	decodeData(t, w, &created)
	assert.Equal(t, "cust-1", created.CustomerID)
	assert.Equal(t, membership.StatusActive, created.Status)
	assert.Equal(t, "99", created.Benefits.AnnualFee.String())

	w = env.do(t, http.MethodPost, "/api/v1/membership/signup", token, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/membership/renew", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var renewed membership.Membership
	decodeData(t, w, &renewed)
	assert.True(t, renewed.ExpirationDate.After(created.ExpirationDate))

	w = env.do(t, http.MethodPost, "/api/v1/membership/cancel", token, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = env.do(t, http.MethodPost, "/api/v1/membership/cancel", token, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	events, err := env.events.Query(context.Background(), analytics.Filter{CustomerID: "cust-1"})
	require.NoError(t, err)
	types := make([]analytics.EventType, 0, len(events))
	for _, e := range events {
		types = append(types, e.Type)
	}
	assert.Equal(t, []analytics.EventType{
		analytics.EventMembershipSignup,
		analytics.EventMembershipRenewal,
		analytics.EventMembershipCancelled,
	}, types)
}

func TestMembership_PendingPayment(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/membership/signup", env.token(t, "cust-1", false),
		map[string]string{"paymentStatus": "pending"})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var created membership.Membership
	decodeData(t, w, &created)
	assert.Equal(t, membership.StatusPending, created.Status)
}

func TestMembership_RenewWithoutMembership(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/membership/renew", env.token(t, "cust-1", false), nil)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMembership_AdminRoutesNeedStaff(t *testing.T) {
	env := newTestEnv(t)
	env.seedActiveMember(t, "cust-1")

	w := env.do(t, http.MethodGet, "/api/v1/admin/memberships/cust-1", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = env.do(t, http.MethodGet, "/api/v1/admin/memberships/cust-1", env.token(t, "cust-1", false), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = env.do(t, http.MethodPost, "/api/v1/admin/memberships/expire", env.token(t, "cust-1", false), nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	staff := env.token(t, "ops-1", true)
	w = env.do(t, http.MethodGet, "/api/v1/admin/memberships/cust-1", staff, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var found struct {
		Membership *membership.Membership     `json:"membership"`
		Validation membership.ValidationResult `json:"validation"`
	}
	decodeData(t, w, &found)
	require.NotNil(t, found.Membership)
	assert.Equal(t, "mem-cust-1", found.Membership.ID)
	assert.True(t, found.Validation.IsActive)

	w = env.do(t, http.MethodGet, "/api/v1/admin/memberships/nobody", staff, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestMembership_AdminExpireDue(t *testing.T) {
	env := newTestEnv(t)
	staff := env.token(t, "ops-1", true)

	now := time.Now().UTC()
	require.NoError(t, env.memberships.Save(context.Background(), &membership.Membership{
		ID:             "mem-lapsed",
		CustomerID:     "cust-2",
		Status:         membership.StatusActive,
		StartDate:      now.AddDate(-1, 0, -1),
		ExpirationDate: now.AddDate(0, 0, -1),
		PaymentStatus:  membership.PaymentPaid,
	}))

	w := env.do(t, http.MethodPost, "/api/v1/admin/memberships/expire?dryRun=true", staff, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var result struct {
		DryRun bool `json:"dryRun"`
		Count  int  `json:"count"`
	}
	decodeData(t, w, &result)
	assert.True(t, result.DryRun)
	assert.Equal(t, 1, result.Count)

	m, err := env.memberships.FindByID(context.Background(), "mem-lapsed")
	require.NoError(t, err)
	assert.Equal(t, membership.StatusActive, m.Status)

	w = env.do(t, http.MethodPost, "/api/v1/admin/memberships/expire", staff, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decodeData(t, w, &result)
	assert.False(t, result.DryRun)
	assert.Equal(t, 1, result.Count)

	m, err = env.memberships.FindByID(context.Background(), "mem-lapsed")
	require.NoError(t, err)
	assert.Equal(t, membership.StatusExpired, m.Status)

	w = env.do(t, http.MethodPost, "/api/v1/admin/memberships/expire?dryRun=maybe", staff, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
