package membership

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/your-org/storefront-membership/internal/pkg/logger"
)

type recordingTracker struct {
	transitions []Transition
	fail        bool
}

func (r *recordingTracker) TrackLifecycle(_ context.Context, transition Transition, _ *Membership) error {
	r.transitions = append(r.transitions, transition)
	if r.fail {
		return errors.New("sink down")
	}
	return nil
}

type recordingNotifier struct {
	sent []string
}

func (r *recordingNotifier) NotifyMembership(_ context.Context, transition Transition, _ *Membership, email string) error {
	r.sent = append(r.sent, string(transition)+":"+email)
	return nil
}

func testPlan() Plan {
	return Plan{
		ServiceDiscount:  decimal.RequireFromString("0.15"),
		FreeDelivery:     true,
		EligibleServices: []string{"massage", "cleaning"},
		AnnualFee:        decimal.NewFromInt(99),
		Term:             365 * 24 * time.Hour,
	}
}

func newTestService(repo Repository) (*Service, *recordingTracker, *recordingNotifier) {
	tracker := &recordingTracker{}
	notifier := &recordingNotifier{}
	svc := NewService(repo, testPlan(), Validator{}, tracker, notifier, logger.Discard())
	svc.Now = func() time.Time { return testNow }
	return svc, tracker, notifier
}

func TestService_Signup(t *testing.T) {
	ctx := context.Background()
	svc, tracker, notifier := newTestService(NewMemoryRepository())

	m, err := svc.Signup(ctx, SignupRequest{CustomerID: "cust-9", Email: "a@example.com"})
	require.NoError(t, err)

	assert.NotEmpty(t, m.ID)
	assert.Equal(t, StatusActive, m.Status)
	assert.Equal(t, PaymentPaid, m.PaymentStatus)
	assert.Equal(t, testNow.Add(365*24*time.Hour), m.ExpirationDate)
	assert.True(t, m.Benefits.FreeDelivery)
	assert.Equal(t, []Transition{TransitionSignup}, tracker.transitions)
	assert.Equal(t, []string{"signup:a@example.com"}, notifier.sent)

	_, err = svc.Signup(ctx, SignupRequest{CustomerID: "cust-9"})
	assert.ErrorIs(t, err, ErrAlreadyMember)
}

func TestService_SignupPendingPayment(t *testing.T) {
	svc, _, _ := newTestService(NewMemoryRepository())

	m, err := svc.Signup(context.Background(), SignupRequest{CustomerID: "cust-9", PaymentStatus: PaymentPending})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, m.Status)
}

func TestService_SignupAfterExpiry(t *testing.T) {
	expired := *activeMembership(testNow)
	expired.ExpirationDate = testNow.AddDate(0, 0, -1)

	svc, _, _ := newTestService(NewMemoryRepository(expired))

	m, err := svc.Signup(context.Background(), SignupRequest{CustomerID: "cust-1"})
	require.NoError(t, err)
	assert.NotEqual(t, "mem-1", m.ID)
}

func TestService_RenewExtendsFromExpiration(t *testing.T) {
	current := *activeMembership(testNow)
	svc, tracker, _ := newTestService(NewMemoryRepository(current))

	m, err := svc.Renew(context.Background(), "cust-1", "")
	require.NoError(t, err)

	assert.Equal(t, current.ExpirationDate.Add(365*24*time.Hour), m.ExpirationDate)
	assert.Equal(t, []Transition{TransitionRenewal}, tracker.transitions)
}

func TestService_RenewExpiredRestartsTerm(t *testing.T) {
	expired := *activeMembership(testNow)
	expired.Status = StatusExpired
	expired.ExpirationDate = testNow.AddDate(0, -2, 0)

	svc, _, _ := newTestService(NewMemoryRepository(expired))

	m, err := svc.Renew(context.Background(), "cust-1", "")
	require.NoError(t, err)

	assert.Equal(t, StatusActive, m.Status)
	assert.Equal(t, testNow, m.StartDate)
	assert.Equal(t, testNow.Add(365*24*time.Hour), m.ExpirationDate)
}

func TestService_Cancel(t *testing.T) {
	svc, tracker, _ := newTestService(NewMemoryRepository(*activeMembership(testNow)))

	m, err := svc.Cancel(context.Background(), "cust-1", "")
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, m.Status)

	_, err = svc.Cancel(context.Background(), "cust-1", "")
	assert.ErrorIs(t, err, ErrInvalidTransition)
	assert.Equal(t, []Transition{TransitionCancel}, tracker.transitions)
}

func TestService_ExpireDue(t *testing.T) {
	overdue := *activeMembership(testNow)
	overdue.ExpirationDate = testNow.Add(-time.Hour)

	fresh := *activeMembership(testNow)
	fresh.ID = "mem-2"
	fresh.CustomerID = "cust-2"

	repo := NewMemoryRepository(overdue, fresh)
	svc, tracker, _ := newTestService(repo)

	candidates, err := svc.ExpireDue(context.Background(), true)
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Empty(t, tracker.transitions)

	expired, err := svc.ExpireDue(context.Background(), false)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, StatusExpired, expired[0].Status)
	assert.Equal(t, []Transition{TransitionExpire}, tracker.transitions)

	stored, err := repo.FindByID(context.Background(), "mem-1")
	require.NoError(t, err)
	assert.Equal(t, StatusExpired, stored.Status)
}

func TestService_TrackerFailureIsSwallowed(t *testing.T) {
	svc, tracker, _ := newTestService(NewMemoryRepository())
	tracker.fail = true

	_, err := svc.Signup(context.Background(), SignupRequest{CustomerID: "cust-3"})
	assert.NoError(t, err)
}

func TestService_Get(t *testing.T) {
	svc, _, _ := newTestService(NewMemoryRepository(*activeMembership(testNow)))

	m, validation, err := svc.Get(context.Background(), "cust-1")
	require.NoError(t, err)
	assert.NotNil(t, m)
	assert.True(t, validation.Eligible())

	m, validation, err = svc.Get(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Nil(t, m)
	assert.Equal(t, []string{MsgNoMembership}, validation.Errors)
}
