// internal/domain/membership/service.go
package membership

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-membership/internal/config"
)

var (
	// ErrAlreadyMember is returned when signing up a customer with a live membership
	ErrAlreadyMember = errors.New("customer already has an active membership")
	// ErrInvalidTransition is returned for lifecycle changes the current status does not allow
	ErrInvalidTransition = errors.New("invalid membership transition")
)

// Transition names a lifecycle change
type Transition string

const (
	TransitionSignup  Transition = "signup"
	TransitionRenewal Transition = "renewal"
	TransitionCancel  Transition = "cancelled"
	TransitionExpire  Transition = "expired"
)

// Tracker records lifecycle transitions, normally into the analytics log
type Tracker interface {
	TrackLifecycle(ctx context.Context, transition Transition, m *Membership) error
}

// Notifier tells the customer about lifecycle transitions
type Notifier interface {
	NotifyMembership(ctx context.Context, transition Transition, m *Membership, email string) error
}

// SignupRequest represents a membership signup
type SignupRequest struct {
	CustomerID    string        `json:"customerId"`
	Email         string        `json:"email"`
	PaymentStatus PaymentStatus `json:"paymentStatus"`
}

// Service handles the membership lifecycle
type Service struct {
	repo      Repository
	plan      Plan
	validator Validator
	tracker   Tracker
	notifier  Notifier
	log       logrus.FieldLogger

	// Now is the service clock
	Now func() time.Time
}

// PlanFromConfig builds the membership plan from configuration
func PlanFromConfig(cfg *config.Config) Plan {
	return Plan{
		ServiceDiscount:  cfg.Membership.ServiceDiscount,
		FreeDelivery:     true,
		EligibleServices: cfg.Membership.EligibleServices,
		AnnualFee:        cfg.Membership.AnnualFee,
		Term:             cfg.Membership.Term,
	}
}

// NewService creates a new membership service. tracker and notifier may be nil.
func NewService(repo Repository, plan Plan, validator Validator, tracker Tracker, notifier Notifier, log logrus.FieldLogger) *Service {
	return &Service{
		repo:      repo,
		plan:      plan,
		validator: validator,
		tracker:   tracker,
		notifier:  notifier,
		log:       log,
		Now:       func() time.Time { return time.Now().UTC() },
	}
}

// Get returns the customer's membership together with its validation
func (s *Service) Get(ctx context.Context, customerID string) (*Membership, ValidationResult, error) {
	m, err := s.repo.FindByCustomerID(ctx, customerID)
	if err != nil {
		if errors.Is(err, ErrMembershipNotFound) {
			return nil, s.validator.Validate(nil, s.Now()), nil
		}
		return nil, ValidationResult{}, err
	}
	return m, s.validator.Validate(m, s.Now()), nil
}

// Signup creates a membership for the customer
func (s *Service) Signup(ctx context.Context, req SignupRequest) (*Membership, error) {
	if req.CustomerID == "" {
		return nil, fmt.Errorf("customer id is required")
	}

	now := s.Now()
	existing, err := s.repo.FindByCustomerID(ctx, req.CustomerID)
	if err != nil && !errors.Is(err, ErrMembershipNotFound) {
		return nil, err
	}
	if existing != nil && s.validator.Validate(existing, now).Eligible() {
		return nil, ErrAlreadyMember
	}

	payment := req.PaymentStatus
	if payment == "" {
		payment = PaymentPaid
	}
	status := StatusActive
	if payment != PaymentPaid {
		status = StatusPending
	}

	m := &Membership{
		ID:             uuid.New().String(),
		CustomerID:     req.CustomerID,
		Status:         status,
		StartDate:      now,
		ExpirationDate: now.Add(s.plan.Term),
		PaymentStatus:  payment,
		Benefits:       s.plan.Benefits(),
	}

	if err := s.repo.Save(ctx, m); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"membership_id": m.ID,
		"customer_id":   m.CustomerID,
		"status":        m.Status,
	}).Info("Membership created")

	s.afterTransition(ctx, TransitionSignup, m, req.Email)
	return m, nil
}

// Renew extends the customer's membership by one term. Renewal of a live
// membership extends from its current expiration date, otherwise from now.
func (s *Service) Renew(ctx context.Context, customerID, email string) (*Membership, error) {
	m, err := s.repo.FindByCustomerID(ctx, customerID)
	if err != nil {
		return nil, err
	}

	now := s.Now()
	base := now
	if m.ExpirationDate.After(now) && m.Status == StatusActive {
		base = m.ExpirationDate
	}

	m.Status = StatusActive
	m.PaymentStatus = PaymentPaid
	m.ExpirationDate = base.Add(s.plan.Term)
	if m.StartDate.IsZero() || base.Equal(now) {
		m.StartDate = now
	}

	if err := s.repo.Save(ctx, m); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"membership_id":   m.ID,
		"customer_id":     m.CustomerID,
		"expiration_date": m.ExpirationDate,
	}).Info("Membership renewed")

	s.afterTransition(ctx, TransitionRenewal, m, email)
	return m, nil
}

// Cancel cancels the customer's membership
func (s *Service) Cancel(ctx context.Context, customerID, email string) (*Membership, error) {
	m, err := s.repo.FindByCustomerID(ctx, customerID)
	if err != nil {
		return nil, err
	}

	if m.Status == StatusCancelled || m.Status == StatusExpired {
		return nil, fmt.Errorf("%w: membership is already %s", ErrInvalidTransition, m.Status)
	}

	m.Status = StatusCancelled
	if err := s.repo.Save(ctx, m); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"membership_id": m.ID,
		"customer_id":   m.CustomerID,
	}).Info("Membership cancelled")

	s.afterTransition(ctx, TransitionCancel, m, email)
	return m, nil
}

// ExpireDue marks every active membership past its expiration date as expired.
// With dryRun set nothing is written and the candidates are returned.
func (s *Service) ExpireDue(ctx context.Context, dryRun bool) ([]Membership, error) {
	due, err := s.repo.ListExpiring(ctx, s.Now())
	if err != nil {
		return nil, err
	}
	if dryRun {
		return due, nil
	}

	expired := make([]Membership, 0, len(due))
	for i := range due {
		m := due[i]
		m.Status = StatusExpired
		if err := s.repo.Save(ctx, &m); err != nil {
			return expired, err
		}
		s.afterTransition(ctx, TransitionExpire, &m, "")
		expired = append(expired, m)
	}

	s.log.WithField("count", len(expired)).Info("Expired overdue memberships")
	return expired, nil
}

// afterTransition tracks and notifies. Failures are logged, never returned.
func (s *Service) afterTransition(ctx context.Context, transition Transition, m *Membership, email string) {
	if s.tracker != nil {
		if err := s.tracker.TrackLifecycle(ctx, transition, m); err != nil {
			s.log.WithError(err).WithField("transition", transition).Warn("Failed to track membership transition")
		}
	}

	if s.notifier != nil && email != "" {
		if err := s.notifier.NotifyMembership(ctx, transition, m, email); err != nil {
			s.log.WithError(err).WithField("transition", transition).Warn("Failed to notify customer")
		}
	}
}
