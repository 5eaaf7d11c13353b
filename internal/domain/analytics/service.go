// internal/domain/analytics/service.go
package analytics

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-membership/internal/config"
	"github.com/your-org/storefront-membership/internal/domain/membership"
	"github.com/your-org/storefront-membership/internal/pkg/metrics"
)

const (
	engagementWindow   = 30 * 24 * time.Hour
	maxEngagementScore = 100
	topServicesLimit   = 5
	maxReportBuckets   = 1000
)

// ErrInvalidReport is returned for report requests with a bad period or range
var ErrInvalidReport = errors.New("invalid analytics report request")

var savingsTypes = []EventType{EventServiceDiscountApplied, EventFreeDeliveryUsed}

// MembershipReader is the membership data analytics reports on
type MembershipReader interface {
	FindByCustomerID(ctx context.Context, customerID string) (*membership.Membership, error)
	CountByStatus(ctx context.Context) (map[membership.Status]int64, error)
}

// Service handles membership analytics: it tracks events into the store,
// forwards them to the external sink and computes reports from the log
type Service struct {
	store          Store
	sink           Sink
	memberships    MembershipReader
	annualFee      decimal.Decimal
	milestones     []decimal.Decimal
	forwardTimeout time.Duration
	metrics        *metrics.Metrics
	log            logrus.FieldLogger

	forwarding sync.WaitGroup

	// Now is the service clock
	Now func() time.Time
}

// NewService creates a new analytics service. sink and memberships may be nil.
func NewService(store Store, sink Sink, memberships MembershipReader, cfg *config.Config, m *metrics.Metrics, log logrus.FieldLogger) *Service {
	if sink == nil {
		sink = NopSink{}
	}

	milestones := append([]decimal.Decimal(nil), cfg.Analytics.SavingsMilestones...)
	sort.Slice(milestones, func(i, j int) bool { return milestones[i].LessThan(milestones[j]) })

	timeout := cfg.Analytics.ForwardTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Service{
		store:          store,
		sink:           sink,
		memberships:    memberships,
		annualFee:      cfg.Membership.AnnualFee,
		milestones:     milestones,
		forwardTimeout: timeout,
		metrics:        m,
		log:            log,
		Now:            func() time.Time { return time.Now().UTC() },
	}
}

// Track appends e to the event log and forwards it to the sink in the
// background. Forwarding failures are logged, never returned.
func (s *Service) Track(ctx context.Context, e Event) (*Event, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}

	if err := s.record(ctx, &e); err != nil {
		return nil, err
	}

	if e.Type == EventServiceDiscountApplied || e.Type == EventFreeDeliveryUsed {
		s.checkMilestones(ctx, &e)
	}

	return &e, nil
}

// Flush waits for in-flight sink forwards
func (s *Service) Flush() {
	s.forwarding.Wait()
}

func (s *Service) record(ctx context.Context, e *Event) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = s.Now()
	}
	if e.Data == nil {
		e.Data = Data{}
	}

	if err := s.store.Append(ctx, e); err != nil {
		return err
	}
	s.metrics.EventTracked(string(e.Type))

	s.forward(*e)
	return nil
}

func (s *Service) forward(e Event) {
	s.forwarding.Add(1)
	go func() {
		defer s.forwarding.Done()

		ctx, cancel := context.WithTimeout(context.Background(), s.forwardTimeout)
		defer cancel()

		if err := s.sink.Forward(ctx, e); err != nil {
			s.metrics.ForwardFailed(s.sink.Name())
			s.log.WithError(err).WithFields(logrus.Fields{
				"event_id":   e.ID,
				"event_type": e.Type,
				"sink":       s.sink.Name(),
			}).Warn("Failed to forward analytics event")
		}
	}()
}

// checkMilestones records a savings_milestone for every configured
// milestone the customer's cumulative savings crossed with e
func (s *Service) checkMilestones(ctx context.Context, e *Event) {
	if len(s.milestones) == 0 || !e.Amount.IsPositive() {
		return
	}

	events, err := s.store.Query(ctx, Filter{CustomerID: e.CustomerID, Types: savingsTypes})
	if err != nil {
		s.log.WithError(err).WithField("customer_id", e.CustomerID).Warn("Failed to check savings milestones")
		return
	}

	after := decimal.Zero
	for i := range events {
		after = after.Add(events[i].Amount)
	}
	before := after.Sub(e.Amount)

	for _, milestone := range s.milestones {
		if before.LessThan(milestone) && after.GreaterThanOrEqual(milestone) {
			reached := Event{
				Type:         EventSavingsMilestone,
				MembershipID: e.MembershipID,
				CustomerID:   e.CustomerID,
				Amount:       milestone,
				Data: Data{
					"milestone":    milestone.String(),
					"totalSavings": after.String(),
				},
				Timestamp: e.Timestamp,
			}
			if err := s.record(ctx, &reached); err != nil {
				s.log.WithError(err).WithField("customer_id", e.CustomerID).Warn("Failed to record savings milestone")
			}
		}
	}
}

// UsageMetrics groups the customer's discount events by service
func (s *Service) UsageMetrics(ctx context.Context, customerID string) (*UsageMetrics, error) {
	events, err := s.store.Query(ctx, Filter{CustomerID: customerID, Types: []EventType{EventServiceDiscountApplied}})
	if err != nil {
		return nil, err
	}

	services := serviceUsage(events)
	usage := &UsageMetrics{
		CustomerID:   customerID,
		Services:     services,
		TotalSavings: decimal.Zero,
	}
	for _, u := range services {
		usage.TotalUsage += u.UsageCount
		usage.TotalSavings = usage.TotalSavings.Add(u.TotalSavings)
	}
	return usage, nil
}

// EngagementMetrics scores the customer: ten points per event in the last
// thirty days, five per service discount used and two per engagement
// event, capped at 100
func (s *Service) EngagementMetrics(ctx context.Context, customerID string) (*EngagementMetrics, error) {
	events, err := s.store.Query(ctx, Filter{CustomerID: customerID})
	if err != nil {
		return nil, err
	}

	cutoff := s.Now().Add(-engagementWindow)
	engagement := &EngagementMetrics{CustomerID: customerID}
	for i := range events {
		e := &events[i]
		if !e.Timestamp.Before(cutoff) {
			engagement.RecentEvents++
		}
		switch e.Type {
		case EventServiceDiscountApplied:
			engagement.ServiceUsages++
		case EventEngagement:
			engagement.EngagementEvents++
		}
		if engagement.LastActivity == nil || e.Timestamp.After(*engagement.LastActivity) {
			ts := e.Timestamp
			engagement.LastActivity = &ts
		}
	}

	score := 10*engagement.RecentEvents + 5*engagement.ServiceUsages + 2*engagement.EngagementEvents
	if score > maxEngagementScore {
		score = maxEngagementScore
	}
	engagement.Score = score
	return engagement, nil
}

// SavingsBreakdown compares the customer's tracked savings with the
// membership fee. ROI is zero when the fee is zero.
func (s *Service) SavingsBreakdown(ctx context.Context, customerID string) (*SavingsBreakdown, error) {
	events, err := s.store.Query(ctx, Filter{CustomerID: customerID, Types: savingsTypes})
	if err != nil {
		return nil, err
	}

	breakdown := &SavingsBreakdown{
		CustomerID:      customerID,
		DiscountSavings: decimal.Zero,
		DeliverySavings: decimal.Zero,
		MembershipFee:   s.membershipFee(ctx, customerID),
		ROI:             decimal.Zero,
	}
	for i := range events {
		switch events[i].Type {
		case EventServiceDiscountApplied:
			breakdown.DiscountSavings = breakdown.DiscountSavings.Add(events[i].Amount)
			breakdown.DiscountCount++
		case EventFreeDeliveryUsed:
			breakdown.DeliverySavings = breakdown.DeliverySavings.Add(events[i].Amount)
			breakdown.FreeDeliveryCount++
		}
	}

	breakdown.TotalSavings = breakdown.DiscountSavings.Add(breakdown.DeliverySavings)
	breakdown.NetValue = breakdown.TotalSavings.Sub(breakdown.MembershipFee)
	if breakdown.MembershipFee.IsPositive() {
		breakdown.ROI = breakdown.NetValue.Div(breakdown.MembershipFee).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return breakdown, nil
}

// Overview returns usage, engagement and savings for one customer
func (s *Service) Overview(ctx context.Context, customerID string) (*Overview, error) {
	usage, err := s.UsageMetrics(ctx, customerID)
	if err != nil {
		return nil, err
	}
	engagement, err := s.EngagementMetrics(ctx, customerID)
	if err != nil {
		return nil, err
	}
	savings, err := s.SavingsBreakdown(ctx, customerID)
	if err != nil {
		return nil, err
	}
	return &Overview{Usage: *usage, Engagement: *engagement, Savings: *savings}, nil
}

// SystemAnalytics aggregates membership counts and the whole event log
func (s *Service) SystemAnalytics(ctx context.Context) (*SystemAnalytics, error) {
	result := &SystemAnalytics{
		RenewalRate:    decimal.Zero,
		ChurnRate:      decimal.Zero,
		TotalSavings:   decimal.Zero,
		AverageSavings: decimal.Zero,
		EventsByType:   make(map[EventType]int),
	}

	if s.memberships != nil {
		counts, err := s.memberships.CountByStatus(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to count memberships: %w", err)
		}
		result.ActiveMembers = counts[membership.StatusActive]
		result.ExpiredMembers = counts[membership.StatusExpired]
		result.CancelledMembers = counts[membership.StatusCancelled]
		result.PendingMembers = counts[membership.StatusPending]
		for _, n := range counts {
			result.TotalMembers += n
		}
	}

	events, err := s.store.Query(ctx, Filter{})
	if err != nil {
		return nil, err
	}

	savers := make(map[string]bool)
	var discounts []Event
	for i := range events {
		e := &events[i]
		result.EventsByType[e.Type]++
		switch e.Type {
		case EventMembershipSignup:
			result.Signups++
		case EventMembershipRenewal:
			result.Renewals++
		case EventMembershipCancelled:
			result.Cancellations++
		case EventMembershipExpired:
			result.Expirations++
		case EventServiceDiscountApplied, EventFreeDeliveryUsed:
			result.TotalSavings = result.TotalSavings.Add(e.Amount)
			savers[e.CustomerID] = true
			if e.Type == EventServiceDiscountApplied {
				discounts = append(discounts, *e)
			}
		}
	}

	if ended := result.Renewals + result.Expirations; ended > 0 {
		result.RenewalRate = percentage(int64(result.Renewals), int64(ended))
	}
	if result.TotalMembers > 0 {
		result.ChurnRate = percentage(int64(result.Cancellations+result.Expirations), result.TotalMembers)
	}
	if len(savers) > 0 {
		result.AverageSavings = result.TotalSavings.Div(decimal.NewFromInt(int64(len(savers)))).Round(2)
	}

	result.TopServices = serviceUsage(discounts)
	if len(result.TopServices) > topServicesLimit {
		result.TopServices = result.TopServices[:topServicesLimit]
	}
	return result, nil
}

// Report buckets program activity between start and end (exclusive) by period
func (s *Service) Report(ctx context.Context, period Period, start, end time.Time) (*Report, error) {
	if !period.Valid() {
		return nil, fmt.Errorf("%w: unsupported period %q", ErrInvalidReport, period)
	}
	if start.IsZero() || end.IsZero() || !end.After(start) {
		return nil, fmt.Errorf("%w: end date must be after start date", ErrInvalidReport)
	}

	start, end = start.UTC(), end.UTC()
	buckets, err := reportBuckets(period, start, end)
	if err != nil {
		return nil, err
	}

	events, err := s.store.Query(ctx, Filter{Since: start, Until: end})
	if err != nil {
		return nil, err
	}

	report := &Report{
		Period:  period,
		Start:   start,
		End:     end,
		Buckets: buckets,
		Totals:  ReportBucket{Start: start, End: end, Savings: decimal.Zero},
	}

	perBucket := make([]map[string]bool, len(buckets))
	for i := range perBucket {
		perBucket[i] = make(map[string]bool)
	}
	everyone := make(map[string]bool)

	for i := range events {
		e := &events[i]
		idx := sort.Search(len(buckets), func(j int) bool { return buckets[j].End.After(e.Timestamp) })
		if idx == len(buckets) {
			continue
		}
		addToBucket(&report.Buckets[idx], e)
		addToBucket(&report.Totals, e)
		perBucket[idx][e.CustomerID] = true
		everyone[e.CustomerID] = true
	}

	for i := range report.Buckets {
		report.Buckets[i].ActiveCustomers = len(perBucket[i])
	}
	report.Totals.ActiveCustomers = len(everyone)
	return report, nil
}

// TrackLifecycle records a membership lifecycle transition
func (s *Service) TrackLifecycle(ctx context.Context, transition membership.Transition, m *membership.Membership) error {
	if m == nil {
		return fmt.Errorf("%w: membership is required", ErrInvalidEvent)
	}

	var eventType EventType
	switch transition {
	case membership.TransitionSignup:
		eventType = EventMembershipSignup
	case membership.TransitionRenewal:
		eventType = EventMembershipRenewal
	case membership.TransitionCancel:
		eventType = EventMembershipCancelled
	case membership.TransitionExpire:
		eventType = EventMembershipExpired
	default:
		return fmt.Errorf("%w: unknown transition %q", ErrInvalidEvent, transition)
	}

	s.metrics.MembershipTransition(string(transition))

	e := Event{
		Type:         eventType,
		MembershipID: m.ID,
		CustomerID:   m.CustomerID,
		Amount:       decimal.Zero,
		OrderValue:   decimal.Zero,
		Data: Data{
			"status":         string(m.Status),
			"paymentStatus":  string(m.PaymentStatus),
			"expirationDate": m.ExpirationDate.Format(time.RFC3339),
		},
	}
	if eventType == EventMembershipSignup || eventType == EventMembershipRenewal {
		e.Amount = m.Benefits.AnnualFee
	}

	_, err := s.Track(ctx, e)
	return err
}

func (s *Service) membershipFee(ctx context.Context, customerID string) decimal.Decimal {
	if s.memberships == nil || customerID == "" {
		return s.annualFee
	}

	m, err := s.memberships.FindByCustomerID(ctx, customerID)
	if err != nil {
		if !errors.Is(err, membership.ErrMembershipNotFound) {
			s.log.WithError(err).WithField("customer_id", customerID).Warn("Falling back to configured membership fee")
		}
		return s.annualFee
	}
	return m.Benefits.AnnualFee
}

func serviceUsage(events []Event) []ServiceUsage {
	byService := make(map[string]*ServiceUsage)
	orderValues := make(map[string]decimal.Decimal)

	for i := range events {
		e := &events[i]
		id := e.ServiceID
		if id == "" {
			id = "unknown"
		}
		u, ok := byService[id]
		if !ok {
			u = &ServiceUsage{ServiceID: id, TotalSavings: decimal.Zero, AverageOrderValue: decimal.Zero}
			byService[id] = u
			orderValues[id] = decimal.Zero
		}
		u.UsageCount++
		u.TotalSavings = u.TotalSavings.Add(e.Amount)
		orderValues[id] = orderValues[id].Add(e.OrderValue)
		if e.Timestamp.After(u.LastUsed) {
			u.LastUsed = e.Timestamp
		}
	}

	out := make([]ServiceUsage, 0, len(byService))
	for id, u := range byService {
		u.AverageOrderValue = orderValues[id].Div(decimal.NewFromInt(int64(u.UsageCount))).Round(2)
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UsageCount != out[j].UsageCount {
			return out[i].UsageCount > out[j].UsageCount
		}
		return out[i].ServiceID < out[j].ServiceID
	})
	return out
}

func reportBuckets(period Period, start, end time.Time) ([]ReportBucket, error) {
	var cursor time.Time
	switch period {
	case PeriodMonthly:
		cursor = time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		cursor = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)
	}

	var buckets []ReportBucket
	for cursor.Before(end) {
		if len(buckets) == maxReportBuckets {
			return nil, fmt.Errorf("%w: range spans more than %d %s buckets", ErrInvalidReport, maxReportBuckets, period)
		}

		var next time.Time
		switch period {
		case PeriodDaily:
			next = cursor.AddDate(0, 0, 1)
		case PeriodWeekly:
			next = cursor.AddDate(0, 0, 7)
		case PeriodMonthly:
			next = cursor.AddDate(0, 1, 0)
		}
		buckets = append(buckets, ReportBucket{Start: cursor, End: next, Savings: decimal.Zero})
		cursor = next
	}
	return buckets, nil
}

func addToBucket(b *ReportBucket, e *Event) {
	switch e.Type {
	case EventMembershipSignup:
		b.Signups++
	case EventMembershipRenewal:
		b.Renewals++
	case EventMembershipCancelled:
		b.Cancellations++
	case EventMembershipExpired:
		b.Expirations++
	case EventServiceDiscountApplied:
		b.DiscountsUsed++
		b.Savings = b.Savings.Add(e.Amount)
	case EventFreeDeliveryUsed:
		b.FreeDeliveries++
		b.Savings = b.Savings.Add(e.Amount)
	}
}

func percentage(part, whole int64) decimal.Decimal {
	return decimal.NewFromInt(part).Div(decimal.NewFromInt(whole)).Mul(decimal.NewFromInt(100)).Round(2)
}
