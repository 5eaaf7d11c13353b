// internal/domain/analytics/entity.go
package analytics

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// EventType tags a membership analytics event
type EventType string

const (
	EventMembershipSignup       EventType = "membership_signup"
	EventMembershipRenewal      EventType = "membership_renewal"
	EventServiceDiscountApplied EventType = "service_discount_applied"
	EventFreeDeliveryUsed       EventType = "free_delivery_used"
	EventMembershipCancelled    EventType = "membership_cancelled"
	EventMembershipExpired      EventType = "membership_expired"
	EventSavingsMilestone       EventType = "savings_milestone"
	EventEngagement             EventType = "engagement"
)

var eventTypes = map[EventType]bool{
	EventMembershipSignup:       true,
	EventMembershipRenewal:      true,
	EventServiceDiscountApplied: true,
	EventFreeDeliveryUsed:       true,
	EventMembershipCancelled:    true,
	EventMembershipExpired:      true,
	EventSavingsMilestone:       true,
	EventEngagement:             true,
}

// Valid reports whether t is a known event type
func (t EventType) Valid() bool {
	return eventTypes[t]
}

// ErrInvalidEvent is returned when an event cannot be tracked
var ErrInvalidEvent = errors.New("invalid analytics event")

// Data is the free-form payload of an event
type Data map[string]interface{}

// Value implements driver.Valuer
func (d Data) Value() (driver.Value, error) {
	if d == nil {
		return "{}", nil
	}
	b, err := json.Marshal(d)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (d *Data) Scan(src interface{}) error {
	var raw []byte
	switch v := src.(type) {
	case nil:
		*d = Data{}
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported data type %T", src)
	}
	return json.Unmarshal(raw, d)
}

// Event is one append-only membership analytics record
type Event struct {
	ID           string          `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Type         EventType       `json:"type" gorm:"type:varchar(40);not null;index"`
	MembershipID string          `json:"membershipId,omitempty" gorm:"type:varchar(36);index"`
	CustomerID   string          `json:"customerId" gorm:"type:varchar(100);not null;index"`
	ServiceID    string          `json:"serviceId,omitempty" gorm:"type:varchar(60)"`
	Amount       decimal.Decimal `json:"amount" gorm:"type:numeric(12,2);not null;default:0"`
	OrderValue   decimal.Decimal `json:"orderValue" gorm:"type:numeric(12,2);not null;default:0"`
	Data         Data            `json:"data,omitempty" gorm:"type:jsonb"`
	Timestamp    time.Time       `json:"timestamp" gorm:"not null;index"`
}

func (Event) TableName() string {
	return "membership_analytics_events"
}

// Validate checks the fields every event needs
func (e *Event) Validate() error {
	if !e.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, e.Type)
	}
	if e.CustomerID == "" {
		return fmt.Errorf("%w: customer id is required", ErrInvalidEvent)
	}
	if e.Amount.IsNegative() || e.OrderValue.IsNegative() {
		return fmt.Errorf("%w: amounts cannot be negative", ErrInvalidEvent)
	}
	return nil
}

// Filter selects events from a Store. Zero fields match everything.
type Filter struct {
	CustomerID string
	Types      []EventType
	Since      time.Time
	Until      time.Time
}

// Matches reports whether e passes the filter. Until is exclusive.
func (f Filter) Matches(e *Event) bool {
	if f.CustomerID != "" && e.CustomerID != f.CustomerID {
		return false
	}
	if !f.Since.IsZero() && e.Timestamp.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && !e.Timestamp.Before(f.Until) {
		return false
	}
	if len(f.Types) == 0 {
		return true
	}
	for _, t := range f.Types {
		if e.Type == t {
			return true
		}
	}
	return false
}

// ServiceUsage is the discount usage of one service by one customer
type ServiceUsage struct {
	ServiceID         string          `json:"serviceId"`
	UsageCount        int             `json:"usageCount"`
	TotalSavings      decimal.Decimal `json:"totalSavings"`
	AverageOrderValue decimal.Decimal `json:"averageOrderValue"`
	LastUsed          time.Time       `json:"lastUsed"`
}

// UsageMetrics groups a customer's discount usage by service
type UsageMetrics struct {
	CustomerID   string          `json:"customerId"`
	Services     []ServiceUsage  `json:"services"`
	TotalUsage   int             `json:"totalUsage"`
	TotalSavings decimal.Decimal `json:"totalSavings"`
}

// EngagementMetrics scores how actively a customer uses the membership
type EngagementMetrics struct {
	CustomerID       string     `json:"customerId"`
	Score            int        `json:"score"`
	RecentEvents     int        `json:"recentEvents"`
	ServiceUsages    int        `json:"serviceUsages"`
	EngagementEvents int        `json:"engagementEvents"`
	LastActivity     *time.Time `json:"lastActivity,omitempty"`
}

// SavingsBreakdown compares what a customer saved with what the membership cost
type SavingsBreakdown struct {
	CustomerID        string          `json:"customerId"`
	DiscountSavings   decimal.Decimal `json:"discountSavings"`
	DeliverySavings   decimal.Decimal `json:"deliverySavings"`
	TotalSavings      decimal.Decimal `json:"totalSavings"`
	MembershipFee     decimal.Decimal `json:"membershipFee"`
	NetValue          decimal.Decimal `json:"netValue"`
	ROI               decimal.Decimal `json:"roi"`
	DiscountCount     int             `json:"discountCount"`
	FreeDeliveryCount int             `json:"freeDeliveryCount"`
}

// Overview is everything the analytics endpoint reports for one customer
type Overview struct {
	Usage      UsageMetrics      `json:"usage"`
	Engagement EngagementMetrics `json:"engagement"`
	Savings    SavingsBreakdown  `json:"savings"`
}

// SystemAnalytics aggregates the whole membership program
type SystemAnalytics struct {
	TotalMembers     int64             `json:"totalMembers"`
	ActiveMembers    int64             `json:"activeMembers"`
	ExpiredMembers   int64             `json:"expiredMembers"`
	CancelledMembers int64             `json:"cancelledMembers"`
	PendingMembers   int64             `json:"pendingMembers"`
	Signups          int               `json:"signups"`
	Renewals         int               `json:"renewals"`
	Cancellations    int               `json:"cancellations"`
	Expirations      int               `json:"expirations"`
	RenewalRate      decimal.Decimal   `json:"renewalRate"`
	ChurnRate        decimal.Decimal   `json:"churnRate"`
	TotalSavings     decimal.Decimal   `json:"totalSavings"`
	AverageSavings   decimal.Decimal   `json:"averageSavings"`
	EventsByType     map[EventType]int `json:"eventsByType"`
	TopServices      []ServiceUsage    `json:"topServices"`
}

// Period is the bucket size of a report
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

// Valid reports whether p is a known period
func (p Period) Valid() bool {
	return p == PeriodDaily || p == PeriodWeekly || p == PeriodMonthly
}

// ReportBucket is one period of a report
type ReportBucket struct {
	Start           time.Time       `json:"start"`
	End             time.Time       `json:"end"`
	Signups         int             `json:"signups"`
	Renewals        int             `json:"renewals"`
	Cancellations   int             `json:"cancellations"`
	Expirations     int             `json:"expirations"`
	DiscountsUsed   int             `json:"discountsUsed"`
	FreeDeliveries  int             `json:"freeDeliveries"`
	Savings         decimal.Decimal `json:"savings"`
	ActiveCustomers int             `json:"activeCustomers"`
}

// Report is the program activity between Start and End in Period buckets
type Report struct {
	Period  Period         `json:"period"`
	Start   time.Time      `json:"start"`
	End     time.Time      `json:"end"`
	Buckets []ReportBucket `json:"buckets"`
	Totals  ReportBucket   `json:"totals"`
}
