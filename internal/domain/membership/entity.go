// internal/domain/membership/entity.go
package membership

import (
	"database/sql/driver"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Status is the stored lifecycle state of a membership
type Status string

const (
	StatusActive    Status = "active"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
	StatusPending   Status = "pending"
)

// PaymentStatus is the state of the annual fee payment
type PaymentStatus string

const (
	PaymentPaid     PaymentStatus = "paid"
	PaymentPending  PaymentStatus = "pending"
	PaymentFailed   PaymentStatus = "failed"
	PaymentRefunded PaymentStatus = "refunded"
)

// Membership represents a customer's loyalty membership
type Membership struct {
	ID             string        `gorm:"primaryKey;type:varchar(36)" json:"id"`
	CustomerID     string        `gorm:"type:varchar(128);not null;index" json:"customerId"`
	Status         Status        `gorm:"type:varchar(20);not null;index" json:"status"`
	StartDate      time.Time     `gorm:"not null" json:"startDate"`
	ExpirationDate time.Time     `gorm:"not null;index" json:"expirationDate"`
	PaymentStatus  PaymentStatus `gorm:"type:varchar(20);not null" json:"paymentStatus"`
	Benefits       Benefits      `gorm:"embedded;embeddedPrefix:benefit_" json:"benefits"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

// TableName overrides the table name
func (Membership) TableName() string {
	return "memberships"
}

// Benefits describes what a membership entitles the customer to
type Benefits struct {
	ServiceDiscount  decimal.Decimal `gorm:"type:numeric(5,4);not null" json:"serviceDiscount"` // fraction, 0.15 = 15%
	FreeDelivery     bool            `gorm:"not null;default:false" json:"freeDelivery"`
	EligibleServices ServiceList     `gorm:"type:text" json:"eligibleServices"`
	AnnualFee        decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"annualFee"`
}

// ServiceList is a list of service identifiers stored as comma separated text
type ServiceList []string

// Contains reports whether the list holds the service id
func (l ServiceList) Contains(serviceID string) bool {
	for _, s := range l {
		if s == serviceID {
			return true
		}
	}
	return false
}

// Value implements driver.Valuer
func (l ServiceList) Value() (driver.Value, error) {
	return strings.Join(l, ","), nil
}

// Scan implements sql.Scanner
func (l *ServiceList) Scan(src interface{}) error {
	var raw string
	switch v := src.(type) {
	case nil:
		*l = nil
		return nil
	case string:
		raw = v
	case []byte:
		raw = string(v)
	default:
		return fmt.Errorf("cannot scan %T into ServiceList", src)
	}

	if raw == "" {
		*l = ServiceList{}
		return nil
	}

	parts := strings.Split(raw, ",")
	out := make(ServiceList, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	*l = out
	return nil
}

// ValidationResult is the classification of a membership at a point in time
type ValidationResult struct {
	IsValid             bool     `json:"isValid"`
	IsActive            bool     `json:"isActive"`
	IsExpired           bool     `json:"isExpired"`
	DaysUntilExpiration int      `json:"daysUntilExpiration"`
	RequiresRenewal     bool     `json:"requiresRenewal"`
	Errors              []string `json:"errors"`
}

// Eligible reports whether benefits may be applied
func (v ValidationResult) Eligible() bool {
	return v.IsValid && v.IsActive
}

// DiscountResult is the outcome of pricing one service line for a member
type DiscountResult struct {
	OriginalPrice      decimal.Decimal `json:"originalPrice"`
	DiscountAmount     decimal.Decimal `json:"discountAmount"`
	DiscountPercentage decimal.Decimal `json:"discountPercentage"`
	FinalPrice         decimal.Decimal `json:"finalPrice"`
	Savings            decimal.Decimal `json:"savings"`
}

// Plan holds the terms new and renewed memberships are issued with
type Plan struct {
	ServiceDiscount  decimal.Decimal
	FreeDelivery     bool
	EligibleServices []string
	AnnualFee        decimal.Decimal
	Term             time.Duration
}

// Benefits returns the benefits descriptor for this plan
func (p Plan) Benefits() Benefits {
	services := make(ServiceList, len(p.EligibleServices))
	copy(services, p.EligibleServices)

	return Benefits{
		ServiceDiscount:  p.ServiceDiscount,
		FreeDelivery:     p.FreeDelivery,
		EligibleServices: services,
		AnnualFee:        p.AnnualFee,
	}
}
