// internal/domain/membership/validator.go
package membership

import (
	"math"
	"time"
)

// DefaultRenewalWindow is how close to expiration a membership starts asking for renewal
const DefaultRenewalWindow = 30 * 24 * time.Hour

const (
	MsgNoMembership      = "No membership found."
	MsgExpired           = "Membership has expired."
	MsgCancelled         = "Membership has been cancelled."
	MsgPendingActivation = "Membership is pending activation."
	MsgPaymentFailed     = "Membership payment failed."
)

// Validator classifies memberships. The zero value uses DefaultRenewalWindow.
type Validator struct {
	RenewalWindow time.Duration
}

// NewValidator creates a validator with the given renewal window
func NewValidator(renewalWindow time.Duration) Validator {
	return Validator{RenewalWindow: renewalWindow}
}

// Validate classifies a membership with the default renewal window
func Validate(m *Membership, now time.Time) ValidationResult {
	return Validator{}.Validate(m, now)
}

// Validate classifies m at now. It has no side effects.
func (v Validator) Validate(m *Membership, now time.Time) ValidationResult {
	if m == nil {
		return ValidationResult{
			Errors: []string{MsgNoMembership},
		}
	}

	window := v.RenewalWindow
	if window <= 0 {
		window = DefaultRenewalWindow
	}

	result := ValidationResult{Errors: []string{}}

	// The expiration date wins over whatever status was stored
	result.IsExpired = now.After(m.ExpirationDate) || m.Status == StatusExpired
	result.IsActive = m.Status == StatusActive && !result.IsExpired

	if !result.IsExpired {
		remaining := m.ExpirationDate.Sub(now)
		result.DaysUntilExpiration = int(math.Ceil(remaining.Hours() / 24))
	}

	switch {
	case result.IsExpired:
		result.Errors = append(result.Errors, MsgExpired)
	case m.Status == StatusCancelled:
		result.Errors = append(result.Errors, MsgCancelled)
	case m.Status == StatusPending:
		result.Errors = append(result.Errors, MsgPendingActivation)
	}

	if m.PaymentStatus == PaymentFailed {
		result.Errors = append(result.Errors, MsgPaymentFailed)
	}

	result.IsValid = len(result.Errors) == 0
	result.RequiresRenewal = result.IsExpired ||
		(result.IsActive && m.ExpirationDate.Sub(now) <= window)

	return result
}
