// internal/pkg/email/types.go
package email

import (
	"time"
)

// EmailType represents the type of email being sent
type EmailType string

const (
	EmailTypeMembershipWelcome   EmailType = "membership_welcome"
	EmailTypeMembershipRenewal   EmailType = "membership_renewal"
	EmailTypeMembershipCancelled EmailType = "membership_cancelled"
	EmailTypeMembershipExpired   EmailType = "membership_expired"
)

// Email represents an email message
type Email struct {
	To          []string               `json:"to"`
	Subject     string                 `json:"subject"`
	HTMLContent string                 `json:"html_content"`
	Type        EmailType              `json:"type"`
	Data        map[string]interface{} `json:"data,omitempty"`
}

// EmailTemplateData contains common data for all email templates
type EmailTemplateData struct {
	SiteName  string `json:"site_name"`
	SiteURL   string `json:"site_url"`
	UserEmail string `json:"user_email"`
	Year      int    `json:"year"`
}

// MembershipEmailData is rendered into every membership email
type MembershipEmailData struct {
	EmailTemplateData
	MembershipID     string   `json:"membership_id"`
	ExpirationDate   string   `json:"expiration_date"`
	DiscountPercent  string   `json:"discount_percent"`
	FreeDelivery     bool     `json:"free_delivery"`
	EligibleServices []string `json:"eligible_services"`
	AnnualFee        string   `json:"annual_fee"`
	RenewURL         string   `json:"renew_url"`
}

// GetBaseTemplateData returns the common template fields
func GetBaseTemplateData(siteName, siteURL, userEmail string) EmailTemplateData {
	return EmailTemplateData{
		SiteName:  siteName,
		SiteURL:   siteURL,
		UserEmail: userEmail,
		Year:      time.Now().Year(),
	}
}
