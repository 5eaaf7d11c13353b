// internal/pkg/email/service.go
package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-membership/internal/config"
	"github.com/your-org/storefront-membership/internal/domain/membership"
)

// EmailService sends membership notifications
type EmailService struct {
	config    config.EmailConfig
	siteURL   string
	templates map[EmailType]*template.Template
	client    *http.Client
	log       logrus.FieldLogger

	sendGridURL string
	resendURL   string
}

// NewEmailService creates a new email service
func NewEmailService(cfg *config.Config, log logrus.FieldLogger) *EmailService {
	return &EmailService{
		config:      cfg.Email,
		siteURL:     cfg.App.SiteURL,
		templates:   parseTemplates(),
		client:      &http.Client{Timeout: 30 * time.Second},
		log:         log,
		sendGridURL: "https://api.sendgrid.com/v3/mail/send",
		resendURL:   "https://api.resend.com/emails",
	}
}

// SendEmail sends an email using the configured provider
func (s *EmailService) SendEmail(ctx context.Context, email *Email) error {
	switch s.config.Provider {
	case "smtp":
		return s.sendSMTPEmail(email)
	case "resend":
		return s.sendResendEmail(ctx, email)
	case "sendgrid":
		return s.sendSendGridEmail(ctx, email)
	default:
		return fmt.Errorf("unsupported email provider: %s", s.config.Provider)
	}
}

// NotifyMembership e-mails the customer about a lifecycle transition.
// Nothing is sent while e-mail is disabled.
func (s *EmailService) NotifyMembership(ctx context.Context, transition membership.Transition, m *membership.Membership, to string) error {
	if !s.config.Enabled {
		return nil
	}
	if m == nil || to == "" {
		return fmt.Errorf("membership and recipient are required")
	}

	emailType, subject, err := membershipEmail(transition, s.config.FromName)
	if err != nil {
		return err
	}

	data := MembershipEmailData{
		EmailTemplateData: GetBaseTemplateData(s.config.FromName, s.siteURL, to),
		MembershipID:      m.ID,
		ExpirationDate:    m.ExpirationDate.Format("January 2, 2006"),
		DiscountPercent:   m.Benefits.ServiceDiscount.Mul(decimal.NewFromInt(100)).StringFixed(0),
		FreeDelivery:      m.Benefits.FreeDelivery,
		EligibleServices:  m.Benefits.EligibleServices,
		AnnualFee:         m.Benefits.AnnualFee.StringFixed(2),
		RenewURL:          s.siteURL + "/membership",
	}

	htmlContent, err := s.renderTemplate(emailType, data)
	if err != nil {
		return fmt.Errorf("failed to render %s template: %w", emailType, err)
	}

	err = s.SendEmail(ctx, &Email{
		To:          []string{to},
		Subject:     subject,
		HTMLContent: htmlContent,
		Type:        emailType,
		Data:        map[string]interface{}{"membership_id": m.ID},
	})
	if err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{
		"type":          emailType,
		"membership_id": m.ID,
	}).Info("Membership email sent")
	return nil
}

func membershipEmail(transition membership.Transition, siteName string) (EmailType, string, error) {
	switch transition {
	case membership.TransitionSignup:
		return EmailTypeMembershipWelcome, fmt.Sprintf("Welcome to %s membership!", siteName), nil
	case membership.TransitionRenewal:
		return EmailTypeMembershipRenewal, "Your membership has been renewed", nil
	case membership.TransitionCancel:
		return EmailTypeMembershipCancelled, "Your membership has been cancelled", nil
	case membership.TransitionExpire:
		return EmailTypeMembershipExpired, "Your membership has expired", nil
	default:
		return "", "", fmt.Errorf("no email for transition %q", transition)
	}
}

// renderTemplate renders an email template with data
func (s *EmailService) renderTemplate(name EmailType, data interface{}) (string, error) {
	tmpl, exists := s.templates[name]
	if !exists {
		return "", fmt.Errorf("template %s not found", name)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", name, err)
	}
	return buf.String(), nil
}

const layoutTemplate = `{{define "layout"}}<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"><title>{{.SiteName}}</title></head>
<body style="font-family: Arial, sans-serif; margin: 0; padding: 20px; background-color: #f4f4f4;">
  <div style="max-width: 600px; margin: 0 auto; background-color: white; padding: 20px; border-radius: 8px;">
    <h1 style="color: #333;">{{.SiteName}}</h1>
    {{template "body" .}}
    <hr>
    <p style="font-size: 12px; color: #666;">&copy; {{.Year}} {{.SiteName}}. All rights reserved.</p>
  </div>
</body>
</html>{{end}}`

var bodyTemplates = map[EmailType]string{
	EmailTypeMembershipWelcome: `{{define "body"}}
    <p>Welcome aboard! Your membership is active until {{.ExpirationDate}}.</p>
    <ul>
      <li>{{.DiscountPercent}}% off {{range $i, $s := .EligibleServices}}{{if $i}}, {{end}}{{$s}}{{end}}</li>
      {{if .FreeDelivery}}<li>Free delivery on every order</li>{{end}}
    </ul>{{end}}`,
	EmailTypeMembershipRenewal: `{{define "body"}}
    <p>Thank you for renewing. Your benefits continue until {{.ExpirationDate}}.</p>{{end}}`,
	EmailTypeMembershipCancelled: `{{define "body"}}
    <p>Your membership has been cancelled. You can rejoin at any time from <a href="{{.RenewURL}}">your account</a>.</p>{{end}}`,
	EmailTypeMembershipExpired: `{{define "body"}}
    <p>Your membership expired on {{.ExpirationDate}}. <a href="{{.RenewURL}}">Renew now</a> for {{.AnnualFee}} to keep saving {{.DiscountPercent}}% on services.</p>{{end}}`,
}

func parseTemplates() map[EmailType]*template.Template {
	templates := make(map[EmailType]*template.Template, len(bodyTemplates))
	for name, body := range bodyTemplates {
		tmpl := template.Must(template.New(string(name)).Parse(layoutTemplate))
		templates[name] = template.Must(tmpl.Parse(body)).Lookup("layout")
	}
	return templates
}
