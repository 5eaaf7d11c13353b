// internal/domain/cart/messages.go
package cart

import (
	"fmt"

	"github.com/shopspring/decimal"
)

const (
	LocaleEnglish = "en"
	LocaleArabic  = "ar"
)

type summaryMessages struct {
	saving  string
	active  string
	expired string
	none    string
}

var summaryCatalog = map[string]summaryMessages{
	LocaleEnglish: {
		saving:  "You're saving %s %s with your membership",
		active:  "Your membership is active",
		expired: "Your membership has expired. Renew to continue saving.",
		none:    "Join our membership to save on services and get free delivery",
	},
	LocaleArabic: {
		saving:  "أنت توفر %s %s مع عضويتك",
		active:  "عضويتك فعالة",
		expired: "انتهت صلاحية عضويتك. جدد عضويتك لمواصلة التوفير.",
		none:    "انضم إلى العضوية لتوفر على الخدمات وتحصل على توصيل مجاني",
	},
}

func statusMessage(locale string, status MembershipStatus, savings decimal.Decimal, currency string) string {
	msgs, ok := summaryCatalog[locale]
	if !ok {
		msgs = summaryCatalog[LocaleEnglish]
	}

	switch status {
	case MembershipActive:
		if savings.IsPositive() {
			return fmt.Sprintf(msgs.saving, currency, savings.StringFixed(2))
		}
		return msgs.active
	case MembershipExpired:
		return msgs.expired
	default:
		return msgs.none
	}
}
