// Package i18n resolves the storefront locale of a request.
package i18n

import (
	"golang.org/x/text/language"
)

// Supported storefront locales
const (
	English = "en"
	Arabic  = "ar"
)

var matcher = language.NewMatcher([]language.Tag{
	language.English,
	language.Arabic,
})

// Match picks the best supported locale for an explicit locale parameter
// or an Accept-Language header. English is the fallback.
func Match(preferences ...string) string {
	for _, pref := range preferences {
		if pref == "" {
			continue
		}
		tags, _, err := language.ParseAcceptLanguage(pref)
		if err != nil || len(tags) == 0 {
			continue
		}
		_, index, confidence := matcher.Match(tags...)
		if confidence == language.No {
			continue
		}
		if index == 1 {
			return Arabic
		}
		return English
	}
	return English
}

// IsRTL reports whether the locale is written right to left
func IsRTL(locale string) bool {
	return locale == Arabic
}
