package phone

import (
	"strings"

	"git.mci.dev/mse/sre/phoenix/golang/telecrm/internal/config"
	"github.com/nyaruka/phonenumbers"
)

const maxLength = 15

// Normalize returns the E.164 form of raw when it parses as a valid number
// for region (or the configured default region). Anything else is returned
// trimmed, so numbers from odd sources are never lost.
func Normalize(raw, region string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	if region == "" {
		region = config.Conf.PhoneDefaultRegion
	}

	parsed, err := phonenumbers.Parse(trimmed, strings.ToUpper(region))
	if err != nil || !phonenumbers.IsValidNumber(parsed) {
		return trimmed
	}

	return phonenumbers.Format(parsed, phonenumbers.E164)
}

// Valid reports whether raw is short enough to be stored and contains at least
// one digit.
func Valid(raw string) bool {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" || len(trimmed) > maxLength+4 {
		return false
	}

	return strings.ContainsAny(trimmed, "0123456789")
}
