package leads

import (
	"regexp"
	"strings"
)

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

func validEmail(email string) bool {
	return emailPattern.MatchString(email)
}

func digitsOnly(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// validPhone accepts anything with at least ten digits; formatting characters
// are ignored.
func validPhone(phone string) bool {
	return len(digitsOnly(phone)) >= 10
}

// validUSPhone is the stricter demo-flow rule: exactly ten digits, since the
// number will be dialed as a US number.
func validUSPhone(phone string) bool {
	return len(digitsOnly(phone)) == 10
}

// toE164 formats a US phone number as +1XXXXXXXXXX.
func toE164(phone string) string {
	digits := digitsOnly(phone)
	if len(digits) == 11 && strings.HasPrefix(digits, "1") {
		return "+" + digits
	}
	return "+1" + digits
}
