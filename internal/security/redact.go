// Package security masks credentials before they reach logs, errors or output.
package security

import (
	"regexp"
	"strings"
)

// sensitivePatterns match secrets embedded in free text.
var sensitivePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(password|session|token|bot_token)=([^&\s"'*][^&\s"']*)`),
	regexp.MustCompile(`/bot[0-9]+:[A-Za-z0-9_-]+`), // Telegram bot tokens in API paths
}

// MaskCredential keeps at most the first and last four characters of value.
func MaskCredential(value string) string {
	if len(value) == 0 {
		return ""
	}
	if len(value) <= 4 {
		return strings.Repeat("*", len(value))
	}
	if len(value) <= 8 {
		return value[:2] + strings.Repeat("*", len(value)-2)
	}
	return value[:4] + strings.Repeat("*", len(value)-8) + value[len(value)-4:]
}

// MaskEmail keeps the first three characters of the local part.
func MaskEmail(email string) string {
	if email == "" {
		return ""
	}
	local, domain, ok := strings.Cut(email, "@")
	r := []rune(local)
	if len(r) > 3 {
		r = r[:3]
	}
	masked := string(r) + "***"
	if ok {
		masked += "@" + domain
	}
	return masked
}

// MaskString replaces every secret found in input.
func MaskString(input string) string {
	result := input
	for _, pattern := range sensitivePatterns {
		result = pattern.ReplaceAllStringFunc(result, func(match string) string {
			if strings.HasPrefix(match, "/bot") {
				return "/bot***"
			}
			if i := strings.IndexByte(match, '='); i >= 0 {
				return match[:i+1] + "***"
			}
			return "***"
		})
	}
	return result
}

// ContainsSensitiveData reports whether input holds a recognizable secret.
func ContainsSensitiveData(input string) bool {
	for _, pattern := range sensitivePatterns {
		if pattern.MatchString(input) {
			return true
		}
	}
	return false
}
