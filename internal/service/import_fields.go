package service

import "strings"

// minTaxIDDigits is the minimum digit count for a usable CPF. Shorter values
// come from truncated or placeholder cells in the external export.
const minTaxIDDigits = 11

// normalizeTaxID strips every non-digit from a raw CPF. The boolean reports
// whether the result is usable as a dedup key; callers decide what an
// unusable tax-id means.
func normalizeTaxID(raw string) (string, bool) {
	var b strings.Builder
	for _, r := range raw {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	digits := b.String()
	if len(digits) < minTaxIDDigits {
		return "", false
	}
	return digits, true
}

// normalizeEmail trims and lowercases a raw email. Empty input is reported
// as unusable rather than returned as "".
func normalizeEmail(raw string) (string, bool) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if email == "" {
		return "", false
	}
	return email, true
}

// cleanField trims surrounding whitespace from free-text cells.
func cleanField(raw string) string {
	return strings.TrimSpace(raw)
}
