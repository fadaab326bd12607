package checkin

import "strings"

// DefaultCountryCode is stripped from the front of phone numbers before matching
const DefaultCountryCode = "964"

// Normalizer reduces a phone number to its core digits. It removes a literal
// leading country code once, then a single leading zero. Nothing is validated.
type Normalizer struct {
	CountryCode string
}

// Normalize applies the normalizer to raw
func (n Normalizer) Normalize(raw string) string {
	core := raw
	if n.CountryCode != "" && strings.HasPrefix(core, n.CountryCode) {
		core = core[len(n.CountryCode):]
	}
	if strings.HasPrefix(core, "0") {
		core = core[1:]
	}
	return core
}

// Normalize reduces raw to core digits using DefaultCountryCode
func Normalize(raw string) string {
	return Normalizer{CountryCode: DefaultCountryCode}.Normalize(raw)
}
