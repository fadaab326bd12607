package checkin

import (
	"strings"

	"guest-checkin/internal/models"
)

// SearchMode is the kind of identifier used to look a guest up
type SearchMode int

const (
	SearchByPhone SearchMode = iota + 1
	SearchByHandle
)

func (m SearchMode) String() string {
	switch m {
	case SearchByPhone:
		return "phone"
	case SearchByHandle:
		return "handle"
	default:
		return "unknown"
	}
}

// Identifier is what a client submits for a check-in
type Identifier struct {
	Phone  string `json:"phone"`
	Handle string `json:"handle"`
}

// SearchKey picks the identifier used for lookup. A handle wins over a phone
// when both are present and is returned verbatim; blank values count as absent.
func (id Identifier) SearchKey() (SearchMode, string, error) {
	if strings.TrimSpace(id.Handle) != "" {
		return SearchByHandle, id.Handle, nil
	}
	if phone := strings.TrimSpace(id.Phone); phone != "" {
		return SearchByPhone, phone, nil
	}
	return 0, "", invalidRequest("no phone or handle supplied")
}

// BuildQuery builds the store filter for a search key. Handles match exactly
// and verbatim; phones match when the stored cell contains the core digits.
func (n Normalizer) BuildQuery(mode SearchMode, value string, fields models.FieldMap) (models.Query, error) {
	switch mode {
	case SearchByHandle:
		if value == "" {
			return models.Query{}, invalidRequest("empty handle")
		}
		return models.Query{Field: fields.Handle, Value: value, Match: models.MatchEquals}, nil
	case SearchByPhone:
		core := n.Normalize(value)
		if core == "" {
			return models.Query{}, invalidRequest("phone %q has no digits after normalization", value)
		}
		return models.Query{Field: fields.Phone, Value: core, Match: models.MatchContains}, nil
	default:
		return models.Query{}, invalidRequest("no phone or handle supplied")
	}
}

// BuildQuery is Normalizer.BuildQuery with DefaultCountryCode
func BuildQuery(mode SearchMode, value string, fields models.FieldMap) (models.Query, error) {
	return Normalizer{CountryCode: DefaultCountryCode}.BuildQuery(mode, value, fields)
}
