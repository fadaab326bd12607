package models

import (
	"fmt"
	"strings"
)

const (
	// NewGuestName is the display name given to records created on an unmatched check-in
	NewGuestName = "New Guest"
	// NotApplicable marks a field as intentionally empty
	NotApplicable = "-"
	// UnknownName is shown when a matched record has no name
	UnknownName = "Unknown"
)

// GuestRecord is the normalized view of a guest row in the backing store
type GuestRecord struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	Phone     string `json:"phone"`
	Handle    string `json:"handle"`
	Arrived   bool   `json:"arrived"`
	ArrivedAt string `json:"arrivedAt"`
}

// StoredRecord is a raw row as the backing store returns it
type StoredRecord struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

// String returns the field as a string, or "" when absent or not a string
func (r StoredRecord) String(field string) string {
	switch v := r.Fields[field].(type) {
	case string:
		return v
	case nil:
		return ""
	case float64, int, int64, bool:
		return fmt.Sprint(v)
	default:
		return ""
	}
}

// Bool returns the field as a boolean. Checkbox cells that are unchecked are
// omitted by spreadsheet-like stores, so absence reads as false.
func (r StoredRecord) Bool(field string) bool {
	switch v := r.Fields[field].(type) {
	case bool:
		return v
	case string:
		return v == "true" || v == "TRUE"
	default:
		return false
	}
}

// MatchMode selects how a Query compares its value to the stored cell
type MatchMode int

const (
	// MatchEquals requires the cell to equal the value exactly
	MatchEquals MatchMode = iota
	// MatchContains requires the cell to contain the value anywhere
	MatchContains
)

func (m MatchMode) String() string {
	if m == MatchContains {
		return "contains"
	}
	return "equals"
}

// Query is a store-independent filter over a single field
type Query struct {
	Field string
	Value string
	Match MatchMode
}

// Matches evaluates the query against a stored record
func (q Query) Matches(r StoredRecord) bool {
	cell := r.String(q.Field)
	if q.Match == MatchContains {
		return strings.Contains(cell, q.Value)
	}
	return cell == q.Value
}
