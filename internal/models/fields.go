package models

import (
	"fmt"
	"sort"
	"strings"
)

// FieldMap names the store columns used for each guest attribute. Column
// names differ between deployments, so they are configured rather than fixed.
type FieldMap struct {
	Name      string
	Phone     string
	Handle    string
	Arrived   string
	ArrivedAt string
}

var fieldPresets = map[string]FieldMap{
	"arrived": {
		Name:      "Name",
		Phone:     "Phone",
		Handle:    "TG",
		Arrived:   "Arrived",
		ArrivedAt: "Arrived At",
	},
	"status": {
		Name:      "Name",
		Phone:     "Phone",
		Handle:    "TG",
		Arrived:   "Status",
		ArrivedAt: "Time",
	},
}

// DefaultFieldMap returns the "arrived" preset
func DefaultFieldMap() FieldMap {
	return fieldPresets["arrived"]
}

// FieldPreset looks up a named field mapping
func FieldPreset(name string) (FieldMap, error) {
	fm, ok := fieldPresets[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return FieldMap{}, fmt.Errorf("unknown field preset %q (known: %s)", name, strings.Join(FieldPresetNames(), ", "))
	}
	return fm, nil
}

// FieldPresetNames lists the known preset names in order
func FieldPresetNames() []string {
	names := make([]string, 0, len(fieldPresets))
	for name := range fieldPresets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// WithOverrides returns a copy of fm with every non-empty override applied
func (fm FieldMap) WithOverrides(o FieldMap) FieldMap {
	if o.Name != "" {
		fm.Name = o.Name
	}
	if o.Phone != "" {
		fm.Phone = o.Phone
	}
	if o.Handle != "" {
		fm.Handle = o.Handle
	}
	if o.Arrived != "" {
		fm.Arrived = o.Arrived
	}
	if o.ArrivedAt != "" {
		fm.ArrivedAt = o.ArrivedAt
	}
	return fm
}

// View converts a raw store row into a GuestRecord
func (fm FieldMap) View(r StoredRecord) GuestRecord {
	return GuestRecord{
		ID:        r.ID,
		Name:      r.String(fm.Name),
		Phone:     r.String(fm.Phone),
		Handle:    r.String(fm.Handle),
		Arrived:   r.Bool(fm.Arrived),
		ArrivedAt: r.String(fm.ArrivedAt),
	}
}
