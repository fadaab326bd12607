package models

import "time"

// AttendanceStatus is the status column of an attendance log row
type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "Present"
	StatusLate    AttendanceStatus = "Late"
	StatusAbsent  AttendanceStatus = "Absent"
)

// AttendanceEntry is one row of the append-only attendance log
type AttendanceEntry struct {
	ID         int64            `json:"id,omitempty"`
	Name       string           `json:"name"`
	Phone      string           `json:"phone"`
	Date       string           `json:"date"`
	Time       string           `json:"time"`
	Status     AttendanceStatus `json:"status"`
	RecordedAt time.Time        `json:"recordedAt"`
}
