package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"guest-checkin/internal/checkin"
	"guest-checkin/internal/models"
)

type consoleResolver interface {
	CheckIn(ctx context.Context, id checkin.Identifier) (*checkin.Result, error)
}

type consoleAttendance interface {
	Recent(ctx context.Context) ([]models.AttendanceEntry, error)
}

// guestLister is implemented by stores that can enumerate every guest
type guestLister interface {
	All() []models.StoredRecord
}

type console struct {
	resolver consoleResolver
	att      consoleAttendance
	guests   guestLister
	fields   models.FieldMap
}

func (c *console) start() {
	if c.run(os.Stdin, os.Stdout) {
		os.Exit(0)
	}
}

// run serves the operator menu until input ends. It reports whether the
// operator chose to exit.
func (c *console) run(in io.Reader, out io.Writer) bool {
	scanner := bufio.NewScanner(in)

	for {
		fmt.Fprintln(out, "\nCommands:")
		fmt.Fprintln(out, "  1. Check in by phone")
		fmt.Fprintln(out, "  2. Check in by handle")
		fmt.Fprintln(out, "  3. View recent attendance")
		fmt.Fprintln(out, "  4. View all guests")
		fmt.Fprintln(out, "  5. Exit")
		fmt.Fprint(out, "\nEnter command (1-5): ")

		if !scanner.Scan() {
			return false
		}

		switch strings.TrimSpace(scanner.Text()) {
		case "1":
			checkInGuest(scanner, out, c.resolver, "phone")
		case "2":
			checkInGuest(scanner, out, c.resolver, "handle")
		case "3":
			viewRecentAttendance(out, c.att)
		case "4":
			c.viewGuests(out)
		case "5":
			fmt.Fprintln(out, "Exiting...")
			return true
		default:
			fmt.Fprintln(out, "Invalid command. Please try again.")
		}
	}
}

func checkInGuest(scanner *bufio.Scanner, out io.Writer, resolver consoleResolver, kind string) {
	fmt.Fprintf(out, "Enter %s: ", kind)
	if !scanner.Scan() {
		return
	}
	value := strings.TrimSpace(scanner.Text())

	var id checkin.Identifier
	if kind == "handle" {
		id.Handle = value
	} else {
		id.Phone = value
	}

	res, err := resolver.CheckIn(context.Background(), id)
	if err != nil {
		fmt.Fprintf(out, "❌ Check-in failed: %v\n", err)
		return
	}
	fmt.Fprintf(out, "✅ %s (%s) at %s\n", res.Message, res.Action, res.Record.ArrivedAt)
}

func viewRecentAttendance(out io.Writer, att consoleAttendance) {
	entries, err := att.Recent(context.Background())
	if err != nil {
		fmt.Fprintf(out, "❌ Error reading attendance: %v\n", err)
		return
	}
	if len(entries) == 0 {
		fmt.Fprintln(out, "\nNo attendance recorded.")
		return
	}

	fmt.Fprintf(out, "\n📋 Recent attendance (%d):\n", len(entries))
	fmt.Fprintln(out, strings.Repeat("-", 60))
	for _, e := range entries {
		fmt.Fprintf(out, "Name: %s\n", e.Name)
		fmt.Fprintf(out, "Phone: %s\n", e.Phone)
		fmt.Fprintf(out, "Status: %s\n", e.Status)
		fmt.Fprintf(out, "When: %s %s\n", e.Date, e.Time)
		fmt.Fprintln(out, strings.Repeat("-", 60))
	}
}

func (c *console) viewGuests(out io.Writer) {
	if c.guests == nil {
		fmt.Fprintln(out, "Guest listing is only available with the file store.")
		return
	}
	records := c.guests.All()
	if len(records) == 0 {
		fmt.Fprintln(out, "\nNo guests found.")
		return
	}

	fmt.Fprintf(out, "\n📋 Guest List (%d guests):\n", len(records))
	fmt.Fprintln(out, strings.Repeat("-", 60))
	for _, r := range records {
		g := c.fields.View(r)
		status := "⏳ Not arrived"
		if g.Arrived {
			status = "✅ Arrived at " + g.ArrivedAt
		}
		fmt.Fprintf(out, "Name: %s\n", g.Name)
		fmt.Fprintf(out, "Phone: %s  Handle: %s\n", g.Phone, g.Handle)
		fmt.Fprintf(out, "Status: %s\n", status)
		fmt.Fprintln(out, strings.Repeat("-", 60))
	}
}
