// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package calendar

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/tasknest/tasknest-meeting-service/internal/domain/models"
)

// ICS constants for consistent values across all generated ICS files
const (
	ICSProdID         = "-//TaskNest//Meeting Service//EN"
	ICALVersion       = "2.0"
	ICALScale         = "GREGORIAN"
	ICALMaxLineLength = 75
)

// UTF-8 byte masks for line folding safety
const (
	UTF8TwoBitMask         = 0xC0
	UTF8ContinuationPrefix = 0x80
)

const (
	icsLocalTime = "20060102T150405"
	icsUTCTime   = "20060102T150405Z"
)

// ICSGenerator renders meetings as iCalendar documents.
type ICSGenerator struct {
	now func() time.Time
}

// NewICSGenerator creates a new ICS generator
func NewICSGenerator() *ICSGenerator {
	return &ICSGenerator{now: time.Now}
}

// GenerateMeetingICS renders a single meeting as a VCALENDAR with one VEVENT.
// For a recurring parent, occurrences are its stored occurrences and define the
// recurrence set. An occurrence points back to its parent with RELATED-TO.
// The sequence should grow with every stored revision so calendar clients
// replace older copies.
func (g *ICSGenerator) GenerateMeetingICS(meeting *models.Meeting, occurrences []*models.Meeting, sequence int) (string, error) {
	if meeting == nil {
		return "", fmt.Errorf("meeting is required")
	}

	loc := meeting.TimeLocation()
	tzid := loc.String()

	startLocal := meeting.StartDate.In(loc)
	endLocal := startLocal.Add(meeting.Duration())

	var ics strings.Builder

	ics.WriteString("BEGIN:VCALENDAR\r\n")
	ics.WriteString(fmt.Sprintf("VERSION:%s\r\n", ICALVersion))
	ics.WriteString(fmt.Sprintf("PRODID:%s\r\n", ICSProdID))
	ics.WriteString(fmt.Sprintf("CALSCALE:%s\r\n", ICALScale))
	ics.WriteString("METHOD:PUBLISH\r\n")

	ics.WriteString(generateTimezoneDefinition(tzid))

	ics.WriteString("BEGIN:VEVENT\r\n")
	ics.WriteString(fmt.Sprintf("UID:%s\r\n", meeting.UID))
	ics.WriteString(fmt.Sprintf("DTSTAMP:%s\r\n", g.now().UTC().Format(icsUTCTime)))
	ics.WriteString(fmt.Sprintf("DTSTART;TZID=%s:%s\r\n", tzid, startLocal.Format(icsLocalTime)))
	ics.WriteString(fmt.Sprintf("DTEND;TZID=%s:%s\r\n", tzid, endLocal.Format(icsLocalTime)))

	if meeting.IsRecurring && meeting.RecurringPattern != nil {
		lines, err := recurrenceLines(meeting.RecurringPattern, startLocal, occurrences, tzid)
		if err != nil {
			return "", fmt.Errorf("invalid recurrence: %w", err)
		}
		for _, line := range lines {
			ics.WriteString(line + "\r\n")
		}
	}
	if meeting.ParentUID != "" {
		ics.WriteString(fmt.Sprintf("RELATED-TO:%s\r\n", meeting.ParentUID))
	}

	ics.WriteString(fmt.Sprintf("SUMMARY:%s\r\n", escapeICSText(meeting.Title)))
	if description := buildDescription(meeting); description != "" {
		ics.WriteString(fmt.Sprintf("DESCRIPTION:%s\r\n", escapeICSText(description)))
	}

	switch {
	case meeting.Location != "":
		ics.WriteString(fmt.Sprintf("LOCATION:%s\r\n", escapeICSText(meeting.Location)))
	case meeting.MeetingLink != "":
		ics.WriteString(fmt.Sprintf("LOCATION:%s\r\n", meeting.MeetingLink))
	}
	if meeting.MeetingLink != "" {
		ics.WriteString(fmt.Sprintf("URL:%s\r\n", meeting.MeetingLink))
	}

	for _, p := range meeting.Participants {
		if p.Email == "" {
			continue
		}
		name := p.Name
		if name == "" {
			name = p.Email
		}
		ics.WriteString(fmt.Sprintf("ATTENDEE;CUTYPE=INDIVIDUAL;ROLE=REQ-PARTICIPANT;PARTSTAT=%s;CN=%s:mailto:%s\r\n",
			participationStatus(p.AttendanceStatus), escapeICSParam(name), p.Email))
	}

	ics.WriteString(fmt.Sprintf("STATUS:%s\r\n", eventStatus(meeting.Status)))
	ics.WriteString("TRANSP:OPAQUE\r\n")
	ics.WriteString(fmt.Sprintf("SEQUENCE:%d\r\n", sequence))

	ics.WriteString("BEGIN:VALARM\r\n")
	ics.WriteString("TRIGGER:-PT10M\r\n")
	ics.WriteString("ACTION:DISPLAY\r\n")
	ics.WriteString(fmt.Sprintf("DESCRIPTION:Reminder: %s\r\n", escapeICSText(meeting.Title)))
	ics.WriteString("END:VALARM\r\n")

	ics.WriteString("END:VEVENT\r\n")
	ics.WriteString("END:VCALENDAR\r\n")

	return ics.String(), nil
}

// recurrenceLines describes the stored series starting at start. The RRULE is
// used only when it expands to exactly the stored dates. Otherwise every
// stored occurrence is listed as an RDATE.
func recurrenceLines(pattern *models.RecurrencePattern, start time.Time, occurrences []*models.Meeting, tzid string) ([]string, error) {
	rule, err := pattern.RRule(start)
	if err != nil {
		return nil, err
	}

	stored := make([]time.Time, 0, len(occurrences))
	for _, occ := range occurrences {
		if occ != nil {
			stored = append(stored, occ.StartDate.In(start.Location()))
		}
	}
	slices.SortFunc(stored, time.Time.Compare)

	expanded := rule.All()
	if sameInstants(expanded, append([]time.Time{start}, stored...)) {
		// COUNT alone is exact here; RFC 5545 forbids pairing it with UNTIL.
		opt := rule.OrigOptions
		opt.Until = time.Time{}
		opt.Count = len(expanded)
		return []string{"RRULE:" + opt.RRuleString()}, nil
	}

	lines := make([]string, 0, len(stored))
	for _, t := range stored {
		lines = append(lines, fmt.Sprintf("RDATE;TZID=%s:%s", tzid, t.Format(icsLocalTime)))
	}
	return lines, nil
}

func sameInstants(a, b []time.Time) bool {
	return slices.EqualFunc(a, b, time.Time.Equal)
}

// generateTimezoneDefinition generates the VTIMEZONE component
func generateTimezoneDefinition(tzid string) string {
	var tz strings.Builder
	tz.WriteString("BEGIN:VTIMEZONE\r\n")
	tz.WriteString(fmt.Sprintf("TZID:%s\r\n", tzid))
	tz.WriteString(fmt.Sprintf("X-LIC-LOCATION:%s\r\n", tzid))
	tz.WriteString("END:VTIMEZONE\r\n")
	return tz.String()
}

func eventStatus(status models.MeetingStatus) string {
	if status == models.MeetingStatusCancelled {
		return "CANCELLED"
	}
	return "CONFIRMED"
}

func participationStatus(status models.AttendanceStatus) string {
	switch status {
	case models.AttendancePresent, models.AttendanceLate:
		return "ACCEPTED"
	case models.AttendanceAbsent, models.AttendanceExcused:
		return "DECLINED"
	}
	return "NEEDS-ACTION"
}

// buildDescription lists the meeting description, the agenda and the join link.
func buildDescription(meeting *models.Meeting) string {
	var desc strings.Builder

	if meeting.Description != "" {
		desc.WriteString(meeting.Description)
		desc.WriteString("\n\n")
	}

	if len(meeting.Agenda) > 0 {
		desc.WriteString("Agenda:\n")
		for _, item := range meeting.Agenda {
			desc.WriteString(fmt.Sprintf("• %s", item.Title))
			if item.Duration > 0 {
				desc.WriteString(fmt.Sprintf(" (%d min)", item.Duration))
			}
			if item.Presenter != "" {
				desc.WriteString(fmt.Sprintf(" - %s", item.Presenter))
			}
			desc.WriteString("\n")
		}
		desc.WriteString("\n")
	}

	if meeting.IsOnline && meeting.MeetingLink != "" {
		desc.WriteString("Join Meeting: ")
		desc.WriteString(meeting.MeetingLink)
		desc.WriteString("\n")
	}

	return strings.TrimRight(desc.String(), "\n")
}

// escapeICSParam quotes a parameter value that contains separators.
func escapeICSParam(value string) string {
	value = strings.ReplaceAll(value, `"`, "'")
	if strings.ContainsAny(value, ",;:") {
		return `"` + value + `"`
	}
	return value
}

// escapeICSText escapes special characters in ICS text fields
func escapeICSText(text string) string {
	text = strings.ReplaceAll(text, "\\", "\\\\")
	text = strings.ReplaceAll(text, "\n", "\\n")
	text = strings.ReplaceAll(text, ",", "\\,")
	text = strings.ReplaceAll(text, ";", "\\;")

	return foldICSLine(text, ICALMaxLineLength)
}

// foldICSLine folds long lines according to RFC5545 (75 octets max)
func foldICSLine(line string, maxLength int) string {
	if len(line) <= maxLength {
		return line
	}

	var folded strings.Builder
	remaining := line
	first := true

	for len(remaining) > 0 {
		cutLength := maxLength
		if !first {
			cutLength = maxLength - 1 // leading space on continued lines
		}

		if len(remaining) <= cutLength {
			if !first {
				folded.WriteString("\r\n ")
			}
			folded.WriteString(remaining)
			break
		}

		// Never split a UTF-8 sequence.
		breakPoint := cutLength
		for breakPoint > 0 && remaining[breakPoint-1]&UTF8TwoBitMask == UTF8ContinuationPrefix {
			breakPoint--
		}
		// Back off the lead byte too, so the sequence stays on the next line.
		if breakPoint > 0 && breakPoint < len(remaining) && remaining[breakPoint]&UTF8TwoBitMask == UTF8ContinuationPrefix {
			breakPoint--
		}

		if !first {
			folded.WriteString("\r\n ")
		}
		folded.WriteString(remaining[:breakPoint])
		remaining = remaining[breakPoint:]
		first = false
	}

	return folded.String()
}
