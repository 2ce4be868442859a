// Package timeparse reads the locale-formatted timestamps found in the legacy
// spreadsheet export, e.g. "2025. 12. 26. PM 1:17:03" or "2025. 12. 2. 오전 2:07:19".
package timeparse

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ErrUnparseable is returned for any string not in the expected shape
var ErrUnparseable = errors.New("unparseable timestamp")

// Timestamp is a calendar date and 24-hour wall clock time
type Timestamp struct {
	Year   int
	Month  int
	Day    int
	Hour   int
	Minute int
	Second int
}

// ISO renders the timestamp as YYYY-MM-DDTHH:MM:SS
func (ts Timestamp) ISO() string {
	return fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:%02d", ts.Year, ts.Month, ts.Day, ts.Hour, ts.Minute, ts.Second)
}

// Time converts the timestamp to a time.Time in loc (UTC when nil)
func (ts Timestamp) Time(loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return time.Date(ts.Year, time.Month(ts.Month), ts.Day, ts.Hour, ts.Minute, ts.Second, 0, loc)
}

// Legacy renders the timestamp in the export's 12-hour form; korean selects
// 오전/오후 over AM/PM
func (ts Timestamp) Legacy(korean bool) string {
	am, pm := "AM", "PM"
	if korean {
		am, pm = "오전", "오후"
	}
	marker := am
	if ts.Hour >= 12 {
		marker = pm
	}
	hour := ts.Hour % 12
	if hour == 0 {
		hour = 12
	}
	return fmt.Sprintf("%d. %d. %d. %s %d:%02d:%02d", ts.Year, ts.Month, ts.Day, marker, hour, ts.Minute, ts.Second)
}

type meridiem int

const (
	ante meridiem = iota
	post
)

var markers = map[string]meridiem{
	"AM": ante,
	"PM": post,
	"오전": ante,
	"오후": post,
}

// Parse reads "<year>. <month>. <day>. <AM|PM|오전|오후> <h>:<mm>:<ss>"
func Parse(s string) (Timestamp, error) {
	fields := strings.Fields(s)
	if len(fields) != 5 {
		return Timestamp{}, fmt.Errorf("%w: %q has %d fields, want 5", ErrUnparseable, s, len(fields))
	}

	var ts Timestamp
	var err error
	if ts.Year, err = datePart(fields[0]); err != nil {
		return Timestamp{}, fmt.Errorf("%w: year in %q", ErrUnparseable, s)
	}
	if ts.Month, err = datePart(fields[1]); err != nil {
		return Timestamp{}, fmt.Errorf("%w: month in %q", ErrUnparseable, s)
	}
	if ts.Day, err = datePart(fields[2]); err != nil {
		return Timestamp{}, fmt.Errorf("%w: day in %q", ErrUnparseable, s)
	}

	marker, ok := markers[strings.ToUpper(fields[3])]
	if !ok {
		return Timestamp{}, fmt.Errorf("%w: unknown meridiem %q", ErrUnparseable, fields[3])
	}

	clock := strings.Split(fields[4], ":")
	if len(clock) != 3 {
		return Timestamp{}, fmt.Errorf("%w: clock %q", ErrUnparseable, fields[4])
	}
	parts := make([]int, 3)
	for i, c := range clock {
		if parts[i], err = strconv.Atoi(c); err != nil {
			return Timestamp{}, fmt.Errorf("%w: clock %q", ErrUnparseable, fields[4])
		}
	}
	ts.Hour, ts.Minute, ts.Second = parts[0], parts[1], parts[2]

	switch {
	case marker == post && ts.Hour < 12:
		ts.Hour += 12
	case marker == ante && ts.Hour == 12:
		ts.Hour = 0
	}

	if !valid(ts) {
		return Timestamp{}, fmt.Errorf("%w: %q is not a calendar time", ErrUnparseable, s)
	}
	return ts, nil
}

// ISO parses s and renders it as ISO-8601; ok is false when s is unparseable
func ISO(s string) (string, bool) {
	ts, err := Parse(s)
	if err != nil {
		return "", false
	}
	return ts.ISO(), true
}

func datePart(field string) (int, error) {
	return strconv.Atoi(strings.TrimSuffix(field, "."))
}

func valid(ts Timestamp) bool {
	if ts.Hour < 0 || ts.Hour > 23 || ts.Minute < 0 || ts.Minute > 59 || ts.Second < 0 || ts.Second > 59 {
		return false
	}
	if ts.Year < 1 || ts.Month < 1 || ts.Month > 12 || ts.Day < 1 {
		return false
	}
	t := ts.Time(time.UTC)
	return t.Year() == ts.Year && int(t.Month()) == ts.Month && t.Day() == ts.Day
}
