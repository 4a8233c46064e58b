// Package koaid checks archive record identifiers of the form
// PREFIX.YYYYMMDD.SSSSS.ss before a record is admitted to a run.
package koaid

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var (
	ErrEmpty     = errors.New("empty record id")
	ErrMalformed = errors.New("malformed record id")
	ErrDuplicate = errors.New("duplicate record id")
	ErrBadDate   = errors.New("record id date outside run window")
)

// ID is a parsed record identifier.
type ID struct {
	Prefix string
	Date   time.Time
	// Seconds is seconds since UT midnight.
	Seconds float64
}

// Parse splits id into its parts. The fractional seconds part is optional.
func Parse(id string) (ID, error) {
	parts := strings.Split(id, ".")
	if len(parts) != 4 && len(parts) != 3 {
		return ID{}, fmt.Errorf("%w: %q", ErrMalformed, id)
	}
	if parts[0] == "" {
		return ID{}, fmt.Errorf("%w: %q: empty prefix", ErrMalformed, id)
	}
	d, err := time.Parse("20060102", parts[1])
	if err != nil {
		return ID{}, fmt.Errorf("%w: %q: date %q", ErrMalformed, id, parts[1])
	}
	secs := parts[2]
	if len(parts) == 4 {
		secs += "." + parts[3]
	}
	s, err := strconv.ParseFloat(secs, 64)
	if err != nil || s < 0 || s >= 86400 {
		return ID{}, fmt.Errorf("%w: %q: time %q", ErrMalformed, id, secs)
	}
	return ID{Prefix: parts[0], Date: d, Seconds: s}, nil
}

// ParseUTDate accepts YYYY-MM-DD, YYYY/MM/DD and YYYYMMDD.
func ParseUTDate(s string) (time.Time, error) {
	s = strings.NewReplacer("/", "", "-", "").Replace(s)
	t, err := time.Parse("20060102", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad UT date %q: %w", s, err)
	}
	return t, nil
}

// Checker validates the identifiers of one run. It is not safe for
// concurrent use.
type Checker struct {
	utDate time.Time
	// endSeconds is the observing end time; ids stamped after it may carry
	// the next day's date.
	endSeconds float64
	seen       map[string]string
}

// NewChecker returns a Checker for the run's UT date. endTime is the
// "HH:MM:SS" end of the observing window; empty means end of day.
func NewChecker(utDate, endTime string) (*Checker, error) {
	d, err := ParseUTDate(utDate)
	if err != nil {
		return nil, err
	}
	end := 86400.0
	if endTime != "" {
		h, m, s, ok := splitClock(endTime)
		if !ok {
			return nil, fmt.Errorf("bad end time %q", endTime)
		}
		end = h*3600 + m*60 + s
	}
	return &Checker{utDate: d, endSeconds: end, seen: map[string]string{}}, nil
}

func splitClock(s string) (h, m, sec float64, ok bool) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, 0, 0, false
	}
	var vals [3]float64
	for i, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return 0, 0, 0, false
		}
		vals[i] = v
	}
	return vals[0], vals[1], vals[2], true
}

// Check validates id for file and remembers it for duplicate detection.
// A date more than one day from the UT date is rejected unless the time
// part falls after the end of the observing window.
func (c *Checker) Check(id, file string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w for %s", ErrEmpty, file)
	}
	if prev, dup := c.seen[id]; dup {
		return fmt.Errorf("%w %q for %s (first seen in %s)", ErrDuplicate, id, file, prev)
	}
	p, err := Parse(id)
	if err != nil {
		return fmt.Errorf("%s: %w", file, err)
	}
	days := p.Date.Sub(c.utDate).Hours() / 24
	if days < 0 {
		days = -days
	}
	if days > 1 && p.Seconds < c.endSeconds {
		return fmt.Errorf("%w: %q date %s for %s", ErrBadDate, id, p.Date.Format("20060102"), file)
	}
	c.seen[id] = file
	return nil
}
