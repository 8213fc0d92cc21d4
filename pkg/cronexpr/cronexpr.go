package cronexpr

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// horizonYears bounds Next's search. Expressions with no occurrence
// inside the horizon (e.g. day 31 of February) are unsatisfiable.
const horizonYears = 5

// OverflowError reports that Next found no occurrence within the search
// horizon, which means the expression is unsatisfiable.
type OverflowError struct {
	Expr string
	From time.Time
}

func (e *OverflowError) Error() string {
	return fmt.Sprintf("cronq: no occurrence of %q within %d years of %s",
		e.Expr, horizonYears, e.From.Format(time.RFC3339))
}

// fieldSet holds the expanded values of one cron field.
type fieldSet struct {
	values []int  // sorted, deduplicated
	mask   uint64 // membership bitmask
	star   bool   // field was wildcarded (relevant for day semantics)
}

func (f fieldSet) contains(v int) bool {
	return f.mask&(1<<uint(v)) != 0
}

// next returns the smallest set value >= v.
func (f fieldSet) next(v int) (int, bool) {
	for _, x := range f.values {
		if x >= v {
			return x, true
		}
	}
	return 0, false
}

// Schedule is a parsed cron expression.
type Schedule struct {
	expr string
	sec  fieldSet
	min  fieldSet
	hour fieldSet
	dom  fieldSet
	mon  fieldSet
	dow  fieldSet
}

// Expr returns the original expression text.
func (s *Schedule) Expr() string { return s.expr }

type fieldBounds struct {
	name     string
	min, max int
}

var bounds = [6]fieldBounds{
	{"second", 0, 59},
	{"minute", 0, 59},
	{"hour", 0, 23},
	{"day-of-month", 1, 31},
	{"month", 1, 12},
	{"day-of-week", 0, 6},
}

// Parse expands a 5- or 6-field cron expression. A 5-field expression
// fires on whole minutes: its second field is pinned to 0.
func Parse(expr string) (*Schedule, error) {
	fields := strings.Fields(expr)
	switch len(fields) {
	case 5:
		fields = append([]string{"0"}, fields...)
	case 6:
		// second precision
	default:
		return nil, fmt.Errorf("cronq: cron expression %q must have 5 or 6 fields, got %d", expr, len(fields))
	}

	s := &Schedule{expr: expr}
	sets := [6]*fieldSet{&s.sec, &s.min, &s.hour, &s.dom, &s.mon, &s.dow}
	for i, spec := range fields {
		fs, err := parseField(spec, bounds[i])
		if err != nil {
			return nil, fmt.Errorf("cronq: cron expression %q: %w", expr, err)
		}
		*sets[i] = fs
	}
	return s, nil
}

// parseField expands one field: "*", "a", "a-b", "a/step", "a-b/step",
// "*/step", and comma lists of any of these.
func parseField(spec string, b fieldBounds) (fieldSet, error) {
	var fs fieldSet
	seen := make(map[int]bool)
	fs.star = true

	for _, part := range strings.Split(spec, ",") {
		lo, hi, step := b.min, b.max, 1

		rangeSpec := part
		if i := strings.IndexByte(part, '/'); i >= 0 {
			rangeSpec = part[:i]
			n, err := strconv.Atoi(part[i+1:])
			if err != nil || n <= 0 {
				return fs, fmt.Errorf("%s: invalid step %q", b.name, part)
			}
			step = n
		}

		switch {
		case rangeSpec == "*":
			// A stepped wildcard restricts the field; only */1 is a true
			// wildcard for day semantics.
			if step > 1 {
				fs.star = false
			}
		case strings.ContainsRune(rangeSpec, '-'):
			fs.star = false
			pieces := strings.SplitN(rangeSpec, "-", 2)
			a, err1 := strconv.Atoi(pieces[0])
			z, err2 := strconv.Atoi(pieces[1])
			if err1 != nil || err2 != nil {
				return fs, fmt.Errorf("%s: invalid range %q", b.name, part)
			}
			lo, hi = a, z
		default:
			fs.star = false
			a, err := strconv.Atoi(rangeSpec)
			if err != nil {
				return fs, fmt.Errorf("%s: invalid value %q", b.name, part)
			}
			lo = a
			if step == 1 {
				hi = a
			}
			// "a/step" means a through max
		}

		if lo < b.min || hi > b.max || lo > hi {
			return fs, fmt.Errorf("%s: value out of range in %q (allowed %d-%d)", b.name, part, b.min, b.max)
		}

		for v := lo; v <= hi; v += step {
			if !seen[v] {
				seen[v] = true
				fs.values = append(fs.values, v)
				fs.mask |= 1 << uint(v)
			}
		}
	}

	sortInts(fs.values)
	return fs, nil
}

func sortInts(v []int) {
	// Insertion sort; cron fields hold at most 60 values.
	for i := 1; i < len(v); i++ {
		for j := i; j > 0 && v[j] < v[j-1]; j-- {
			v[j], v[j-1] = v[j-1], v[j]
		}
	}
}

// Matches reports whether the instant satisfies the schedule. Sub-second
// components are ignored.
func (s *Schedule) Matches(t time.Time) bool {
	if !s.sec.contains(t.Second()) ||
		!s.min.contains(t.Minute()) ||
		!s.hour.contains(t.Hour()) ||
		!s.mon.contains(int(t.Month())) {
		return false
	}
	return s.dayMatches(t)
}

func (s *Schedule) dayMatches(t time.Time) bool {
	domOK := s.dom.contains(t.Day())
	dowOK := s.dow.contains(int(t.Weekday()))
	switch {
	case s.dom.star && s.dow.star:
		return true
	case s.dom.star:
		return dowOK
	case s.dow.star:
		return domOK
	default:
		return domOK || dowOK
	}
}

// Next returns the earliest instant strictly after from that satisfies
// the schedule. It advances field by field (month, day, hour, minute,
// second), resetting lower fields on each carry, and fails with an
// OverflowError once the search passes the horizon.
func (s *Schedule) Next(from time.Time) (time.Time, error) {
	loc := from.Location()
	t := from.Truncate(time.Second).Add(time.Second)
	limit := from.AddDate(horizonYears, 0, 0)

	for t.Before(limit) {
		if !s.mon.contains(int(t.Month())) {
			t = time.Date(t.Year(), t.Month()+1, 1, 0, 0, 0, 0, loc)
			continue
		}
		if !s.dayMatches(t) {
			t = time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, loc)
			continue
		}
		if !s.hour.contains(t.Hour()) {
			if h, ok := s.hour.next(t.Hour()); ok {
				t = time.Date(t.Year(), t.Month(), t.Day(), h, 0, 0, 0, loc)
			} else {
				t = time.Date(t.Year(), t.Month(), t.Day()+1, 0, 0, 0, 0, loc)
			}
			continue
		}
		if !s.min.contains(t.Minute()) {
			if m, ok := s.min.next(t.Minute()); ok {
				t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), m, 0, 0, loc)
			} else {
				t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour()+1, 0, 0, 0, loc)
			}
			continue
		}
		if !s.sec.contains(t.Second()) {
			if sec, ok := s.sec.next(t.Second()); ok {
				t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), sec, 0, loc)
			} else {
				t = time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute()+1, 0, 0, loc)
			}
			continue
		}
		return t, nil
	}

	return time.Time{}, &OverflowError{Expr: s.expr, From: from}
}
