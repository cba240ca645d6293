package models

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"
)

// RecurrencePattern names the supported repeat cadences.
type RecurrencePattern string

const (
	RecurDaily   RecurrencePattern = "DAILY"
	RecurWeekly  RecurrencePattern = "WEEKLY"
	RecurMonthly RecurrencePattern = "MONTHLY"
)

// RecurrenceRule is the parsed form of a request's recurring_pattern column.
// The column historically held either a bare pattern keyword or a JSON blob
// {"pattern":"WEEKLY","weekdays":[1,3]}; both forms decode into this struct
// and all business logic works on the struct only. Weekday numbering follows
// time.Weekday (0=Sunday).
type RecurrenceRule struct {
	Pattern  RecurrencePattern
	Weekdays []time.Weekday
}

type recurrencePayload struct {
	Pattern  string `json:"pattern"`
	Weekdays []int  `json:"weekdays,omitempty"`
}

// ParseRecurrenceRule decodes the stored pattern column. Weekly rules must
// name at least one weekday.
func ParseRecurrenceRule(raw string) (*RecurrenceRule, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("recurring pattern is empty")
	}

	rule := &RecurrenceRule{}
	if strings.HasPrefix(raw, "{") {
		var payload recurrencePayload
		if err := json.Unmarshal([]byte(raw), &payload); err != nil {
			return nil, fmt.Errorf("decode recurring pattern: %w", err)
		}
		rule.Pattern = RecurrencePattern(strings.ToUpper(payload.Pattern))
		for _, day := range payload.Weekdays {
			if day < 0 || day > 6 {
				return nil, fmt.Errorf("weekday %d out of range", day)
			}
			rule.Weekdays = append(rule.Weekdays, time.Weekday(day))
		}
	} else {
		rule.Pattern = RecurrencePattern(strings.ToUpper(raw))
	}

	switch rule.Pattern {
	case RecurDaily, RecurMonthly:
		rule.Weekdays = nil
	case RecurWeekly:
		if len(rule.Weekdays) == 0 {
			return nil, fmt.Errorf("weekly pattern requires at least one weekday")
		}
		sort.Slice(rule.Weekdays, func(i, j int) bool { return rule.Weekdays[i] < rule.Weekdays[j] })
	default:
		return nil, fmt.Errorf("unknown recurring pattern %q", rule.Pattern)
	}

	return rule, nil
}

// Encode renders the rule back into its storage representation. Daily and
// monthly rules persist as the bare keyword; weekly rules carry the weekday
// set in the JSON form.
func (r *RecurrenceRule) Encode() (string, error) {
	switch r.Pattern {
	case RecurDaily, RecurMonthly:
		return string(r.Pattern), nil
	case RecurWeekly:
		if len(r.Weekdays) == 0 {
			return "", fmt.Errorf("weekly pattern requires at least one weekday")
		}
		days := make([]int, 0, len(r.Weekdays))
		for _, day := range r.Weekdays {
			days = append(days, int(day))
		}
		sort.Ints(days)
		data, err := json.Marshal(recurrencePayload{Pattern: string(RecurWeekly), Weekdays: days})
		if err != nil {
			return "", fmt.Errorf("encode recurring pattern: %w", err)
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("unknown recurring pattern %q", r.Pattern)
	}
}

// OnWeekday reports whether the weekly rule includes the given weekday.
func (r *RecurrenceRule) OnWeekday(day time.Weekday) bool {
	for _, d := range r.Weekdays {
		if d == day {
			return true
		}
	}
	return false
}
