package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/careops/facilitydesk/internal/dto"
	"github.com/careops/facilitydesk/internal/models"
	appErrors "github.com/careops/facilitydesk/pkg/errors"
)

type scheduleRequestStore interface {
	OneOffScheduledBetween(ctx context.Context, start, end time.Time) ([]models.RequestDetail, error)
	Recurring(ctx context.Context) ([]models.RequestDetail, error)
}

// ScheduleService projects one-off and recurring tickets onto calendar
// dates. Recurrence rules are parsed once per row at the storage boundary;
// rows with unreadable patterns are skipped with a warning rather than
// failing the whole board.
type ScheduleService struct {
	requests scheduleRequestStore
	logger   *zap.Logger
	now      func() time.Time
}

// NewScheduleService constructs a ScheduleService.
func NewScheduleService(requests scheduleRequestStore, logger *zap.Logger) *ScheduleService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{requests: requests, logger: logger, now: time.Now}
}

// Day returns everything due on the given date: one-off tickets scheduled
// for it plus recurring tickets whose rule produces an occurrence.
func (s *ScheduleService) Day(ctx context.Context, date time.Time) (*dto.ScheduleDayResponse, error) {
	date = truncateToDay(date)
	dayEnd := date.AddDate(0, 0, 1)

	oneOff, err := s.requests.OneOffScheduledBetween(ctx, date, dayEnd)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load scheduled requests")
	}

	items := make([]dto.ScheduledItem, 0, len(oneOff))
	for _, row := range oneOff {
		items = append(items, scheduledItem(row, date, false))
	}

	recurring, err := s.requests.Recurring(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recurring requests")
	}
	for _, row := range recurring {
		rule, ok := s.parseRule(row)
		if !ok {
			continue
		}
		if OccursOn(rule, recurrenceAnchor(row), date) {
			items = append(items, scheduledItem(row, date, true))
		}
	}

	return &dto.ScheduleDayResponse{
		Date:  date.Format("2006-01-02"),
		Items: items,
	}, nil
}

// Calendar builds the month grid: one cell per day with occurrence counts.
func (s *ScheduleService) Calendar(ctx context.Context, year, month int) (*dto.CalendarResponse, error) {
	if month < 1 || month > 12 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "month must be between 1 and 12")
	}
	if year < 2000 || year > 2100 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "year out of range")
	}

	monthStart := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)
	daysInMonth := monthEnd.Add(-time.Hour).Day()

	oneOff, err := s.requests.OneOffScheduledBetween(ctx, monthStart, monthEnd)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load scheduled requests")
	}
	recurring, err := s.requests.Recurring(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load recurring requests")
	}

	days := make([]dto.CalendarDay, daysInMonth)
	for i := range days {
		days[i] = dto.CalendarDay{
			Date:  monthStart.AddDate(0, 0, i).Format("2006-01-02"),
			Items: []dto.ScheduledItem{},
		}
	}

	for _, row := range oneOff {
		if row.ScheduledDate == nil {
			continue
		}
		idx := row.ScheduledDate.Day() - 1
		if idx < 0 || idx >= daysInMonth {
			continue
		}
		days[idx].Items = append(days[idx].Items, scheduledItem(row, *row.ScheduledDate, false))
		days[idx].Count++
	}

	for _, row := range recurring {
		rule, ok := s.parseRule(row)
		if !ok {
			continue
		}
		for _, date := range DatesMatching(rule, recurrenceAnchor(row), monthStart, monthEnd) {
			idx := date.Day() - 1
			days[idx].Items = append(days[idx].Items, scheduledItem(row, date, true))
			days[idx].Count++
		}
	}

	return &dto.CalendarResponse{Year: year, Month: month, Days: days}, nil
}

// OccursOn reports whether a recurrence rule produces an occurrence on the
// given date. Daily rules hit every day from the anchor onwards, weekly
// rules hit their weekday set, monthly rules hit the anchor's day of month,
// clamped to the last day of shorter months.
func OccursOn(rule *models.RecurrenceRule, anchor, date time.Time) bool {
	anchor = truncateToDay(anchor)
	date = truncateToDay(date)
	if date.Before(anchor) {
		return false
	}

	switch rule.Pattern {
	case models.RecurDaily:
		return true
	case models.RecurWeekly:
		return rule.OnWeekday(date.Weekday())
	case models.RecurMonthly:
		target := anchor.Day()
		lastDay := lastDayOfMonth(date)
		if target > lastDay {
			target = lastDay
		}
		return date.Day() == target
	default:
		return false
	}
}

// DatesMatching returns every date in [from, to) on which the rule produces
// an occurrence. Callers bound the range, typically to a month grid.
func DatesMatching(rule *models.RecurrenceRule, anchor, from, to time.Time) []time.Time {
	from = truncateToDay(from)
	to = truncateToDay(to)

	var out []time.Time
	for date := from; date.Before(to); date = date.AddDate(0, 0, 1) {
		if OccursOn(rule, anchor, date) {
			out = append(out, date)
		}
	}
	return out
}

func (s *ScheduleService) parseRule(row models.RequestDetail) (*models.RecurrenceRule, bool) {
	if row.RecurringPattern == nil {
		return nil, false
	}
	rule, err := models.ParseRecurrenceRule(*row.RecurringPattern)
	if err != nil {
		s.logger.Warn("skipping request with unreadable recurring pattern",
			zap.String("request_id", row.RequestID),
			zap.Error(err))
		return nil, false
	}
	return rule, true
}

// recurrenceAnchor is the date a recurring series starts: its scheduled
// date when set, otherwise its creation date.
func recurrenceAnchor(row models.RequestDetail) time.Time {
	if row.ScheduledDate != nil {
		return *row.ScheduledDate
	}
	return row.CreatedAt
}

func scheduledItem(row models.RequestDetail, date time.Time, occurrence bool) dto.ScheduledItem {
	return dto.ScheduledItem{
		ID:             row.ID,
		RequestID:      row.RequestID,
		ServiceType:    row.ServiceType,
		Title:          row.Title,
		Priority:       int(row.Priority),
		Status:         string(row.Status),
		ScheduledDate:  date.Format("2006-01-02"),
		ScheduledTime:  row.ScheduledTime,
		LocationName:   row.LocationName,
		AssignedToName: row.AssignedToName,
		Recurring:      row.Recurring,
		Occurrence:     occurrence,
	}
}

func truncateToDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func lastDayOfMonth(t time.Time) int {
	firstOfNext := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, 1, 0)
	return firstOfNext.Add(-time.Hour).Day()
}
