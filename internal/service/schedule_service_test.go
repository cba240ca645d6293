package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/careops/facilitydesk/internal/models"
)

type scheduleStoreStub struct {
	oneOff    []models.RequestDetail
	recurring []models.RequestDetail
}

func (s *scheduleStoreStub) OneOffScheduledBetween(ctx context.Context, start, end time.Time) ([]models.RequestDetail, error) {
	var out []models.RequestDetail
	for _, row := range s.oneOff {
		if row.ScheduledDate == nil {
			continue
		}
		if !row.ScheduledDate.Before(start) && row.ScheduledDate.Before(end) {
			out = append(out, row)
		}
	}
	return out, nil
}

func (s *scheduleStoreStub) Recurring(ctx context.Context) ([]models.RequestDetail, error) {
	return s.recurring, nil
}

func scheduledRow(id string, date time.Time) models.RequestDetail {
	return models.RequestDetail{Request: models.Request{
		ID:            id,
		RequestID:     "REQ-2026-" + id,
		ServiceType:   "Housekeeping",
		Title:         "Deep clean theatre 2",
		Priority:      models.PriorityMedium,
		Status:        models.StatusAssigned,
		ScheduledDate: &date,
	}}
}

func recurringRow(id, pattern string, anchor time.Time) models.RequestDetail {
	row := scheduledRow(id, anchor)
	row.Recurring = true
	row.RecurringPattern = &pattern
	return row
}

func TestScheduleDayMergesOneOffAndRecurring(t *testing.T) {
	day := time.Date(2026, 8, 12, 0, 0, 0, 0, time.UTC) // a Wednesday
	anchor := time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC)

	store := &scheduleStoreStub{
		oneOff:    []models.RequestDetail{scheduledRow("one", day)},
		recurring: []models.RequestDetail{recurringRow("rec", `{"pattern":"WEEKLY","weekdays":[3]}`, anchor)},
	}
	svc := NewScheduleService(store, zap.NewNop())

	resp, err := svc.Day(context.Background(), day)
	require.NoError(t, err)
	assert.Equal(t, "2026-08-12", resp.Date)
	require.Len(t, resp.Items, 2)
	assert.False(t, resp.Items[0].Occurrence)
	assert.True(t, resp.Items[1].Occurrence)
}

func TestScheduleDaySkipsUnreadablePattern(t *testing.T) {
	day := time.Date(2026, 8, 12, 0, 0, 0, 0, time.UTC)
	store := &scheduleStoreStub{
		recurring: []models.RequestDetail{recurringRow("bad", "FORTNIGHTLY", day.AddDate(0, 0, -7))},
	}
	svc := NewScheduleService(store, zap.NewNop())

	resp, err := svc.Day(context.Background(), day)
	require.NoError(t, err)
	assert.Empty(t, resp.Items)
}

func TestScheduleCalendarCountsOccurrences(t *testing.T) {
	anchor := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	store := &scheduleStoreStub{
		oneOff:    []models.RequestDetail{scheduledRow("one", time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC))},
		recurring: []models.RequestDetail{recurringRow("daily", "DAILY", anchor)},
	}
	svc := NewScheduleService(store, zap.NewNop())

	resp, err := svc.Calendar(context.Background(), 2026, 8)
	require.NoError(t, err)
	require.Len(t, resp.Days, 31)

	// Daily rule hits every day; the 15th also carries the one-off.
	assert.Equal(t, 1, resp.Days[0].Count)
	assert.Equal(t, 2, resp.Days[14].Count)
	assert.Equal(t, "2026-08-15", resp.Days[14].Date)
}

func TestScheduleCalendarRejectsBadMonth(t *testing.T) {
	svc := NewScheduleService(&scheduleStoreStub{}, zap.NewNop())
	_, err := svc.Calendar(context.Background(), 2026, 13)
	require.Error(t, err)
}

func TestOccursOnDaily(t *testing.T) {
	rule := &models.RecurrenceRule{Pattern: models.RecurDaily}
	anchor := time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)

	assert.True(t, OccursOn(rule, anchor, anchor))
	assert.True(t, OccursOn(rule, anchor, anchor.AddDate(0, 0, 25)))
	assert.False(t, OccursOn(rule, anchor, anchor.AddDate(0, 0, -1)))
}

func TestOccursOnWeekly(t *testing.T) {
	rule := &models.RecurrenceRule{Pattern: models.RecurWeekly, Weekdays: []time.Weekday{time.Monday, time.Thursday}}
	anchor := time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC) // Monday

	assert.True(t, OccursOn(rule, anchor, time.Date(2026, 8, 10, 0, 0, 0, 0, time.UTC)))  // Monday
	assert.True(t, OccursOn(rule, anchor, time.Date(2026, 8, 13, 0, 0, 0, 0, time.UTC)))  // Thursday
	assert.False(t, OccursOn(rule, anchor, time.Date(2026, 8, 11, 0, 0, 0, 0, time.UTC))) // Tuesday
}

func TestOccursOnMonthlyClampsShortMonths(t *testing.T) {
	rule := &models.RecurrenceRule{Pattern: models.RecurMonthly}
	anchor := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)

	// February 2026 has 28 days, so the occurrence lands on the 28th.
	assert.True(t, OccursOn(rule, anchor, time.Date(2026, 2, 28, 0, 0, 0, 0, time.UTC)))
	assert.False(t, OccursOn(rule, anchor, time.Date(2026, 2, 27, 0, 0, 0, 0, time.UTC)))
	assert.True(t, OccursOn(rule, anchor, time.Date(2026, 3, 31, 0, 0, 0, 0, time.UTC)))
	assert.False(t, OccursOn(rule, anchor, time.Date(2026, 3, 30, 0, 0, 0, 0, time.UTC)))
}

func TestParseRecurrenceRuleForms(t *testing.T) {
	bare, err := models.ParseRecurrenceRule("daily")
	require.NoError(t, err)
	assert.Equal(t, models.RecurDaily, bare.Pattern)

	weekly, err := models.ParseRecurrenceRule(`{"pattern":"WEEKLY","weekdays":[1,3]}`)
	require.NoError(t, err)
	assert.Equal(t, []time.Weekday{time.Monday, time.Wednesday}, weekly.Weekdays)

	_, err = models.ParseRecurrenceRule(`{"pattern":"WEEKLY"}`)
	require.Error(t, err)
}

func TestDatesMatchingBoundsRange(t *testing.T) {
	rule := &models.RecurrenceRule{Pattern: models.RecurWeekly, Weekdays: []time.Weekday{time.Monday}}
	anchor := time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC)

	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	dates := DatesMatching(rule, anchor, from, to)

	require.Len(t, dates, 5)
	assert.Equal(t, time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC), dates[0])
	assert.Equal(t, time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC), dates[4])
	for _, d := range dates {
		assert.Equal(t, time.Monday, d.Weekday())
	}
}
