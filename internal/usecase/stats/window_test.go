package stats

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tg-chat-stats-bot/internal/domain"
)

var warsaw = mustLoadLocation("Europe/Warsaw")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err)
	}
	return loc
}

func msgAt(username string, ts time.Time) domain.Message {
	return domain.Message{Username: username, Timestamp: ts, Kind: domain.KindText, Text: "hi"}
}

func TestWindowOfTotalReturnsIndependentCopy(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, warsaw)
	source := []domain.Message{
		msgAt("alice", now.Add(-time.Hour)),
		msgAt("bob", now.Add(-2*time.Hour)),
	}

	out := WindowOf(source, Request{Mode: domain.ModeTotal}, now, warsaw)
	require.Equal(t, source, out)

	out[0].Username = "mallory"
	require.Equal(t, "alice", source[0].Username)
}

func TestWindowOfHours(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, warsaw)
	source := []domain.Message{
		msgAt("in", now.Add(-time.Hour)),
		msgAt("out", now.Add(-50*time.Hour)),
	}

	out := WindowOf(source, Request{Mode: domain.ModeHours, Hours: 48}, now, warsaw)
	require.Len(t, out, 1)
	require.Equal(t, "in", out[0].Username)
}

func TestWindowOfWeekCountsFromLocalMidnight(t *testing.T) {
	now := time.Date(2024, 5, 10, 1, 0, 0, 0, warsaw)
	weekAgoMidnight := time.Date(2024, 5, 3, 0, 0, 0, 0, warsaw)
	source := []domain.Message{
		msgAt("in", weekAgoMidnight),
		msgAt("out", weekAgoMidnight.Add(-time.Minute)),
	}

	out := WindowOf(source, Request{Mode: domain.ModeWeek}, now, warsaw)
	require.Len(t, out, 1)
	require.Equal(t, "in", out[0].Username)
}

func TestWindowOfYesterdayIsBoundedRange(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, warsaw)
	midnight := time.Date(2024, 5, 10, 0, 0, 0, 0, warsaw)
	source := []domain.Message{
		msgAt("today", midnight.Add(time.Hour)),
		msgAt("yesterday", midnight.Add(-time.Hour)),
		msgAt("older", midnight.Add(-25*time.Hour)),
	}

	out := WindowOf(source, Request{Mode: domain.ModeYesterday}, now, warsaw)
	require.Len(t, out, 1)
	require.Equal(t, "yesterday", out[0].Username)
}

func TestShiftedWindowOfHoursPrecedesCurrentWindow(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, warsaw)
	source := []domain.Message{
		msgAt("current", now.Add(-time.Hour)),
		msgAt("previous", now.Add(-30*time.Hour)),
		msgAt("ancient", now.Add(-100*time.Hour)),
	}

	out := ShiftedWindowOf(source, Request{Mode: domain.ModeHours, Hours: 24}, now, warsaw)
	require.Len(t, out, 1)
	require.Equal(t, "previous", out[0].Username)
}

func TestShiftedWindowOfWeekIsDaysSevenToFourteen(t *testing.T) {
	now := time.Date(2024, 5, 15, 12, 0, 0, 0, warsaw)
	midnight := time.Date(2024, 5, 15, 0, 0, 0, 0, warsaw)
	source := []domain.Message{
		msgAt("current", midnight.AddDate(0, 0, -3)),
		msgAt("previous", midnight.AddDate(0, 0, -10)),
		msgAt("ancient", midnight.AddDate(0, 0, -20)),
	}

	out := ShiftedWindowOf(source, Request{Mode: domain.ModeWeek}, now, warsaw)
	require.Len(t, out, 1)
	require.Equal(t, "previous", out[0].Username)
}

func TestShiftedWindowOfTodayIsYesterday(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, warsaw)
	midnight := time.Date(2024, 5, 10, 0, 0, 0, 0, warsaw)
	source := []domain.Message{
		msgAt("today", midnight.Add(time.Hour)),
		msgAt("yesterday", midnight.Add(-12*time.Hour)),
		msgAt("daybefore", midnight.Add(-36*time.Hour)),
	}

	out := ShiftedWindowOf(source, Request{Mode: domain.ModeToday}, now, warsaw)
	require.Len(t, out, 1)
	require.Equal(t, "yesterday", out[0].Username)
}

func TestShiftedWindowOfTotalIsEmpty(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, warsaw)
	source := []domain.Message{msgAt("alice", now.Add(-time.Hour))}
	require.Empty(t, ShiftedWindowOf(source, Request{Mode: domain.ModeTotal}, now, warsaw))
}

func TestPercentDeltaEmptyBaselineIsZero(t *testing.T) {
	require.Equal(t, 0.0, PercentDelta(42, 0))
	require.Equal(t, "0%", FormatDelta(PercentDelta(42, 0)))
}

func TestPercentDeltaFormatting(t *testing.T) {
	require.Equal(t, 50.0, PercentDelta(15, 10))
	require.Equal(t, "+50%", FormatDelta(50))
	require.Equal(t, "-20%", FormatDelta(-20))
	require.Equal(t, 12.5, PercentDelta(9, 8))
	require.Equal(t, "+12.5%", FormatDelta(12.5))
}
