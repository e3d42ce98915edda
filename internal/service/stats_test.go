package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Tzelon/thunder-mail/internal/model"
)

func statsActivity(day time.Time, opened, clicked bool, statuses ...string) *model.Activity {
	a := &model.Activity{CreatedAt: day, Opened: opened, Clicked: clicked}
	for _, s := range statuses {
		a.History = append(a.History, model.HistoryEntry{Status: s, OccurredAt: day})
	}
	return a
}

func TestGetStatsGroupedByDay(t *testing.T) {
	acts := newMockActivityRepo()
	day1 := time.Date(2026, 8, 3, 10, 0, 0, 0, time.UTC)
	day2 := time.Date(2026, 8, 4, 10, 0, 0, 0, time.UTC)
	acts.pending = []*model.Activity{
		statsActivity(day1, true, false, model.StatusSend, model.StatusDelivery),
		statsActivity(day1, false, false, model.StatusSend, model.StatusBounce),
		statsActivity(day2, true, true, model.StatusSend, model.StatusDelivery, model.StatusUnsubscribe),
	}

	svc := &StatsService{Activities: acts}
	buckets, err := svc.GetStats(1, StatsQuery{From: day1, To: day2.AddDate(0, 0, 1)})
	require.NoError(t, err)

	require.Len(t, buckets, 2)
	assert.Equal(t, "2026-08-03", buckets[0].Date)
	assert.Equal(t, StatsTotal{Sent: 2, Opens: 1, Delivered: 1, Bounced: 1}, buckets[0].Stats)
	assert.Equal(t, "2026-08-04", buckets[1].Date)
	assert.Equal(t, StatsTotal{Sent: 1, Opens: 1, Clicks: 1, Delivered: 1, Unsubscribed: 1}, buckets[1].Stats)
}

func TestGetStatsGroupedByWeek(t *testing.T) {
	acts := newMockActivityRepo()
	// Wednesday Aug 5 2026 falls in the Monday Aug 3 week
	wednesday := time.Date(2026, 8, 5, 10, 0, 0, 0, time.UTC)
	acts.pending = []*model.Activity{statsActivity(wednesday, false, false, model.StatusSend)}

	svc := &StatsService{Activities: acts}
	buckets, err := svc.GetStats(1, StatsQuery{From: wednesday, To: wednesday.AddDate(0, 0, 1), GroupBy: "week"})
	require.NoError(t, err)

	require.Len(t, buckets, 1)
	assert.Equal(t, "2026-08-03-2026-08-09", buckets[0].Date)
	assert.Equal(t, 1, buckets[0].Stats.Sent)
}

func TestGetStatsGroupedByMonth(t *testing.T) {
	acts := newMockActivityRepo()
	mid := time.Date(2026, 2, 14, 10, 0, 0, 0, time.UTC)
	acts.pending = []*model.Activity{statsActivity(mid, false, false, model.StatusSend)}

	svc := &StatsService{Activities: acts}
	buckets, err := svc.GetStats(1, StatsQuery{From: mid, To: mid.AddDate(0, 0, 1), GroupBy: "month"})
	require.NoError(t, err)

	require.Len(t, buckets, 1)
	assert.Equal(t, "2026-02-01-2026-02-28", buckets[0].Date)
}

func TestGetStatsRejectsUnknownGroupBy(t *testing.T) {
	svc := &StatsService{Activities: newMockActivityRepo()}
	_, err := svc.GetStats(1, StatsQuery{GroupBy: "year"})
	assert.Error(t, err)
}
