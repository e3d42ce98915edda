// internal/service/stats.go
package service

import (
	"fmt"
	"time"

	"github.com/Tzelon/thunder-mail/internal/model"
	"github.com/Tzelon/thunder-mail/internal/repository"
)

// StatsBucket aggregates activity outcomes for one date bucket.
type StatsBucket struct {
	Date  string     `json:"date"`
	Stats StatsTotal `json:"stats"`
}

type StatsTotal struct {
	Sent         int `json:"sent"`
	Opens        int `json:"opens"`
	Clicks       int `json:"clicks"`
	Delivered    int `json:"delivered"`
	Bounced      int `json:"bounced"`
	Unsubscribed int `json:"unsubscribed"`
}

type StatsQuery struct {
	From    time.Time
	To      time.Time
	GroupBy string // "day" | "week" | "month"
	Limit   int
	Offset  int
}

type StatsService struct {
	Activities repository.ActivityRepositoryInterface
}

// GetStats buckets an org's activities in [From, To) by day, week or month,
// deriving delivered/bounced/unsubscribed from the history log and
// opens/clicks from the one-way flags.
func (s *StatsService) GetStats(orgID int, q StatsQuery) ([]StatsBucket, error) {
	if q.Limit <= 0 {
		q.Limit = 25
	}
	switch q.GroupBy {
	case "", "day":
		q.GroupBy = "day"
	case "week", "month":
	default:
		return nil, fmt.Errorf("unsupported group_by %q", q.GroupBy)
	}

	activities, err := s.Activities.ListBetween(orgID, q.From, q.To, q.Limit, q.Offset)
	if err != nil {
		return nil, err
	}

	order := []string{}
	buckets := map[string]*StatsTotal{}
	for _, a := range activities {
		key := bucketKey(a.CreatedAt, q.GroupBy)
		total, ok := buckets[key]
		if !ok {
			total = &StatsTotal{}
			buckets[key] = total
			order = append(order, key)
		}

		total.Sent++
		if a.Opened {
			total.Opens++
		}
		if a.Clicked {
			total.Clicks++
		}
		if hasStatus(a.History, model.StatusDelivery) {
			total.Delivered++
		}
		if hasStatus(a.History, model.StatusBounce) {
			total.Bounced++
		}
		if hasStatus(a.History, model.StatusUnsubscribe) {
			total.Unsubscribed++
		}
	}

	out := make([]StatsBucket, 0, len(order))
	for _, key := range order {
		out = append(out, StatsBucket{Date: key, Stats: *buckets[key]})
	}
	return out, nil
}

func hasStatus(history []model.HistoryEntry, status string) bool {
	for _, e := range history {
		if e.Status == status {
			return true
		}
	}
	return false
}

func bucketKey(t time.Time, groupBy string) string {
	switch groupBy {
	case "week":
		start := t.AddDate(0, 0, -int((t.Weekday()+6)%7)) // Monday
		end := start.AddDate(0, 0, 6)
		return start.Format("2006-01-02") + "-" + end.Format("2006-01-02")
	case "month":
		start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
		end := start.AddDate(0, 1, -1)
		return start.Format("2006-01-02") + "-" + end.Format("2006-01-02")
	default:
		return t.Format("2006-01-02")
	}
}
