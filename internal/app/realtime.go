package app

import (
	"fmt"
	"time"

	"bloodbridge/pkg/domain"
)

// recentActivityWindow marks feed entries as new on the live dashboard.
const recentActivityWindow = time.Minute

// ActivityView is a feed entry flagged for dashboard highlighting.
type ActivityView struct {
	domain.Activity
	IsNew bool `json:"isNew"`
}

// RequestSummary is the compact pending-request row on the dashboard.
type RequestSummary struct {
	ID        string           `json:"id"`
	BloodType domain.BloodType `json:"bloodType"`
	Location  string           `json:"location"`
	Urgency   domain.Urgency   `json:"urgency"`
	CreatedAt time.Time        `json:"createdAt"`
}

// Snapshot is the realtime dashboard payload.
type Snapshot struct {
	ActiveRequests  int                                         `json:"activeRequests"`
	OnlineDonors    int                                         `json:"onlineDonors"`
	ActiveAlerts    int                                         `json:"activeAlerts"`
	CriticalAlerts  int                                         `json:"criticalAlerts"`
	DonationsToday  int                                         `json:"donationsToday"`
	TotalUsers      int                                         `json:"totalUsers"`
	RecentActivity  []ActivityView                              `json:"recentActivity"`
	PendingRequests []RequestSummary                            `json:"pendingRequests"`
	Inventory       map[domain.BloodType]domain.InventoryStatus `json:"inventory"`
	Timestamp       time.Time                                   `json:"timestamp"`
}

// RealtimeSnapshot assembles the live dashboard in one pass. Critical
// alerts are active alerts whose needed group reads critical in inventory.
func (a *App) RealtimeSnapshot() (Snapshot, error) {
	now := time.Now().UTC()

	pending, err := a.store.ListRequestsByStatus(domain.RequestPending)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list pending requests: %w", err)
	}
	donated, err := a.store.ListRequestsByStatus(domain.RequestDonated)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list donated requests: %w", err)
	}
	alerts, err := a.store.ListAlertsByStatus(domain.AlertActive)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list alerts: %w", err)
	}
	inventory, err := a.InventorySnapshot()
	if err != nil {
		return Snapshot{}, err
	}
	users, err := a.store.UserCount()
	if err != nil {
		return Snapshot{}, fmt.Errorf("count users: %w", err)
	}
	feed, err := a.store.ListActivity(10)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list activity: %w", err)
	}

	donationsToday := 0
	for _, r := range donated {
		if r.DonatedAt != nil && sameDay(*r.DonatedAt, now) {
			donationsToday++
		}
	}

	criticalAlerts := 0
	for _, alert := range alerts {
		if inventory[alert.BloodType].Status == domain.InventoryCritical {
			criticalAlerts++
		}
	}

	activity := make([]ActivityView, 0, len(feed))
	for _, entry := range feed {
		activity = append(activity, ActivityView{
			Activity: entry,
			IsNew:    now.Sub(entry.CreatedAt) < recentActivityWindow,
		})
	}

	summaries := make([]RequestSummary, 0, len(pending))
	for i := len(pending) - 1; i >= 0; i-- {
		r := pending[i]
		summaries = append(summaries, RequestSummary{
			ID:        r.ID,
			BloodType: r.BloodType,
			Location:  r.Location,
			Urgency:   r.Urgency,
			CreatedAt: r.CreatedAt,
		})
	}

	return Snapshot{
		ActiveRequests:  len(pending),
		OnlineDonors:    a.presence.OnlineCount(),
		ActiveAlerts:    len(alerts),
		CriticalAlerts:  criticalAlerts,
		DonationsToday:  donationsToday,
		TotalUsers:      users,
		RecentActivity:  activity,
		PendingRequests: summaries,
		Inventory:       inventory,
		Timestamp:       now,
	}, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
