package app

import (
	"fmt"
	"testing"

	"bloodbridge/pkg/domain"
)

// completeDonation drives one request through the full lifecycle.
func completeDonation(t *testing.T, a *App, requesterID, donorID string, bt string) {
	t.Helper()
	r := mustCreateRequest(t, a, requesterID, CreateRequestInput{
		BloodType: bt, Location: "Clinic", Quantity: 1, Urgency: "medium",
	})
	if _, err := a.AcceptRequest(r.ID, donorID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := a.ConfirmDonation(r.ID, requesterID); err != nil {
		t.Fatalf("confirm: %v", err)
	}
}

func TestDonationMilestoneBadges(t *testing.T) {
	a, _ := newTestApp(t)
	requester := mustRegister(t, a, "Ann", "ann@example.com", "9876543210", "AB+")
	donor := mustRegister(t, a, "Omar", "omar@example.com", "9876543211", "O+")

	milestones := []struct {
		donation int
		badge    string
	}{
		{1, "first_blood"},
		{3, "lifesaver_3"},
		{5, "hero"},
	}
	done := 0
	for _, m := range milestones {
		for done < m.donation {
			completeDonation(t, a, requester.ID, donor.ID, "A+")
			done++
		}
		stats, err := a.Stats(donor.ID)
		if err != nil {
			t.Fatalf("stats after %d donations: %v", done, err)
		}
		if !hasBadge(stats.Badges, m.badge) {
			t.Fatalf("expected %s after %d donations, got %+v", m.badge, done, stats.Badges)
		}
	}

	// O+ is not a rare group.
	stats, _ := a.Stats(donor.ID)
	if hasBadge(stats.Badges, "rare_donor") {
		t.Fatalf("O+ donor must not earn rare_donor")
	}
	// Badges are not duplicated by further donations.
	completeDonation(t, a, requester.ID, donor.ID, "A+")
	stats, _ = a.Stats(donor.ID)
	if len(stats.Badges) != 3 {
		t.Fatalf("expected exactly 3 badges, got %d", len(stats.Badges))
	}
}

func TestRareDonorBadge(t *testing.T) {
	a, _ := newTestApp(t)
	requester := mustRegister(t, a, "Ann", "ann@example.com", "9876543210", "AB+")
	rare := mustRegister(t, a, "Omar", "omar@example.com", "9876543211", "O-")

	completeDonation(t, a, requester.ID, rare.ID, "A+")
	stats, err := a.Stats(rare.ID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if !hasBadge(stats.Badges, "rare_donor") {
		t.Fatalf("expected rare_donor for O- donor, got %+v", stats.Badges)
	}
}

func TestLeaderboardRankingAndTies(t *testing.T) {
	a, _ := newTestApp(t)
	requester := mustRegister(t, a, "Ann", "ann@example.com", "9876543210", "AB+")

	donors := make([]domain.User, 3)
	for i := range donors {
		donors[i] = mustRegister(t, a, fmt.Sprintf("Donor %d", i),
			fmt.Sprintf("d%d@example.com", i), fmt.Sprintf("987654322%d", i), "O+")
	}

	// donor0: 1 donation, donor1: 3, donor2: 1 (after donor0).
	completeDonation(t, a, requester.ID, donors[0].ID, "A+")
	for i := 0; i < 3; i++ {
		completeDonation(t, a, requester.ID, donors[1].ID, "A+")
	}
	completeDonation(t, a, requester.ID, donors[2].ID, "A+")

	entries, err := a.Leaderboard()
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].UserID != donors[1].ID || entries[0].Donations != 3 {
		t.Fatalf("expected donor1 on top with 3 donations, got %+v", entries[0])
	}
	// Tied donors keep first-donation order.
	if entries[1].UserID != donors[0].ID || entries[2].UserID != donors[2].ID {
		t.Fatalf("tie order wrong: %s then %s", entries[1].UserID, entries[2].UserID)
	}
	if entries[0].Rank != 1 || entries[1].Rank != 2 || entries[2].Rank != 3 {
		t.Fatalf("unexpected ranks: %d %d %d", entries[0].Rank, entries[1].Rank, entries[2].Rank)
	}
	if entries[0].LivesSaved != 9 {
		t.Fatalf("expected 9 lives saved for 3 donations, got %d", entries[0].LivesSaved)
	}
}

func TestLeaderboardCapsAtTwenty(t *testing.T) {
	a, _ := newTestApp(t)
	requester := mustRegister(t, a, "Ann", "ann@example.com", "9876543210", "AB+")

	for i := 0; i < 25; i++ {
		donor := mustRegister(t, a, fmt.Sprintf("Donor %d", i),
			fmt.Sprintf("d%d@example.com", i), fmt.Sprintf("98765%05d", i), "O+")
		completeDonation(t, a, requester.ID, donor.ID, "A+")
	}

	entries, err := a.Leaderboard()
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(entries) != 20 {
		t.Fatalf("leaderboard must cap at 20, got %d", len(entries))
	}
}

func TestRealtimeSnapshot(t *testing.T) {
	a, _ := newTestApp(t)
	requester := mustRegister(t, a, "Ann", "ann@example.com", "9876543210", "AB+")
	donor := mustRegister(t, a, "Omar", "omar@example.com", "9876543211", "O+")

	mustCreateRequest(t, a, requester.ID, CreateRequestInput{
		BloodType: "A+", Location: "Clinic", Quantity: 1, Urgency: "high",
	})
	completeDonation(t, a, requester.ID, donor.ID, "B+")
	if _, err := a.RaiseAlert(requester.ID, RaiseAlertInput{}); err != nil {
		t.Fatalf("raise alert: %v", err)
	}
	a.TouchPresence(donor.ID)

	snap, err := a.RealtimeSnapshot()
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	if snap.ActiveRequests != 1 {
		t.Fatalf("expected 1 active request, got %d", snap.ActiveRequests)
	}
	if snap.ActiveAlerts != 1 {
		t.Fatalf("expected 1 active alert, got %d", snap.ActiveAlerts)
	}
	if snap.DonationsToday != 1 {
		t.Fatalf("expected 1 donation today, got %d", snap.DonationsToday)
	}
	if snap.TotalUsers != 2 {
		t.Fatalf("expected 2 users, got %d", snap.TotalUsers)
	}
	if snap.OnlineDonors < 1 {
		t.Fatalf("expected at least one online donor, got %d", snap.OnlineDonors)
	}
	if len(snap.RecentActivity) == 0 || !snap.RecentActivity[0].IsNew {
		t.Fatalf("expected fresh activity entries flagged as new")
	}
	if len(snap.PendingRequests) != 1 {
		t.Fatalf("expected 1 pending summary, got %d", len(snap.PendingRequests))
	}
	if snap.Inventory[domain.BPos].Units != 19 {
		t.Fatalf("expected B+ inventory 18+1=19, got %d", snap.Inventory[domain.BPos].Units)
	}
}
