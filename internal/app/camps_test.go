package app

import (
	"errors"
	"testing"
	"time"

	"bloodbridge/internal/util"
	"bloodbridge/pkg/domain"
	"bloodbridge/pkg/store"
)

func seedCamp(t *testing.T, a *App, capacity int) domain.Camp {
	t.Helper()
	camp := domain.Camp{
		ID:        util.NewID(),
		Name:      "City Drive",
		Location:  "City Hospital",
		Date:      "2026-09-01",
		Time:      "09:00 - 17:00",
		Organizer: "City Hospital",
		Capacity:  capacity,
		CreatedAt: time.Now().UTC(),
	}
	if err := a.store.SaveCamp(camp); err != nil {
		t.Fatalf("save camp: %v", err)
	}
	return camp
}

func TestRegisterForCamp(t *testing.T) {
	a, notifier := newTestApp(t)
	user := mustRegister(t, a, "Ann", "ann@example.com", "9876543210", "O+")
	camp := seedCamp(t, a, 2)

	smsBase := notifier.smsCount("+919876543210")
	updated, err := a.RegisterForCamp(camp.ID, user.ID)
	if err != nil {
		t.Fatalf("register for camp: %v", err)
	}
	if updated.Registered != 1 {
		t.Fatalf("expected 1 registered, got %d", updated.Registered)
	}
	if notifier.smsCount("+919876543210")-smsBase != 1 {
		t.Fatalf("expected a confirmation SMS")
	}

	if _, err := a.RegisterForCamp(camp.ID, user.ID); !errors.Is(err, store.ErrAlreadyRegistered) {
		t.Fatalf("expected duplicate registration error, got %v", err)
	}
	if _, err := a.RegisterForCamp("missing", user.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected missing camp to 404, got %v", err)
	}

	views, err := a.ListCamps(user.ID)
	if err != nil {
		t.Fatalf("list camps: %v", err)
	}
	if len(views) != 1 || !views[0].IsRegistered || views[0].SpotsLeft != 1 {
		t.Fatalf("unexpected camp view: %+v", views)
	}
}

func TestRegisterForCampFull(t *testing.T) {
	a, _ := newTestApp(t)
	first := mustRegister(t, a, "Ann", "ann@example.com", "9876543210", "O+")
	second := mustRegister(t, a, "Omar", "omar@example.com", "9876543211", "O-")
	camp := seedCamp(t, a, 1)

	if _, err := a.RegisterForCamp(camp.ID, first.ID); err != nil {
		t.Fatalf("register first: %v", err)
	}
	if _, err := a.RegisterForCamp(camp.ID, second.ID); !errors.Is(err, store.ErrCampFull) {
		t.Fatalf("expected camp full error, got %v", err)
	}
}
