package app

import (
	"errors"
	"testing"

	"bloodbridge/pkg/domain"
)

func TestRaiseAlertDefaultsFromProfile(t *testing.T) {
	a, _ := newTestApp(t)
	user := mustRegister(t, a, "Ann", "ann@example.com", "9876543210", "B-")

	alert, err := a.RaiseAlert(user.ID, RaiseAlertInput{})
	if err != nil {
		t.Fatalf("raise alert: %v", err)
	}
	if alert.BloodType != domain.BNeg {
		t.Fatalf("expected blood type from profile, got %s", alert.BloodType)
	}
	if alert.Location != "Emergency Location" || alert.Hospital != "Nearest Hospital" {
		t.Fatalf("expected placeholder location/hospital, got %q / %q", alert.Location, alert.Hospital)
	}
	if alert.ContactPhone != user.Phone {
		t.Fatalf("expected contact from profile, got %q", alert.ContactPhone)
	}
	if alert.Status != domain.AlertActive {
		t.Fatalf("new alert must be active, got %s", alert.Status)
	}
	if len(alert.Responders) != 0 {
		t.Fatalf("new alert must have no responders")
	}
}

func TestRaiseAlertNotifiesCompatibleDonorsExceptRaiser(t *testing.T) {
	a, notifier := newTestApp(t)
	raiser := mustRegister(t, a, "Ann", "ann@example.com", "9876543210", "O-")
	mustRegister(t, a, "Omar", "omar@example.com", "9876543211", "O-")  // only O- serves O-
	mustRegister(t, a, "Bela", "bela@example.com", "9876543212", "O+")

	raiserBase := notifier.smsCount("+919876543210")
	omarBase := notifier.smsCount("+919876543211")
	belaBase := notifier.smsCount("+919876543212")

	if _, err := a.RaiseAlert(raiser.ID, RaiseAlertInput{}); err != nil {
		t.Fatalf("raise alert: %v", err)
	}

	if got := notifier.smsCount("+919876543210") - raiserBase; got != 0 {
		t.Fatalf("raiser must not be notified about own alert, got %d", got)
	}
	if got := notifier.smsCount("+919876543211") - omarBase; got != 1 {
		t.Fatalf("expected O- donor to get 1 emergency SMS, got %d", got)
	}
	if got := notifier.smsCount("+919876543212") - belaBase; got != 0 {
		t.Fatalf("O+ donor cannot serve O-, expected no SMS, got %d", got)
	}
}

func TestActiveAlertsAnnotatesCanHelp(t *testing.T) {
	a, _ := newTestApp(t)
	raiser := mustRegister(t, a, "Ann", "ann@example.com", "9876543210", "A+")
	helper := mustRegister(t, a, "Omar", "omar@example.com", "9876543211", "O-")
	bystander := mustRegister(t, a, "Bela", "bela@example.com", "9876543212", "AB+")

	if _, err := a.RaiseAlert(raiser.ID, RaiseAlertInput{}); err != nil {
		t.Fatalf("raise alert: %v", err)
	}

	views, err := a.ActiveAlerts(helper)
	if err != nil {
		t.Fatalf("active alerts: %v", err)
	}
	if len(views) != 1 || !views[0].CanHelp {
		t.Fatalf("O- donor should be able to help an A+ alert: %+v", views)
	}

	views, _ = a.ActiveAlerts(bystander)
	if views[0].CanHelp {
		t.Fatalf("AB+ donor cannot serve an A+ alert")
	}
	// The raiser can never help their own alert, compatible or not.
	views, _ = a.ActiveAlerts(raiser)
	if views[0].CanHelp {
		t.Fatalf("raiser must not be offered their own alert")
	}
}

func TestRespondToAlertRules(t *testing.T) {
	a, notifier := newTestApp(t)
	raiser := mustRegister(t, a, "Ann", "ann@example.com", "9876543210", "A+")
	helper := mustRegister(t, a, "Omar", "omar@example.com", "9876543211", "O-")

	alert, err := a.RaiseAlert(raiser.ID, RaiseAlertInput{})
	if err != nil {
		t.Fatalf("raise alert: %v", err)
	}

	if _, err := a.RespondToAlert(alert.ID, raiser.ID); !errors.Is(err, ErrSelfAction) {
		t.Fatalf("expected self-response to fail, got %v", err)
	}

	contactBase := notifier.smsCount("+919876543210")
	updated, err := a.RespondToAlert(alert.ID, helper.ID)
	if err != nil {
		t.Fatalf("respond: %v", err)
	}
	if len(updated.Responders) != 1 || updated.Responders[0] != helper.ID {
		t.Fatalf("unexpected responders: %v", updated.Responders)
	}
	if notifier.smsCount("+919876543210")-contactBase != 1 {
		t.Fatalf("expected alert contact to be notified of responder")
	}

	// Duplicate response is rejected and the responder list stays unique.
	if _, err := a.RespondToAlert(alert.ID, helper.ID); !errors.Is(err, ErrAlreadyResponded) {
		t.Fatalf("expected duplicate response to fail, got %v", err)
	}

	stats, err := a.Stats(helper.ID)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if !hasBadge(stats.Badges, "emergency_responder") {
		t.Fatalf("expected emergency_responder badge, got %+v", stats.Badges)
	}

	if _, err := a.RespondToAlert("missing", helper.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected missing alert to 404, got %v", err)
	}
}

func TestDeactivateAlert(t *testing.T) {
	a, _ := newTestApp(t)
	raiser := mustRegister(t, a, "Ann", "ann@example.com", "9876543210", "A+")
	other := mustRegister(t, a, "Omar", "omar@example.com", "9876543211", "O-")

	alert, err := a.RaiseAlert(raiser.ID, RaiseAlertInput{})
	if err != nil {
		t.Fatalf("raise alert: %v", err)
	}

	if _, err := a.DeactivateAlert(alert.ID, other.ID); !errors.Is(err, ErrPermission) {
		t.Fatalf("expected non-owner deactivate to fail, got %v", err)
	}

	deactivated, err := a.DeactivateAlert(alert.ID, raiser.ID)
	if err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	if deactivated.Status != domain.AlertInactive {
		t.Fatalf("expected inactive status, got %s", deactivated.Status)
	}
	if _, err := a.DeactivateAlert(alert.ID, raiser.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected double deactivate to fail, got %v", err)
	}

	// Inactive alerts disappear from the active list and reject responses.
	views, _ := a.ActiveAlerts(other)
	if len(views) != 0 {
		t.Fatalf("expected no active alerts, got %d", len(views))
	}
	if _, err := a.RespondToAlert(alert.ID, other.ID); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("expected response to inactive alert to fail, got %v", err)
	}
}
