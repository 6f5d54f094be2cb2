package app

import (
	"fmt"
	"strings"
	"time"

	"bloodbridge/internal/util"
	"bloodbridge/pkg/domain"
)

// RaiseAlertInput carries optional overrides for an SOS alert. Empty
// fields fall back to the raising user's profile.
type RaiseAlertInput struct {
	BloodType    string
	Location     string
	Hospital     string
	ContactPhone string
	Details      string
}

// RaiseAlert broadcasts an emergency blood need. Unlike requests, an
// alert requires no quantity and is filled in from the user's profile
// so it can be raised in one tap.
func (a *App) RaiseAlert(userID string, in RaiseAlertInput) (domain.EmergencyAlert, error) {
	user, found, err := a.store.GetUserByID(userID)
	if err != nil {
		return domain.EmergencyAlert{}, fmt.Errorf("fetch user: %w", err)
	}
	if !found {
		return domain.EmergencyAlert{}, ErrNotFound
	}

	bt := user.BloodType
	if raw := strings.TrimSpace(in.BloodType); raw != "" {
		parsed, ok := domain.ParseBloodType(raw)
		if !ok {
			return domain.EmergencyAlert{}, validationErr("bloodType", "unknown blood type")
		}
		bt = parsed
	}
	location := strings.TrimSpace(in.Location)
	if location == "" {
		location = "Emergency Location"
	}
	hospital := strings.TrimSpace(in.Hospital)
	if hospital == "" {
		hospital = "Nearest Hospital"
	}
	contactPhone := strings.TrimSpace(in.ContactPhone)
	if contactPhone == "" {
		contactPhone = user.Phone
	} else if !domain.ValidPhone(contactPhone) {
		return domain.EmergencyAlert{}, validationErr("contactPhone", "phone must be 10-15 digits")
	}
	details := strings.TrimSpace(in.Details)
	if details == "" {
		details = fmt.Sprintf("SOS emergency alert raised by %s", user.FullName)
	}

	alert := domain.EmergencyAlert{
		ID:           util.NewID(),
		RequesterID:  userID,
		BloodType:    bt,
		Location:     location,
		Hospital:     hospital,
		ContactPhone: contactPhone,
		Details:      details,
		Status:       domain.AlertActive,
		Responders:   []string{},
		CreatedAt:    time.Now().UTC(),
	}
	if err := a.store.SaveAlert(alert); err != nil {
		return domain.EmergencyAlert{}, fmt.Errorf("save alert: %w", err)
	}

	a.recordActivity(userID, "sos",
		fmt.Sprintf("EMERGENCY: %s needs %s blood urgently at %s!", user.FullName, bt, hospital), "🆘")
	a.notifyAlertDonors(alert, user.FullName)
	return alert, nil
}

// notifyAlertDonors texts every compatible donor except the person who
// raised the alert.
func (a *App) notifyAlertDonors(alert domain.EmergencyAlert, requesterName string) {
	users, err := a.store.ListUsers()
	if err != nil {
		return
	}
	message := fmt.Sprintf("EMERGENCY: %s blood needed NOW at %s, %s. Contact %s immediately: %s",
		alert.BloodType, alert.Hospital, alert.Location, requesterName, alert.ContactPhone)
	for _, u := range users {
		if u.ID == alert.RequesterID {
			continue
		}
		if domain.CanDonate(u.BloodType, alert.BloodType) && u.Phone != "" {
			a.sendSMS(u.Phone, message)
		}
	}
	a.broadcast("alerts", message)
}

// ActiveAlerts lists active alerts newest first, annotated for the viewer.
func (a *App) ActiveAlerts(viewer domain.User) ([]domain.AlertView, error) {
	alerts, err := a.store.ListAlertsByStatus(domain.AlertActive)
	if err != nil {
		return nil, fmt.Errorf("list alerts: %w", err)
	}
	views := make([]domain.AlertView, 0, len(alerts))
	for _, alert := range alerts {
		views = append(views, domain.AlertView{
			EmergencyAlert: alert,
			CanHelp:        alert.RequesterID != viewer.ID && domain.CanDonate(viewer.BloodType, alert.BloodType),
			ResponderCount: len(alert.Responders),
		})
	}
	return views, nil
}

// RespondToAlert records that the user is coming to help. Responders are
// unique per alert and the raiser cannot respond to their own alert.
func (a *App) RespondToAlert(alertID, userID string) (domain.EmergencyAlert, error) {
	alert, found, err := a.store.GetAlert(alertID)
	if err != nil {
		return domain.EmergencyAlert{}, fmt.Errorf("fetch alert: %w", err)
	}
	if !found {
		return domain.EmergencyAlert{}, ErrNotFound
	}
	if alert.Status != domain.AlertActive {
		return domain.EmergencyAlert{}, ErrInvalidState
	}
	if alert.RequesterID == userID {
		return domain.EmergencyAlert{}, ErrSelfAction
	}
	for _, r := range alert.Responders {
		if r == userID {
			return domain.EmergencyAlert{}, ErrAlreadyResponded
		}
	}

	alert.Responders = append(alert.Responders, userID)
	if err := a.store.SaveAlert(alert); err != nil {
		return domain.EmergencyAlert{}, fmt.Errorf("save alert: %w", err)
	}

	a.awardBadge(userID, badgeEmergencyResponder)
	if responder, ok, err := a.store.GetUserByID(userID); err == nil && ok {
		a.recordActivity(userID, "sos_response",
			fmt.Sprintf("%s is responding to an emergency alert!", responder.FullName), "🦸")
		a.sendSMS(alert.ContactPhone, fmt.Sprintf(
			"HELP IS COMING! %s (%s) is responding to your emergency. Phone: %s",
			responder.FullName, responder.BloodType, responder.Phone))
	}
	return alert, nil
}

// DeactivateAlert retires an active alert. Only the user who raised it
// may deactivate it.
func (a *App) DeactivateAlert(alertID, userID string) (domain.EmergencyAlert, error) {
	alert, found, err := a.store.GetAlert(alertID)
	if err != nil {
		return domain.EmergencyAlert{}, fmt.Errorf("fetch alert: %w", err)
	}
	if !found {
		return domain.EmergencyAlert{}, ErrNotFound
	}
	if alert.RequesterID != userID {
		return domain.EmergencyAlert{}, ErrPermission
	}
	if alert.Status != domain.AlertActive {
		return domain.EmergencyAlert{}, ErrInvalidState
	}

	alert.Status = domain.AlertInactive
	if err := a.store.SaveAlert(alert); err != nil {
		return domain.EmergencyAlert{}, fmt.Errorf("save alert: %w", err)
	}
	return alert, nil
}
