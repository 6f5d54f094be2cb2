package app

import (
	"fmt"

	"bloodbridge/pkg/domain"
)

// CampView annotates a camp with the viewer's registration state.
type CampView struct {
	domain.Camp
	IsRegistered bool `json:"isRegistered"`
	SpotsLeft    int  `json:"spotsLeft"`
}

// ListCamps returns all camps with the viewer's registration status.
func (a *App) ListCamps(viewerID string) ([]CampView, error) {
	camps, err := a.store.ListCamps()
	if err != nil {
		return nil, fmt.Errorf("list camps: %w", err)
	}
	registered, err := a.store.ListCampRegistrations(viewerID)
	if err != nil {
		return nil, fmt.Errorf("list camp registrations: %w", err)
	}
	mine := make(map[string]bool, len(registered))
	for _, id := range registered {
		mine[id] = true
	}
	views := make([]CampView, 0, len(camps))
	for _, c := range camps {
		views = append(views, CampView{
			Camp:         c,
			IsRegistered: mine[c.ID],
			SpotsLeft:    c.Capacity - c.Registered,
		})
	}
	return views, nil
}

// RegisterForCamp books the user into a donation camp. Registration is
// capacity-checked and duplicate-free in the store.
func (a *App) RegisterForCamp(campID, userID string) (domain.Camp, error) {
	if _, found, err := a.store.GetCamp(campID); err != nil {
		return domain.Camp{}, fmt.Errorf("fetch camp: %w", err)
	} else if !found {
		return domain.Camp{}, ErrNotFound
	}

	camp, err := a.store.RegisterForCamp(campID, userID)
	if err != nil {
		return domain.Camp{}, err
	}

	if user, ok, err := a.store.GetUserByID(userID); err == nil && ok {
		a.recordActivity(userID, "camp_registration",
			fmt.Sprintf("%s registered for %s!", user.FullName, camp.Name), "🏕️")
		a.sendSMS(user.Phone, fmt.Sprintf(
			"You're registered for %s on %s at %s, %s. See you there!",
			camp.Name, camp.Date, camp.Time, camp.Location))
	}
	return camp, nil
}
