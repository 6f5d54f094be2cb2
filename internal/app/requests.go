package app

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"bloodbridge/internal/util"
	"bloodbridge/pkg/domain"
)

const (
	minRequestQuantity = 1
	maxRequestQuantity = 10
)

// CreateRequestInput carries the fields of a new blood request.
type CreateRequestInput struct {
	BloodType    string
	Location     string
	Quantity     int
	Urgency      string
	ContactPhone string
	Notes        string
}

// CreateRequest validates and stores a new pending request, then notifies
// compatible donors.
func (a *App) CreateRequest(requesterID string, in CreateRequestInput) (domain.BloodRequest, error) {
	location := strings.TrimSpace(in.Location)
	if location == "" {
		return domain.BloodRequest{}, validationErr("location", "location is required")
	}
	bt, ok := domain.ParseBloodType(in.BloodType)
	if !ok {
		return domain.BloodRequest{}, validationErr("bloodType", "unknown blood type")
	}
	if in.Quantity < minRequestQuantity || in.Quantity > maxRequestQuantity {
		return domain.BloodRequest{}, validationErr("quantity", "quantity must be between 1 and 10")
	}
	urgency, ok := domain.ParseUrgency(in.Urgency)
	if !ok {
		return domain.BloodRequest{}, validationErr("urgency", "unknown urgency level")
	}
	contactPhone := strings.TrimSpace(in.ContactPhone)
	if contactPhone != "" && !domain.ValidPhone(contactPhone) {
		return domain.BloodRequest{}, validationErr("contactPhone", "phone must be 10-15 digits")
	}

	requester, found, err := a.store.GetUserByID(requesterID)
	if err != nil {
		return domain.BloodRequest{}, fmt.Errorf("fetch requester: %w", err)
	}
	if !found {
		return domain.BloodRequest{}, ErrNotFound
	}
	if contactPhone == "" {
		contactPhone = requester.Phone
	}

	request := domain.BloodRequest{
		ID:           util.NewID(),
		RequesterID:  requesterID,
		BloodType:    bt,
		Location:     location,
		Quantity:     in.Quantity,
		Urgency:      urgency,
		ContactPhone: contactPhone,
		Notes:        strings.TrimSpace(in.Notes),
		Status:       domain.RequestPending,
		CreatedAt:    time.Now().UTC(),
	}
	if err := a.store.SaveRequest(request); err != nil {
		return domain.BloodRequest{}, fmt.Errorf("save request: %w", err)
	}

	a.recordActivity(requesterID, "request",
		fmt.Sprintf("%s needs %s blood at %s", requester.FullName, bt, location), "🩸")
	a.notifyCompatibleDonors(request, requester.FullName)
	return request, nil
}

// notifyCompatibleDonors texts every registered user whose blood type can
// serve the request. Best-effort, per donor.
func (a *App) notifyCompatibleDonors(r domain.BloodRequest, requesterName string) {
	users, err := a.store.ListUsers()
	if err != nil {
		return
	}
	message := fmt.Sprintf("BLOOD REQUEST: %s needed at %s. Urgency: %s. Contact: %s. Open BloodBridge to respond.",
		r.BloodType, r.Location, strings.ToUpper(string(r.Urgency)), requesterName)
	for _, u := range users {
		if domain.CanDonate(u.BloodType, r.BloodType) && u.Phone != "" {
			a.sendSMS(u.Phone, message)
		}
	}
	a.broadcast("requests", message)
}

// CompatibleRequests returns pending requests the given donor type can
// serve, enriched with requester identity and ordered by urgency.
// The sort is stable: equal urgencies keep creation order.
func (a *App) CompatibleRequests(donorType domain.BloodType) ([]domain.RequestView, error) {
	pending, err := a.store.ListRequestsByStatus(domain.RequestPending)
	if err != nil {
		return nil, fmt.Errorf("list pending requests: %w", err)
	}
	views := make([]domain.RequestView, 0, len(pending))
	for _, r := range pending {
		if !domain.CanDonate(donorType, r.BloodType) {
			continue
		}
		views = append(views, a.requestView(r))
	}
	sort.SliceStable(views, func(i, j int) bool {
		return domain.UrgencyRank(views[i].Urgency) < domain.UrgencyRank(views[j].Urgency)
	})
	return views, nil
}

// AllRequests returns every request, newest first, with requester identity.
func (a *App) AllRequests() ([]domain.RequestView, error) {
	requests, err := a.store.ListRequests()
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	views := make([]domain.RequestView, 0, len(requests))
	for i := len(requests) - 1; i >= 0; i-- {
		views = append(views, a.requestView(requests[i]))
	}
	return views, nil
}

// RequestsByRequester lists a user's own requests in creation order.
func (a *App) RequestsByRequester(userID string) ([]domain.BloodRequest, error) {
	return a.store.ListRequestsByRequester(userID)
}

// DonationsByDonor lists requests the user has accepted or completed.
func (a *App) DonationsByDonor(userID string) ([]domain.BloodRequest, error) {
	return a.store.ListRequestsByDonor(userID)
}

func (a *App) requestView(r domain.BloodRequest) domain.RequestView {
	view := domain.RequestView{
		BloodRequest:   r,
		RequesterName:  "Unknown",
		RequesterPhone: "N/A",
	}
	if requester, ok, err := a.store.GetUserByID(r.RequesterID); err == nil && ok {
		view.RequesterName = requester.FullName
		if requester.Phone != "" {
			view.RequesterPhone = requester.Phone
		}
	}
	return view
}

// AcceptRequest assigns the donor to a pending request. The transition is
// atomic in the store, so two donors cannot both win the same request.
func (a *App) AcceptRequest(requestID, donorID string) (domain.BloodRequest, error) {
	request, found, err := a.store.GetRequest(requestID)
	if err != nil {
		return domain.BloodRequest{}, fmt.Errorf("fetch request: %w", err)
	}
	if !found {
		return domain.BloodRequest{}, ErrNotFound
	}
	if request.RequesterID == donorID {
		return domain.BloodRequest{}, ErrSelfAction
	}

	now := time.Now().UTC()
	updated, swapped, err := a.store.TransitionRequest(requestID, domain.RequestPending, domain.RequestAccepted,
		func(r *domain.BloodRequest) {
			r.DonorID = donorID
			r.AcceptedAt = &now
		})
	if err != nil {
		return domain.BloodRequest{}, fmt.Errorf("accept request: %w", err)
	}
	if !swapped {
		return domain.BloodRequest{}, ErrInvalidState
	}

	if donor, ok, err := a.store.GetUserByID(donorID); err == nil && ok {
		a.recordActivity(donorID, "donation_offer",
			fmt.Sprintf("%s offered to donate %s blood!", donor.FullName, updated.BloodType), "💉")
		if requester, ok, err := a.store.GetUserByID(updated.RequesterID); err == nil && ok {
			a.sendSMS(requester.Phone, fmt.Sprintf(
				"Good news! %s has agreed to donate %s blood. Contact: %s",
				donor.FullName, updated.BloodType, donor.Phone))
		}
	}
	return updated, nil
}

// ConfirmDonation completes an accepted request: inventory grows by the
// requested quantity and the donor's badges are re-evaluated.
func (a *App) ConfirmDonation(requestID, callerID string) (domain.BloodRequest, error) {
	request, found, err := a.store.GetRequest(requestID)
	if err != nil {
		return domain.BloodRequest{}, fmt.Errorf("fetch request: %w", err)
	}
	if !found {
		return domain.BloodRequest{}, ErrNotFound
	}
	if request.RequesterID != callerID {
		return domain.BloodRequest{}, ErrPermission
	}

	now := time.Now().UTC()
	updated, swapped, err := a.store.TransitionRequest(requestID, domain.RequestAccepted, domain.RequestDonated,
		func(r *domain.BloodRequest) {
			r.DonatedAt = &now
		})
	if err != nil {
		return domain.BloodRequest{}, fmt.Errorf("confirm donation: %w", err)
	}
	if !swapped {
		return domain.BloodRequest{}, ErrInvalidState
	}

	if _, err := a.store.AddInventoryUnits(updated.BloodType, updated.Quantity); err != nil {
		slog.Warn("inventory update failed", "bloodType", updated.BloodType, "err", err)
	}

	donor, donorFound, _ := a.store.GetUserByID(updated.DonorID)
	a.awardDonationBadges(updated.DonorID)
	if donorFound {
		a.recordActivity(updated.DonorID, "donation_complete",
			fmt.Sprintf("%s completed a blood donation!", donor.FullName), "✅")
		a.sendSMS(donor.Phone, fmt.Sprintf(
			"Thank you %s! Your blood donation has been confirmed. You've helped save up to 3 lives!",
			donor.FullName))
	}
	return updated, nil
}

// CancelRequest retires a pending or accepted request. Completed
// donations can never be cancelled.
func (a *App) CancelRequest(requestID, callerID string) (domain.BloodRequest, error) {
	request, found, err := a.store.GetRequest(requestID)
	if err != nil {
		return domain.BloodRequest{}, fmt.Errorf("fetch request: %w", err)
	}
	if !found {
		return domain.BloodRequest{}, ErrNotFound
	}
	if request.RequesterID != callerID {
		return domain.BloodRequest{}, ErrPermission
	}
	if request.Status != domain.RequestPending && request.Status != domain.RequestAccepted {
		return domain.BloodRequest{}, ErrInvalidState
	}

	updated, swapped, err := a.store.TransitionRequest(requestID, request.Status, domain.RequestCancelled, nil)
	if err != nil {
		return domain.BloodRequest{}, fmt.Errorf("cancel request: %w", err)
	}
	if !swapped {
		return domain.BloodRequest{}, ErrInvalidState
	}
	return updated, nil
}
