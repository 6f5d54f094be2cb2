package store

import (
	"errors"

	"bloodbridge/pkg/domain"
)

// ErrCampFull is returned when a camp registration exceeds capacity.
var ErrCampFull = errors.New("camp is full")

// ErrAlreadyRegistered is returned on duplicate camp registration.
var ErrAlreadyRegistered = errors.New("already registered")

// Store defines persistence for users, requests, alerts, inventory,
// badges, activity and camps. Implementations: MemoryStore and GormStore.
type Store interface {
	// users
	SaveUser(domain.User) error
	GetUserByID(id string) (domain.User, bool, error)
	GetUserByEmail(email string) (domain.User, bool, error)
	GetUserByPhone(phone string) (domain.User, bool, error)
	ListUsers() ([]domain.User, error)
	UserCount() (int, error)

	// blood requests
	SaveRequest(domain.BloodRequest) error
	GetRequest(id string) (domain.BloodRequest, bool, error)
	ListRequests() ([]domain.BloodRequest, error)
	ListRequestsByStatus(status domain.RequestStatus) ([]domain.BloodRequest, error)
	ListRequestsByRequester(userID string) ([]domain.BloodRequest, error)
	ListRequestsByDonor(userID string) ([]domain.BloodRequest, error)
	CountDonationsByDonor(userID string) (int, error)
	// TransitionRequest atomically moves a request from one status to
	// another, applying mutate to the record while it is held. The bool
	// result is false when the request exists but is not in from status.
	TransitionRequest(id string, from, to domain.RequestStatus, mutate func(*domain.BloodRequest)) (domain.BloodRequest, bool, error)

	// emergency alerts
	SaveAlert(domain.EmergencyAlert) error
	GetAlert(id string) (domain.EmergencyAlert, bool, error)
	ListAlertsByStatus(status domain.AlertStatus) ([]domain.EmergencyAlert, error)

	// inventory
	ListInventory() ([]domain.InventoryCounter, error)
	GetInventory(bt domain.BloodType) (domain.InventoryCounter, bool, error)
	AddInventoryUnits(bt domain.BloodType, units int) (domain.InventoryCounter, error)

	// badges
	AwardBadge(userID, badgeKey string) (bool, error)
	ListBadges(userID string) ([]string, error)

	// activity feed, newest first, bounded
	AppendActivity(domain.Activity) error
	ListActivity(limit int) ([]domain.Activity, error)

	// camps
	SaveCamp(domain.Camp) error
	GetCamp(id string) (domain.Camp, bool, error)
	ListCamps() ([]domain.Camp, error)
	RegisterForCamp(campID, userID string) (domain.Camp, error)
	ListCampRegistrations(userID string) ([]string, error)
}

// SessionStore persists opaque session tokens.
type SessionStore interface {
	NewSession(userID string) (string, error)
	GetUserIDByToken(token string) (string, bool, error)
	DeleteSession(token string) error
}

// activityFeedMax bounds the activity feed; older entries are evicted.
const activityFeedMax = 50
