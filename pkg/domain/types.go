package domain

import "time"

type BloodType string

const (
	APos  BloodType = "A+"
	ANeg  BloodType = "A-"
	BPos  BloodType = "B+"
	BNeg  BloodType = "B-"
	ABPos BloodType = "AB+"
	ABNeg BloodType = "AB-"
	OPos  BloodType = "O+"
	ONeg  BloodType = "O-"
)

// BloodTypes lists all ABO/Rh groups in display order.
var BloodTypes = []BloodType{APos, ANeg, BPos, BNeg, ABPos, ABNeg, OPos, ONeg}

// ParseBloodType validates a raw blood type string.
func ParseBloodType(raw string) (BloodType, bool) {
	bt := BloodType(raw)
	for _, known := range BloodTypes {
		if bt == known {
			return bt, true
		}
	}
	return "", false
}

type RequestStatus string

const (
	RequestPending   RequestStatus = "pending"
	RequestAccepted  RequestStatus = "accepted"
	RequestDonated   RequestStatus = "donated"
	RequestCancelled RequestStatus = "cancelled"
)

type Urgency string

const (
	UrgencyLow      Urgency = "low"
	UrgencyMedium   Urgency = "medium"
	UrgencyHigh     Urgency = "high"
	UrgencyCritical Urgency = "critical"
)

// UrgencyRank orders urgencies for matching views: critical first, low last.
// Unknown urgencies sort after every known one.
func UrgencyRank(u Urgency) int {
	switch u {
	case UrgencyCritical:
		return 0
	case UrgencyHigh:
		return 1
	case UrgencyMedium:
		return 2
	case UrgencyLow:
		return 3
	default:
		return 4
	}
}

// ParseUrgency validates a raw urgency string.
func ParseUrgency(raw string) (Urgency, bool) {
	switch Urgency(raw) {
	case UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical:
		return Urgency(raw), true
	default:
		return "", false
	}
}

type AlertStatus string

const (
	AlertActive   AlertStatus = "active"
	AlertInactive AlertStatus = "inactive"
)

type User struct {
	ID           string    `json:"id"`
	FullName     string    `json:"fullName"`
	Email        string    `json:"email"`
	Phone        string    `json:"phone"`
	PasswordHash string    `json:"-"`
	BloodType    BloodType `json:"bloodType"`
	CreatedAt    time.Time `json:"createdAt"`
}

type BloodRequest struct {
	ID           string        `json:"id"`
	RequesterID  string        `json:"requesterId"`
	BloodType    BloodType     `json:"bloodType"`
	Location     string        `json:"location"`
	Quantity     int           `json:"quantity"`
	Urgency      Urgency       `json:"urgency"`
	ContactPhone string        `json:"contactPhone"`
	Notes        string        `json:"notes,omitempty"`
	Status       RequestStatus `json:"status"`
	DonorID      string        `json:"donorId,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
	AcceptedAt   *time.Time    `json:"acceptedAt,omitempty"`
	DonatedAt    *time.Time    `json:"donatedAt,omitempty"`
}

// RequestView is a BloodRequest enriched with requester identity for
// matching and listing pages.
type RequestView struct {
	BloodRequest
	RequesterName  string `json:"requesterName"`
	RequesterPhone string `json:"requesterPhone"`
}

type EmergencyAlert struct {
	ID           string      `json:"id"`
	RequesterID  string      `json:"requesterId"`
	BloodType    BloodType   `json:"bloodType"`
	Location     string      `json:"location"`
	Hospital     string      `json:"hospital"`
	ContactPhone string      `json:"contactPhone"`
	Details      string      `json:"details,omitempty"`
	Status       AlertStatus `json:"status"`
	Responders   []string    `json:"responders"`
	CreatedAt    time.Time   `json:"createdAt"`
}

// AlertView annotates an alert with whether the viewing donor can help.
type AlertView struct {
	EmergencyAlert
	CanHelp        bool `json:"canHelp"`
	ResponderCount int  `json:"responderCount"`
}

type InventoryCounter struct {
	BloodType   BloodType `json:"bloodType"`
	Units       int       `json:"units"`
	LastUpdated time.Time `json:"lastUpdated"`
}

type InventoryLevel string

const (
	InventoryCritical   InventoryLevel = "critical"
	InventoryLow        InventoryLevel = "low"
	InventoryModerate   InventoryLevel = "moderate"
	InventorySufficient InventoryLevel = "sufficient"
)

// LevelForUnits derives the inventory status band from a unit count.
// The band is computed on read, never stored.
func LevelForUnits(units int) InventoryLevel {
	switch {
	case units <= 5:
		return InventoryCritical
	case units <= 15:
		return InventoryLow
	case units <= 25:
		return InventoryModerate
	default:
		return InventorySufficient
	}
}

// InventoryStatus pairs a unit count with its derived level.
type InventoryStatus struct {
	Units  int            `json:"units"`
	Status InventoryLevel `json:"status"`
}

type Activity struct {
	ID        string    `json:"id"`
	UserID    string    `json:"userId"`
	Type      string    `json:"type"`
	Message   string    `json:"message"`
	Icon      string    `json:"icon"`
	CreatedAt time.Time `json:"createdAt"`
}

type Camp struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Location   string    `json:"location"`
	Date       string    `json:"date"`
	Time       string    `json:"time"`
	Organizer  string    `json:"organizer"`
	Contact    string    `json:"contact"`
	Registered int       `json:"registered"`
	Capacity   int       `json:"capacity"`
	CreatedAt  time.Time `json:"createdAt"`
}
