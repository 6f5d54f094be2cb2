package store

import (
	"time"

	"gorm.io/datatypes"
)

// GORM models used by the Postgres-backed store.
type UserModel struct {
	ID           string `gorm:"primaryKey"`
	FullName     string `gorm:"not null"`
	Email        string `gorm:"uniqueIndex;not null"`
	Phone        string `gorm:"uniqueIndex;not null"`
	PasswordHash string `gorm:"not null"`
	BloodType    string `gorm:"not null;index"`
	CreatedAt    time.Time
}

type RequestModel struct {
	ID           string `gorm:"primaryKey"`
	RequesterID  string `gorm:"not null;index"`
	BloodType    string `gorm:"not null;index"`
	Location     string `gorm:"not null"`
	Quantity     int    `gorm:"not null"`
	Urgency      string `gorm:"not null"`
	ContactPhone string
	Notes        string
	Status       string `gorm:"not null;index"`
	DonorID      string `gorm:"index"`
	CreatedAt    time.Time `gorm:"not null;index"`
	AcceptedAt   *time.Time
	DonatedAt    *time.Time
}

type AlertModel struct {
	ID           string `gorm:"primaryKey"`
	RequesterID  string `gorm:"not null;index"`
	BloodType    string `gorm:"not null"`
	Location     string
	Hospital     string
	ContactPhone string
	Details      string
	Status       string         `gorm:"not null;index"`
	Responders   datatypes.JSON `gorm:"type:jsonb"`
	CreatedAt    time.Time      `gorm:"not null;index"`
}

type InventoryModel struct {
	BloodType   string `gorm:"primaryKey"`
	Units       int    `gorm:"not null"`
	LastUpdated time.Time
}

type BadgeModel struct {
	UserID    string `gorm:"primaryKey"`
	BadgeKey  string `gorm:"primaryKey"`
	AwardedAt time.Time
}

type ActivityModel struct {
	ID        string `gorm:"primaryKey"`
	UserID    string `gorm:"index"`
	Type      string `gorm:"not null"`
	Message   string `gorm:"not null"`
	Icon      string
	CreatedAt time.Time `gorm:"not null;index"`
}

type CampModel struct {
	ID         string `gorm:"primaryKey"`
	Name       string `gorm:"not null"`
	Location   string
	Date       string `gorm:"index"`
	Time       string
	Organizer  string
	Contact    string
	Registered int
	Capacity   int
	CreatedAt  time.Time
}

type CampRegistrationModel struct {
	CampID       string `gorm:"primaryKey"`
	UserID       string `gorm:"primaryKey;index"`
	RegisteredAt time.Time
}
