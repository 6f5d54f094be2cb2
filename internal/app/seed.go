package app

import (
	"fmt"
	"log/slog"
	"time"

	"bloodbridge/internal/util"
	"bloodbridge/pkg/auth"
	"bloodbridge/pkg/domain"
)

// SeedDemoData loads demo accounts, camps and open requests for local
// evaluation. It is a no-op when users already exist, so it is safe to
// leave enabled across restarts.
func (a *App) SeedDemoData() error {
	count, err := a.store.UserCount()
	if err != nil {
		return fmt.Errorf("count users: %w", err)
	}
	if count > 0 {
		return nil
	}
	slog.Info("seeding demo data")

	hash, err := auth.HashPassword("demo123")
	if err != nil {
		return fmt.Errorf("hash demo password: %w", err)
	}

	now := time.Now().UTC()
	demoUsers := []domain.User{
		{ID: util.NewID(), FullName: "John Carter", Email: "john@demo.com", Phone: "9876543210", PasswordHash: hash, BloodType: domain.OPos, CreatedAt: now},
		{ID: util.NewID(), FullName: "Priya Sharma", Email: "priya@demo.com", Phone: "9876543211", PasswordHash: hash, BloodType: domain.ONeg, CreatedAt: now},
		{ID: util.NewID(), FullName: "Miguel Alvarez", Email: "miguel@demo.com", Phone: "9876543212", PasswordHash: hash, BloodType: domain.ABPos, CreatedAt: now},
		{ID: util.NewID(), FullName: "Sara Lindqvist", Email: "sara@demo.com", Phone: "9876543213", PasswordHash: hash, BloodType: domain.BNeg, CreatedAt: now},
	}
	for _, u := range demoUsers {
		if err := a.store.SaveUser(u); err != nil {
			return fmt.Errorf("seed user %s: %w", u.Email, err)
		}
	}

	camps := []domain.Camp{
		{
			ID: util.NewID(), Name: "City Hospital Blood Drive",
			Location: "City Hospital, Main Hall", Date: now.AddDate(0, 0, 7).Format("2006-01-02"),
			Time: "09:00 - 17:00", Organizer: "City Hospital", Contact: "+1 555 0100",
			Capacity: 100, CreatedAt: now,
		},
		{
			ID: util.NewID(), Name: "Community Center Donation Camp",
			Location: "Riverside Community Center", Date: now.AddDate(0, 0, 14).Format("2006-01-02"),
			Time: "10:00 - 16:00", Organizer: "Red Cross Chapter", Contact: "+1 555 0101",
			Capacity: 60, CreatedAt: now,
		},
	}
	for _, c := range camps {
		if err := a.store.SaveCamp(c); err != nil {
			return fmt.Errorf("seed camp %s: %w", c.Name, err)
		}
	}

	requests := []domain.BloodRequest{
		{
			ID: util.NewID(), RequesterID: demoUsers[2].ID, BloodType: domain.APos,
			Location: "City Hospital", Quantity: 2, Urgency: domain.UrgencyHigh,
			ContactPhone: demoUsers[2].Phone, Status: domain.RequestPending, CreatedAt: now,
		},
		{
			ID: util.NewID(), RequesterID: demoUsers[3].ID, BloodType: domain.ONeg,
			Location: "Riverside Clinic", Quantity: 1, Urgency: domain.UrgencyCritical,
			ContactPhone: demoUsers[3].Phone, Status: domain.RequestPending, CreatedAt: now,
		},
	}
	for _, r := range requests {
		if err := a.store.SaveRequest(r); err != nil {
			return fmt.Errorf("seed request: %w", err)
		}
	}
	return nil
}
