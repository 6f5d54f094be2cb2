package app

import (
	"fmt"
	"log/slog"
	"sort"

	"bloodbridge/pkg/domain"
)

const (
	badgeFirstBlood         = "first_blood"
	badgeLifesaver          = "lifesaver_3"
	badgeHero               = "hero"
	badgeEmergencyResponder = "emergency_responder"
	badgeRareDonor          = "rare_donor"

	livesPerDonation = 3
	leaderboardSize  = 20
)

// Badge describes an earned achievement.
type Badge struct {
	Key         string `json:"key"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

var badgeCatalog = map[string]Badge{
	badgeFirstBlood: {
		Key: badgeFirstBlood, Name: "First Blood",
		Description: "Completed your first donation", Icon: "🩸",
	},
	badgeLifesaver: {
		Key: badgeLifesaver, Name: "Lifesaver",
		Description: "Completed 3 donations", Icon: "💖",
	},
	badgeHero: {
		Key: badgeHero, Name: "Hero",
		Description: "Completed 5 donations", Icon: "🦸",
	},
	badgeEmergencyResponder: {
		Key: badgeEmergencyResponder, Name: "Emergency Responder",
		Description: "Responded to an SOS alert", Icon: "🚨",
	},
	badgeRareDonor: {
		Key: badgeRareDonor, Name: "Rare Donor",
		Description: "Donor with a rare blood group", Icon: "💎",
	},
}

// rareBloodTypes qualify for the rare donor badge.
var rareBloodTypes = map[domain.BloodType]bool{
	domain.ABNeg: true,
	domain.BNeg:  true,
	domain.ONeg:  true,
}

// awardBadge grants a badge once. The activity entry is written only on
// the first award, so re-checks stay silent.
func (a *App) awardBadge(userID, key string) {
	badge, ok := badgeCatalog[key]
	if !ok {
		return
	}
	awarded, err := a.store.AwardBadge(userID, key)
	if err != nil {
		slog.Warn("award badge failed", "badge", key, "err", err)
		return
	}
	if !awarded {
		return
	}
	if user, ok, err := a.store.GetUserByID(userID); err == nil && ok {
		a.recordActivity(userID, "badge",
			fmt.Sprintf("%s earned the %s badge!", user.FullName, badge.Name), badge.Icon)
	}
}

// awardDonationBadges re-evaluates milestone badges after a completed
// donation.
func (a *App) awardDonationBadges(userID string) {
	count, err := a.store.CountDonationsByDonor(userID)
	if err != nil {
		slog.Warn("count donations failed", "err", err)
		return
	}
	if count >= 1 {
		a.awardBadge(userID, badgeFirstBlood)
	}
	if count >= 3 {
		a.awardBadge(userID, badgeLifesaver)
	}
	if count >= 5 {
		a.awardBadge(userID, badgeHero)
	}
	if user, ok, err := a.store.GetUserByID(userID); err == nil && ok && rareBloodTypes[user.BloodType] {
		a.awardBadge(userID, badgeRareDonor)
	}
}

// LeaderboardEntry is one row of the donation leaderboard.
type LeaderboardEntry struct {
	Rank       int              `json:"rank"`
	UserID     string           `json:"userId"`
	FullName   string           `json:"fullName"`
	BloodType  domain.BloodType `json:"bloodType"`
	Donations  int              `json:"donations"`
	LivesSaved int              `json:"livesSaved"`
	Badges     []Badge          `json:"badges"`
}

// Leaderboard ranks donors by completed donations, top 20. Ties share
// their order of first completed donation.
func (a *App) Leaderboard() ([]LeaderboardEntry, error) {
	donated, err := a.store.ListRequestsByStatus(domain.RequestDonated)
	if err != nil {
		return nil, fmt.Errorf("list donations: %w", err)
	}

	counts := make(map[string]int)
	var order []string
	for _, r := range donated {
		if r.DonorID == "" {
			continue
		}
		if _, seen := counts[r.DonorID]; !seen {
			order = append(order, r.DonorID)
		}
		counts[r.DonorID]++
	}

	sort.SliceStable(order, func(i, j int) bool {
		return counts[order[i]] > counts[order[j]]
	})
	if len(order) > leaderboardSize {
		order = order[:leaderboardSize]
	}

	entries := make([]LeaderboardEntry, 0, len(order))
	for i, donorID := range order {
		entry := LeaderboardEntry{
			Rank:       i + 1,
			UserID:     donorID,
			Donations:  counts[donorID],
			LivesSaved: counts[donorID] * livesPerDonation,
			Badges:     []Badge{},
		}
		if user, ok, err := a.store.GetUserByID(donorID); err == nil && ok {
			entry.FullName = user.FullName
			entry.BloodType = user.BloodType
		} else {
			entry.FullName = "Unknown"
		}
		if badges, err := a.userBadges(donorID); err == nil {
			entry.Badges = badges
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// UserStats summarizes a user's impact for their profile page.
type UserStats struct {
	Donations  int     `json:"donations"`
	Requests   int     `json:"requests"`
	LivesSaved int     `json:"livesSaved"`
	Badges     []Badge `json:"badges"`
}

// Stats returns donation and request counts plus earned badges.
func (a *App) Stats(userID string) (UserStats, error) {
	donations, err := a.store.CountDonationsByDonor(userID)
	if err != nil {
		return UserStats{}, fmt.Errorf("count donations: %w", err)
	}
	requests, err := a.store.ListRequestsByRequester(userID)
	if err != nil {
		return UserStats{}, fmt.Errorf("list requests: %w", err)
	}
	badges, err := a.userBadges(userID)
	if err != nil {
		return UserStats{}, err
	}
	return UserStats{
		Donations:  donations,
		Requests:   len(requests),
		LivesSaved: donations * livesPerDonation,
		Badges:     badges,
	}, nil
}

func (a *App) userBadges(userID string) ([]Badge, error) {
	keys, err := a.store.ListBadges(userID)
	if err != nil {
		return nil, fmt.Errorf("list badges: %w", err)
	}
	badges := make([]Badge, 0, len(keys))
	for _, key := range keys {
		if badge, ok := badgeCatalog[key]; ok {
			badges = append(badges, badge)
		}
	}
	return badges, nil
}
