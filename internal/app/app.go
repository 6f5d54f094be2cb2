package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"bloodbridge/internal/util"
	"bloodbridge/pkg/auth"
	"bloodbridge/pkg/domain"
	"bloodbridge/pkg/notify"
	"bloodbridge/pkg/presence"
	"bloodbridge/pkg/store"
)

// Config holds runtime configuration for the core application.
type Config struct {
	DatabaseURL    string
	RedisAddr      string
	RedisPassword  string
	AMQPURL        string
	NotifyExchange string
	SessionTTL     time.Duration

	Store    store.Store
	Sessions store.SessionStore
	Notifier notify.Notifier
	Presence presence.Tracker
}

// App wires the record store, sessions, notification dispatch and presence
// tracking behind the donation coordination logic.
type App struct {
	store    store.Store
	sessions store.SessionStore
	notifier notify.Notifier
	presence presence.Tracker
}

// New constructs the application. Missing collaborators degrade to local
// fallbacks: in-memory store, in-memory sessions, log-only notifications.
func New(cfg Config) (*App, error) {
	dataStore := cfg.Store
	if dataStore == nil {
		if cfg.DatabaseURL != "" {
			gs, err := store.NewGormStore(cfg.DatabaseURL)
			if err != nil {
				return nil, fmt.Errorf("init postgres store: %w", err)
			}
			dataStore = gs
		} else {
			slog.Warn("no database configured, using in-memory store")
			dataStore = store.NewMemoryStore()
		}
	}

	sessionStore := cfg.Sessions
	if sessionStore == nil {
		if cfg.RedisAddr != "" {
			sessionStore = store.NewRedisSessionStore(cfg.RedisAddr, cfg.RedisPassword, cfg.SessionTTL)
		} else {
			sessionStore = store.NewMemorySessionStore(cfg.SessionTTL)
		}
	}

	notifier := cfg.Notifier
	if notifier == nil {
		if cfg.AMQPURL != "" {
			n, err := notify.NewAMQPNotifier(cfg.AMQPURL, cfg.NotifyExchange)
			if err != nil {
				return nil, fmt.Errorf("init amqp notifier: %w", err)
			}
			notifier = n
		} else {
			notifier = notify.LogNotifier{}
		}
	}

	tracker := cfg.Presence
	if tracker == nil {
		if cfg.RedisAddr != "" {
			tracker = presence.NewRedisTracker(cfg.RedisAddr, cfg.RedisPassword)
		} else {
			tracker = presence.NewMemoryTracker()
		}
	}

	a := &App{
		store:    dataStore,
		sessions: sessionStore,
		notifier: notifier,
		presence: tracker,
	}
	if err := a.ensureInventory(); err != nil {
		return nil, fmt.Errorf("seed inventory: %w", err)
	}
	return a, nil
}

// Register creates a new donor account.
func (a *App) Register(fullName, email, phone, password, bloodType string) (domain.User, error) {
	fullName = strings.TrimSpace(fullName)
	email = strings.TrimSpace(strings.ToLower(email))
	phone = strings.TrimSpace(phone)

	if fullName == "" {
		return domain.User{}, validationErr("fullName", "full name is required")
	}
	if email == "" || !strings.Contains(email, "@") {
		return domain.User{}, validationErr("email", "valid email is required")
	}
	if phone == "" {
		return domain.User{}, validationErr("phone", "phone number is required")
	}
	if !domain.ValidPhone(phone) {
		return domain.User{}, validationErr("phone", "phone must be 10-15 digits")
	}
	if err := auth.ValidatePassword(password); err != nil {
		return domain.User{}, validationErr("password", err.Error())
	}
	bt, ok := domain.ParseBloodType(bloodType)
	if !ok {
		return domain.User{}, validationErr("bloodType", "unknown blood type")
	}

	if _, exists, err := a.store.GetUserByEmail(email); err != nil {
		return domain.User{}, fmt.Errorf("check email: %w", err)
	} else if exists {
		return domain.User{}, ErrEmailAlreadyExists
	}
	if _, exists, err := a.store.GetUserByPhone(phone); err != nil {
		return domain.User{}, fmt.Errorf("check phone: %w", err)
	} else if exists {
		return domain.User{}, ErrPhoneAlreadyExists
	}

	passwordHash, err := auth.HashPassword(password)
	if err != nil {
		return domain.User{}, fmt.Errorf("hash password: %w", err)
	}
	user := domain.User{
		ID:           util.NewID(),
		FullName:     fullName,
		Email:        email,
		Phone:        phone,
		PasswordHash: passwordHash,
		BloodType:    bt,
		CreatedAt:    time.Now().UTC(),
	}
	if err := a.store.SaveUser(user); err != nil {
		return domain.User{}, fmt.Errorf("save user: %w", err)
	}

	a.recordActivity(user.ID, "registration", fmt.Sprintf("%s joined BloodBridge!", user.FullName), "🎉")
	a.sendSMS(user.Phone, fmt.Sprintf("Welcome to BloodBridge, %s! Your account is ready. Start saving lives today!", user.FullName))
	return user, nil
}

// Login validates credentials and issues a session token.
func (a *App) Login(email, password string) (domain.User, string, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	user, ok, err := a.store.GetUserByEmail(email)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("fetch user: %w", err)
	}
	if !ok || !auth.CheckPassword(password, user.PasswordHash) {
		return domain.User{}, "", ErrInvalidCredentials
	}
	token, err := a.sessions.NewSession(user.ID)
	if err != nil {
		return domain.User{}, "", fmt.Errorf("issue session: %w", err)
	}
	a.presence.Touch(user.ID)
	return user, token, nil
}

// Logout invalidates a session token.
func (a *App) Logout(token string) error {
	return a.sessions.DeleteSession(token)
}

// UserFromToken resolves a user from a session token.
func (a *App) UserFromToken(token string) (domain.User, bool) {
	uid, ok, err := a.sessions.GetUserIDByToken(token)
	if err != nil || !ok {
		return domain.User{}, false
	}
	user, found, err := a.store.GetUserByID(uid)
	if err != nil || !found {
		return domain.User{}, false
	}
	return user, true
}

// TouchPresence marks the user as recently active.
func (a *App) TouchPresence(userID string) {
	a.presence.Touch(userID)
}

// RecentActivity returns the newest feed entries.
func (a *App) RecentActivity(limit int) ([]domain.Activity, error) {
	return a.store.ListActivity(limit)
}

// recordActivity appends a feed entry; feed failures only log.
func (a *App) recordActivity(userID, activityType, message, icon string) {
	err := a.store.AppendActivity(domain.Activity{
		ID:        util.NewID(),
		UserID:    userID,
		Type:      activityType,
		Message:   message,
		Icon:      icon,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		slog.Warn("append activity failed", "type", activityType, "err", err)
	}
}

// sendSMS dispatches a text best-effort. Failures are logged, never
// surfaced: the user-visible action still succeeds.
func (a *App) sendSMS(phone, message string) {
	phone = strings.TrimSpace(phone)
	if phone == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := a.notifier.SendSMS(ctx, domain.PhoneE164(phone), message); err != nil {
		slog.Warn("sms dispatch failed", "err", err)
	}
}

// broadcast publishes to a notification topic best-effort.
func (a *App) broadcast(topic, message string) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := a.notifier.Broadcast(ctx, topic, message); err != nil {
		slog.Warn("broadcast dispatch failed", "topic", topic, "err", err)
	}
}
