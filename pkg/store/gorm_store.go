package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"bloodbridge/pkg/domain"
)

// GormStore implements Store using GORM + Postgres.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore opens the DB and runs auto-migrations.
func NewGormStore(dsn string) (*GormStore, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.AutoMigrate(
		&UserModel{},
		&RequestModel{},
		&AlertModel{},
		&InventoryModel{},
		&BadgeModel{},
		&ActivityModel{},
		&CampModel{},
		&CampRegistrationModel{},
	); err != nil {
		return nil, fmt.Errorf("auto migrate: %w", err)
	}
	return &GormStore{db: db}, nil
}

// SaveUser registers or updates a user.
func (s *GormStore) SaveUser(u domain.User) error {
	model := userToModel(u)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"full_name", "email", "phone", "password_hash", "blood_type"}),
	}).Create(&model).Error
}

func (s *GormStore) GetUserByID(id string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

func (s *GormStore) GetUserByEmail(email string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.Where("email = ?", email).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

func (s *GormStore) GetUserByPhone(phone string) (domain.User, bool, error) {
	var model UserModel
	if err := s.db.Where("phone = ?", domain.NormalizePhone(phone)).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.User{}, false, nil
		}
		return domain.User{}, false, err
	}
	return userFromModel(model), true, nil
}

func (s *GormStore) ListUsers() ([]domain.User, error) {
	var models []UserModel
	if err := s.db.Order("created_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.User, 0, len(models))
	for _, m := range models {
		res = append(res, userFromModel(m))
	}
	return res, nil
}

func (s *GormStore) UserCount() (int, error) {
	var count int64
	if err := s.db.Model(&UserModel{}).Count(&count).Error; err != nil {
		return 0, err
	}
	return int(count), nil
}

// SaveRequest stores or updates a request.
func (s *GormStore) SaveRequest(r domain.BloodRequest) error {
	model := requestToModel(r)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "donor_id", "accepted_at", "donated_at", "contact_phone", "notes"}),
	}).Create(&model).Error
}

func (s *GormStore) GetRequest(id string) (domain.BloodRequest, bool, error) {
	var model RequestModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.BloodRequest{}, false, nil
		}
		return domain.BloodRequest{}, false, err
	}
	return requestFromModel(model), true, nil
}

func (s *GormStore) ListRequests() ([]domain.BloodRequest, error) {
	return s.listRequests(nil)
}

func (s *GormStore) ListRequestsByStatus(status domain.RequestStatus) ([]domain.BloodRequest, error) {
	return s.listRequests(map[string]any{"status": string(status)})
}

func (s *GormStore) ListRequestsByRequester(userID string) ([]domain.BloodRequest, error) {
	return s.listRequests(map[string]any{"requester_id": userID})
}

func (s *GormStore) ListRequestsByDonor(userID string) ([]domain.BloodRequest, error) {
	return s.listRequests(map[string]any{"donor_id": userID})
}

func (s *GormStore) listRequests(conds map[string]any) ([]domain.BloodRequest, error) {
	var models []RequestModel
	tx := s.db.Order("created_at ASC")
	if len(conds) > 0 {
		tx = tx.Where(conds)
	}
	if err := tx.Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.BloodRequest, 0, len(models))
	for _, m := range models {
		res = append(res, requestFromModel(m))
	}
	return res, nil
}

func (s *GormStore) CountDonationsByDonor(userID string) (int, error) {
	var count int64
	err := s.db.Model(&RequestModel{}).
		Where("donor_id = ? AND status = ?", userID, string(domain.RequestDonated)).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

// TransitionRequest locks the row, checks the expected status, applies the
// mutation and writes back in one transaction.
func (s *GormStore) TransitionRequest(id string, from, to domain.RequestStatus, mutate func(*domain.BloodRequest)) (domain.BloodRequest, bool, error) {
	var out domain.BloodRequest
	swapped := false
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var model RequestModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&model, "id = ?", id).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if model.Status != string(from) {
			return nil
		}
		r := requestFromModel(model)
		r.Status = to
		if mutate != nil {
			mutate(&r)
		}
		updated := requestToModel(r)
		if err := tx.Model(&RequestModel{}).Where("id = ?", id).Updates(map[string]any{
			"status":      updated.Status,
			"donor_id":    updated.DonorID,
			"accepted_at": updated.AcceptedAt,
			"donated_at":  updated.DonatedAt,
		}).Error; err != nil {
			return err
		}
		out = r
		swapped = true
		return nil
	})
	if err != nil {
		return domain.BloodRequest{}, false, err
	}
	return out, swapped, nil
}

// SaveAlert stores or updates an alert, responders serialized as JSON.
func (s *GormStore) SaveAlert(a domain.EmergencyAlert) error {
	model, err := alertToModel(a)
	if err != nil {
		return err
	}
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"status", "responders"}),
	}).Create(&model).Error
}

func (s *GormStore) GetAlert(id string) (domain.EmergencyAlert, bool, error) {
	var model AlertModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.EmergencyAlert{}, false, nil
		}
		return domain.EmergencyAlert{}, false, err
	}
	alert, err := alertFromModel(model)
	if err != nil {
		return domain.EmergencyAlert{}, false, err
	}
	return alert, true, nil
}

func (s *GormStore) ListAlertsByStatus(status domain.AlertStatus) ([]domain.EmergencyAlert, error) {
	var models []AlertModel
	err := s.db.Where("status = ?", string(status)).Order("created_at DESC").Find(&models).Error
	if err != nil {
		return nil, err
	}
	res := make([]domain.EmergencyAlert, 0, len(models))
	for _, m := range models {
		alert, err := alertFromModel(m)
		if err != nil {
			return nil, err
		}
		res = append(res, alert)
	}
	return res, nil
}

func (s *GormStore) ListInventory() ([]domain.InventoryCounter, error) {
	var models []InventoryModel
	if err := s.db.Find(&models).Error; err != nil {
		return nil, err
	}
	byType := make(map[domain.BloodType]domain.InventoryCounter, len(models))
	for _, m := range models {
		byType[domain.BloodType(m.BloodType)] = inventoryFromModel(m)
	}
	res := make([]domain.InventoryCounter, 0, len(byType))
	for _, bt := range domain.BloodTypes {
		if c, ok := byType[bt]; ok {
			res = append(res, c)
		}
	}
	return res, nil
}

func (s *GormStore) GetInventory(bt domain.BloodType) (domain.InventoryCounter, bool, error) {
	var model InventoryModel
	if err := s.db.First(&model, "blood_type = ?", string(bt)).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.InventoryCounter{}, false, nil
		}
		return domain.InventoryCounter{}, false, err
	}
	return inventoryFromModel(model), true, nil
}

// AddInventoryUnits upserts the counter with an atomic increment.
func (s *GormStore) AddInventoryUnits(bt domain.BloodType, units int) (domain.InventoryCounter, error) {
	now := time.Now().UTC()
	err := s.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "blood_type"}},
		DoUpdates: clause.Assignments(map[string]any{
			"units":        gorm.Expr("inventory_models.units + ?", units),
			"last_updated": now,
		}),
	}).Create(&InventoryModel{BloodType: string(bt), Units: units, LastUpdated: now}).Error
	if err != nil {
		return domain.InventoryCounter{}, err
	}
	counter, _, err := s.GetInventory(bt)
	return counter, err
}

// AwardBadge inserts the badge row; the composite key makes awards idempotent.
func (s *GormStore) AwardBadge(userID, badgeKey string) (bool, error) {
	res := s.db.Clauses(clause.OnConflict{DoNothing: true}).Create(&BadgeModel{
		UserID:    userID,
		BadgeKey:  badgeKey,
		AwardedAt: time.Now().UTC(),
	})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *GormStore) ListBadges(userID string) ([]string, error) {
	var models []BadgeModel
	if err := s.db.Where("user_id = ?", userID).Order("awarded_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]string, 0, len(models))
	for _, m := range models {
		res = append(res, m.BadgeKey)
	}
	return res, nil
}

// AppendActivity inserts an entry and evicts beyond the feed bound.
func (s *GormStore) AppendActivity(a domain.Activity) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&ActivityModel{
			ID:        a.ID,
			UserID:    a.UserID,
			Type:      a.Type,
			Message:   a.Message,
			Icon:      a.Icon,
			CreatedAt: a.CreatedAt,
		}).Error; err != nil {
			return err
		}
		return tx.Exec(`DELETE FROM activity_models WHERE id NOT IN (
			SELECT id FROM activity_models ORDER BY created_at DESC LIMIT ?)`, activityFeedMax).Error
	})
}

func (s *GormStore) ListActivity(limit int) ([]domain.Activity, error) {
	if limit <= 0 || limit > activityFeedMax {
		limit = activityFeedMax
	}
	var models []ActivityModel
	if err := s.db.Order("created_at DESC").Limit(limit).Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Activity, 0, len(models))
	for _, m := range models {
		res = append(res, domain.Activity{
			ID:        m.ID,
			UserID:    m.UserID,
			Type:      m.Type,
			Message:   m.Message,
			Icon:      m.Icon,
			CreatedAt: m.CreatedAt,
		})
	}
	return res, nil
}

func (s *GormStore) SaveCamp(c domain.Camp) error {
	model := campToModel(c)
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"registered"}),
	}).Create(&model).Error
}

func (s *GormStore) GetCamp(id string) (domain.Camp, bool, error) {
	var model CampModel
	if err := s.db.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.Camp{}, false, nil
		}
		return domain.Camp{}, false, err
	}
	return campFromModel(model), true, nil
}

func (s *GormStore) ListCamps() ([]domain.Camp, error) {
	var models []CampModel
	if err := s.db.Order("date ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]domain.Camp, 0, len(models))
	for _, m := range models {
		res = append(res, campFromModel(m))
	}
	return res, nil
}

// RegisterForCamp inserts the registration and bumps the camp counter,
// guarding capacity inside the transaction.
func (s *GormStore) RegisterForCamp(campID, userID string) (domain.Camp, error) {
	var out domain.Camp
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var model CampModel
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&model, "id = ?", campID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return errors.New("camp not found")
		}
		if err != nil {
			return err
		}
		var existing int64
		if err := tx.Model(&CampRegistrationModel{}).
			Where("camp_id = ? AND user_id = ?", campID, userID).
			Count(&existing).Error; err != nil {
			return err
		}
		if existing > 0 {
			return ErrAlreadyRegistered
		}
		if model.Registered >= model.Capacity {
			return ErrCampFull
		}
		if err := tx.Create(&CampRegistrationModel{
			CampID:       campID,
			UserID:       userID,
			RegisteredAt: time.Now().UTC(),
		}).Error; err != nil {
			return err
		}
		model.Registered++
		if err := tx.Model(&CampModel{}).Where("id = ?", campID).
			Update("registered", model.Registered).Error; err != nil {
			return err
		}
		out = campFromModel(model)
		return nil
	})
	if err != nil {
		return domain.Camp{}, err
	}
	return out, nil
}

func (s *GormStore) ListCampRegistrations(userID string) ([]string, error) {
	var models []CampRegistrationModel
	if err := s.db.Where("user_id = ?", userID).Order("registered_at ASC").Find(&models).Error; err != nil {
		return nil, err
	}
	res := make([]string, 0, len(models))
	for _, m := range models {
		res = append(res, m.CampID)
	}
	return res, nil
}

func userToModel(u domain.User) UserModel {
	return UserModel{
		ID:           u.ID,
		FullName:     u.FullName,
		Email:        u.Email,
		Phone:        domain.NormalizePhone(u.Phone),
		PasswordHash: u.PasswordHash,
		BloodType:    string(u.BloodType),
		CreatedAt:    u.CreatedAt,
	}
}

func userFromModel(m UserModel) domain.User {
	return domain.User{
		ID:           m.ID,
		FullName:     m.FullName,
		Email:        m.Email,
		Phone:        m.Phone,
		PasswordHash: m.PasswordHash,
		BloodType:    domain.BloodType(m.BloodType),
		CreatedAt:    m.CreatedAt,
	}
}

func requestToModel(r domain.BloodRequest) RequestModel {
	return RequestModel{
		ID:           r.ID,
		RequesterID:  r.RequesterID,
		BloodType:    string(r.BloodType),
		Location:     r.Location,
		Quantity:     r.Quantity,
		Urgency:      string(r.Urgency),
		ContactPhone: r.ContactPhone,
		Notes:        r.Notes,
		Status:       string(r.Status),
		DonorID:      r.DonorID,
		CreatedAt:    r.CreatedAt,
		AcceptedAt:   r.AcceptedAt,
		DonatedAt:    r.DonatedAt,
	}
}

func requestFromModel(m RequestModel) domain.BloodRequest {
	return domain.BloodRequest{
		ID:           m.ID,
		RequesterID:  m.RequesterID,
		BloodType:    domain.BloodType(m.BloodType),
		Location:     m.Location,
		Quantity:     m.Quantity,
		Urgency:      domain.Urgency(m.Urgency),
		ContactPhone: m.ContactPhone,
		Notes:        m.Notes,
		Status:       domain.RequestStatus(m.Status),
		DonorID:      m.DonorID,
		CreatedAt:    m.CreatedAt,
		AcceptedAt:   m.AcceptedAt,
		DonatedAt:    m.DonatedAt,
	}
}

func alertToModel(a domain.EmergencyAlert) (AlertModel, error) {
	responders := a.Responders
	if responders == nil {
		responders = []string{}
	}
	raw, err := json.Marshal(responders)
	if err != nil {
		return AlertModel{}, fmt.Errorf("marshal responders: %w", err)
	}
	return AlertModel{
		ID:           a.ID,
		RequesterID:  a.RequesterID,
		BloodType:    string(a.BloodType),
		Location:     a.Location,
		Hospital:     a.Hospital,
		ContactPhone: a.ContactPhone,
		Details:      a.Details,
		Status:       string(a.Status),
		Responders:   datatypes.JSON(raw),
		CreatedAt:    a.CreatedAt,
	}, nil
}

func alertFromModel(m AlertModel) (domain.EmergencyAlert, error) {
	responders := []string{}
	if len(m.Responders) > 0 {
		if err := json.Unmarshal(m.Responders, &responders); err != nil {
			return domain.EmergencyAlert{}, fmt.Errorf("unmarshal responders: %w", err)
		}
	}
	return domain.EmergencyAlert{
		ID:           m.ID,
		RequesterID:  m.RequesterID,
		BloodType:    domain.BloodType(m.BloodType),
		Location:     m.Location,
		Hospital:     m.Hospital,
		ContactPhone: m.ContactPhone,
		Details:      m.Details,
		Status:       domain.AlertStatus(m.Status),
		Responders:   responders,
		CreatedAt:    m.CreatedAt,
	}, nil
}

func inventoryFromModel(m InventoryModel) domain.InventoryCounter {
	return domain.InventoryCounter{
		BloodType:   domain.BloodType(m.BloodType),
		Units:       m.Units,
		LastUpdated: m.LastUpdated,
	}
}

func campToModel(c domain.Camp) CampModel {
	return CampModel{
		ID:         c.ID,
		Name:       c.Name,
		Location:   c.Location,
		Date:       c.Date,
		Time:       c.Time,
		Organizer:  c.Organizer,
		Contact:    c.Contact,
		Registered: c.Registered,
		Capacity:   c.Capacity,
		CreatedAt:  c.CreatedAt,
	}
}

func campFromModel(m CampModel) domain.Camp {
	return domain.Camp{
		ID:         m.ID,
		Name:       m.Name,
		Location:   m.Location,
		Date:       m.Date,
		Time:       m.Time,
		Organizer:  m.Organizer,
		Contact:    m.Contact,
		Registered: m.Registered,
		Capacity:   m.Capacity,
		CreatedAt:  m.CreatedAt,
	}
}
