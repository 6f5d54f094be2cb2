package store

import (
	"errors"
	"sync"
	"time"

	"bloodbridge/pkg/domain"
)

// MemoryStore keeps all records in-process. It is the fallback when no
// database is configured and the backing store for tests.
type MemoryStore struct {
	mu            sync.RWMutex
	users         map[string]domain.User
	email         map[string]string // email -> user ID
	phone         map[string]string // normalized phone -> user ID
	requests      map[string]domain.BloodRequest
	requestOrder  []string
	alerts        map[string]domain.EmergencyAlert
	alertOrder    []string
	inventory     map[domain.BloodType]domain.InventoryCounter
	badges        map[string][]string
	activity      []domain.Activity
	camps         map[string]domain.Camp
	campOrder     []string
	registrations map[string][]string // user ID -> camp IDs
}

// NewMemoryStore initializes an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         make(map[string]domain.User),
		email:         make(map[string]string),
		phone:         make(map[string]string),
		requests:      make(map[string]domain.BloodRequest),
		alerts:        make(map[string]domain.EmergencyAlert),
		inventory:     make(map[domain.BloodType]domain.InventoryCounter),
		badges:        make(map[string][]string),
		camps:         make(map[string]domain.Camp),
		registrations: make(map[string][]string),
	}
}

// SaveUser registers or replaces a user and maintains email/phone indexes.
func (m *MemoryStore) SaveUser(u domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
	m.email[u.Email] = u.ID
	m.phone[domain.NormalizePhone(u.Phone)] = u.ID
	return nil
}

func (m *MemoryStore) GetUserByID(id string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	return u, ok, nil
}

func (m *MemoryStore) GetUserByEmail(email string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id, ok := m.email[email]; ok {
		u, exists := m.users[id]
		return u, exists, nil
	}
	return domain.User{}, false, nil
}

func (m *MemoryStore) GetUserByPhone(phone string) (domain.User, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if id, ok := m.phone[domain.NormalizePhone(phone)]; ok {
		u, exists := m.users[id]
		return u, exists, nil
	}
	return domain.User{}, false, nil
}

func (m *MemoryStore) ListUsers() ([]domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.User, 0, len(m.users))
	for _, u := range m.users {
		res = append(res, u)
	}
	return res, nil
}

func (m *MemoryStore) UserCount() (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.users), nil
}

// SaveRequest stores or replaces a request and tracks creation order.
func (m *MemoryStore) SaveRequest(r domain.BloodRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.requests[r.ID]; !exists {
		m.requestOrder = append(m.requestOrder, r.ID)
	}
	m.requests[r.ID] = r
	return nil
}

func (m *MemoryStore) GetRequest(id string) (domain.BloodRequest, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	r, ok := m.requests[id]
	return r, ok, nil
}

// ListRequests returns requests in creation order.
func (m *MemoryStore) ListRequests() ([]domain.BloodRequest, error) {
	return m.listRequests(func(domain.BloodRequest) bool { return true })
}

func (m *MemoryStore) ListRequestsByStatus(status domain.RequestStatus) ([]domain.BloodRequest, error) {
	return m.listRequests(func(r domain.BloodRequest) bool { return r.Status == status })
}

func (m *MemoryStore) ListRequestsByRequester(userID string) ([]domain.BloodRequest, error) {
	return m.listRequests(func(r domain.BloodRequest) bool { return r.RequesterID == userID })
}

func (m *MemoryStore) ListRequestsByDonor(userID string) ([]domain.BloodRequest, error) {
	return m.listRequests(func(r domain.BloodRequest) bool { return r.DonorID == userID })
}

func (m *MemoryStore) listRequests(keep func(domain.BloodRequest) bool) ([]domain.BloodRequest, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.BloodRequest, 0, len(m.requestOrder))
	for _, id := range m.requestOrder {
		if r, ok := m.requests[id]; ok && keep(r) {
			res = append(res, r)
		}
	}
	return res, nil
}

func (m *MemoryStore) CountDonationsByDonor(userID string) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	count := 0
	for _, r := range m.requests {
		if r.DonorID == userID && r.Status == domain.RequestDonated {
			count++
		}
	}
	return count, nil
}

// TransitionRequest swaps status under the store lock so that two callers
// cannot both win the same transition.
func (m *MemoryStore) TransitionRequest(id string, from, to domain.RequestStatus, mutate func(*domain.BloodRequest)) (domain.BloodRequest, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.requests[id]
	if !ok || r.Status != from {
		return domain.BloodRequest{}, false, nil
	}
	r.Status = to
	if mutate != nil {
		mutate(&r)
	}
	m.requests[id] = r
	return r, true, nil
}

// SaveAlert stores or replaces an alert; newly created alerts list first.
func (m *MemoryStore) SaveAlert(a domain.EmergencyAlert) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.alerts[a.ID]; !exists {
		m.alertOrder = append(m.alertOrder, a.ID)
	}
	m.alerts[a.ID] = a
	return nil
}

func (m *MemoryStore) GetAlert(id string) (domain.EmergencyAlert, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.alerts[id]
	return a, ok, nil
}

// ListAlertsByStatus returns alerts newest first.
func (m *MemoryStore) ListAlertsByStatus(status domain.AlertStatus) ([]domain.EmergencyAlert, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.EmergencyAlert, 0, len(m.alertOrder))
	for i := len(m.alertOrder) - 1; i >= 0; i-- {
		if a, ok := m.alerts[m.alertOrder[i]]; ok && a.Status == status {
			res = append(res, a)
		}
	}
	return res, nil
}

func (m *MemoryStore) ListInventory() ([]domain.InventoryCounter, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.InventoryCounter, 0, len(m.inventory))
	for _, bt := range domain.BloodTypes {
		if c, ok := m.inventory[bt]; ok {
			res = append(res, c)
		}
	}
	return res, nil
}

func (m *MemoryStore) GetInventory(bt domain.BloodType) (domain.InventoryCounter, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.inventory[bt]
	return c, ok, nil
}

// AddInventoryUnits increments the counter for a blood type, creating it
// at zero when absent.
func (m *MemoryStore) AddInventoryUnits(bt domain.BloodType, units int) (domain.InventoryCounter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.inventory[bt]
	c.BloodType = bt
	c.Units += units
	c.LastUpdated = time.Now().UTC()
	m.inventory[bt] = c
	return c, nil
}

// AwardBadge adds a badge key to the user's set. Returns false when the
// badge is already held.
func (m *MemoryStore) AwardBadge(userID, badgeKey string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, held := range m.badges[userID] {
		if held == badgeKey {
			return false, nil
		}
	}
	m.badges[userID] = append(m.badges[userID], badgeKey)
	return true, nil
}

func (m *MemoryStore) ListBadges(userID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	held := m.badges[userID]
	res := make([]string, len(held))
	copy(res, held)
	return res, nil
}

// AppendActivity prepends an entry and evicts beyond the feed bound.
func (m *MemoryStore) AppendActivity(a domain.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.activity = append([]domain.Activity{a}, m.activity...)
	if len(m.activity) > activityFeedMax {
		m.activity = m.activity[:activityFeedMax]
	}
	return nil
}

func (m *MemoryStore) ListActivity(limit int) ([]domain.Activity, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if limit <= 0 || limit > len(m.activity) {
		limit = len(m.activity)
	}
	res := make([]domain.Activity, limit)
	copy(res, m.activity[:limit])
	return res, nil
}

func (m *MemoryStore) SaveCamp(c domain.Camp) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.camps[c.ID]; !exists {
		m.campOrder = append(m.campOrder, c.ID)
	}
	m.camps[c.ID] = c
	return nil
}

func (m *MemoryStore) GetCamp(id string) (domain.Camp, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.camps[id]
	return c, ok, nil
}

func (m *MemoryStore) ListCamps() ([]domain.Camp, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]domain.Camp, 0, len(m.campOrder))
	for _, id := range m.campOrder {
		if c, ok := m.camps[id]; ok {
			res = append(res, c)
		}
	}
	return res, nil
}

// RegisterForCamp adds a registration, rejecting duplicates and full camps.
func (m *MemoryStore) RegisterForCamp(campID, userID string) (domain.Camp, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.camps[campID]
	if !ok {
		return domain.Camp{}, errors.New("camp not found")
	}
	for _, id := range m.registrations[userID] {
		if id == campID {
			return domain.Camp{}, ErrAlreadyRegistered
		}
	}
	if c.Registered >= c.Capacity {
		return domain.Camp{}, ErrCampFull
	}
	m.registrations[userID] = append(m.registrations[userID], campID)
	c.Registered++
	m.camps[campID] = c
	return c, nil
}

func (m *MemoryStore) ListCampRegistrations(userID string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	regs := m.registrations[userID]
	res := make([]string, len(regs))
	copy(res, regs)
	return res, nil
}
