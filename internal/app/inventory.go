package app

import (
	"fmt"

	"bloodbridge/pkg/domain"
)

// baselineInventory is the opening stock per blood group. Counters are
// created only when the store has none for the group, so restarts never
// reset accumulated donations.
var baselineInventory = map[domain.BloodType]int{
	domain.APos:  25,
	domain.ANeg:  12,
	domain.BPos:  18,
	domain.BNeg:  8,
	domain.ABPos: 15,
	domain.ABNeg: 5,
	domain.OPos:  30,
	domain.ONeg:  10,
}

func (a *App) ensureInventory() error {
	for _, bt := range domain.BloodTypes {
		_, found, err := a.store.GetInventory(bt)
		if err != nil {
			return fmt.Errorf("check inventory %s: %w", bt, err)
		}
		if found {
			continue
		}
		if _, err := a.store.AddInventoryUnits(bt, baselineInventory[bt]); err != nil {
			return fmt.Errorf("seed inventory %s: %w", bt, err)
		}
	}
	return nil
}

// InventorySnapshot reports unit counts and derived status per blood group.
// Every group is always present, even at zero units.
func (a *App) InventorySnapshot() (map[domain.BloodType]domain.InventoryStatus, error) {
	counters, err := a.store.ListInventory()
	if err != nil {
		return nil, fmt.Errorf("list inventory: %w", err)
	}
	snapshot := make(map[domain.BloodType]domain.InventoryStatus, len(domain.BloodTypes))
	for _, bt := range domain.BloodTypes {
		snapshot[bt] = domain.InventoryStatus{Units: 0, Status: domain.LevelForUnits(0)}
	}
	for _, c := range counters {
		snapshot[c.BloodType] = domain.InventoryStatus{
			Units:  c.Units,
			Status: domain.LevelForUnits(c.Units),
		}
	}
	return snapshot, nil
}
