package board

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// GoldCostTable maps a size key such as "2x2" to its unlock price.
type GoldCostTable struct {
	costs map[string]int64
}

// ParseGoldCostTable decodes the gold_costs setting value.
func ParseGoldCostTable(raw string) (GoldCostTable, error) {
	var costs map[string]int64
	if err := json.Unmarshal([]byte(raw), &costs); err != nil {
		return GoldCostTable{}, fmt.Errorf("%w: %v", ErrInvalidGoldCostTable, err)
	}
	if len(costs) == 0 {
		return GoldCostTable{}, fmt.Errorf("%w: empty table", ErrInvalidGoldCostTable)
	}
	for sizeKey, cost := range costs {
		if cost < 0 {
			return GoldCostTable{}, fmt.Errorf("%w: negative cost for %q", ErrInvalidGoldCostTable, sizeKey)
		}
	}
	return GoldCostTable{costs: costs}, nil
}

// CostFor resolves the price of a section, falling back to the 1x1 entry
// for sizes the table does not price explicitly.
func (table GoldCostTable) CostFor(key SectionKey) (GoldAmount, error) {
	if cost, ok := table.costs[key.SizeKey()]; ok {
		return GoldAmount(cost), nil
	}
	cost, ok := table.costs[fallbackSizeKey]
	if !ok {
		return 0, fmt.Errorf("%w: gold_costs has no %s fallback", ErrConfiguration, fallbackSizeKey)
	}
	return GoldAmount(cost), nil
}

// goldCostTable loads the pricing table from settings. The table is read on
// every call so price edits take effect without a restart.
func goldCostTable(ctx context.Context, store Store) (GoldCostTable, error) {
	raw, err := store.GetSetting(ctx, SettingGoldCosts)
	if err != nil {
		if errors.Is(err, ErrSettingNotFound) {
			return GoldCostTable{}, fmt.Errorf("%w: gold_costs setting missing", ErrConfiguration)
		}
		return GoldCostTable{}, err
	}
	return ParseGoldCostTable(raw)
}
