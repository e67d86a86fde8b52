package board

import (
	"errors"
	"testing"
)

func TestParseGoldCostTable(test *testing.T) {
	test.Parallel()
	table, err := ParseGoldCostTable(`{"1x1":10,"2x2":30}`)
	if err != nil {
		test.Fatalf("parse: %v", err)
	}
	cost, err := table.CostFor(mustSectionKey(test, 0, 0, 2, 2))
	if err != nil {
		test.Fatalf("cost: %v", err)
	}
	if cost != 30 {
		test.Fatalf("expected 30, got %d", cost)
	}
}

func TestParseGoldCostTableRejectsBadInput(test *testing.T) {
	test.Parallel()
	cases := []struct {
		name string
		raw  string
	}{
		{name: "not json", raw: "gold"},
		{name: "empty object", raw: "{}"},
		{name: "negative cost", raw: `{"1x1":-5}`},
	}
	for _, testCase := range cases {
		testCase := testCase
		test.Run(testCase.name, func(test *testing.T) {
			test.Parallel()
			if _, err := ParseGoldCostTable(testCase.raw); !errors.Is(err, ErrInvalidGoldCostTable) {
				test.Fatalf("expected ErrInvalidGoldCostTable, got %v", err)
			}
		})
	}
}

func TestCostForFallsBackToBaseSize(test *testing.T) {
	test.Parallel()
	table, err := ParseGoldCostTable(`{"1x1":10}`)
	if err != nil {
		test.Fatalf("parse: %v", err)
	}
	cost, err := table.CostFor(mustSectionKey(test, 0, 0, 4, 6))
	if err != nil {
		test.Fatalf("cost: %v", err)
	}
	if cost != 10 {
		test.Fatalf("expected fallback 10, got %d", cost)
	}
}

func TestCostForMissingFallbackIsConfigurationFault(test *testing.T) {
	test.Parallel()
	table, err := ParseGoldCostTable(`{"2x2":30}`)
	if err != nil {
		test.Fatalf("parse: %v", err)
	}
	if _, err := table.CostFor(mustSectionKey(test, 0, 0, 4, 4)); !errors.Is(err, ErrConfiguration) {
		test.Fatalf("expected ErrConfiguration, got %v", err)
	}
}
