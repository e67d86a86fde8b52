package board

import (
	"context"
	"errors"
	"testing"
)

func TestSetAndAuthenticateAdminPassword(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	service := mustNewService(test, store)

	if err := service.SetAdminPassword(context.Background(), "hunter2"); err != nil {
		test.Fatalf("set password: %v", err)
	}
	if err := service.AuthenticateAdmin(context.Background(), "hunter2"); err != nil {
		test.Fatalf("authenticate: %v", err)
	}
	err := service.AuthenticateAdmin(context.Background(), "wrong")
	if !errors.Is(err, ErrUnauthorized) {
		test.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestAuthenticateAdminUnconfigured(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	service := mustNewService(test, store)

	err := service.AuthenticateAdmin(context.Background(), "anything")
	if !errors.Is(err, ErrConfiguration) {
		test.Fatalf("expected ErrConfiguration, got %v", err)
	}
}

func TestAuthenticateAdminEmptyPassword(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	service := mustNewService(test, store)

	err := service.AuthenticateAdmin(context.Background(), "")
	if !errors.Is(err, ErrValidation) {
		test.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestAuthenticateAdminAcceptsLegacyBareHash(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	service := mustNewService(test, store)

	if err := service.SetAdminPassword(context.Background(), "hunter2"); err != nil {
		test.Fatalf("set password: %v", err)
	}
	// Re-store the hash as bare text the way older deployments did.
	store.settings[SettingAdminPasswordHash] = decodeSettingString(store.settings[SettingAdminPasswordHash])
	if err := service.AuthenticateAdmin(context.Background(), "hunter2"); err != nil {
		test.Fatalf("authenticate against bare hash: %v", err)
	}
}

func TestCreatePlayerRejectsDuplicateName(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	service := mustNewService(test, store)

	if _, err := service.CreatePlayer(context.Background(), mustPlayerName(test, "Thorn"), 50); err != nil {
		test.Fatalf("create player: %v", err)
	}
	_, err := service.CreatePlayer(context.Background(), mustPlayerName(test, "Thorn"), 10)
	if !errors.Is(err, ErrDuplicatePlayerName) {
		test.Fatalf("expected ErrDuplicatePlayerName, got %v", err)
	}
}

func TestSetPlayerGoldUnknownPlayer(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	service := mustNewService(test, store)

	_, err := service.SetPlayerGold(context.Background(), 42, 100)
	if !errors.Is(err, ErrNotFound) {
		test.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestLegendEntryValidation(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	service := mustNewService(test, store)

	_, err := service.CreateLegendEntry(context.Background(), "", "Forest", "")
	if !errors.Is(err, ErrValidation) {
		test.Fatalf("expected ErrValidation for missing symbol, got %v", err)
	}
	_, err = service.CreateLegendEntry(context.Background(), "F", "", "")
	if !errors.Is(err, ErrValidation) {
		test.Fatalf("expected ErrValidation for missing label, got %v", err)
	}

	created, err := service.CreateLegendEntry(context.Background(), "F", "Forest", "dense woods")
	if err != nil {
		test.Fatalf("create legend entry: %v", err)
	}
	updated, err := service.UpdateLegendEntry(context.Background(), LegendEntry{
		ID:     created.ID,
		Symbol: "F",
		Label:  "Deep Forest",
	})
	if err != nil {
		test.Fatalf("update legend entry: %v", err)
	}
	if updated.Label != "Deep Forest" {
		test.Fatalf("expected updated label, got %q", updated.Label)
	}
	if err := service.DeleteLegendEntry(context.Background(), created.ID); err != nil {
		test.Fatalf("delete legend entry: %v", err)
	}
	entries, err := service.LegendEntries(context.Background())
	if err != nil {
		test.Fatalf("list legend entries: %v", err)
	}
	if len(entries) != 0 {
		test.Fatalf("expected empty legend, got %d entries", len(entries))
	}
}

func TestCostForSectionReadsLatestTable(test *testing.T) {
	test.Parallel()
	store := newStubStore(test)
	store.settings[SettingGoldCosts] = `{"1x1":10,"3x3":60}`
	service := mustNewService(test, store)

	cost, err := service.CostForSection(context.Background(), mustSectionKey(test, 0, 0, 3, 3))
	if err != nil {
		test.Fatalf("cost: %v", err)
	}
	if cost != 60 {
		test.Fatalf("expected 60, got %d", cost)
	}

	store.settings[SettingGoldCosts] = `{"1x1":10,"3x3":75}`
	cost, err = service.CostForSection(context.Background(), mustSectionKey(test, 0, 0, 3, 3))
	if err != nil {
		test.Fatalf("cost after edit: %v", err)
	}
	if cost != 75 {
		test.Fatalf("expected 75 after edit, got %d", cost)
	}
}
