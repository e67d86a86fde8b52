package board

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// LegendEntries lists all legend entries ordered by id.
func (service *Service) LegendEntries(ctx context.Context) ([]LegendEntry, error) {
	return service.store.ListLegendEntries(ctx)
}

// CreateLegendEntry inserts a legend entry after validating its fields.
func (service *Service) CreateLegendEntry(ctx context.Context, symbol string, label string, description string) (LegendEntry, error) {
	if symbol == "" || label == "" {
		return LegendEntry{}, fmt.Errorf("%w: symbol and label required", ErrValidation)
	}
	return service.store.InsertLegendEntry(ctx, LegendEntry{
		Symbol:      symbol,
		Label:       label,
		Description: description,
	})
}

// UpdateLegendEntry replaces the fields of an existing legend entry.
func (service *Service) UpdateLegendEntry(ctx context.Context, entry LegendEntry) (LegendEntry, error) {
	if entry.Symbol == "" || entry.Label == "" {
		return LegendEntry{}, fmt.Errorf("%w: symbol and label required", ErrValidation)
	}
	return service.store.UpdateLegendEntry(ctx, entry)
}

// DeleteLegendEntry removes a legend entry. Deleting an unknown id is a no-op.
func (service *Service) DeleteLegendEntry(ctx context.Context, id int64) error {
	return service.store.DeleteLegendEntry(ctx, id)
}

// ListPlayers returns every player row.
func (service *Service) ListPlayers(ctx context.Context) ([]Player, error) {
	return service.store.ListPlayers(ctx)
}

// CreatePlayer inserts a player with a starting balance.
func (service *Service) CreatePlayer(ctx context.Context, name PlayerName, balance GoldAmount) (Player, error) {
	return service.store.InsertPlayer(ctx, name.String(), balance)
}

// SetPlayerGold overwrites a player's gold balance.
func (service *Service) SetPlayerGold(ctx context.Context, id int64, balance GoldAmount) (Player, error) {
	return service.store.SetPlayerGold(ctx, id, balance)
}

// AuthenticateAdmin verifies the admin password against the stored bcrypt
// hash. A missing hash setting means the deployment was never provisioned
// and surfaces as ErrConfiguration rather than a login failure.
func (service *Service) AuthenticateAdmin(ctx context.Context, password string) error {
	if password == "" {
		return fmt.Errorf("%w: password required", ErrValidation)
	}
	raw, err := service.store.GetSetting(ctx, SettingAdminPasswordHash)
	if err != nil {
		if errors.Is(err, ErrSettingNotFound) {
			return fmt.Errorf("%w: admin password not configured", ErrConfiguration)
		}
		return err
	}
	hash := decodeSettingString(raw)
	if hash == "" {
		return fmt.Errorf("%w: admin password not configured", ErrConfiguration)
	}
	if bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) != nil {
		return fmt.Errorf("%w: invalid password", ErrUnauthorized)
	}
	return nil
}

// SetAdminPassword hashes and stores the admin credential.
func (service *Service) SetAdminPassword(ctx context.Context, password string) error {
	if password == "" {
		return fmt.Errorf("%w: password required", ErrValidation)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return WrapError("service", "settings", "hash", err)
	}
	encoded, err := json.Marshal(string(hash))
	if err != nil {
		return WrapError("service", "settings", "encode", err)
	}
	return service.store.PutSetting(ctx, SettingAdminPasswordHash, string(encoded))
}

// Setting values are JSON documents; scalar settings are stored as JSON
// strings. Older deployments stored the hash as bare text, so fall back to
// the raw value when it does not decode.
func decodeSettingString(raw string) string {
	var value string
	if err := json.Unmarshal([]byte(raw), &value); err != nil {
		return raw
	}
	return value
}

// CostForSection resolves the current unlock price for a section size.
func (service *Service) CostForSection(ctx context.Context, key SectionKey) (GoldAmount, error) {
	costs, err := goldCostTable(ctx, service.store)
	if err != nil {
		return 0, err
	}
	return costs.CostFor(key)
}
