package gormstore

import (
	"fmt"

	"github.com/MarkoPoloResearchLab/cartowl/pkg/board"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const defaultGoldCosts = `{"1x1":10,"1x2":18,"2x1":18,"2x2":30,"3x3":60}`

// Migrate applies the schema and seeds the default pricing table. Seeding is
// idempotent: an existing gold_costs row is left untouched.
func Migrate(db *gorm.DB) error {
	err := db.AutoMigrate(
		&Section{},
		&Player{},
		&LegendEntry{},
		&UnlockRequest{},
		&Setting{},
	)
	if err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	seed := Setting{
		Key:   board.SettingGoldCosts,
		Value: datatypes.JSON([]byte(defaultGoldCosts)),
	}
	err = db.
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoNothing: true,
		}).
		Create(&seed).Error
	if err != nil {
		return fmt.Errorf("seed gold costs: %w", err)
	}
	return nil
}
