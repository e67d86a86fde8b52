package gormstore

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Section mirrors the sections table. The composite (x, y, width, height)
// key carries a unique index so the storage layer backstops upsert races.
type Section struct {
	ID         int64      `gorm:"primaryKey;autoIncrement"`
	X          int        `gorm:"not null;index:idx_sections_key,unique,priority:1"`
	Y          int        `gorm:"not null;index:idx_sections_key,unique,priority:2"`
	Width      int        `gorm:"not null;index:idx_sections_key,unique,priority:3"`
	Height     int        `gorm:"not null;index:idx_sections_key,unique,priority:4"`
	IsUnlocked bool       `gorm:"not null;default:false"`
	UnlockedAt *time.Time `gorm:""`
}

func (Section) TableName() string { return "sections" }

// Player mirrors the players table.
type Player struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	Name        string `gorm:"not null;uniqueIndex:uniq_players_name"`
	GoldBalance int64  `gorm:"not null;default:0"`
}

func (Player) TableName() string { return "players" }

// LegendEntry mirrors the legend_entries table.
type LegendEntry struct {
	ID          int64  `gorm:"primaryKey;autoIncrement"`
	Symbol      string `gorm:"not null"`
	Label       string `gorm:"not null"`
	Description string `gorm:""`
}

func (LegendEntry) TableName() string { return "legend_entries" }

// UnlockRequest mirrors the requests table.
type UnlockRequest struct {
	RequestID  string    `gorm:"type:uuid;primaryKey"`
	PlayerName string    `gorm:"not null"`
	PlayerID   *int64    `gorm:"index"`
	Message    string    `gorm:""`
	X          int       `gorm:"not null"`
	Y          int       `gorm:"not null"`
	Width      int       `gorm:"not null"`
	Height     int       `gorm:"not null"`
	GoldCost   int64     `gorm:"not null"`
	Status     string    `gorm:"not null;index:idx_requests_status"`
	CreatedAt  time.Time `gorm:"not null;index:idx_requests_created"`
}

func (UnlockRequest) TableName() string { return "requests" }

func (request *UnlockRequest) BeforeCreate(tx *gorm.DB) error {
	if request.RequestID == "" {
		request.RequestID = uuid.NewString()
	}
	return nil
}

// Setting mirrors the settings table. Values are JSON documents.
type Setting struct {
	Key   string         `gorm:"primaryKey"`
	Value datatypes.JSON `gorm:"not null"`
}

func (Setting) TableName() string { return "settings" }
