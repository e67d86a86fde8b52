package gormstore

import (
	"context"
	"errors"
	"time"

	"github.com/MarkoPoloResearchLab/cartowl/pkg/board"
	gosqlite "github.com/glebarez/go-sqlite"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	pgUniqueViolationCode = "23505"
	sqliteConstraintCode  = 19
	errorOperationStore   = "store"
	errorSubjectSection   = "section"
	errorSubjectPlayer    = "player"
	errorSubjectLegend    = "legend"
	errorSubjectRequest   = "request"
	errorSubjectSetting   = "setting"
	errorCodeDelete       = "delete"
	errorCodeDuplicate    = "duplicate"
	errorCodeGet          = "get"
	errorCodeInsert       = "insert"
	errorCodeInvalid      = "invalid"
	errorCodeList         = "list"
	errorCodePut          = "put"
	errorCodeUpdate       = "update"
	errorCodeUpsert       = "upsert"
)

// Store implements board.Store using GORM.
type Store struct {
	db *gorm.DB
}

// New returns a Store backed by gorm.DB.
func New(db *gorm.DB) *Store {
	return &Store{db: db}
}

// WithTx executes fn within a transaction.
func (store *Store) WithTx(ctx context.Context, fn func(ctx context.Context, txStore board.Store) error) error {
	return store.db.WithContext(ctx).Transaction(func(transaction *gorm.DB) error {
		return fn(ctx, &Store{db: transaction})
	})
}

// UpsertUnlockedSection writes the section row in one conflict upsert keyed
// on (x, y, width, height). Existing rows are flipped to unlocked in place;
// a section is never relocked through this path.
func (store *Store) UpsertUnlockedSection(ctx context.Context, key board.SectionKey, unlockedAt time.Time) (board.Section, error) {
	at := unlockedAt.UTC()
	model := Section{
		X:          key.X,
		Y:          key.Y,
		Width:      key.Width,
		Height:     key.Height,
		IsUnlocked: true,
		UnlockedAt: &at,
	}
	err := store.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "x"}, {Name: "y"}, {Name: "width"}, {Name: "height"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"is_unlocked": true,
				"unlocked_at": at,
			}),
		}).
		Create(&model).Error
	if err != nil {
		return board.Section{}, wrapStoreError(errorSubjectSection, errorCodeUpsert, err)
	}
	var row Section
	err = store.db.WithContext(ctx).
		Where("x = ? AND y = ? AND width = ? AND height = ?", key.X, key.Y, key.Width, key.Height).
		Take(&row).Error
	if err != nil {
		return board.Section{}, wrapStoreError(errorSubjectSection, errorCodeGet, err)
	}
	return mapSection(row), nil
}

// ListUnlockedSections returns only rows marked unlocked.
func (store *Store) ListUnlockedSections(ctx context.Context) ([]board.Section, error) {
	var rows []Section
	err := store.db.WithContext(ctx).
		Where("is_unlocked = ?", true).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectSection, errorCodeList, err)
	}
	sections := make([]board.Section, 0, len(rows))
	for _, row := range rows {
		sections = append(sections, mapSection(row))
	}
	return sections, nil
}

func (store *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var row Setting
	err := store.db.WithContext(ctx).Where("key = ?", key).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", wrapStoreError(errorSubjectSetting, errorCodeGet, board.ErrSettingNotFound)
		}
		return "", wrapStoreError(errorSubjectSetting, errorCodeGet, err)
	}
	return string(row.Value), nil
}

func (store *Store) PutSetting(ctx context.Context, key string, value string) error {
	row := Setting{Key: key, Value: datatypes.JSON([]byte(value))}
	err := store.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value"}),
		}).
		Create(&row).Error
	if err != nil {
		return wrapStoreError(errorSubjectSetting, errorCodePut, err)
	}
	return nil
}

func (store *Store) InsertRequest(ctx context.Context, request board.Request) (board.Request, error) {
	model := UnlockRequest{
		RequestID:  request.ID.String(),
		PlayerName: request.PlayerName,
		PlayerID:   request.PlayerID,
		Message:    request.Message,
		X:          request.Key.X,
		Y:          request.Key.Y,
		Width:      request.Key.Width,
		Height:     request.Key.Height,
		GoldCost:   request.GoldCost.Int64(),
		Status:     request.Status.String(),
		CreatedAt:  request.CreatedAt.UTC(),
	}
	if model.CreatedAt.IsZero() {
		model.CreatedAt = time.Now().UTC()
	}
	if err := store.db.WithContext(ctx).Create(&model).Error; err != nil {
		return board.Request{}, wrapStoreError(errorSubjectRequest, errorCodeInsert, err)
	}
	created, err := mapRequest(model)
	if err != nil {
		return board.Request{}, wrapStoreError(errorSubjectRequest, errorCodeInvalid, err)
	}
	return created, nil
}

func (store *Store) GetRequest(ctx context.Context, id board.RequestID) (board.Request, error) {
	var model UnlockRequest
	err := store.db.WithContext(ctx).Where("request_id = ?", id.String()).Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return board.Request{}, wrapStoreError(errorSubjectRequest, errorCodeGet, board.ErrNotFound)
		}
		return board.Request{}, wrapStoreError(errorSubjectRequest, errorCodeGet, err)
	}
	request, err := mapRequest(model)
	if err != nil {
		return board.Request{}, wrapStoreError(errorSubjectRequest, errorCodeInvalid, err)
	}
	return request, nil
}

func (store *Store) ListRequests(ctx context.Context) ([]board.Request, error) {
	var rows []UnlockRequest
	err := store.db.WithContext(ctx).
		Order("created_at DESC, request_id").
		Find(&rows).Error
	if err != nil {
		return nil, wrapStoreError(errorSubjectRequest, errorCodeList, err)
	}
	requests := make([]board.Request, 0, len(rows))
	for _, row := range rows {
		request, err := mapRequest(row)
		if err != nil {
			return nil, wrapStoreError(errorSubjectRequest, errorCodeInvalid, err)
		}
		requests = append(requests, request)
	}
	return requests, nil
}

// UpdateRequestStatus transitions a request, guarded on its current status.
// Zero affected rows means the request was already resolved concurrently.
func (store *Store) UpdateRequestStatus(ctx context.Context, id board.RequestID, from board.RequestStatus, to board.RequestStatus) error {
	result := store.db.WithContext(ctx).
		Model(&UnlockRequest{}).
		Where("request_id = ? AND status = ?", id.String(), from.String()).
		Update("status", to.String())
	if result.Error != nil {
		return wrapStoreError(errorSubjectRequest, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectRequest, errorCodeUpdate, board.ErrConflict)
	}
	return nil
}

func (store *Store) FindPlayerByName(ctx context.Context, name string) (board.Player, bool, error) {
	var model Player
	err := store.db.WithContext(ctx).Where("name = ?", name).Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return board.Player{}, false, nil
		}
		return board.Player{}, false, wrapStoreError(errorSubjectPlayer, errorCodeGet, err)
	}
	return mapPlayer(model), true, nil
}

func (store *Store) GetPlayer(ctx context.Context, id int64) (board.Player, error) {
	var model Player
	err := store.db.WithContext(ctx).Where("id = ?", id).Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return board.Player{}, wrapStoreError(errorSubjectPlayer, errorCodeGet, board.ErrNotFound)
		}
		return board.Player{}, wrapStoreError(errorSubjectPlayer, errorCodeGet, err)
	}
	return mapPlayer(model), nil
}

func (store *Store) ListPlayers(ctx context.Context) ([]board.Player, error) {
	var rows []Player
	if err := store.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, wrapStoreError(errorSubjectPlayer, errorCodeList, err)
	}
	players := make([]board.Player, 0, len(rows))
	for _, row := range rows {
		players = append(players, mapPlayer(row))
	}
	return players, nil
}

func (store *Store) InsertPlayer(ctx context.Context, name string, balance board.GoldAmount) (board.Player, error) {
	model := Player{Name: name, GoldBalance: balance.Int64()}
	err := store.db.WithContext(ctx).Create(&model).Error
	if isUniqueViolation(err) {
		return board.Player{}, wrapStoreError(errorSubjectPlayer, errorCodeDuplicate, board.ErrDuplicatePlayerName)
	}
	if err != nil {
		return board.Player{}, wrapStoreError(errorSubjectPlayer, errorCodeInsert, err)
	}
	return mapPlayer(model), nil
}

func (store *Store) SetPlayerGold(ctx context.Context, id int64, balance board.GoldAmount) (board.Player, error) {
	result := store.db.WithContext(ctx).
		Model(&Player{}).
		Where("id = ?", id).
		Update("gold_balance", balance.Int64())
	if result.Error != nil {
		return board.Player{}, wrapStoreError(errorSubjectPlayer, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return board.Player{}, wrapStoreError(errorSubjectPlayer, errorCodeUpdate, board.ErrNotFound)
	}
	return store.GetPlayer(ctx, id)
}

// DebitPlayerGold subtracts the amount inside the database, clamping the
// balance at zero. The CASE expression works on both sqlite and postgres.
func (store *Store) DebitPlayerGold(ctx context.Context, id int64, amount board.GoldAmount) error {
	result := store.db.WithContext(ctx).
		Model(&Player{}).
		Where("id = ?", id).
		Update("gold_balance", gorm.Expr(
			"CASE WHEN gold_balance < ? THEN 0 ELSE gold_balance - ? END",
			amount.Int64(), amount.Int64(),
		))
	if result.Error != nil {
		return wrapStoreError(errorSubjectPlayer, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return wrapStoreError(errorSubjectPlayer, errorCodeUpdate, board.ErrNotFound)
	}
	return nil
}

func (store *Store) ListLegendEntries(ctx context.Context) ([]board.LegendEntry, error) {
	var rows []LegendEntry
	if err := store.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, wrapStoreError(errorSubjectLegend, errorCodeList, err)
	}
	entries := make([]board.LegendEntry, 0, len(rows))
	for _, row := range rows {
		entries = append(entries, mapLegendEntry(row))
	}
	return entries, nil
}

func (store *Store) GetLegendEntry(ctx context.Context, id int64) (board.LegendEntry, error) {
	var model LegendEntry
	err := store.db.WithContext(ctx).Where("id = ?", id).Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return board.LegendEntry{}, wrapStoreError(errorSubjectLegend, errorCodeGet, board.ErrNotFound)
		}
		return board.LegendEntry{}, wrapStoreError(errorSubjectLegend, errorCodeGet, err)
	}
	return mapLegendEntry(model), nil
}

func (store *Store) InsertLegendEntry(ctx context.Context, entry board.LegendEntry) (board.LegendEntry, error) {
	model := LegendEntry{
		Symbol:      entry.Symbol,
		Label:       entry.Label,
		Description: entry.Description,
	}
	if err := store.db.WithContext(ctx).Create(&model).Error; err != nil {
		return board.LegendEntry{}, wrapStoreError(errorSubjectLegend, errorCodeInsert, err)
	}
	return mapLegendEntry(model), nil
}

func (store *Store) UpdateLegendEntry(ctx context.Context, entry board.LegendEntry) (board.LegendEntry, error) {
	result := store.db.WithContext(ctx).
		Model(&LegendEntry{}).
		Where("id = ?", entry.ID).
		Updates(map[string]interface{}{
			"symbol":      entry.Symbol,
			"label":       entry.Label,
			"description": entry.Description,
		})
	if result.Error != nil {
		return board.LegendEntry{}, wrapStoreError(errorSubjectLegend, errorCodeUpdate, result.Error)
	}
	if result.RowsAffected == 0 {
		return board.LegendEntry{}, wrapStoreError(errorSubjectLegend, errorCodeUpdate, board.ErrNotFound)
	}
	return store.GetLegendEntry(ctx, entry.ID)
}

func (store *Store) DeleteLegendEntry(ctx context.Context, id int64) error {
	if err := store.db.WithContext(ctx).Delete(&LegendEntry{}, id).Error; err != nil {
		return wrapStoreError(errorSubjectLegend, errorCodeDelete, err)
	}
	return nil
}

func wrapStoreError(subject string, code string, err error) error {
	return board.WrapError(errorOperationStore, subject, code, err)
}

func mapSection(row Section) board.Section {
	return board.Section{
		Key: board.SectionKey{
			X:      row.X,
			Y:      row.Y,
			Width:  row.Width,
			Height: row.Height,
		},
		Unlocked:   row.IsUnlocked,
		UnlockedAt: row.UnlockedAt,
	}
}

func mapPlayer(row Player) board.Player {
	return board.Player{
		ID:          row.ID,
		Name:        row.Name,
		GoldBalance: board.GoldAmount(row.GoldBalance),
	}
}

func mapLegendEntry(row LegendEntry) board.LegendEntry {
	return board.LegendEntry{
		ID:          row.ID,
		Symbol:      row.Symbol,
		Label:       row.Label,
		Description: row.Description,
	}
}

func mapRequest(row UnlockRequest) (board.Request, error) {
	id, err := board.NewRequestID(row.RequestID)
	if err != nil {
		return board.Request{}, err
	}
	status, err := board.ParseRequestStatus(row.Status)
	if err != nil {
		return board.Request{}, err
	}
	cost, err := board.NewGoldAmount(row.GoldCost)
	if err != nil {
		return board.Request{}, err
	}
	return board.Request{
		ID:         id,
		PlayerName: row.PlayerName,
		PlayerID:   row.PlayerID,
		Message:    row.Message,
		Key: board.SectionKey{
			X:      row.X,
			Y:      row.Y,
			Width:  row.Width,
			Height: row.Height,
		},
		GoldCost:  cost,
		Status:    status,
		CreatedAt: row.CreatedAt,
	}, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolationCode
	}
	var sqliteErr *gosqlite.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code()&0xFF == sqliteConstraintCode
	}
	return false
}
