package pgstore

import (
	"context"
	"errors"
	"time"

	"github.com/MarkoPoloResearchLab/cartowl/pkg/board"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgUniqueViolationCode = "23505"
	errorOperationStore   = "store"
	errorSubjectSection   = "section"
	errorSubjectPlayer    = "player"
	errorSubjectLegend    = "legend"
	errorSubjectRequest   = "request"
	errorSubjectSetting   = "setting"
	errorSubjectTx        = "transaction"
	errorCodeBegin        = "begin"
	errorCodeCommit       = "commit"
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

const (
	sqlUpsertSection = `
		insert into sections(x, y, width, height, is_unlocked, unlocked_at)
		values ($1, $2, $3, $4, true, $5)
		on conflict (x, y, width, height)
		do update set is_unlocked = true, unlocked_at = excluded.unlocked_at
	`

	sqlSelectSectionByKey = `
		select x, y, width, height, is_unlocked, unlocked_at
		from sections
		where x = $1 and y = $2 and width = $3 and height = $4
	`

	sqlListUnlockedSections = `
		select x, y, width, height, is_unlocked, unlocked_at
		from sections
		where is_unlocked
		order by id
	`

	sqlSelectSetting = `select value::text from settings where key = $1`

	sqlUpsertSetting = `
		insert into settings(key, value)
		values ($1, $2::jsonb)
		on conflict (key) do update set value = excluded.value
	`

	sqlInsertRequest = `
		insert into requests(request_id, player_name, player_id, message, x, y, width, height, gold_cost, status, created_at)
		values (gen_random_uuid(), $1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		returning request_id::text
	`

	sqlSelectRequest = `
		select request_id::text, player_name, player_id, message, x, y, width, height, gold_cost, status, created_at
		from requests
		where request_id = $1
	`

	sqlListRequests = `
		select request_id::text, player_name, player_id, message, x, y, width, height, gold_cost, status, created_at
		from requests
		order by created_at desc, request_id
	`

	sqlUpdateRequestStatus = `
		update requests set status = $3
		where request_id = $1 and status = $2
	`

	sqlSelectPlayerByName = `select id, name, gold_balance from players where name = $1`
	sqlSelectPlayer       = `select id, name, gold_balance from players where id = $1`
	sqlListPlayers        = `select id, name, gold_balance from players order by id`

	sqlInsertPlayer = `
		insert into players(name, gold_balance)
		values ($1, $2)
		returning id
	`

	sqlSetPlayerGold = `update players set gold_balance = $2 where id = $1`

	sqlDebitPlayerGold = `
		update players
		set gold_balance = case when gold_balance < $2 then 0 else gold_balance - $2 end
		where id = $1
	`

	sqlListLegend   = `select id, symbol, label, description from legend_entries order by id`
	sqlSelectLegend = `select id, symbol, label, description from legend_entries where id = $1`

	sqlInsertLegend = `
		insert into legend_entries(symbol, label, description)
		values ($1, $2, $3)
		returning id
	`

	sqlUpdateLegend = `
		update legend_entries set symbol = $2, label = $3, description = $4
		where id = $1
	`

	sqlDeleteLegend = `delete from legend_entries where id = $1`
)

// querier covers the pgx surface shared by pgxpool.Pool and pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// transactionBeginner starts a transaction; pgxpool.Pool satisfies it.
type transactionBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Store implements board.Store using a pgx connection pool (autocommit);
// WithTx swaps the querier for an active transaction.
type Store struct {
	beginner transactionBeginner
	querier  querier
}

// New returns a Store backed by a pgx pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{beginner: pool, querier: pool}
}

func (store *Store) WithTx(ctx context.Context, fn func(ctx context.Context, txStore board.Store) error) error {
	tx, err := store.beginner.Begin(ctx)
	if err != nil {
		return wrapStoreError(errorSubjectTx, errorCodeBegin, err)
	}
	transactionStore := &Store{beginner: store.beginner, querier: tx}
	if err := fn(ctx, transactionStore); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return wrapStoreError(errorSubjectTx, errorCodeCommit, err)
	}
	return nil
}

func (store *Store) UpsertUnlockedSection(ctx context.Context, key board.SectionKey, unlockedAt time.Time) (board.Section, error) {
	_, err := store.querier.Exec(ctx, sqlUpsertSection, key.X, key.Y, key.Width, key.Height, unlockedAt.UTC())
	if err != nil {
		return board.Section{}, wrapStoreError(errorSubjectSection, errorCodeUpsert, err)
	}
	row := store.querier.QueryRow(ctx, sqlSelectSectionByKey, key.X, key.Y, key.Width, key.Height)
	section, err := scanSection(row)
	if err != nil {
		return board.Section{}, wrapStoreError(errorSubjectSection, errorCodeGet, err)
	}
	return section, nil
}

func (store *Store) ListUnlockedSections(ctx context.Context) ([]board.Section, error) {
	rows, err := store.querier.Query(ctx, sqlListUnlockedSections)
	if err != nil {
		return nil, wrapStoreError(errorSubjectSection, errorCodeList, err)
	}
	defer rows.Close()
	var sections []board.Section
	for rows.Next() {
		section, err := scanSection(rows)
		if err != nil {
			return nil, wrapStoreError(errorSubjectSection, errorCodeInvalid, err)
		}
		sections = append(sections, section)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreError(errorSubjectSection, errorCodeList, err)
	}
	return sections, nil
}

func (store *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := store.querier.QueryRow(ctx, sqlSelectSetting, key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", wrapStoreError(errorSubjectSetting, errorCodeGet, board.ErrSettingNotFound)
	}
	if err != nil {
		return "", wrapStoreError(errorSubjectSetting, errorCodeGet, err)
	}
	return value, nil
}

func (store *Store) PutSetting(ctx context.Context, key string, value string) error {
	if _, err := store.querier.Exec(ctx, sqlUpsertSetting, key, value); err != nil {
		return wrapStoreError(errorSubjectSetting, errorCodePut, err)
	}
	return nil
}

func (store *Store) InsertRequest(ctx context.Context, request board.Request) (board.Request, error) {
	createdAt := request.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	var requestID string
	err := store.querier.QueryRow(ctx, sqlInsertRequest,
		request.PlayerName,
		request.PlayerID,
		request.Message,
		request.Key.X,
		request.Key.Y,
		request.Key.Width,
		request.Key.Height,
		request.GoldCost.Int64(),
		request.Status.String(),
		createdAt,
	).Scan(&requestID)
	if err != nil {
		return board.Request{}, wrapStoreError(errorSubjectRequest, errorCodeInsert, err)
	}
	id, err := board.NewRequestID(requestID)
	if err != nil {
		return board.Request{}, wrapStoreError(errorSubjectRequest, errorCodeInvalid, err)
	}
	return store.GetRequest(ctx, id)
}

func (store *Store) GetRequest(ctx context.Context, id board.RequestID) (board.Request, error) {
	row := store.querier.QueryRow(ctx, sqlSelectRequest, id.String())
	request, err := scanRequest(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return board.Request{}, wrapStoreError(errorSubjectRequest, errorCodeGet, board.ErrNotFound)
	}
	if err != nil {
		return board.Request{}, wrapStoreError(errorSubjectRequest, errorCodeGet, err)
	}
	return request, nil
}

func (store *Store) ListRequests(ctx context.Context) ([]board.Request, error) {
	rows, err := store.querier.Query(ctx, sqlListRequests)
	if err != nil {
		return nil, wrapStoreError(errorSubjectRequest, errorCodeList, err)
	}
	defer rows.Close()
	var requests []board.Request
	for rows.Next() {
		request, err := scanRequest(rows)
		if err != nil {
			return nil, wrapStoreError(errorSubjectRequest, errorCodeInvalid, err)
		}
		requests = append(requests, request)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreError(errorSubjectRequest, errorCodeList, err)
	}
	return requests, nil
}

func (store *Store) UpdateRequestStatus(ctx context.Context, id board.RequestID, from board.RequestStatus, to board.RequestStatus) error {
	tag, err := store.querier.Exec(ctx, sqlUpdateRequestStatus, id.String(), from.String(), to.String())
	if err != nil {
		return wrapStoreError(errorSubjectRequest, errorCodeUpdate, err)
	}
	if tag.RowsAffected() == 0 {
		return wrapStoreError(errorSubjectRequest, errorCodeUpdate, board.ErrConflict)
	}
	return nil
}

func (store *Store) FindPlayerByName(ctx context.Context, name string) (board.Player, bool, error) {
	row := store.querier.QueryRow(ctx, sqlSelectPlayerByName, name)
	player, err := scanPlayer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return board.Player{}, false, nil
	}
	if err != nil {
		return board.Player{}, false, wrapStoreError(errorSubjectPlayer, errorCodeGet, err)
	}
	return player, true, nil
}

func (store *Store) GetPlayer(ctx context.Context, id int64) (board.Player, error) {
	row := store.querier.QueryRow(ctx, sqlSelectPlayer, id)
	player, err := scanPlayer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return board.Player{}, wrapStoreError(errorSubjectPlayer, errorCodeGet, board.ErrNotFound)
	}
	if err != nil {
		return board.Player{}, wrapStoreError(errorSubjectPlayer, errorCodeGet, err)
	}
	return player, nil
}

func (store *Store) ListPlayers(ctx context.Context) ([]board.Player, error) {
	rows, err := store.querier.Query(ctx, sqlListPlayers)
	if err != nil {
		return nil, wrapStoreError(errorSubjectPlayer, errorCodeList, err)
	}
	defer rows.Close()
	var players []board.Player
	for rows.Next() {
		player, err := scanPlayer(rows)
		if err != nil {
			return nil, wrapStoreError(errorSubjectPlayer, errorCodeInvalid, err)
		}
		players = append(players, player)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreError(errorSubjectPlayer, errorCodeList, err)
	}
	return players, nil
}

func (store *Store) InsertPlayer(ctx context.Context, name string, balance board.GoldAmount) (board.Player, error) {
	var id int64
	err := store.querier.QueryRow(ctx, sqlInsertPlayer, name, balance.Int64()).Scan(&id)
	if isUniqueViolation(err) {
		return board.Player{}, wrapStoreError(errorSubjectPlayer, errorCodeDuplicate, board.ErrDuplicatePlayerName)
	}
	if err != nil {
		return board.Player{}, wrapStoreError(errorSubjectPlayer, errorCodeInsert, err)
	}
	return store.GetPlayer(ctx, id)
}

func (store *Store) SetPlayerGold(ctx context.Context, id int64, balance board.GoldAmount) (board.Player, error) {
	tag, err := store.querier.Exec(ctx, sqlSetPlayerGold, id, balance.Int64())
	if err != nil {
		return board.Player{}, wrapStoreError(errorSubjectPlayer, errorCodeUpdate, err)
	}
	if tag.RowsAffected() == 0 {
		return board.Player{}, wrapStoreError(errorSubjectPlayer, errorCodeUpdate, board.ErrNotFound)
	}
	return store.GetPlayer(ctx, id)
}

func (store *Store) DebitPlayerGold(ctx context.Context, id int64, amount board.GoldAmount) error {
	tag, err := store.querier.Exec(ctx, sqlDebitPlayerGold, id, amount.Int64())
	if err != nil {
		return wrapStoreError(errorSubjectPlayer, errorCodeUpdate, err)
	}
	if tag.RowsAffected() == 0 {
		return wrapStoreError(errorSubjectPlayer, errorCodeUpdate, board.ErrNotFound)
	}
	return nil
}

func (store *Store) ListLegendEntries(ctx context.Context) ([]board.LegendEntry, error) {
	rows, err := store.querier.Query(ctx, sqlListLegend)
	if err != nil {
		return nil, wrapStoreError(errorSubjectLegend, errorCodeList, err)
	}
	defer rows.Close()
	var entries []board.LegendEntry
	for rows.Next() {
		entry, err := scanLegendEntry(rows)
		if err != nil {
			return nil, wrapStoreError(errorSubjectLegend, errorCodeInvalid, err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, wrapStoreError(errorSubjectLegend, errorCodeList, err)
	}
	return entries, nil
}

func (store *Store) GetLegendEntry(ctx context.Context, id int64) (board.LegendEntry, error) {
	row := store.querier.QueryRow(ctx, sqlSelectLegend, id)
	entry, err := scanLegendEntry(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return board.LegendEntry{}, wrapStoreError(errorSubjectLegend, errorCodeGet, board.ErrNotFound)
	}
	if err != nil {
		return board.LegendEntry{}, wrapStoreError(errorSubjectLegend, errorCodeGet, err)
	}
	return entry, nil
}

func (store *Store) InsertLegendEntry(ctx context.Context, entry board.LegendEntry) (board.LegendEntry, error) {
	var id int64
	err := store.querier.QueryRow(ctx, sqlInsertLegend, entry.Symbol, entry.Label, entry.Description).Scan(&id)
	if err != nil {
		return board.LegendEntry{}, wrapStoreError(errorSubjectLegend, errorCodeInsert, err)
	}
	return store.GetLegendEntry(ctx, id)
}

func (store *Store) UpdateLegendEntry(ctx context.Context, entry board.LegendEntry) (board.LegendEntry, error) {
	tag, err := store.querier.Exec(ctx, sqlUpdateLegend, entry.ID, entry.Symbol, entry.Label, entry.Description)
	if err != nil {
		return board.LegendEntry{}, wrapStoreError(errorSubjectLegend, errorCodeUpdate, err)
	}
	if tag.RowsAffected() == 0 {
		return board.LegendEntry{}, wrapStoreError(errorSubjectLegend, errorCodeUpdate, board.ErrNotFound)
	}
	return store.GetLegendEntry(ctx, entry.ID)
}

func (store *Store) DeleteLegendEntry(ctx context.Context, id int64) error {
	if _, err := store.querier.Exec(ctx, sqlDeleteLegend, id); err != nil {
		return wrapStoreError(errorSubjectLegend, errorCodeDelete, err)
	}
	return nil
}

func wrapStoreError(subject string, code string, err error) error {
	return board.WrapError(errorOperationStore, subject, code, err)
}

func scanSection(row pgx.Row) (board.Section, error) {
	var (
		section    board.Section
		unlockedAt *time.Time
	)
	err := row.Scan(&section.Key.X, &section.Key.Y, &section.Key.Width, &section.Key.Height, &section.Unlocked, &unlockedAt)
	if err != nil {
		return board.Section{}, err
	}
	section.UnlockedAt = unlockedAt
	return section, nil
}

func scanPlayer(row pgx.Row) (board.Player, error) {
	var (
		player  board.Player
		balance int64
	)
	if err := row.Scan(&player.ID, &player.Name, &balance); err != nil {
		return board.Player{}, err
	}
	player.GoldBalance = board.GoldAmount(balance)
	return player, nil
}

func scanLegendEntry(row pgx.Row) (board.LegendEntry, error) {
	var entry board.LegendEntry
	if err := row.Scan(&entry.ID, &entry.Symbol, &entry.Label, &entry.Description); err != nil {
		return board.LegendEntry{}, err
	}
	return entry, nil
}

func scanRequest(row pgx.Row) (board.Request, error) {
	var (
		requestID string
		playerID  *int64
		status    string
		goldCost  int64
		request   board.Request
	)
	err := row.Scan(
		&requestID,
		&request.PlayerName,
		&playerID,
		&request.Message,
		&request.Key.X,
		&request.Key.Y,
		&request.Key.Width,
		&request.Key.Height,
		&goldCost,
		&status,
		&request.CreatedAt,
	)
	if err != nil {
		return board.Request{}, err
	}
	id, err := board.NewRequestID(requestID)
	if err != nil {
		return board.Request{}, err
	}
	parsedStatus, err := board.ParseRequestStatus(status)
	if err != nil {
		return board.Request{}, err
	}
	request.ID = id
	request.PlayerID = playerID
	request.GoldCost = board.GoldAmount(goldCost)
	request.Status = parsedStatus
	return request, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolationCode
	}
	return false
}
