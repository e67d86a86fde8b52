package pgstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrateStatements = []string{
	`create table if not exists sections (
		id bigint generated always as identity primary key,
		x integer not null,
		y integer not null,
		width integer not null,
		height integer not null,
		is_unlocked boolean not null default false,
		unlocked_at timestamptz,
		constraint uniq_sections_key unique (x, y, width, height)
	)`,
	`create table if not exists players (
		id bigint generated always as identity primary key,
		name text not null,
		gold_balance bigint not null default 0,
		constraint uniq_players_name unique (name)
	)`,
	`create table if not exists legend_entries (
		id bigint generated always as identity primary key,
		symbol text not null,
		label text not null,
		description text not null default ''
	)`,
	`create table if not exists requests (
		request_id uuid primary key,
		player_name text not null,
		player_id bigint references players(id),
		message text not null default '',
		x integer not null,
		y integer not null,
		width integer not null,
		height integer not null,
		gold_cost bigint not null,
		status text not null,
		created_at timestamptz not null
	)`,
	`create index if not exists idx_requests_created on requests (created_at desc)`,
	`create table if not exists settings (
		key text primary key,
		value jsonb not null
	)`,
	`insert into settings(key, value)
		values ('gold_costs', '{"1x1":10,"1x2":18,"2x1":18,"2x2":30,"3x3":60}'::jsonb)
		on conflict (key) do nothing`,
}

// Migrate applies the schema and seeds the default pricing table.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for _, statement := range migrateStatements {
		if _, err := pool.Exec(ctx, statement); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
