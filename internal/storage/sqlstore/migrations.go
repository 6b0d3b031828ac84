package sqlstore

import "database/sql"

// schema sets up the database. It runs on startup and must stay valid for
// both SQLite and PostgreSQL, so it sticks to portable types.
// IMPORTANT: expenses must be created BEFORE expense_participants due to foreign key constraint.
const schema = `
CREATE TABLE IF NOT EXISTS members (
    id TEXT PRIMARY KEY,
    club_id TEXT NOT NULL,
    display_name TEXT NOT NULL,
    email TEXT NOT NULL DEFAULT '',
    role TEXT NOT NULL,
    created_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS expenses (
    id TEXT PRIMARY KEY,
    club_id TEXT NOT NULL,
    event_id TEXT NOT NULL DEFAULT '',
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    amount DOUBLE PRECISION NOT NULL,
    payer_id TEXT NOT NULL,
    status TEXT NOT NULL,
    created_by TEXT NOT NULL DEFAULT '',
    created_at BIGINT NOT NULL,
    updated_at BIGINT NOT NULL
);

CREATE TABLE IF NOT EXISTS expense_participants (
    expense_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    participant_id TEXT NOT NULL,
    share_amount DOUBLE PRECISION NOT NULL,
    is_paid INTEGER NOT NULL DEFAULT 0,
    paid_at BIGINT NOT NULL DEFAULT 0,
    PRIMARY KEY (expense_id, participant_id),
    FOREIGN KEY (expense_id) REFERENCES expenses(id) ON DELETE CASCADE
);

CREATE TABLE IF NOT EXISTS settlements (
    id TEXT PRIMARY KEY,
    club_id TEXT NOT NULL,
    from_user_id TEXT NOT NULL,
    to_user_id TEXT NOT NULL,
    event_id TEXT NOT NULL DEFAULT '',
    amount DOUBLE PRECISION NOT NULL,
    applied_amount DOUBLE PRECISION NOT NULL DEFAULT 0,
    created_at BIGINT NOT NULL,
    created_by TEXT NOT NULL,
    note TEXT
);

CREATE TABLE IF NOT EXISTS settlement_expenses (
    settlement_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    expense_id TEXT NOT NULL,
    PRIMARY KEY (settlement_id, expense_id),
    FOREIGN KEY (settlement_id) REFERENCES settlements(id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_members_club_id ON members(club_id);
CREATE INDEX IF NOT EXISTS idx_expenses_club_id ON expenses(club_id);
CREATE INDEX IF NOT EXISTS idx_expense_participants_expense_id ON expense_participants(expense_id);
CREATE INDEX IF NOT EXISTS idx_settlements_club_id ON settlements(club_id);
`

// runMigrations executes the schema setup.
func runMigrations(db *sql.DB) error {
	_, err := db.Exec(schema)
	return err
}
