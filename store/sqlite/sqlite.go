/*
Package sqlite provides the SQLite-backed implementation of the ledger
storage contract.

PURPOSE:
  Implements ledger.Store and ledger.TxStore using database/sql over
  mattn/go-sqlite3. The same SQL works on PostgreSQL modulo dialect
  details.

TRANSACTIONS:
  WithTx begins one sql.Tx and hands the callback a Store bound to it;
  every statement the protocols issue inside the callback runs on that
  transaction, and any error rolls the whole thing back. The bound
  session and the root store share all query code via a small querier
  interface satisfied by both *sql.DB and *sql.Tx.

TIME ENCODING:
  Event dates are stored as RFC3339 UTC strings, which order correctly
  under string comparison; the range predicates in the shift and scan
  queries rely on this. created_at uses a fixed-width nanosecond format
  so that same-date ties break deterministically by creation order.

SCHEMA:
  accounts         one row per loyalty account, with the denormalized
                   balance/date summary
  history_entries  absolute balance snapshots, FK to accounts with
                   ON DELETE CASCADE
  transactions     earn/spend events, FK to accounts with cascade;
                   history entries reference transactions loosely by id
                   (no FK) because the delete protocol removes entries
                   explicitly before the transaction row

USAGE:
  store, err := sqlite.New("./data/ledger.db")   // or ":memory:"
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/loyalty-engine/ledger"
)

// dateFormat orders correctly as a string for UTC times.
const dateFormat = time.RFC3339

// createdFormat is fixed-width so creation-order ties are stable.
const createdFormat = "2006-01-02T15:04:05.000000000Z"

// Store implements ledger.TxStore on SQLite.
type Store struct {
	db *sql.DB
	session
}

// New opens (or creates) the database at dbPath and migrates the
// schema. Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// SQLite allows one writer; a single pooled connection also keeps
	// ":memory:" databases from splitting across connections.
	db.SetMaxOpenConns(1)

	store := &Store{db: db, session: session{q: db}}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS accounts (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		name TEXT NOT NULL,
		custom_name TEXT NOT NULL DEFAULT '',
		account_number TEXT NOT NULL DEFAULT '',
		notes TEXT NOT NULL DEFAULT '',
		category TEXT NOT NULL,
		card_name TEXT NOT NULL DEFAULT '',
		card_open TEXT,
		annual_fee INTEGER NOT NULL DEFAULT 0,
		signup_bonus INTEGER NOT NULL DEFAULT 0,
		balance INTEGER NOT NULL DEFAULT 0,
		date TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_accounts_owner
		ON accounts(owner_id);
	CREATE INDEX IF NOT EXISTS idx_accounts_owner_name
		ON accounts(owner_id, name);

	CREATE TABLE IF NOT EXISTS history_entries (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		balance INTEGER NOT NULL,
		date TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT '',
		transaction_id TEXT NOT NULL DEFAULT '',
		created_at TEXT NOT NULL
	);

	-- Hot path: balance-as-of and latest-entry lookups
	CREATE INDEX IF NOT EXISTS idx_entries_account_date
		ON history_entries(account_id, date DESC, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_entries_transaction
		ON history_entries(transaction_id) WHERE transaction_id != '';

	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		account_id TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		points_used INTEGER NOT NULL,
		tx_type TEXT NOT NULL,
		method TEXT NOT NULL DEFAULT '',
		partner_name TEXT NOT NULL DEFAULT '',
		transfer_bonus INTEGER NOT NULL DEFAULT 0,
		notes TEXT NOT NULL DEFAULT '',
		date TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_transactions_account_date
		ON transactions(account_id, date DESC);
	`

	_, err := s.db.Exec(schema)
	return err
}

// WithTx executes fn with a Store bound to one open transaction.
func (s *Store) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(&session{q: tx}); err != nil {
		return err
	}
	return tx.Commit()
}

// =============================================================================
// SESSION - Query code shared by the root store and open transactions
// =============================================================================

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type session struct {
	q querier
}

func encodeDate(t time.Time) string { return t.UTC().Format(dateFormat) }

func decodeDate(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, s)
}

// --- accounts ---

const accountColumns = `id, owner_id, name, custom_name, account_number, notes, category,
	card_name, card_open, annual_fee, signup_bonus, balance, date, created_at, updated_at`

func (s *session) CreateAccount(ctx context.Context, a *ledger.Account) error {
	var cardOpen any
	if a.CardOpen != nil {
		cardOpen = encodeDate(*a.CardOpen)
	}
	now := time.Now().UTC()
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	if a.UpdatedAt.IsZero() {
		a.UpdatedAt = now
	}

	_, err := s.q.ExecContext(ctx, `
		INSERT INTO accounts
		(id, owner_id, name, custom_name, account_number, notes, category,
		 card_name, card_open, annual_fee, signup_bonus, balance, date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.ID, a.OwnerID, a.Name, a.CustomName, a.AccountNumber, a.Notes, string(a.Category),
		a.CardName, cardOpen, a.AnnualFee, a.SignupBonus, a.Balance, encodeDate(a.Date),
		a.CreatedAt.UTC().Format(createdFormat), a.UpdatedAt.UTC().Format(createdFormat),
	)
	if err != nil {
		return fmt.Errorf("failed to insert account: %w", err)
	}
	return nil
}

func (s *session) scanAccount(row interface{ Scan(...any) error }) (*ledger.Account, error) {
	var (
		a                      ledger.Account
		category               string
		cardOpen               sql.NullString
		date, created, updated string
	)
	err := row.Scan(&a.ID, &a.OwnerID, &a.Name, &a.CustomName, &a.AccountNumber, &a.Notes,
		&category, &a.CardName, &cardOpen, &a.AnnualFee, &a.SignupBonus, &a.Balance,
		&date, &created, &updated)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan account: %w", err)
	}

	a.Category = ledger.Category(category)
	if a.Date, err = decodeDate(date); err != nil {
		return nil, err
	}
	if cardOpen.Valid {
		t, err := decodeDate(cardOpen.String)
		if err != nil {
			return nil, err
		}
		a.CardOpen = &t
	}
	if a.CreatedAt, err = time.Parse(createdFormat, created); err != nil {
		return nil, err
	}
	if a.UpdatedAt, err = time.Parse(createdFormat, updated); err != nil {
		return nil, err
	}
	return &a, nil
}

func (s *session) GetAccount(ctx context.Context, id string) (*ledger.Account, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE id = ?`, id)
	return s.scanAccount(row)
}

func (s *session) FindAccountByName(ctx context.Context, ownerID, name string) (*ledger.Account, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE owner_id = ? AND name = ? LIMIT 1`,
		ownerID, name)
	return s.scanAccount(row)
}

func (s *session) ListAccounts(ctx context.Context, ownerID string) ([]*ledger.Account, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE owner_id = ? ORDER BY updated_at DESC`,
		ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []*ledger.Account
	for rows.Next() {
		a, err := s.scanAccount(rows)
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, a)
	}
	return accounts, rows.Err()
}

func (s *session) UpdateAccountSummary(ctx context.Context, id string, balance int64, date time.Time) error {
	_, err := s.q.ExecContext(ctx,
		`UPDATE accounts SET balance = ?, date = ?, updated_at = ? WHERE id = ?`,
		balance, encodeDate(date), time.Now().UTC().Format(createdFormat), id)
	if err != nil {
		return fmt.Errorf("failed to update account summary: %w", err)
	}
	return nil
}

func (s *session) UpdateAccountDetails(ctx context.Context, id string, d ledger.AccountDetails) error {
	_, err := s.q.ExecContext(ctx,
		`UPDATE accounts SET custom_name = ?, account_number = ?, notes = ?, updated_at = ? WHERE id = ?`,
		d.CustomName, d.AccountNumber, d.Notes, time.Now().UTC().Format(createdFormat), id)
	if err != nil {
		return fmt.Errorf("failed to update account details: %w", err)
	}
	return nil
}

func (s *session) DeleteAccount(ctx context.Context, id string) error {
	// History and transactions go with it via ON DELETE CASCADE.
	_, err := s.q.ExecContext(ctx, `DELETE FROM accounts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}
	return nil
}

// --- history entries ---

const entryColumns = `id, account_id, balance, date, reason, transaction_id, created_at`

func (s *session) CreateEntry(ctx context.Context, e *ledger.HistoryEntry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO history_entries (id, account_id, balance, date, reason, transaction_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.AccountID, e.Balance, encodeDate(e.Date), e.Reason, e.TransactionID,
		e.CreatedAt.UTC().Format(createdFormat),
	)
	if err != nil {
		return fmt.Errorf("failed to insert history entry: %w", err)
	}
	return nil
}

func (s *session) scanEntry(row interface{ Scan(...any) error }) (*ledger.HistoryEntry, error) {
	var (
		e             ledger.HistoryEntry
		date, created string
	)
	err := row.Scan(&e.ID, &e.AccountID, &e.Balance, &date, &e.Reason, &e.TransactionID, &created)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan history entry: %w", err)
	}
	if e.Date, err = decodeDate(date); err != nil {
		return nil, err
	}
	if e.CreatedAt, err = time.Parse(createdFormat, created); err != nil {
		return nil, err
	}
	return &e, nil
}

func (s *session) GetEntry(ctx context.Context, id string) (*ledger.HistoryEntry, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+entryColumns+` FROM history_entries WHERE id = ?`, id)
	return s.scanEntry(row)
}

func (s *session) EntryAsOf(ctx context.Context, accountID string, date time.Time) (*ledger.HistoryEntry, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT `+entryColumns+` FROM history_entries
		WHERE account_id = ? AND date <= ?
		ORDER BY date DESC, created_at DESC, id DESC
		LIMIT 1`,
		accountID, encodeDate(date))
	return s.scanEntry(row)
}

func (s *session) EntryAfter(ctx context.Context, accountID string, date time.Time) (*ledger.HistoryEntry, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT `+entryColumns+` FROM history_entries
		WHERE account_id = ? AND date > ?
		ORDER BY date ASC, created_at ASC, id ASC
		LIMIT 1`,
		accountID, encodeDate(date))
	return s.scanEntry(row)
}

func (s *session) EntryInWindow(ctx context.Context, accountID string, from, to time.Time) (*ledger.HistoryEntry, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT `+entryColumns+` FROM history_entries
		WHERE account_id = ? AND date >= ? AND date < ?
		ORDER BY date ASC, created_at ASC, id ASC
		LIMIT 1`,
		accountID, encodeDate(from), encodeDate(to))
	return s.scanEntry(row)
}

func (s *session) LatestEntry(ctx context.Context, accountID string) (*ledger.HistoryEntry, error) {
	row := s.q.QueryRowContext(ctx, `
		SELECT `+entryColumns+` FROM history_entries
		WHERE account_id = ?
		ORDER BY date DESC, created_at DESC, id DESC
		LIMIT 1`,
		accountID)
	return s.scanEntry(row)
}

func (s *session) ListEntries(ctx context.Context, accountID string) ([]ledger.HistoryEntry, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT `+entryColumns+` FROM history_entries
		WHERE account_id = ?
		ORDER BY date DESC, created_at DESC, id DESC`,
		accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list history entries: %w", err)
	}
	defer rows.Close()

	var entries []ledger.HistoryEntry
	for rows.Next() {
		e, err := s.scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, *e)
	}
	return entries, rows.Err()
}

func (s *session) UpdateEntry(ctx context.Context, id string, balance int64, date time.Time, reason string) error {
	_, err := s.q.ExecContext(ctx,
		`UPDATE history_entries SET balance = ?, date = ?, reason = ? WHERE id = ?`,
		balance, encodeDate(date), reason, id)
	if err != nil {
		return fmt.Errorf("failed to update history entry: %w", err)
	}
	return nil
}

func (s *session) ShiftEntries(ctx context.Context, accountID string, r ledger.ShiftRange, delta int64) error {
	query := `UPDATE history_entries SET balance = balance + ? WHERE account_id = ?`
	args := []any{delta, accountID}

	if r.From != nil {
		if r.FromInclusive {
			query += ` AND date >= ?`
		} else {
			query += ` AND date > ?`
		}
		args = append(args, encodeDate(*r.From))
	}
	if r.To != nil {
		if r.ToInclusive {
			query += ` AND date <= ?`
		} else {
			query += ` AND date < ?`
		}
		args = append(args, encodeDate(*r.To))
	}
	if r.ExcludeEntry != "" {
		query += ` AND id != ?`
		args = append(args, r.ExcludeEntry)
	}

	if _, err := s.q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to shift history entries: %w", err)
	}
	return nil
}

func (s *session) DeleteEntry(ctx context.Context, id string) error {
	_, err := s.q.ExecContext(ctx, `DELETE FROM history_entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete history entry: %w", err)
	}
	return nil
}

func (s *session) DeleteEntriesByTransaction(ctx context.Context, accountID, transactionID string) (int64, error) {
	res, err := s.q.ExecContext(ctx,
		`DELETE FROM history_entries WHERE account_id = ? AND transaction_id = ?`,
		accountID, transactionID)
	if err != nil {
		return 0, fmt.Errorf("failed to delete entries by transaction: %w", err)
	}
	return res.RowsAffected()
}

// --- transactions ---

const transactionColumns = `id, account_id, points_used, tx_type, method, partner_name,
	transfer_bonus, notes, date, created_at`

func (s *session) CreateTransaction(ctx context.Context, t *ledger.Transaction) error {
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now().UTC()
	}
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO transactions
		(id, account_id, points_used, tx_type, method, partner_name, transfer_bonus, notes, date, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.AccountID, t.PointsUsed, string(t.Type), t.Method, t.PartnerName,
		t.TransferBonus, t.Notes, encodeDate(t.Date), t.CreatedAt.UTC().Format(createdFormat),
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

func (s *session) scanTransaction(row interface{ Scan(...any) error }) (*ledger.Transaction, error) {
	var (
		t             ledger.Transaction
		txType        string
		date, created string
	)
	err := row.Scan(&t.ID, &t.AccountID, &t.PointsUsed, &txType, &t.Method, &t.PartnerName,
		&t.TransferBonus, &t.Notes, &date, &created)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan transaction: %w", err)
	}
	t.Type = ledger.TransactionType(txType)
	if t.Date, err = decodeDate(date); err != nil {
		return nil, err
	}
	if t.CreatedAt, err = time.Parse(createdFormat, created); err != nil {
		return nil, err
	}
	return &t, nil
}

func (s *session) GetTransaction(ctx context.Context, id string) (*ledger.Transaction, error) {
	row := s.q.QueryRowContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = ?`, id)
	return s.scanTransaction(row)
}

func (s *session) ListTransactions(ctx context.Context, accountID string) ([]ledger.Transaction, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT `+transactionColumns+` FROM transactions
		WHERE account_id = ?
		ORDER BY date DESC, created_at DESC, id DESC`,
		accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txs []ledger.Transaction
	for rows.Next() {
		t, err := s.scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, *t)
	}
	return txs, rows.Err()
}

func (s *session) DeleteTransaction(ctx context.Context, id string) error {
	_, err := s.q.ExecContext(ctx, `DELETE FROM transactions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	return nil
}
