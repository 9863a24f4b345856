// Package sqlite implements the repository interfaces on top of a single
// SQLite file.
//
// DRIVER:
// modernc.org/sqlite is a pure Go translation of SQLite, so the binary builds
// without a C toolchain. It registers itself with database/sql as "sqlite".
//
// CONNECTION SETTINGS:
// PRAGMAs issued with Exec only reach whichever pooled connection ran them.
// The settings below go into the DSN as _pragma parameters instead, so the
// driver applies them to every connection it opens:
//   - foreign_keys(1)   cascades and SET NULL actions depend on it
//   - journal_mode(WAL) readers don't block the writer
//   - busy_timeout      wait for a lock instead of failing with SQLITE_BUSY
//
// The pool is capped at one open connection. SQLite serialises writers anyway,
// and a single connection makes the process behave like one long-lived handle.
// The one rule that follows: never run a second query while *sql.Rows from
// the first is still open.
//
// SCHEMA:
// Tables are created and evolved by goose migrations embedded from
// migrations/. Each migration only adds; existing rows are never dropped.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"github.com/pressly/goose/v3"
	sqlitedrv "modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

const connPragmas = "_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"

// goose keeps its base FS, dialect and logger in package globals.
var gooseMu sync.Mutex

// DB wraps the connection pool and hands out one store per table.
type DB struct {
	conn   *sql.DB
	logger *slog.Logger

	users     *UserDB
	notebooks *NotebookDB
	diaries   *DiaryDB
	favorites *FavoriteDB
	history   *SearchHistoryDB
	resets    *PasswordResetDB
}

// dbtx is the part of database/sql the stores use. *sql.DB and *sql.Tx both
// satisfy it, so a store method can run inside or outside a transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// New opens the database at dbPath and brings the schema up to date.
//
// dbPath examples:
//   - "data/traildiary.db"  file-backed, created on first use
//   - ":memory:"            private in-memory database, gone on Close
func New(ctx context.Context, dbPath string, logger *slog.Logger) (*DB, error) {
	db, err := Open(ctx, dbPath, logger)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Open connects without touching the schema. `traildiary migrate status`
// uses it to report the version of a database it must not change.
func Open(ctx context.Context, dbPath string, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := sql.Open("sqlite", dsn(dbPath))
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database %s: %w", dbPath, err)
	}

	db := &DB{conn: conn, logger: logger.With("component", "sqlite")}
	db.users = &UserDB{db: db}
	db.notebooks = &NotebookDB{db: db}
	db.diaries = &DiaryDB{db: db}
	db.favorites = &FavoriteDB{db: db}
	db.history = &SearchHistoryDB{db: db}
	db.resets = &PasswordResetDB{db: db}
	return db, nil
}

func dsn(dbPath string) string {
	sep := "?"
	if strings.Contains(dbPath, "?") {
		sep = "&"
	}
	return dbPath + sep + connPragmas
}

// Close closes the connection pool. Wherever New is called, defer Close.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) Users() *UserDB { return db.users }
func (db *DB) Notebooks() *NotebookDB { return db.notebooks }
func (db *DB) Diaries() *DiaryDB { return db.diaries }
func (db *DB) Favorites() *FavoriteDB { return db.favorites }
func (db *DB) SearchHistory() *SearchHistoryDB { return db.history }
func (db *DB) PasswordResets() *PasswordResetDB { return db.resets }

// Migrate applies every embedded migration newer than the stored version.
func (db *DB) Migrate(ctx context.Context) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	if err := configureGoose(db.logger); err != nil {
		return err
	}
	if err := goose.UpContext(ctx, db.conn, "migrations"); err != nil {
		return fmt.Errorf("sqlite: running migrations: %w", err)
	}
	return nil
}

// SchemaVersion reports the newest applied migration, 0 for a fresh file.
func (db *DB) SchemaVersion(ctx context.Context) (int64, error) {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	if err := configureGoose(db.logger); err != nil {
		return 0, err
	}
	v, err := goose.GetDBVersionContext(ctx, db.conn)
	if err != nil {
		return 0, fmt.Errorf("sqlite: reading schema version: %w", err)
	}
	return v, nil
}

func configureGoose(logger *slog.Logger) error {
	goose.SetBaseFS(migrationsFS)
	goose.SetLogger(gooseLogger{logger})
	if err := goose.SetDialect("sqlite3"); err != nil {
		return fmt.Errorf("sqlite: setting goose dialect: %w", err)
	}
	return nil
}

// gooseLogger routes goose's printf-style output into slog.
type gooseLogger struct {
	logger *slog.Logger
}

func (l gooseLogger) Printf(format string, v ...any) {
	l.logger.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l gooseLogger) Fatalf(format string, v ...any) {
	l.logger.Error(strings.TrimSpace(fmt.Sprintf(format, v...)))
	os.Exit(1)
}

// withTx runs fn in a transaction. It commits when fn returns nil and rolls
// back on error or panic; a panic is re-raised after the rollback.
func (db *DB) withTx(ctx context.Context, fn func(tx dbtx) error) (err error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if cerr := tx.Commit(); cerr != nil {
			err = fmt.Errorf("sqlite: committing transaction: %w", cerr)
		}
	}()

	return fn(tx)
}

func sqliteCode(err error) (int, bool) {
	var se *sqlitedrv.Error
	if errors.As(err, &se) {
		return se.Code(), true
	}
	return 0, false
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if code, ok := sqliteCode(err); ok && (code == sqlite3.SQLITE_CONSTRAINT_UNIQUE || code == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY) {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func isForeignKeyViolation(err error) bool {
	if err == nil {
		return false
	}
	if code, ok := sqliteCode(err); ok && code == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY {
		return true
	}
	return strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}

// violatedColumn pulls "nickname" out of "UNIQUE constraint failed: user.nickname".
func violatedColumn(err error) string {
	msg := err.Error()
	i := strings.LastIndex(msg, "constraint failed: ")
	if i < 0 {
		return ""
	}
	col := msg[i+len("constraint failed: "):]
	if j := strings.IndexAny(col, ", )"); j >= 0 {
		col = col[:j]
	}
	if k := strings.LastIndex(col, "."); k >= 0 {
		col = col[k+1:]
	}
	return col
}

// collect drains rows through scan. Rows whose stored values can't be
// decoded are logged and left out; any other error aborts the listing.
func collect[T any](ctx context.Context, db *DB, rows *sql.Rows, resource string, scan func(scanner) (*T, error)) ([]T, error) {
	defer rows.Close()

	out := make([]T, 0)
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			if isDecodeError(err) {
				db.logger.WarnContext(ctx, "skipping corrupt row", "resource", resource, "error", err)
				continue
			}
			return nil, fmt.Errorf("sqlite: scanning %s row: %w", resource, err)
		}
		out = append(out, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating %s rows: %w", resource, err)
	}
	return out, nil
}

func rowsAffected(res sql.Result, action string) (int64, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sqlite: %s: reading rows affected: %w", action, err)
	}
	return n, nil
}
