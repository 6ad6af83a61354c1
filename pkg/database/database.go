// Package database opens the game's SQLite files, applies the page-cipher
// key pragma when one is configured, and materializes every table in memory.
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"regexp"
	"slices"
	"strings"

	"umatools/pkg/log"

	_ "modernc.org/sqlite"
)

const (
	// PlainDriver is the pure-Go modernc driver. It reads plain SQLite only.
	PlainDriver = "sqlite"
	// CipherDriver is the name the SQLCipher driver registers. Binaries that
	// need encrypted catalogs import it.
	CipherDriver = "sqlite3"
)

var (
	cipherNamePattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)
	keyHexPattern     = regexp.MustCompile(`^(?:[0-9A-Fa-f]{2})+$`)
)

// Options controls how a database file is opened.
type Options struct {
	// Driver is the database/sql driver name. Encrypted catalogs need a driver
	// that implements the key pragma.
	Driver string
	// Cipher selects the page-cipher scheme before the key is applied. Empty skips it.
	Cipher string
	// KeyHex is the raw page-cipher key. Empty opens the file as plain SQLite.
	KeyHex string
}

// Row is a single record keyed by column name. Integers stay int64.
type Row map[string]any

// Table is the full content of one table in column order.
type Table struct {
	Name    string
	Columns []string
	Rows    []Row
}

// Tables holds every table of one database in a stable order.
type Tables struct {
	Order  []string
	Tables map[string]*Table
}

// Get returns a table by name.
func (t *Tables) Get(name string) (*Table, bool) {
	if t == nil {
		return nil, false
	}
	table, ok := t.Tables[name]
	return table, ok
}

// DB is an open SQLite file pinned to a single connection, so pragmas set at
// open time apply to every later query.
type DB struct {
	path   string
	db     *sql.DB
	conn   *sql.Conn
	tables []string
}

// Open opens path and verifies it is readable by enumerating its tables.
// The file must already exist.
func Open(ctx context.Context, path string, opts Options) (*DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	if opts.Cipher != "" && !cipherNamePattern.MatchString(opts.Cipher) {
		return nil, fmt.Errorf("%w: cipher %q", ErrInvalidOption, opts.Cipher)
	}
	if opts.KeyHex != "" && !keyHexPattern.MatchString(opts.KeyHex) {
		return nil, fmt.Errorf("%w: key must be hex", ErrInvalidOption)
	}

	driver := opts.Driver
	if driver == "" {
		driver = PlainDriver
	}

	if !slices.Contains(sql.Drivers(), driver) {
		return nil, fmt.Errorf("%w: driver %q is not registered in this build", ErrInvalidOption, driver)
	}

	database, err := sql.Open(driver, path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	database.SetMaxOpenConns(1)

	conn, err := database.Conn(ctx)
	if err != nil {
		_ = database.Close()
		return nil, &CorruptOrWrongKeyError{Path: path, Err: err}
	}

	handle := &DB{path: path, db: database, conn: conn}

	if err := handle.applyCipher(ctx, driver, opts); err != nil {
		_ = handle.Close()
		return nil, err
	}

	// The first real read of the file. With a wrong key this is where
	// SQLite reports that the file is not a database.
	tables, err := handle.queryTableNames(ctx)
	if err != nil {
		_ = handle.Close()
		return nil, &CorruptOrWrongKeyError{Path: path, Err: err}
	}
	handle.tables = tables

	log.Debug().Str("path", path).Int("tables", len(tables)).Bool("encrypted", opts.KeyHex != "").
		Msg("Connected to SQLite database")
	return handle, nil
}

func (d *DB) applyCipher(ctx context.Context, driver string, opts Options) error {
	if opts.Cipher == "" && opts.KeyHex == "" {
		return nil
	}

	if opts.Cipher != "" {
		if _, err := d.conn.ExecContext(ctx, fmt.Sprintf("PRAGMA cipher = '%s'", opts.Cipher)); err != nil {
			return &CorruptOrWrongKeyError{Path: d.path, Err: err}
		}
	}
	if opts.KeyHex != "" {
		if _, err := d.conn.ExecContext(ctx, fmt.Sprintf(`PRAGMA key = "x'%s'"`, opts.KeyHex)); err != nil {
			return &CorruptOrWrongKeyError{Path: d.path, Err: err}
		}
	}

	return d.verifyCipher(ctx, driver, opts.Cipher)
}

// verifyCipher reads the cipher state back. SQLite silently ignores pragmas
// it does not know, so a driver without page-cipher support would otherwise
// drop the key and fail later as a wrong key.
func (d *DB) verifyCipher(ctx context.Context, driver, scheme string) error {
	if scheme != "" {
		current, ok, err := d.pragma(ctx, "cipher")
		if err != nil {
			return &CorruptOrWrongKeyError{Path: d.path, Err: err}
		}
		if !ok {
			return fmt.Errorf("%w: driver %q has no cipher %q", ErrCipherUnsupported, driver, scheme)
		}
		if !strings.EqualFold(current, scheme) {
			return fmt.Errorf("%w: driver %q selected cipher %q instead of %q", ErrCipherUnsupported, driver, current, scheme)
		}
		return nil
	}

	// SQLCipher reports cipher_version, SQLite3 Multiple Ciphers reports cipher.
	for _, name := range []string{"cipher_version", "cipher"} {
		_, ok, err := d.pragma(ctx, name)
		if err != nil {
			return &CorruptOrWrongKeyError{Path: d.path, Err: err}
		}
		if ok {
			return nil
		}
	}
	return fmt.Errorf("%w: driver %q ignores the key pragma", ErrCipherUnsupported, driver)
}

func (d *DB) pragma(ctx context.Context, name string) (string, bool, error) {
	var value sql.NullString
	err := d.conn.QueryRowContext(ctx, "PRAGMA "+name).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return value.String, true, nil
}

// Close releases the pinned connection and the pool.
func (d *DB) Close() error {
	var errs []error
	if d.conn != nil {
		errs = append(errs, d.conn.Close())
	}
	errs = append(errs, d.db.Close())
	return errors.Join(errs...)
}

// Path returns the file the handle was opened from.
func (d *DB) Path() string {
	return d.path
}

// TableNames returns every non-system table ordered by name.
func (d *DB) TableNames(ctx context.Context) ([]string, error) {
	return d.queryTableNames(ctx)
}

func (d *DB) queryTableNames(ctx context.Context) ([]string, error) {
	rows, err := d.conn.QueryContext(ctx,
		`SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// LoadAllTables reads every table into memory. onTable, when set, is called
// after each table with the running count. Any failure discards everything
// read so far.
func (d *DB) LoadAllTables(ctx context.Context, onTable func(name string, done, total int)) (*Tables, error) {
	names, err := d.queryTableNames(ctx)
	if err != nil {
		return nil, &LoadError{Table: "sqlite_master", Err: err}
	}

	result := &Tables{
		Order:  names,
		Tables: make(map[string]*Table, len(names)),
	}

	for i, name := range names {
		table, err := d.LoadTable(ctx, name)
		if err != nil {
			log.Error().Err(err).Str("path", d.path).Str("table", name).Msg("Failed to load table")
			return nil, err
		}
		result.Tables[name] = table

		log.Trace().Str("path", d.path).Str("table", name).Int("rows", len(table.Rows)).Msg("Loaded table")
		if onTable != nil {
			onTable(name, i+1, len(names))
		}
	}

	return result, nil
}

// LoadTable reads one table in full.
func (d *DB) LoadTable(ctx context.Context, name string) (*Table, error) {
	rows, err := d.conn.QueryContext(ctx, "SELECT * FROM "+quoteIdent(name))
	if err != nil {
		return nil, &LoadError{Table: name, Err: err}
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, &LoadError{Table: name, Err: err}
	}

	table := &Table{Name: name, Columns: columns}
	for rows.Next() {
		values := make([]any, len(columns))
		pointers := make([]any, len(columns))
		for i := range values {
			pointers[i] = &values[i]
		}
		if err := rows.Scan(pointers...); err != nil {
			return nil, &LoadError{Table: name, Err: err}
		}

		row := make(Row, len(columns))
		for i, column := range columns {
			row[column] = values[i]
		}
		table.Rows = append(table.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return nil, &LoadError{Table: name, Err: err}
	}

	return table, nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
