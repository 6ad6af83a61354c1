package database

import "errors"

// ErrInvalidOption is returned when a cipher name or key cannot be safely
// embedded in a pragma.
var ErrInvalidOption = errors.New("invalid database option")

// ErrCipherUnsupported is returned when a key or cipher is configured but
// the driver does not implement page encryption.
var ErrCipherUnsupported = errors.New("database driver does not support page encryption")

// CorruptOrWrongKeyError is returned when the first query against a database
// fails, which means the file is not SQLite or the page-cipher key is wrong.
type CorruptOrWrongKeyError struct {
	Path string
	Err  error
}

func (e *CorruptOrWrongKeyError) Error() string {
	return "database is corrupt or the key is wrong: " + e.Path + ": " + e.Err.Error()
}

func (e *CorruptOrWrongKeyError) Unwrap() error {
	return e.Err
}

// LoadError is returned when reading a table fails mid-enumeration.
type LoadError struct {
	Table string
	Err   error
}

func (e *LoadError) Error() string {
	return "failed to load table " + e.Table + ": " + e.Err.Error()
}

func (e *LoadError) Unwrap() error {
	return e.Err
}
