//go:build cgo

package main

// SQLCipher registers itself as database.CipherDriver for keyed catalogs.
import _ "github.com/mutecomm/go-sqlcipher/v4"
