package db

import "errors"

// Sentinel errors for database operations.
var (
	ErrKeyNotFound   = errors.New("db: key not found")
	ErrIndexNotFound = errors.New("db: index not found")
	ErrIndexExists   = errors.New("db: index already exists")
	// ErrUnavailable marks connection-level failures (dial, timeout, closed client),
	// as opposed to errors returned by the server itself.
	ErrUnavailable = errors.New("db: unavailable")
)

// Op names the Redis command an Error came from.
const (
	OpPing        = "PING"
	OpCreateIndex = "FT.CREATE"
	OpIndexInfo   = "FT.INFO"
	OpSearch      = "FT.SEARCH"
	OpDel         = "DEL"
	OpHGetAll     = "HGETALL"
	OpHMGet       = "HMGET"
	OpHSet        = "HSET"
	OpScan        = "SCAN"
	OpGet         = "GET"
	OpSet         = "SET"
)

// Error wraps an underlying error with the operation name.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string { return e.Op + ": " + e.Err.Error() }
func (e *Error) Unwrap() error { return e.Err }
