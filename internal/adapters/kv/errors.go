package kv

import "errors"

// Sentinel kinds for key/value errors.
var (
	ErrNotFound = errors.New("key not found")
	ErrEmptyKey = errors.New("empty key")
	ErrConnect  = errors.New("kv connect failed")
)
