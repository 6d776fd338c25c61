package app

import (
	"github.com/Guilhem-Bonnet/termin-watch/internal/ports"
)

var (
	ErrNotFound = ports.ErrNotFound
	ErrConflict = ports.ErrConflict
)

// Codes stables renvoyés par la CLI et les logs.
const (
	CodeInvalidServiceURL = "invalid_service_url"
	CodeMissingServiceURL = "missing_service_url"
)

// CodedError porte un code d'erreur stable en plus du message.
type CodedError struct {
	Code    string
	Message string
	Err     error
}

func (e *CodedError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return e.Message
	}
	if e.Message == "" {
		return e.Err.Error()
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *CodedError) Unwrap() error { return e.Err }
