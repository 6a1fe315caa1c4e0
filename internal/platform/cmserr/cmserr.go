package cmserr

import (
	"errors"
	"fmt"
)

// Codes for every rejection the versioning core can produce.
const (
	CodeMissingID       = "missing_id"
	CodeMissingItem     = "missing_item"
	CodeNegativeVersion = "negative_version"
	CodeMissingVersion  = "missing_version"
	CodeNotFound        = "not_found"
	CodeValidation      = "validation"
	CodeDuplicateKey    = "duplicate_key"
	CodeInvalidToken    = "invalid_token"
	CodeNoMatchingUser  = "no_matching_user"
	CodeVersionConflict = "version_conflict"
	CodeStorage         = "storage"
)

type Error struct {
	Code  string
	Field string
	Err   error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	return "cms error"
}

func (e *Error) Unwrap() error { return e.Err }

func New(code string, err error) *Error {
	return &Error{Code: code, Err: err}
}

// CodeOf reports the code carried by err, or "" for foreign errors.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

func Is(err error, code string) bool {
	return CodeOf(err) == code
}

func MissingID() *Error {
	return New(CodeMissingID, errors.New("must provide an id"))
}

func MissingItem() *Error {
	return New(CodeMissingItem, errors.New("no item provided"))
}

func NegativeVersion(version int) *Error {
	return New(CodeNegativeVersion, fmt.Errorf("version must be greater than zero, got %d", version))
}

func MissingVersion() *Error {
	return New(CodeMissingVersion, errors.New("must provide a version number"))
}

func NotFound(recordType string, id interface{}) *Error {
	return New(CodeNotFound, fmt.Errorf("no %s record found for id %v", recordType, id))
}

func Validation(recordType, field, reason string) *Error {
	return &Error{
		Code:  CodeValidation,
		Field: field,
		Err:   fmt.Errorf("%s: field %q %s", recordType, field, reason),
	}
}

func DuplicateKey(recordType, field string) *Error {
	return &Error{
		Code:  CodeDuplicateKey,
		Field: field,
		Err:   fmt.Errorf("%s: field %q must be unique", recordType, field),
	}
}

func InvalidToken(err error) *Error {
	return New(CodeInvalidToken, fmt.Errorf("token is invalid: %w", err))
}

func NoMatchingUser() *Error {
	return New(CodeNoMatchingUser, errors.New("no user matches that token"))
}

func VersionConflict(recordType string, id interface{}, version int) *Error {
	return New(CodeVersionConflict, fmt.Errorf("%s record %v changed while committing version %d", recordType, id, version))
}

func Storage(err error) *Error {
	return New(CodeStorage, fmt.Errorf("storage failure: %w", err))
}
