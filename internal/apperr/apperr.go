package apperr

import (
	"errors"
	"net/http"
)

// Error is a domain error carrying a stable numeric code and the HTTP status
// it maps to at the API boundary.
type Error struct {
	Code    int
	Message string
	Status  int
}

func (e *Error) Error() string {
	return e.Message
}

var (
	ErrUncategorized        = &Error{Code: 9999, Message: "uncategorized error", Status: http.StatusInternalServerError}
	ErrInvalidKey           = &Error{Code: 1001, Message: "invalid key", Status: http.StatusBadRequest}
	ErrUserExisted          = &Error{Code: 1002, Message: "user existed", Status: http.StatusBadRequest}
	ErrUserNotFound         = &Error{Code: 1005, Message: "user not existed", Status: http.StatusNotFound}
	ErrUnauthenticated      = &Error{Code: 1006, Message: "unauthenticated", Status: http.StatusUnauthorized}
	ErrUnauthorized         = &Error{Code: 1007, Message: "you do not have permission", Status: http.StatusForbidden}
	ErrProjectNotFound      = &Error{Code: 1010, Message: "project not found", Status: http.StatusNotFound}
	ErrCameraNotFound       = &Error{Code: 1011, Message: "camera not found", Status: http.StatusNotFound}
	ErrAlertNotFound        = &Error{Code: 1012, Message: "alert not found", Status: http.StatusNotFound}
	ErrNotificationNotFound = &Error{Code: 1013, Message: "notification not found", Status: http.StatusNotFound}
)

// Validation builds a request-shape error with a caller-supplied message.
func Validation(message string) *Error {
	return &Error{Code: 1001, Message: message, Status: http.StatusBadRequest}
}

// From extracts an *Error from err, falling back to ErrUncategorized so raw
// storage errors never escape to the API layer.
func From(err error) *Error {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return ErrUncategorized
}
