package bizerror

import (
	"errors"
	"net/http"
)

var (
	ErrUnauthenticated    = errors.New("unauthenticated")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrForbidden          = errors.New("forbidden")
	ErrNotFound           = errors.New("record not found")
	ErrNoContent          = errors.New("no content")

	ErrInvalidPassword  = errors.New("invalid password")
	ErrInvalidResetCode = errors.New("invalid or expired reset code")

	ErrConflict      = errors.New("conflict")
	ErrInvalidState  = errors.New("invalid state")
	ErrInvalidStatus = errors.New("invalid status")
)

type BizError interface {
	Respond() *BizErrorDetail
}

type BizErrorDetail struct {
	Status  int
	Code    string
	Message string

	Data  interface{}
	Cause error
}

type ErrBadParam struct {
	Cause error
}

func (e *ErrBadParam) Unwrap() error {
	return e.Cause
}
func (e *ErrBadParam) Error() string {
	if e.Cause != nil {
		return e.Cause.Error()
	}
	return "common.bad_param"
}
func (e *ErrBadParam) Respond() *BizErrorDetail {
	message := "common.bad_param"
	if e.Cause != nil {
		message = e.Cause.Error()
	}
	return &BizErrorDetail{Status: http.StatusBadRequest, Code: "common.bad_param", Message: message, Data: nil}
}

// date boundary violations on task creation/updating
const (
	DateBoundaryStartBeforeProject = "start_before_project"
	DateBoundaryDueAfterProject    = "due_after_project"
	DateBoundaryDueBeforeStart     = "due_before_start"
)

type ErrInvalidDateRange struct {
	Boundary string
}

func (e *ErrInvalidDateRange) Error() string {
	return "invalid date range: " + e.Boundary
}
func (e *ErrInvalidDateRange) Respond() *BizErrorDetail {
	return &BizErrorDetail{Status: http.StatusBadRequest, Code: "common.invalid_date_range",
		Message: "invalid date range", Data: e.Boundary}
}
