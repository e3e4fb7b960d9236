// Package apperr is the error taxonomy shared by the domain services. Every
// failure a caller can observe carries exactly one Kind; a failed compensating
// action rides along as a secondary note without changing that Kind.
package apperr

import (
	"errors"
	"fmt"
)

type Kind int

const (
	// Unknown is the zero Kind; KindOf returns it for errors not built here.
	Unknown Kind = iota
	Invalid
	NotFound
	Conflict
	DuplicateEmail
	IdentityCreationFailed
	IdentityDeletionFailed
	ClinicCreationFailed
	DoctorCreationFailed
	PatientCreationFailed
	DeleteFailed
	MembershipUpdateFailed
	InvalidCredentials
	Unauthenticated
	NoAssignedRole
	StoreUnavailable
)

var kindCodes = map[Kind]string{
	Unknown:                "INTERNAL_ERROR",
	Invalid:                "VALIDATION_ERROR",
	NotFound:               "NOT_FOUND",
	Conflict:               "CONFLICT",
	DuplicateEmail:         "DUPLICATE_EMAIL",
	IdentityCreationFailed: "IDENTITY_CREATION_FAILED",
	IdentityDeletionFailed: "IDENTITY_DELETION_FAILED",
	ClinicCreationFailed:   "CLINIC_CREATION_FAILED",
	DoctorCreationFailed:   "DOCTOR_CREATION_FAILED",
	PatientCreationFailed:  "PATIENT_CREATION_FAILED",
	DeleteFailed:           "DELETE_FAILED",
	MembershipUpdateFailed: "MEMBERSHIP_UPDATE_FAILED",
	InvalidCredentials:     "INVALID_CREDENTIALS",
	Unauthenticated:        "UNAUTHENTICATED",
	NoAssignedRole:         "NO_ASSIGNED_ROLE",
	StoreUnavailable:       "STORE_UNAVAILABLE",
}

// Code is the stable machine-readable identifier sent to clients.
func (k Kind) Code() string {
	if code, ok := kindCodes[k]; ok {
		return code
	}
	return kindCodes[Unknown]
}

func (k Kind) String() string { return k.Code() }

// Error is a classified failure of operation Op.
type Error struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
	// Compensation holds the error of a rollback step that itself failed.
	Compensation error
}

func (e *Error) Error() string {
	msg := e.Msg
	if msg == "" {
		msg = e.Kind.Code()
	}
	s := msg
	if e.Op != "" {
		s = e.Op + ": " + msg
	}
	if e.Err != nil {
		s += ": " + e.Err.Error()
	}
	if e.Compensation != nil {
		s += " (compensation failed: " + e.Compensation.Error() + ")"
	}
	return s
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches another *Error by Kind so callers can write
// errors.Is(err, apperr.E(apperr.NotFound)).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Op == "" && t.Err == nil
}

// E builds a bare error of the given kind, mostly useful as an errors.Is target.
func E(kind Kind) *Error { return &Error{Kind: kind} }

// New builds a classified error with a client-facing message.
func New(kind Kind, op, msg string) *Error {
	return &Error{Kind: kind, Op: op, Msg: msg}
}

// Newf is New with a formatted message.
func Newf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Msg: fmt.Sprintf(format, args...)}
}

// Wrap classifies err. A nil err yields nil.
func Wrap(kind Kind, op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Op: op, Err: err}
}

// KindOf returns the Kind of the outermost *Error in err's chain.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return Unknown
}

// WithCompensation attaches a failed compensation to err. If err is not an
// *Error it is wrapped as Unknown first.
func WithCompensation(err, compErr error) error {
	if compErr == nil {
		return err
	}
	var e *Error
	if !errors.As(err, &e) {
		return &Error{Kind: Unknown, Err: err, Compensation: compErr}
	}
	cp := *e
	cp.Compensation = errors.Join(e.Compensation, compErr)
	return &cp
}

// CompensationOf returns the compensation note attached to err, if any.
func CompensationOf(err error) error {
	var e *Error
	if errors.As(err, &e) {
		return e.Compensation
	}
	return nil
}
