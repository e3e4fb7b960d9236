package apperr

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"
)

// Response is the JSON body of every error reply.
type Response struct {
	Message      string `json:"message"`
	Code         string `json:"code"`
	Compensation string `json:"compensation,omitempty"`
}

// Status maps a Kind onto an HTTP status: caller-caused conditions are 4xx,
// collaborator failures are 5xx.
func Status(k Kind) int {
	switch k {
	case Invalid:
		return http.StatusBadRequest
	case NotFound:
		return http.StatusNotFound
	case Conflict, DuplicateEmail:
		return http.StatusConflict
	case InvalidCredentials, Unauthenticated:
		return http.StatusUnauthorized
	case NoAssignedRole:
		return http.StatusForbidden
	case StoreUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// HTTPError converts err into an *echo.HTTPError carrying a Response body.
// 5xx messages are generic; the detail stays in the wrapped Internal error
// for the request logger.
func HTTPError(err error) *echo.HTTPError {
	kind := KindOf(err)
	status := Status(kind)

	body := Response{Code: kind.Code()}
	var e *Error
	if errors.As(err, &e) && e.Msg != "" && status < http.StatusInternalServerError {
		body.Message = e.Msg
	} else {
		body.Message = defaultMessage(kind)
	}
	if comp := CompensationOf(err); comp != nil {
		body.Compensation = "rollback incomplete; manual cleanup may be required"
	}

	he := echo.NewHTTPError(status, body)
	he.Internal = err
	return he
}

func defaultMessage(k Kind) string {
	switch k {
	case Invalid:
		return "invalid request"
	case NotFound:
		return "resource not found"
	case Conflict:
		return "resource already exists"
	case DuplicateEmail:
		return "email already registered"
	case IdentityCreationFailed:
		return "could not create user account"
	case IdentityDeletionFailed:
		return "could not delete user account"
	case ClinicCreationFailed:
		return "could not create clinic"
	case DoctorCreationFailed:
		return "could not create doctor"
	case PatientCreationFailed:
		return "could not create patient"
	case DeleteFailed:
		return "could not delete record"
	case MembershipUpdateFailed:
		return "could not update membership"
	case InvalidCredentials:
		return "Invalid credentials"
	case Unauthenticated:
		return "no active session"
	case NoAssignedRole:
		return "User does not have an assigned role"
	case StoreUnavailable:
		return "record store unavailable"
	default:
		return "internal server error"
	}
}
