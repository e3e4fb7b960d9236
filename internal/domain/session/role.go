// Package session authenticates callers and resolves what they may do. A
// caller is either an admin or a doctor; an identity that is neither holds
// no access at all.
package session

import (
	"context"

	"github.com/google/uuid"

	"github.com/dentaldesk/dentaldesk/internal/platform/apperr"
	"github.com/dentaldesk/dentaldesk/internal/platform/auth"
)

// Role is AdminRole or DoctorRole.
type Role interface {
	RoleName() string
	role()
}

type AdminRole struct {
	ID   uuid.UUID
	Name string
}

type DoctorRole struct {
	ID     uuid.UUID
	Name   string
	Clinic string
}

func (AdminRole) RoleName() string  { return auth.RoleAdmin }
func (DoctorRole) RoleName() string { return auth.RoleDoctor }
func (AdminRole) role()             {}
func (DoctorRole) role()            {}

// Assignment is one row found for an identity in a role table.
type Assignment struct {
	Role   string
	Name   string
	Clinic string
}

// RoleDirectory returns every role assignment held by an identity, in no
// particular order.
type RoleDirectory interface {
	Assignments(ctx context.Context, id uuid.UUID) ([]Assignment, error)
}

// ResolveRole maps an identity to its role. Admin wins over doctor when both
// exist. No assignment yields NoAssignedRole; a lookup failure yields
// StoreUnavailable. Either way the caller gets no role.
func ResolveRole(ctx context.Context, dir RoleDirectory, id uuid.UUID) (Role, error) {
	rows, err := dir.Assignments(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(apperr.StoreUnavailable, "session.resolve_role", err)
	}
	var doctor *DoctorRole
	for _, a := range rows {
		switch a.Role {
		case auth.RoleAdmin:
			return AdminRole{ID: id, Name: a.Name}, nil
		case auth.RoleDoctor:
			if doctor == nil {
				doctor = &DoctorRole{ID: id, Name: a.Name, Clinic: a.Clinic}
			}
		}
	}
	if doctor != nil {
		return *doctor, nil
	}
	return nil, apperr.New(apperr.NoAssignedRole, "session.resolve_role", "User does not have an assigned role")
}
