package session

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/dentaldesk/dentaldesk/internal/platform/apperr"
	"github.com/dentaldesk/dentaldesk/internal/platform/auth"
	"github.com/dentaldesk/dentaldesk/internal/platform/identity"
)

// View is what a caller learns about its own session.
type View struct {
	ID      uuid.UUID         `json:"id"`
	Email   string            `json:"email"`
	Role    string            `json:"role"`
	Name    string            `json:"name"`
	Clinic  string            `json:"clinic,omitempty"`
	Session *identity.Session `json:"session"`
}

func newView(sess *identity.Session, r Role) *View {
	v := &View{ID: sess.IdentityID, Email: sess.Email, Role: r.RoleName(), Session: sess}
	switch r := r.(type) {
	case AdminRole:
		v.Name = r.Name
	case DoctorRole:
		v.Name, v.Clinic = r.Name, r.Clinic
	}
	return v
}

type Service struct {
	idp    identity.Provider
	roles  RoleDirectory
	admins AdminStore
}

func NewService(idp identity.Provider, roles RoleDirectory, admins AdminStore) *Service {
	return &Service{idp: idp, roles: roles, admins: admins}
}

// Login authenticates the credentials and resolves the caller's role. An
// identity without a role is signed out again and refused with
// NoAssignedRole.
func (s *Service) Login(ctx context.Context, email, password string) (*View, error) {
	logger := zerolog.Ctx(ctx)
	a := &attempt{}

	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		a.reject("invalid_input")
		return nil, apperr.New(apperr.Invalid, "session.login", "Email and password are required")
	}

	sess, err := s.idp.Authenticate(ctx, email, password)
	switch {
	case errors.Is(err, identity.ErrInvalidCredentials):
		a.reject("invalid_credentials")
		return nil, apperr.New(apperr.InvalidCredentials, "session.login", "Invalid credentials")
	case err != nil:
		a.reject("provider_error")
		return nil, apperr.Wrap(apperr.StoreUnavailable, "session.login", err)
	}
	_ = a.advance(CredentialsValidated)

	r, err := ResolveRole(ctx, s.roles, sess.IdentityID)
	if err != nil {
		if signOutErr := s.idp.SignOut(context.WithoutCancel(ctx), sess.Token); signOutErr != nil {
			logger.Error().Err(signOutErr).Str("identity_id", sess.IdentityID.String()).
				Msg("sign out after failed role resolution")
		}
		if apperr.KindOf(err) != apperr.NoAssignedRole {
			a.reject("store_error")
			return nil, err
		}
		_ = a.advance(NoRole)
		_ = a.advance(SignedOut)
		logger.Warn().Str("identity_id", sess.IdentityID.String()).Msg("login refused: no assigned role")
		return nil, err
	}

	a.role = r.RoleName()
	_ = a.advance(RoleResolved)
	_ = a.advance(SessionIssued)
	logger.Info().Str("identity_id", sess.IdentityID.String()).Str("role", a.role).Msg("login")
	return newView(sess, r), nil
}

// Logout revokes the session behind token.
func (s *Service) Logout(ctx context.Context, token string) error {
	if err := s.idp.SignOut(ctx, token); err != nil {
		if errors.Is(err, identity.ErrNoSession) {
			return apperr.New(apperr.Unauthenticated, "session.logout", "No active session")
		}
		return apperr.Wrap(apperr.StoreUnavailable, "session.logout", err)
	}
	return nil
}

// Current returns the live session behind token with a freshly resolved
// role.
func (s *Service) Current(ctx context.Context, token string) (*View, error) {
	sess, err := s.idp.GetSession(ctx, token)
	if err != nil {
		if errors.Is(err, identity.ErrNoSession) {
			return nil, apperr.New(apperr.Unauthenticated, "session.current", "No active session")
		}
		return nil, apperr.Wrap(apperr.StoreUnavailable, "session.current", err)
	}
	r, err := ResolveRole(ctx, s.roles, sess.IdentityID)
	if err != nil {
		return nil, err
	}
	return newView(sess, r), nil
}

// Authenticate implements auth.Authenticator. The role is resolved on every
// call so a removed doctor loses access at once.
func (s *Service) Authenticate(ctx context.Context, token string) (*auth.Principal, error) {
	v, err := s.Current(ctx, token)
	if err != nil {
		return nil, err
	}
	return &auth.Principal{
		ID:     v.ID.String(),
		Email:  v.Email,
		Role:   v.Role,
		Name:   v.Name,
		Clinic: v.Clinic,
		Token:  token,
	}, nil
}

type RegisterAdminInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

// compensationTimeout bounds the identity cleanup after a failed admin insert.
const compensationTimeout = 10 * time.Second

// RegisterAdmin creates an identity tagged admin and its admins row. If the
// row cannot be written the identity is deleted again.
func (s *Service) RegisterAdmin(ctx context.Context, in RegisterAdminInput) (uuid.UUID, error) {
	const op = "session.register_admin"
	in.Email = strings.TrimSpace(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if in.Email == "" || in.Password == "" {
		return uuid.Nil, apperr.New(apperr.Invalid, op, "Email and password are required")
	}

	ident, err := s.idp.CreateIdentity(ctx, in.Email, in.Password, identity.Metadata{Role: auth.RoleAdmin, Name: in.Name})
	switch {
	case errors.Is(err, identity.ErrEmailTaken):
		return uuid.Nil, apperr.New(apperr.DuplicateEmail, op, "Email already registered")
	case errors.Is(err, identity.ErrInvalidInput):
		return uuid.Nil, &apperr.Error{Kind: apperr.Invalid, Op: op,
			Msg: strings.TrimPrefix(err.Error(), identity.ErrInvalidInput.Error()+": "), Err: err}
	case err != nil:
		return uuid.Nil, apperr.Wrap(apperr.IdentityCreationFailed, op, err)
	}

	if err := s.admins.CreateAdmin(ctx, ident.ID, in.Name); err != nil {
		failed := apperr.Wrap(apperr.StoreUnavailable, op, err)
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), compensationTimeout)
		defer cancel()
		if delErr := s.idp.DeleteIdentity(cctx, ident.ID); delErr != nil {
			zerolog.Ctx(ctx).Error().Err(delErr).Str("identity_id", ident.ID.String()).
				Msg("compensation failed; manual cleanup required")
			failed = apperr.WithCompensation(failed, delErr)
		}
		return uuid.Nil, failed
	}

	zerolog.Ctx(ctx).Info().Str("admin_id", ident.ID.String()).Msg("admin registered")
	return ident.ID, nil
}
