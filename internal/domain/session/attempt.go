package session

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var authAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "dentaldesk",
		Name:      "auth_attempts_total",
		Help:      "Login attempts by terminal outcome",
	},
	[]string{"outcome"},
)

// AttemptState is a step of a login attempt.
//
//	Unauthenticated -> CredentialsValidated -> RoleResolved -> SessionIssued
//	Unauthenticated -> CredentialsValidated -> NoRole -> SignedOut
//	Unauthenticated | CredentialsValidated -> Rejected
type AttemptState int

const (
	Unauthenticated AttemptState = iota
	CredentialsValidated
	RoleResolved
	SessionIssued
	NoRole
	SignedOut
	Rejected
)

var stateNames = [...]string{
	Unauthenticated:      "unauthenticated",
	CredentialsValidated: "credentials_validated",
	RoleResolved:         "role_resolved",
	SessionIssued:        "session_issued",
	NoRole:               "no_role",
	SignedOut:            "signed_out",
	Rejected:             "rejected",
}

func (s AttemptState) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Terminal reports whether no further transition is possible.
func (s AttemptState) Terminal() bool {
	return s == SessionIssued || s == SignedOut || s == Rejected
}

var transitions = map[AttemptState][]AttemptState{
	Unauthenticated:      {CredentialsValidated, Rejected},
	CredentialsValidated: {RoleResolved, NoRole, Rejected},
	RoleResolved:         {SessionIssued},
	NoRole:               {SignedOut},
}

// attempt tracks one login through its states and counts its outcome once
// it reaches a terminal state.
type attempt struct {
	state AttemptState
	// role is set on RoleResolved; reason on Rejected.
	role   string
	reason string
}

func (a *attempt) advance(to AttemptState) error {
	for _, next := range transitions[a.state] {
		if next == to {
			a.state = to
			if to.Terminal() {
				authAttemptsTotal.WithLabelValues(a.outcome()).Inc()
			}
			return nil
		}
	}
	return fmt.Errorf("invalid login transition %s -> %s", a.state, to)
}

func (a *attempt) reject(reason string) {
	a.reason = reason
	_ = a.advance(Rejected)
}

func (a *attempt) outcome() string {
	switch a.state {
	case SessionIssued:
		return "session_issued_" + a.role
	case Rejected:
		return "rejected_" + a.reason
	default:
		return a.state.String()
	}
}
