package session

import "testing"

func TestAttempt_Transitions(t *testing.T) {
	a := &attempt{}
	if err := a.advance(SessionIssued); err == nil {
		t.Error("expected skipping straight to SessionIssued to fail")
	}
	for _, s := range []AttemptState{CredentialsValidated, NoRole, SignedOut} {
		if err := a.advance(s); err != nil {
			t.Fatalf("advance to %s: %v", s, err)
		}
	}
	if !a.state.Terminal() {
		t.Error("expected SignedOut to be terminal")
	}
	if err := a.advance(Rejected); err == nil {
		t.Error("expected no transition out of a terminal state")
	}
}

func TestAttempt_Outcome(t *testing.T) {
	a := &attempt{}
	a.reject("invalid_input")
	if got := a.outcome(); got != "rejected_invalid_input" {
		t.Errorf("unexpected outcome %q", got)
	}

	a = &attempt{role: "admin"}
	_ = a.advance(CredentialsValidated)
	_ = a.advance(RoleResolved)
	_ = a.advance(SessionIssued)
	if got := a.outcome(); got != "session_issued_admin" {
		t.Errorf("unexpected outcome %q", got)
	}
}
