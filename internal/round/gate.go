package round

import "fmt"

// Gate holds the deployment's active-flag policy.
type Gate struct {
	// Controller may toggle the active flag. Empty means each round's owner.
	Controller Identity
	// Enforce makes every participant mutation require an active round.
	Enforce bool
}

func (g Gate) controllerFor(s *RoundState) Identity {
	if g.Controller != "" {
		return g.Controller
	}
	return s.Config.Owner
}

// Check fails with ErrRoundNotActive when enforcement is on and the round is
// inactive.
func (g Gate) Check(s *RoundState) error {
	if g.Enforce && !s.Active {
		return fmt.Errorf("%w: %s", ErrRoundNotActive, s.Key())
	}
	return nil
}

// Toggle flips the active flag on behalf of caller.
func (g Gate) Toggle(s *RoundState, caller Identity) error {
	if caller == "" || caller != g.controllerFor(s) {
		return fmt.Errorf("%w: %s may not toggle %s", ErrUnauthorizedAccess, caller, s.Key())
	}
	s.Active = !s.Active
	return nil
}
