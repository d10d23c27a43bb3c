/* presence.go
 * Contains the presence gate: the short per-match protocol run before any scoring. Both players must
 * confirm presence within the timeout or the absent side is disqualified
 * Authors: Zachary Bower
 */

package manager

import (
	"context"
	"fmt"
	"time"

	"station-bot/api/shared"
)

// PresenceOutcome is the result of the presence gate, consumed by the
// scheduling engine to either proceed to scoring or terminate the run.
type PresenceOutcome int

const (
	PresenceContinue PresenceOutcome = iota
	PresenceDisqualifyP1
	PresenceDisqualifyP2
)

func (o PresenceOutcome) String() string {
	switch o {
	case PresenceContinue:
		return "continue"
	case PresenceDisqualifyP1:
		return "dq_p1"
	case PresenceDisqualifyP2:
		return "dq_p2"
	}
	return "unknown"
}

// presenceGate waits for both players to confirm within timeout. allowProxy
// lets a player confirm on behalf of their opponent; noShowDQSlot is the slot
// disqualified when neither player confirms.
type presenceGate struct {
	timeout      time.Duration
	allowProxy   bool
	noShowDQSlot int
}

// run drives the gate to completion. Confirmations that violate the
// self-confirmation policy are ignored, not errors. Returns the instant both
// slots are confirmed; the remaining timeout is not waited out.
func (g *presenceGate) run(ctx context.Context, rooms Messenger, roomID string, p1, p2 shared.Player) (PresenceOutcome, error) {
	confirms, err := rooms.PromptPresence(ctx, roomID, p1, p2)
	if err != nil {
		return PresenceContinue, fmt.Errorf("failed to prompt presence: %w", err)
	}

	timer := time.NewTimer(g.timeout)
	defer timer.Stop()

	var p1Here, p2Here bool
	for {
		select {
		case c, ok := <-confirms:
			if !ok {
				return g.timeoutOutcome(p1Here, p2Here), nil
			}
			if !g.confirmAllowed(c, p1, p2) {
				continue
			}
			switch c.Slot {
			case 1:
				if !p1Here {
					p1Here = true
					rooms.Send(roomID, fmt.Sprintf("%s confirmed present", p1.Name))
				}
			case 2:
				if !p2Here {
					p2Here = true
					rooms.Send(roomID, fmt.Sprintf("%s confirmed present", p2.Name))
				}
			}
			if p1Here && p2Here {
				return PresenceContinue, nil
			}
		case <-timer.C:
			return g.timeoutOutcome(p1Here, p2Here), nil
		case <-ctx.Done():
			return PresenceContinue, ctx.Err()
		}
	}
}

// confirmAllowed applies the self-confirmation policy. A confirmation from an
// identity that is neither player is an organizer override and always counts:
// the match room is hidden from everyone but the players and the moderators,
// so room visibility is the authorization. Between the players themselves,
// confirming the opponent's slot requires the proxy flag.
func (g *presenceGate) confirmAllowed(c PresenceConfirmation, p1, p2 shared.Player) bool {
	if c.Slot != 1 && c.Slot != 2 {
		return false
	}
	if c.By != p1.Identity() && c.By != p2.Identity() {
		return true
	}
	if g.allowProxy {
		return true
	}
	target := p1
	if c.Slot == 2 {
		target = p2
	}
	return c.By == target.Identity()
}

func (g *presenceGate) timeoutOutcome(p1Here, p2Here bool) PresenceOutcome {
	switch {
	case p1Here && !p2Here:
		return PresenceDisqualifyP2
	case p2Here && !p1Here:
		return PresenceDisqualifyP1
	default:
		// Neither confirmed: the disqualified side is configuration, the
		// historical default is player 2.
		if g.noShowDQSlot == 1 {
			return PresenceDisqualifyP1
		}
		return PresenceDisqualifyP2
	}
}
