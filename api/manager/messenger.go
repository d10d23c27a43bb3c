/* messenger.go
 * Contains the Messenger interface the engine uses to talk to players and operators. The bot package
 * provides the Discord implementation; tests provide mocks. The engine itself is transport agnostic
 * Authors: Zachary Bower
 */

package manager

import (
	"context"

	"station-bot/api/shared"
)

// PresenceConfirmation is one presence action received in a match room.
// Slot is 1 or 2 for the slot being confirmed, By is the identity of the user
// who performed the action; the presence gate enforces the self-confirmation
// policy.
type PresenceConfirmation struct {
	Slot int
	By   string
}

// GameReport is one game result submitted in a match room. Character names
// are raw player input; the engine resolves them against the character list.
type GameReport struct {
	WinnerSlot  int
	P1Character string
	P2Character string
	By          string
}

// Messenger is the chat surface the engine drives. Room ids are opaque.
type Messenger interface {
	// CreateMatchRoom creates a room visible only to the two players.
	CreateMatchRoom(ctx context.Context, station int, p1, p2 shared.Player) (string, error)
	// DeleteRoom tears a match room down.
	DeleteRoom(roomID string) error
	// Send posts a message into a match room.
	Send(roomID, content string) error
	// Announce posts an operator-facing status line.
	Announce(content string)
	// PromptPresence asks both players to confirm presence and returns the
	// channel confirmations arrive on. The channel is drained until ctx ends.
	PromptPresence(ctx context.Context, roomID string, p1, p2 shared.Player) (<-chan PresenceConfirmation, error)
	// PromptGameReport asks for the result of one game and returns the channel
	// reports arrive on.
	PromptGameReport(ctx context.Context, roomID string, gameNum int, p1, p2 shared.Player) (<-chan GameReport, error)
}
