/* presence_test.go
 * Contains unit tests for the presence gate
 * Authors: Zachary Bower
 */

package manager

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"station-bot/api/shared"
)

var (
	gateP1 = shared.Player{EntrantID: 11, Name: "Mango", DiscordID: "d1", DiscordName: "mango"}
	gateP2 = shared.Player{EntrantID: 22, Name: "Armada", DiscordID: "d2", DiscordName: "armada"}
)

func TestPresenceGateBothConfirmEarly(t *testing.T) {
	rooms := NewMockMessenger()
	gate := &presenceGate{timeout: 5 * time.Second, noShowDQSlot: 2}

	go func() {
		ch := rooms.PresenceInbox("room-a")
		require.NotNil(t, ch)
		ch <- PresenceConfirmation{Slot: 1, By: "d1"}
		ch <- PresenceConfirmation{Slot: 2, By: "d2"}
	}()

	start := time.Now()
	outcome, err := gate.run(context.Background(), rooms, "room-a", gateP1, gateP2)
	require.NoError(t, err)
	assert.Equal(t, PresenceContinue, outcome)
	// The gate must return as soon as both slots confirm, not after the timeout
	assert.Less(t, time.Since(start), time.Second)
}

func TestPresenceGateIgnoresOpponentConfirmation(t *testing.T) {
	rooms := NewMockMessenger()
	gate := &presenceGate{timeout: 100 * time.Millisecond, noShowDQSlot: 2}

	go func() {
		ch := rooms.PresenceInbox("room-b")
		require.NotNil(t, ch)
		// p1 tries to confirm both slots; only their own counts
		ch <- PresenceConfirmation{Slot: 1, By: "d1"}
		ch <- PresenceConfirmation{Slot: 2, By: "d1"}
	}()

	outcome, err := gate.run(context.Background(), rooms, "room-b", gateP1, gateP2)
	require.NoError(t, err)
	assert.Equal(t, PresenceDisqualifyP2, outcome)
}

func TestPresenceGateProxyConfirmation(t *testing.T) {
	rooms := NewMockMessenger()
	gate := &presenceGate{timeout: 5 * time.Second, allowProxy: true, noShowDQSlot: 2}

	go func() {
		ch := rooms.PresenceInbox("room-c")
		require.NotNil(t, ch)
		ch <- PresenceConfirmation{Slot: 1, By: "d1"}
		ch <- PresenceConfirmation{Slot: 2, By: "d1"}
	}()

	outcome, err := gate.run(context.Background(), rooms, "room-c", gateP1, gateP2)
	require.NoError(t, err)
	assert.Equal(t, PresenceContinue, outcome)
}

func TestPresenceGateTimeoutDisqualifiesAbsentPlayer(t *testing.T) {
	rooms := NewMockMessenger()
	gate := &presenceGate{timeout: 50 * time.Millisecond, noShowDQSlot: 2}

	go func() {
		ch := rooms.PresenceInbox("room-d")
		require.NotNil(t, ch)
		ch <- PresenceConfirmation{Slot: 2, By: "d2"}
	}()

	outcome, err := gate.run(context.Background(), rooms, "room-d", gateP1, gateP2)
	require.NoError(t, err)
	assert.Equal(t, PresenceDisqualifyP1, outcome)
}

func TestPresenceGateNeitherConfirmedUsesConfiguredSlot(t *testing.T) {
	rooms := NewMockMessenger()

	gate := &presenceGate{timeout: 20 * time.Millisecond, noShowDQSlot: 2}
	outcome, err := gate.run(context.Background(), rooms, "room-e", gateP1, gateP2)
	require.NoError(t, err)
	assert.Equal(t, PresenceDisqualifyP2, outcome)

	gate = &presenceGate{timeout: 20 * time.Millisecond, noShowDQSlot: 1}
	outcome, err = gate.run(context.Background(), rooms, "room-f", gateP1, gateP2)
	require.NoError(t, err)
	assert.Equal(t, PresenceDisqualifyP1, outcome)
}

func TestPresenceGateOrganizerConfirmsSlots(t *testing.T) {
	rooms := NewMockMessenger()
	gate := &presenceGate{timeout: 5 * time.Second, noShowDQSlot: 2}

	go func() {
		ch := rooms.PresenceInbox("room-g")
		require.NotNil(t, ch)
		// A moderator in the room confirms both slots on the players' behalf;
		// this must count even without the proxy flag
		ch <- PresenceConfirmation{Slot: 1, By: "to-99"}
		ch <- PresenceConfirmation{Slot: 2, By: "to-99"}
	}()

	start := time.Now()
	outcome, err := gate.run(context.Background(), rooms, "room-g", gateP1, gateP2)
	require.NoError(t, err)
	assert.Equal(t, PresenceContinue, outcome)
	assert.Less(t, time.Since(start), time.Second)
}

func TestPresenceGateRejectsInvalidSlot(t *testing.T) {
	rooms := NewMockMessenger()
	gate := &presenceGate{timeout: 50 * time.Millisecond, noShowDQSlot: 2}

	go func() {
		ch := rooms.PresenceInbox("room-h")
		require.NotNil(t, ch)
		ch <- PresenceConfirmation{Slot: 3, By: "d1"}
		ch <- PresenceConfirmation{Slot: 0, By: "to-99"}
	}()

	outcome, err := gate.run(context.Background(), rooms, "room-h", gateP1, gateP2)
	require.NoError(t, err)
	assert.Equal(t, PresenceDisqualifyP2, outcome)
}
