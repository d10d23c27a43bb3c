/* run.go
 * Contains the per-match run: the background task launched per assignment that creates the private
 * match room, runs the presence gate, drives best-of-N game reporting and hands the station back to
 * the completion sweep
 * Authors: Zachary Bower
 */

package manager

import (
	"context"
	"fmt"
	"log"
	"time"

	"station-bot/api/shared"
)

// runMatch drives one match from room creation to completion. It runs on its
// own goroutine with a background context: stopping the engine does not cancel
// matches that are already underway.
func (m *Manager) runMatch(am *activeMatch) {
	defer m.bg.Done()
	defer close(am.done)

	ctx := context.Background()
	mt := am.match
	p1, p2 := mt.P1, mt.P2

	roomID, err := m.rooms.CreateMatchRoom(ctx, am.station, p1, p2)
	if err != nil {
		log.Printf("failed to create room for station %d: %v", am.station, err)
		m.rooms.Announce(fmt.Sprintf("Could not open a match room for station %d, the match was not started", am.station))
		return
	}
	am.setRoom(roomID)

	// Flag the set as called; purely informational on the remote side
	if err := m.api.MarkSetCalled(ctx, mt.SetID); err != nil {
		log.Printf("failed to mark set %d as called: %v", mt.SetID, err)
	}

	m.rooms.Send(roomID, fmt.Sprintf("%s vs %s — %s, best of %d. Station %d is yours.",
		p1.Mention(), p2.Mention(), mt.RoundText, mt.BestOf, am.station))

	gate := &presenceGate{
		timeout:      m.opts.PresenceTimeout,
		allowProxy:   m.opts.AllowConfirmForOpponent,
		noShowDQSlot: m.opts.NoShowDQSlot,
	}
	gateCtx, cancelGate := context.WithCancel(ctx)
	outcome, err := gate.run(gateCtx, m.rooms, roomID, p1, p2)
	cancelGate()
	if err != nil {
		log.Printf("presence gate failed for set %d: %v", mt.SetID, err)
		return
	}

	switch outcome {
	case PresenceDisqualifyP1:
		m.disqualifyNoShow(ctx, am, roomID, p1, p2)
		return
	case PresenceDisqualifyP2:
		m.disqualifyNoShow(ctx, am, roomID, p2, p1)
		return
	}

	if err := mt.MarkStarted(ctx); err != nil {
		log.Printf("failed to start set %d: %v", mt.SetID, err)
		m.rooms.Send(roomID, "Could not start the match on start.gg, ask an operator for help")
		return
	}

	for gameNum := 1; gameNum <= mt.BestOf; gameNum++ {
		if mt.IsComplete() {
			break
		}
		m.rooms.Send(roomID, fmt.Sprintf("Waiting for the result of game %d", gameNum))

		report, ok, err := m.awaitReport(ctx, roomID, gameNum, p1, p2)
		if err != nil {
			log.Printf("game report wait failed for set %d: %v", mt.SetID, err)
			return
		}
		if !ok {
			// The humans went quiet. Pause instead of cancelling: the entry
			// stays in the active table until an operator frees the station.
			m.rooms.Send(roomID, "No result was reported in time. The match is paused until an operator intervenes.")
			am.pause()
			return
		}

		p1Char, p2Char := m.resolveSelections(report)
		if err := mt.ReportGame(ctx, report.WinnerSlot == 1, p1Char, p2Char); err != nil {
			log.Printf("failed to report game %d of set %d: %v", gameNum, mt.SetID, err)
			m.rooms.Send(roomID, "Reporting the result to start.gg failed, ask an operator for help")
			m.rooms.Announce(fmt.Sprintf("Score report failed for station %d: %v", am.station, err))
			return
		}

		winner := p2
		if report.WinnerSlot == 1 {
			winner = p1
		}
		m.rooms.Send(roomID, fmt.Sprintf("Game %d recorded for %s", gameNum, winner.Name))

		if mt.IsComplete() {
			final, _ := mt.Winner()
			m.rooms.Send(roomID, fmt.Sprintf("%s wins the match!", final.Name))
			m.rooms.Send(roomID, "This room will be removed shortly")
			m.scheduleRoomDeletion(am.station, roomID)
			break
		}
	}
}

// awaitReport waits for a valid game report with the long per-game timeout.
// Reports from users other than the two players are ignored
// Postconditions: Returns the report and true, or false on timeout, or an error
func (m *Manager) awaitReport(ctx context.Context, roomID string, gameNum int, p1, p2 shared.Player) (GameReport, bool, error) {
	promptCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	reports, err := m.rooms.PromptGameReport(promptCtx, roomID, gameNum, p1, p2)
	if err != nil {
		return GameReport{}, false, fmt.Errorf("failed to prompt game report: %w", err)
	}

	timer := time.NewTimer(m.opts.ReportTimeout)
	defer timer.Stop()

	for {
		select {
		case r, ok := <-reports:
			if !ok {
				return GameReport{}, false, nil
			}
			if r.WinnerSlot != 1 && r.WinnerSlot != 2 {
				continue
			}
			if r.By != p1.Identity() && r.By != p2.Identity() {
				continue
			}
			return r, true, nil
		case <-timer.C:
			return GameReport{}, false, nil
		case <-ctx.Done():
			return GameReport{}, false, ctx.Err()
		}
	}
}

// resolveSelections fuzzy matches the reported character names; unknown or
// empty names become no-selection.
func (m *Manager) resolveSelections(r GameReport) (int64, int64) {
	var p1Char, p2Char int64
	if id, ok := m.tour.CharacterID(r.P1Character); ok {
		p1Char = id
	}
	if id, ok := m.tour.CharacterID(r.P2Character); ok {
		p2Char = id
	}
	return p1Char, p2Char
}

// disqualifyNoShow awards the set to winner via the remote DQ call and winds
// the room down.
func (m *Manager) disqualifyNoShow(ctx context.Context, am *activeMatch, roomID string, loser, winner shared.Player) {
	m.rooms.Send(roomID, fmt.Sprintf("%s was disqualified for not showing up. %s wins the match.", loser.Name, winner.Name))
	if err := m.api.DisqualifyEntrant(ctx, am.match.SetID, winner.EntrantID); err != nil {
		log.Printf("failed to disqualify on set %d: %v", am.match.SetID, err)
		m.rooms.Announce(fmt.Sprintf("DQ call failed for station %d: %v", am.station, err))
	}
	m.rooms.Send(roomID, "This room will be removed shortly")
	m.scheduleRoomDeletion(am.station, roomID)
}

// scheduleRoomDeletion removes a match room after the grace period. The task
// is supervised through the engine's WaitGroup so shutdown can account for it.
func (m *Manager) scheduleRoomDeletion(station int, roomID string) {
	m.bg.Add(1)
	go func() {
		defer m.bg.Done()
		time.Sleep(m.opts.RoomDeleteGrace)
		if err := m.rooms.DeleteRoom(roomID); err != nil {
			log.Printf("failed to delete room for station %d: %v", station, err)
		}
	}()
}
