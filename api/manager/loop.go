/* loop.go
 * Contains the engine's polling loop: the assignment pass, the completion sweep and the periodic
 * pending-queue refresh. One logical thread of control; per-match runs only feed back through
 * Match.IsComplete and their done channel
 * Authors: Zachary Bower
 */

package manager

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"
)

// processLoop runs until stopped or until both the queue and the active table
// are empty. A failed iteration is logged and backed off, never fatal: the
// loop has to survive remote hiccups across many hours of tournament
// operation.
func (m *Manager) processLoop() {
	defer m.bg.Done()

	refreshCounter := 0
	drained := false
	for {
		m.mu.Lock()
		if !m.running {
			m.mu.Unlock()
			break
		}
		if len(m.pending) == 0 && len(m.active) == 0 {
			m.running = false
			drained = true
			m.mu.Unlock()
			break
		}

		m.assignPendingLocked()
		m.sweepCompletedLocked()

		var iterErr error
		refreshCounter++
		if refreshCounter >= m.opts.RefreshEvery {
			refreshCounter = 0
			added, err := m.refreshLocked(context.Background())
			if err != nil {
				iterErr = err
			} else if added > 0 {
				log.Printf("%d new match(es) added to the pending queue", added)
			}
		}
		m.mu.Unlock()

		if iterErr != nil {
			log.Printf("processing loop error: %v", iterErr)
			time.Sleep(m.opts.ErrorBackoff)
			continue
		}
		time.Sleep(m.opts.PollInterval)
	}

	if drained {
		m.rooms.Announce("All matches processed")
	}
}

// assignPendingLocked scans the pending queue for every free station and
// assigns the first match whose players are not locked elsewhere. Blocked
// matches are skipped, not discarded, so a busy player never stalls the rest
// of the queue. Caller holds mu.
func (m *Manager) assignPendingLocked() {
	if len(m.pending) == 0 {
		return
	}

	currentBlocked := make(map[string]bool)
	for _, stationNumber := range m.tour.FreeStations() {
		if _, busy := m.active[stationNumber]; busy {
			continue
		}
		if len(m.pending) == 0 {
			break
		}

		idx := -1
		for i, set := range m.pending {
			if m.processed[set.ID] {
				continue
			}
			ok, blocking := m.playersAvailable(set)
			if ok {
				idx = i
				break
			}
			if blocking != "" {
				currentBlocked[blocking] = true
			}
		}
		if idx == -1 {
			// Nothing assignable; announce the blocking players once per
			// change, not on every poll tick.
			m.announceBlockedLocked(currentBlocked)
			return
		}

		set := m.pending[idx]
		m.pending = append(m.pending[:idx], m.pending[idx+1:]...)
		if err := m.launchLocked(set, stationNumber); err != nil {
			log.Printf("assignment error: %v", err)
			m.rooms.Announce(fmt.Sprintf("Failed to assign set %d to station %d: %v", set.ID, stationNumber, err))
		}
	}
	m.announceBlockedLocked(currentBlocked)
}

func (m *Manager) announceBlockedLocked(current map[string]bool) {
	if sameNameSet(current, m.lastBlocked) {
		return
	}
	m.lastBlocked = current
	if len(current) == 0 {
		return
	}
	names := make([]string, 0, len(current))
	for name := range current {
		names = append(names, name)
	}
	sort.Strings(names)
	m.rooms.Announce(fmt.Sprintf("Waiting on players already in a match: %s", strings.Join(names, ", ")))
}

func sameNameSet(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if !b[k] {
			return false
		}
	}
	return true
}

// sweepCompletedLocked reclaims every active entry whose run has finished or
// whose match is complete. Paused runs are skipped; they wait for an operator.
// Caller holds mu.
func (m *Manager) sweepCompletedLocked() {
	var completed []int
	for station, am := range m.active {
		if am.isPaused() {
			continue
		}
		if am.finished() || am.match.IsComplete() {
			completed = append(completed, station)
		}
	}
	sort.Ints(completed)

	for _, station := range completed {
		m.reclaimLocked(station)
	}
}

// reclaimLocked frees one station and its players and triggers a single
// pending-queue refresh, since a completed set usually unlocks its successor
// in the bracket. Caller holds mu.
func (m *Manager) reclaimLocked(station int) {
	am, ok := m.active[station]
	if !ok {
		return
	}
	m.unlockPlayersLocked(am.match)
	m.tour.MarkStationFree(station)
	delete(m.active, station)

	if _, err := m.refreshLocked(context.Background()); err != nil {
		log.Printf("refresh after reclaim failed: %v", err)
	}
	m.rooms.Announce(fmt.Sprintf("Station %d is free again", station))
}
