/* manager.go
 * Contains the scheduling engine state and its public contract: the operations invoked from chat
 * commands (initialize, start, stop, refresh, status, force free, manual assign, reset). The polling
 * loop itself lives in loop.go and the per-match run in run.go
 * Authors: Zachary Bower
 */

package manager

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"station-bot/api/match"
	"station-bot/api/startgg"
	"station-bot/api/tournament"
)

var (
	ErrAlreadyRunning = errors.New("match processing is already running")
	ErrNotRunning     = errors.New("match processing is not running")
)

// Options holds the engine timing and policy knobs. The defaults mirror the
// reference deployment.
type Options struct {
	PollInterval    time.Duration // sleep between loop iterations
	ErrorBackoff    time.Duration // sleep after a failed iteration
	RefreshEvery    int           // refresh the pending queue every Nth iteration
	PresenceTimeout time.Duration
	ReportTimeout   time.Duration // per-game wait for a human report
	RoomDeleteGrace time.Duration // delay before a finished match room is removed

	// AllowConfirmForOpponent lets a player confirm presence for their
	// opponent. Default is self-confirmation only.
	AllowConfirmForOpponent bool
	// NoShowDQSlot is the slot disqualified when neither player confirms
	// presence. Historically player 2; kept configurable on purpose.
	NoShowDQSlot int
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		PollInterval:    5 * time.Second,
		ErrorBackoff:    10 * time.Second,
		RefreshEvery:    6,
		PresenceTimeout: 5 * time.Minute,
		ReportTimeout:   30 * time.Minute,
		RoomDeleteGrace: 60 * time.Second,
		NoShowDQSlot:    2,
	}
}

// activeMatch is one active-table entry: the match, its supervised run handle
// and the room the players talk in. done is closed when the run goroutine
// exits; roomID and paused are written by the run and read by the sweep, so
// they sit behind their own mutex.
type activeMatch struct {
	set     startgg.Set
	match   *match.Match
	station int
	done    chan struct{}

	mu     sync.Mutex
	roomID string
	paused bool
}

func (a *activeMatch) setRoom(id string) {
	a.mu.Lock()
	a.roomID = id
	a.mu.Unlock()
}

func (a *activeMatch) room() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.roomID
}

// pause marks the run suspended after a game-report timeout: the entry stays
// in the active table until an operator frees the station.
func (a *activeMatch) pause() {
	a.mu.Lock()
	a.paused = true
	a.mu.Unlock()
}

func (a *activeMatch) isPaused() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.paused
}

func (a *activeMatch) finished() bool {
	select {
	case <-a.done:
		return true
	default:
		return false
	}
}

// Manager is the match-to-station scheduling engine. All collections are
// guarded by mu; per-match goroutines never touch them directly, they
// communicate through Match.IsComplete and their done channel.
type Manager struct {
	tour  *tournament.Tournament
	api   startgg.API
	rooms Messenger
	opts  Options

	mu          sync.Mutex
	pending     []startgg.Set
	active      map[int]*activeMatch
	inPlay      map[string]bool
	processed   map[int64]bool
	running     bool
	lastBlocked map[string]bool

	bg sync.WaitGroup // supervised background tasks: match runs, room deletions
}

// New creates a Manager for a configured tournament context
// Preconditions: Receives the tournament context, its remote API, a Messenger and engine options
// Postconditions: Returns pointer to a stopped Manager with empty tables
func New(tour *tournament.Tournament, rooms Messenger, opts Options) *Manager {
	return &Manager{
		tour:        tour,
		api:         tour.API(),
		rooms:       rooms,
		opts:        opts,
		active:      make(map[int]*activeMatch),
		inPlay:      make(map[string]bool),
		processed:   make(map[int64]bool),
		lastBlocked: make(map[string]bool),
	}
}

// InitializeMatches fills the pending queue with the pool's not-started sets
// Preconditions: Receives context; tournament must have event, phase and pool selected
// Postconditions: Returns the pending count, or a configuration/remote error
func (m *Manager) InitializeMatches(ctx context.Context) (int, error) {
	sets, err := m.tour.GetMatches(ctx, []int{startgg.SetStateNotStarted})
	if err != nil {
		return 0, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending = m.pending[:0]
	for _, s := range sets {
		if m.processed[s.ID] {
			continue
		}
		if m.activeSet(s.ID) {
			continue
		}
		m.pending = append(m.pending, s)
	}
	return len(m.pending), nil
}

// StartProcessing starts the polling loop. When the pending queue is empty it
// is initialized first
// Preconditions: Receives context used for the initial fetch
// Postconditions: Loop goroutine is running, or ErrAlreadyRunning / the initialization error
func (m *Manager) StartProcessing(ctx context.Context) error {
	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return ErrAlreadyRunning
	}
	needInit := len(m.pending) == 0
	m.mu.Unlock()

	if needInit {
		if _, err := m.InitializeMatches(ctx); err != nil {
			return err
		}
	}

	m.mu.Lock()
	if m.running {
		m.mu.Unlock()
		return ErrAlreadyRunning
	}
	m.running = true
	m.mu.Unlock()

	m.bg.Add(1)
	go m.processLoop()
	return nil
}

// StopProcessing asks the loop to exit after its current iteration. In-flight
// per-match runs are deliberately left alone; ResetAllMatches is the explicit
// cleanup action
// Postconditions: Returns nil, or ErrNotRunning when the loop is not running
func (m *Manager) StopProcessing() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.running {
		return ErrNotRunning
	}
	m.running = false
	inFlight := 0
	for _, am := range m.active {
		if !am.finished() {
			inFlight++
		}
	}
	if inFlight > 0 {
		log.Printf("match processing stopped with %d match run(s) still in flight", inFlight)
	}
	return nil
}

// RefreshPendingMatches re-fetches the pool's sets and merges only genuinely
// new ones into the pending queue
// Postconditions: Returns how many new matches were added, or an error if it occurs
func (m *Manager) RefreshPendingMatches(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refreshLocked(ctx)
}

func (m *Manager) refreshLocked(ctx context.Context) (int, error) {
	sets, err := m.tour.GetMatches(ctx, []int{startgg.SetStateNotStarted})
	if err != nil {
		return 0, err
	}

	known := make(map[int64]bool, len(m.pending)+len(m.active))
	for _, s := range m.pending {
		known[s.ID] = true
	}
	for _, am := range m.active {
		known[am.set.ID] = true
	}

	added := 0
	for _, s := range sets {
		if known[s.ID] || m.processed[s.ID] {
			continue
		}
		m.pending = append(m.pending, s)
		added++
	}
	return added, nil
}

func (m *Manager) activeSet(setID int64) bool {
	for _, am := range m.active {
		if am.set.ID == setID {
			return true
		}
	}
	return false
}

// playersAvailable checks both identities of a set against the in-play set
// Postconditions: Returns true when neither player is locked to another
// station, else false and the display name of the blocking player
func (m *Manager) playersAvailable(set startgg.Set) (bool, string) {
	for _, slot := range set.Slots {
		if slot.Entrant == nil {
			continue
		}
		p := m.tour.Player(slot.Entrant.ID, slot.Entrant.Name)
		if m.inPlay[p.Identity()] {
			return false, p.Name
		}
	}
	return true, ""
}

// launchLocked binds a set to a free station, locks its players, records the
// active-table entry and starts the per-match run. Caller holds mu. Station
// and player state are applied eagerly and are not rolled back when the remote
// assign call fails; that condition requires ForceStationFree.
func (m *Manager) launchLocked(set startgg.Set, stationNumber int) error {
	station := m.tour.StationByNumber(stationNumber)
	if station == nil {
		return fmt.Errorf("station %d does not exist", stationNumber)
	}
	if station.InUse {
		return fmt.Errorf("station %d is already in use", stationNumber)
	}

	mt, err := m.tour.NewMatch(set)
	if err != nil {
		return err
	}

	m.tour.MarkStationUsed(stationNumber, set.ID)
	m.inPlay[mt.P1.Identity()] = true
	m.inPlay[mt.P2.Identity()] = true
	m.processed[set.ID] = true

	am := &activeMatch{
		set:     set,
		match:   mt,
		station: stationNumber,
		done:    make(chan struct{}),
	}
	m.active[stationNumber] = am

	// Remote binding happens before the run starts so a failure is visible to
	// the invoking pass while the run has not consumed the station yet.
	if err := mt.AssignStation(context.Background(), station.ID); err != nil {
		return fmt.Errorf("station %d held for set %d but remote assign failed: %w", stationNumber, set.ID, err)
	}

	m.bg.Add(1)
	go m.runMatch(am)

	m.rooms.Announce(fmt.Sprintf("Match assigned to station %d: %s vs %s", stationNumber, mt.P1.Name, mt.P2.Name))
	return nil
}

// AssignMatch manually binds a pending set to a station, bypassing the
// automatic scan. The double-booking checks still apply
// Preconditions: Receives the set id of a pending match and a free station number
// Postconditions: Match is launched, or an error naming what blocked it
func (m *Manager) AssignMatch(setID int64, stationNumber int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	idx := -1
	for i, s := range m.pending {
		if s.ID == setID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return fmt.Errorf("set %d is not in the pending queue", setID)
	}
	set := m.pending[idx]

	if ok, blocking := m.playersAvailable(set); !ok {
		return fmt.Errorf("%s is already playing on another station", blocking)
	}

	m.pending = append(m.pending[:idx], m.pending[idx+1:]...)
	return m.launchLocked(set, stationNumber)
}

// ForceStationFree reclaims a station regardless of its run state: the paused
// or wedged entry is dropped, both players are unlocked and the room removed
// Preconditions: Receives the number of an existing station
// Postconditions: Station is free, or an error for an unknown station
func (m *Manager) ForceStationFree(stationNumber int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.tour.StationByNumber(stationNumber) == nil {
		return fmt.Errorf("station %d does not exist", stationNumber)
	}

	if am, ok := m.active[stationNumber]; ok {
		delete(m.active, stationNumber)
		delete(m.inPlay, am.match.P1.Identity())
		delete(m.inPlay, am.match.P2.Identity())
		if room := am.room(); room != "" {
			if err := m.rooms.DeleteRoom(room); err != nil {
				log.Printf("failed to delete room for station %d: %v", stationNumber, err)
			}
		}
	}
	m.tour.MarkStationFree(stationNumber)
	m.rooms.Announce(fmt.Sprintf("Station %d was force freed", stationNumber))
	return nil
}

// ResetAllMatches resets every active set remotely and empties the engine
// state: tables, player locks, processed set and station flags. This is the
// operator cleanup action, decoupled from the run/stop flag
// Postconditions: Engine is back to its initial state; the first remote reset error is returned after all entries were attempted
func (m *Manager) ResetAllMatches(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var firstErr error
	for station, am := range m.active {
		if err := m.api.ResetSet(ctx, am.set.ID); err != nil {
			log.Printf("failed to reset set %d: %v", am.set.ID, err)
			if firstErr == nil {
				firstErr = err
			}
		}
		if room := am.room(); room != "" {
			if err := m.rooms.DeleteRoom(room); err != nil {
				log.Printf("failed to delete room for station %d: %v", station, err)
			}
		}
		m.tour.MarkStationFree(station)
	}
	m.active = make(map[int]*activeMatch)
	m.pending = nil
	m.inPlay = make(map[string]bool)
	m.processed = make(map[int64]bool)
	m.lastBlocked = make(map[string]bool)
	return firstErr
}

// StationStatus is the per-station slice of a status report.
type StationStatus struct {
	Station int    `json:"station"`
	P1      string `json:"p1"`
	P2      string `json:"p2"`
	P1Wins  int    `json:"p1Wins"`
	P2Wins  int    `json:"p2Wins"`
	Paused  bool   `json:"paused"`
}

// Status is the engine snapshot surfaced to operators.
type Status struct {
	Running  bool            `json:"running"`
	Pending  int             `json:"pending"`
	Active   int             `json:"active"`
	Stations []StationStatus `json:"stations"`
}

// Status returns a consistent snapshot of the engine state.
func (m *Manager) Status() Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Status{
		Running: m.running,
		Pending: len(m.pending),
		Active:  len(m.active),
	}
	for station, am := range m.active {
		p1Wins, p2Wins := am.match.Score()
		s.Stations = append(s.Stations, StationStatus{
			Station: station,
			P1:      am.match.P1.Name,
			P2:      am.match.P2.Name,
			P1Wins:  p1Wins,
			P2Wins:  p2Wins,
			Paused:  am.isPaused(),
		})
	}
	sort.Slice(s.Stations, func(i, j int) bool {
		return s.Stations[i].Station < s.Stations[j].Station
	})
	return s
}

// Running reports whether the polling loop is active.
func (m *Manager) Running() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.running
}

// Wait blocks until the loop and every supervised background task finished.
// Used on process shutdown so nothing is silently lost.
func (m *Manager) Wait() {
	m.bg.Wait()
}

// Tournament exposes the engine's tournament context.
func (m *Manager) Tournament() *tournament.Tournament {
	return m.tour
}

// unlockPlayers removes both players of a match from the in-play set. Caller
// holds mu.
func (m *Manager) unlockPlayersLocked(mt *match.Match) {
	delete(m.inPlay, mt.P1.Identity())
	delete(m.inPlay, mt.P2.Identity())
}
