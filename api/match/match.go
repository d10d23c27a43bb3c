/* match.go
 * Contains the Match entity: immutable set identity plus game-by-game score state and best-of-N
 * completion logic. A Match object is single use; a new one is constructed per run
 * Authors: Zachary Bower
 */

package match

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"station-bot/api/shared"
	"station-bot/api/startgg"
)

// ErrMatchComplete is returned when a game is reported against a match whose
// winner is already decided.
var ErrMatchComplete = errors.New("match is already complete")

// Reporter is the subset of the remote platform the entity needs. The entity
// never retries; failures propagate to the caller.
type Reporter interface {
	ReportSet(ctx context.Context, setID, winnerID int64, games []startgg.GameData) error
	AssignStation(ctx context.Context, setID, stationID int64) error
	MarkSetInProgress(ctx context.Context, setID int64) error
}

// Match tracks the score of one bracket set. The games list and completion
// flag are guarded by a mutex because the scheduler's completion sweep reads
// IsComplete concurrently with the per-match run reporting games.
type Match struct {
	SetID      int64
	P1         shared.Player
	P2         shared.Player
	Round      int
	RoundText  string
	BestOf     int
	GamesToWin int

	api Reporter

	mu        sync.Mutex
	games     []startgg.GameData
	p1Wins    int
	p2Wins    int
	complete  bool
	stationID int64
}

// New creates a Match for a single run of a set
// Preconditions: Receives the set id, both players, the signed round, the round display text, an odd bestOf >= 1 and a remote Reporter
// Postconditions: Returns pointer to a fresh Match with zero score
func New(setID int64, p1, p2 shared.Player, round int, roundText string, bestOf int, api Reporter) *Match {
	return &Match{
		SetID:      setID,
		P1:         p1,
		P2:         p2,
		Round:      round,
		RoundText:  roundText,
		BestOf:     bestOf,
		GamesToWin: bestOf - bestOf/2,
		api:        api,
	}
}

// ReportGame appends one game result and, when the winner reaches GamesToWin,
// submits the full accumulated game list to the remote platform in a single
// report call and clears the local list. Character ids of 0 mean no selection.
// Preconditions: Receives context, whether player 1 won the game and both players' character ids
// Postconditions: Returns nil, ErrMatchComplete if the match was already decided, or the remote error from the completing report
func (m *Match) ReportGame(ctx context.Context, p1IsWinner bool, p1Character, p2Character int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.complete {
		return ErrMatchComplete
	}

	winner := m.P2
	if p1IsWinner {
		winner = m.P1
	}

	game := startgg.GameData{
		GameNum:  len(m.games) + 1,
		WinnerID: winner.EntrantID,
	}
	if p1Character != 0 || p2Character != 0 {
		game.Selections = []startgg.Selection{
			{EntrantID: m.P1.EntrantID, CharacterID: p1Character},
			{EntrantID: m.P2.EntrantID, CharacterID: p2Character},
		}
	}
	m.games = append(m.games, game)

	if p1IsWinner {
		m.p1Wins++
	} else {
		m.p2Wins++
	}

	wins := m.p2Wins
	if p1IsWinner {
		wins = m.p1Wins
	}
	if wins < m.GamesToWin {
		return nil
	}

	// Single authoritative submission carrying the whole game history
	if err := m.api.ReportSet(ctx, m.SetID, winner.EntrantID, m.games); err != nil {
		return fmt.Errorf("failed to report set %d: %w", m.SetID, err)
	}
	m.games = nil
	m.complete = true
	return nil
}

// AssignStation records the station binding and issues the remote assign call
func (m *Match) AssignStation(ctx context.Context, stationID int64) error {
	m.mu.Lock()
	m.stationID = stationID
	m.mu.Unlock()
	return m.api.AssignStation(ctx, m.SetID, stationID)
}

// MarkStarted issues the remote in-progress call. Safe to repeat, the remote
// side tolerates marking an already started set
func (m *Match) MarkStarted(ctx context.Context) error {
	return m.api.MarkSetInProgress(ctx, m.SetID)
}

// IsComplete reports whether either player has reached GamesToWin.
func (m *Match) IsComplete() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.complete
}

// Score returns the current games-won counters for player 1 and player 2.
func (m *Match) Score() (int, int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.p1Wins, m.p2Wins
}

// GamesReported returns how many games are accumulated locally. The list is
// cleared once the completing report is flushed.
func (m *Match) GamesReported() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.games)
}

// Winner returns the winning player once the match is complete.
func (m *Match) Winner() (shared.Player, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.complete {
		return shared.Player{}, false
	}
	if m.p1Wins > m.p2Wins {
		return m.P1, true
	}
	return m.P2, true
}

// StationID returns the remote station id this match was bound to, 0 if unbound.
func (m *Match) StationID() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stationID
}
