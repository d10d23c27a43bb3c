/* match_test.go
 * Contains unit tests for the Match entity
 * Authors: Zachary Bower
 */

package match

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"station-bot/api/shared"
	"station-bot/api/startgg"
)

// mockReporter records remote calls with per-method error injection.
type mockReporter struct {
	reportErr  error
	assignErr  error
	startErr   error
	reports    []reportCall
	assigned   map[int64]int64
	startCalls []int64
}

type reportCall struct {
	setID    int64
	winnerID int64
	games    []startgg.GameData
}

func newMockReporter() *mockReporter {
	return &mockReporter{assigned: make(map[int64]int64)}
}

func (r *mockReporter) ReportSet(ctx context.Context, setID, winnerID int64, games []startgg.GameData) error {
	if r.reportErr != nil {
		return r.reportErr
	}
	recorded := make([]startgg.GameData, len(games))
	copy(recorded, games)
	r.reports = append(r.reports, reportCall{setID: setID, winnerID: winnerID, games: recorded})
	return nil
}

func (r *mockReporter) AssignStation(ctx context.Context, setID, stationID int64) error {
	if r.assignErr != nil {
		return r.assignErr
	}
	r.assigned[setID] = stationID
	return nil
}

func (r *mockReporter) MarkSetInProgress(ctx context.Context, setID int64) error {
	if r.startErr != nil {
		return r.startErr
	}
	r.startCalls = append(r.startCalls, setID)
	return nil
}

var (
	matchP1 = shared.Player{EntrantID: 11, Name: "Mango", DiscordID: "d1"}
	matchP2 = shared.Player{EntrantID: 22, Name: "Armada", DiscordID: "d2"}
)

func TestNewMatchGamesToWin(t *testing.T) {
	cases := []struct {
		bestOf int
		want   int
	}{
		{1, 1},
		{3, 2},
		{5, 3},
		{7, 4},
	}
	for _, c := range cases {
		m := New(1, matchP1, matchP2, 1, "Winners Round 1", c.bestOf, newMockReporter())
		assert.Equal(t, c.want, m.GamesToWin, "best of %d", c.bestOf)
	}
}

func TestReportGameAccumulatesUntilDecided(t *testing.T) {
	api := newMockReporter()
	m := New(9, matchP1, matchP2, 1, "Winners Round 1", 3, api)
	ctx := context.Background()

	require.NoError(t, m.ReportGame(ctx, true, 0, 0))
	assert.False(t, m.IsComplete())
	assert.Equal(t, 1, m.GamesReported())
	// Nothing is sent remotely until the set is decided
	assert.Empty(t, api.reports)

	require.NoError(t, m.ReportGame(ctx, false, 0, 0))
	p1, p2 := m.Score()
	assert.Equal(t, 1, p1)
	assert.Equal(t, 1, p2)
	assert.Empty(t, api.reports)

	require.NoError(t, m.ReportGame(ctx, true, 0, 0))
	assert.True(t, m.IsComplete())

	// One batched report carrying the whole game history
	require.Len(t, api.reports, 1)
	call := api.reports[0]
	assert.Equal(t, int64(9), call.setID)
	assert.Equal(t, matchP1.EntrantID, call.winnerID)
	require.Len(t, call.games, 3)
	assert.Equal(t, 1, call.games[0].GameNum)
	assert.Equal(t, 2, call.games[1].GameNum)
	assert.Equal(t, 3, call.games[2].GameNum)
	assert.Equal(t, matchP1.EntrantID, call.games[0].WinnerID)
	assert.Equal(t, matchP2.EntrantID, call.games[1].WinnerID)

	// The local game list is flushed by the completing report
	assert.Equal(t, 0, m.GamesReported())

	winner, ok := m.Winner()
	require.True(t, ok)
	assert.Equal(t, matchP1.Name, winner.Name)
}

func TestReportGameCharacterSelections(t *testing.T) {
	api := newMockReporter()
	m := New(9, matchP1, matchP2, 1, "Winners Round 1", 1, api)

	require.NoError(t, m.ReportGame(context.Background(), false, 5, 7))
	require.Len(t, api.reports, 1)
	game := api.reports[0].games[0]
	require.Len(t, game.Selections, 2)
	assert.Equal(t, matchP1.EntrantID, game.Selections[0].EntrantID)
	assert.Equal(t, int64(5), game.Selections[0].CharacterID)
	assert.Equal(t, matchP2.EntrantID, game.Selections[1].EntrantID)
	assert.Equal(t, int64(7), game.Selections[1].CharacterID)
}

func TestReportGameNoSelectionsWhenUnreported(t *testing.T) {
	api := newMockReporter()
	m := New(9, matchP1, matchP2, 1, "Winners Round 1", 1, api)

	require.NoError(t, m.ReportGame(context.Background(), true, 0, 0))
	require.Len(t, api.reports, 1)
	assert.Nil(t, api.reports[0].games[0].Selections)
}

func TestReportGameAfterCompletion(t *testing.T) {
	m := New(9, matchP1, matchP2, 1, "Winners Round 1", 1, newMockReporter())
	ctx := context.Background()

	require.NoError(t, m.ReportGame(ctx, true, 0, 0))
	err := m.ReportGame(ctx, false, 0, 0)
	assert.ErrorIs(t, err, ErrMatchComplete)
}

func TestReportGameRemoteFailure(t *testing.T) {
	api := newMockReporter()
	api.reportErr = errors.New("rate limited")
	m := New(9, matchP1, matchP2, 1, "Winners Round 1", 1, api)

	err := m.ReportGame(context.Background(), true, 0, 0)
	require.Error(t, err)
	assert.ErrorContains(t, err, "rate limited")
	// A failed completing report leaves the match open for a retry
	assert.False(t, m.IsComplete())
	assert.Equal(t, 1, m.GamesReported())
}

func TestAssignStationAndMarkStarted(t *testing.T) {
	api := newMockReporter()
	m := New(9, matchP1, matchP2, 1, "Winners Round 1", 3, api)
	ctx := context.Background()

	require.NoError(t, m.AssignStation(ctx, 777))
	assert.Equal(t, int64(777), m.StationID())
	assert.Equal(t, int64(777), api.assigned[9])

	require.NoError(t, m.MarkStarted(ctx))
	assert.Equal(t, []int64{9}, api.startCalls)
}
