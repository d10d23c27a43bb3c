/* tournament_test.go
 * Contains unit tests for the tournament context: selection flow, roster resolution, best-of rules,
 * character matching and match ordering
 * Authors: Zachary Bower
 */

package tournament

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"station-bot/api/startgg"
)

// stubAPI implements startgg.API from fixtures; only the read side matters to
// this package, the set-level calls are no-ops.
type stubAPI struct {
	tournament *startgg.TournamentInfo
	event      *startgg.Event
	entrants   []startgg.Entrant
	characters []startgg.Character
	sets       []startgg.Set
	rounds     []startgg.Round

	getRoundsCalls int
	nextStationID  int64
	createStnErr   error
}

func (s *stubAPI) GetTournament(ctx context.Context, slug string) (*startgg.TournamentInfo, error) {
	return s.tournament, nil
}

func (s *stubAPI) GetEvent(ctx context.Context, eventID int64) (*startgg.Event, error) {
	return s.event, nil
}

func (s *stubAPI) GetEntrants(ctx context.Context, eventID int64) ([]startgg.Entrant, error) {
	return s.entrants, nil
}

func (s *stubAPI) GetCharacters(ctx context.Context, videogameID int64) ([]startgg.Character, error) {
	return s.characters, nil
}

func (s *stubAPI) GetSets(ctx context.Context, eventID, phaseID, groupID int64, states []int) ([]startgg.Set, error) {
	return s.sets, nil
}

func (s *stubAPI) GetRounds(ctx context.Context, eventID, phaseID, groupID int64) ([]startgg.Round, error) {
	s.getRoundsCalls++
	return s.rounds, nil
}

func (s *stubAPI) ReportSet(ctx context.Context, setID, winnerID int64, games []startgg.GameData) error {
	return nil
}

func (s *stubAPI) MarkSetCalled(ctx context.Context, setID int64) error            { return nil }
func (s *stubAPI) MarkSetInProgress(ctx context.Context, setID int64) error        { return nil }
func (s *stubAPI) AssignStation(ctx context.Context, setID, stationID int64) error { return nil }

func (s *stubAPI) CreateStation(ctx context.Context, tournamentID int64, number int) (int64, error) {
	if s.createStnErr != nil {
		return 0, s.createStnErr
	}
	s.nextStationID++
	return s.nextStationID, nil
}

func (s *stubAPI) DeleteStation(ctx context.Context, stationID int64) error           { return nil }
func (s *stubAPI) ResetSet(ctx context.Context, setID int64) error                    { return nil }
func (s *stubAPI) DisqualifyEntrant(ctx context.Context, setID, winnerID int64) error { return nil }

var _ startgg.API = (*stubAPI)(nil)

func newStubAPI() *stubAPI {
	return &stubAPI{
		tournament: &startgg.TournamentInfo{
			ID:   1,
			Name: "Genesis",
			Events: []startgg.EventSummary{
				{ID: 10, Name: "Melee Singles"},
				{ID: 11, Name: "Ultimate Singles"},
			},
		},
		event: &startgg.Event{
			ID:          10,
			Name:        "Melee Singles",
			VideogameID: 1,
			Phases: []startgg.Phase{
				{ID: 100, Name: "Bracket", Groups: []startgg.PhaseGroup{{ID: 1000, DisplayIdentifier: "A1"}}},
			},
		},
		entrants: []startgg.Entrant{
			{ID: 101, Name: "Mango", DiscordID: "d1", DiscordName: "mango"},
			{ID: 102, Name: "Armada", DiscordID: "d2", DiscordName: "armada"},
		},
		characters: []startgg.Character{
			{ID: 1, Name: "Fox"},
			{ID: 2, Name: "Falco"},
			{ID: 3, Name: "Marth"},
		},
		nextStationID: 500,
	}
}

func newSelectedTournament(t *testing.T, api *stubAPI) *Tournament {
	t.Helper()
	ctx := context.Background()
	tour, err := New(ctx, api, "genesis")
	require.NoError(t, err)
	require.NoError(t, tour.SelectEvent(ctx, 10))
	require.NoError(t, tour.SelectPhase(100))
	require.NoError(t, tour.SelectPool(1000))
	return tour
}

func filledSet(id int64, round int) startgg.Set {
	return startgg.Set{
		ID:    id,
		Round: round,
		Slots: []startgg.Slot{
			{Entrant: &startgg.SetEntrant{ID: 101, Name: "Mango"}},
			{Entrant: &startgg.SetEntrant{ID: 102, Name: "Armada"}},
		},
	}
}

// region selection tests

func TestSelectEventByName(t *testing.T) {
	api := newStubAPI()
	tour, err := New(context.Background(), api, "genesis")
	require.NoError(t, err)

	// Hyphens stand in for spaces, matching how slugs are typed in chat
	require.NoError(t, tour.SelectEventByName(context.Background(), "melee-singles"))
	require.NotNil(t, tour.SelectedEvent())
	assert.Equal(t, int64(10), tour.SelectedEvent().ID)

	err = tour.SelectEventByName(context.Background(), "doubles")
	assert.ErrorContains(t, err, "not found")
}

func TestSelectionOrderEnforced(t *testing.T) {
	api := newStubAPI()
	tour, err := New(context.Background(), api, "genesis")
	require.NoError(t, err)

	assert.ErrorIs(t, tour.SelectPhase(100), ErrNoEventSelected)
	assert.ErrorIs(t, tour.SelectPool(1000), ErrNoEventSelected)

	_, err = tour.GetMatches(context.Background(), []int{startgg.SetStateNotStarted})
	assert.ErrorIs(t, err, ErrNoEventSelected)

	require.NoError(t, tour.SelectEvent(context.Background(), 10))
	_, err = tour.GetMatches(context.Background(), []int{startgg.SetStateNotStarted})
	assert.ErrorIs(t, err, ErrNoPhaseSelected)

	require.NoError(t, tour.SelectPhase(100))
	_, err = tour.GetMatches(context.Background(), []int{startgg.SetStateNotStarted})
	assert.ErrorIs(t, err, ErrNoPoolSelected)

	assert.ErrorContains(t, tour.SelectPhase(999), "not found")
	assert.ErrorContains(t, tour.SelectPool(999), "not found")
}

// endregion

// region roster and character tests

func TestPlayerResolution(t *testing.T) {
	tour := newSelectedTournament(t, newStubAPI())

	p := tour.Player(101, "ignored")
	assert.Equal(t, "Mango", p.Name)
	assert.Equal(t, "d1", p.Identity())

	// Entrants missing from the roster snapshot fall back to a name-only
	// record keyed by entrant id
	p = tour.Player(999, "Mystery")
	assert.Equal(t, "Mystery", p.Name)
	assert.Equal(t, "entrant:999", p.Identity())
}

func TestCharacterIDMatching(t *testing.T) {
	tour := newSelectedTournament(t, newStubAPI())

	id, ok := tour.CharacterID("Fox")
	require.True(t, ok)
	assert.Equal(t, int64(1), id)

	// Case and whitespace tolerant
	id, ok = tour.CharacterID("  fAlCo ")
	require.True(t, ok)
	assert.Equal(t, int64(2), id)

	// Fuzzy: partial input resolves against the character list
	id, ok = tour.CharacterID("mart")
	require.True(t, ok)
	assert.Equal(t, int64(3), id)

	_, ok = tour.CharacterID("zelda")
	assert.False(t, ok)
	_, ok = tour.CharacterID("")
	assert.False(t, ok)
}

// endregion

// region best-of tests

func TestEffectiveBestOfWithThresholds(t *testing.T) {
	tour := newSelectedTournament(t, newStubAPI())
	w, l := 3, -2
	require.NoError(t, tour.SetBestOf(3, &w, &l))

	cases := []struct {
		round int
		want  int
	}{
		{1, 3},
		{2, 3},
		{3, 5},
		{4, 5},
		{-1, 3},
		{-2, 5},
		{-3, 5},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, tour.EffectiveBestOf(c.round), "round %d", c.round)
	}
}

func TestEffectiveBestOfFlatDefault(t *testing.T) {
	tour := newSelectedTournament(t, newStubAPI())
	require.NoError(t, tour.SetBestOf(5, nil, nil))
	assert.Equal(t, 5, tour.EffectiveBestOf(1))
	assert.Equal(t, 5, tour.EffectiveBestOf(-3))

	// A single threshold is not enough; the flat default wins
	w := 3
	require.NoError(t, tour.SetBestOf(3, &w, nil))
	assert.Equal(t, 3, tour.EffectiveBestOf(4))

	assert.Error(t, tour.SetBestOf(0, nil, nil))
}

// endregion

// region match listing tests

func TestGetMatchesFiltersAndOrders(t *testing.T) {
	api := newStubAPI()
	streamed := filledSet(4, 1)
	streamed.HasStream = true
	api.sets = []startgg.Set{
		filledSet(1, 2),
		filledSet(2, -1),
		{ID: 3, Round: 1, Slots: []startgg.Slot{{Entrant: &startgg.SetEntrant{ID: 101, Name: "Mango"}}, {Entrant: nil}}},
		streamed,
		filledSet(5, -3),
	}
	tour := newSelectedTournament(t, api)

	sets, err := tour.GetMatches(context.Background(), []int{startgg.SetStateNotStarted})
	require.NoError(t, err)
	require.Len(t, sets, 3)
	assert.Equal(t, int64(5), sets[0].ID)
	assert.Equal(t, int64(2), sets[1].ID)
	assert.Equal(t, int64(1), sets[2].ID)
}

func TestOrderSets(t *testing.T) {
	sets := []startgg.Set{
		{ID: 1, Round: -3},
		{ID: 2, Round: -1},
		{ID: 3, Round: 2},
		{ID: 4, Round: 1},
		{ID: 5, Round: -2},
	}
	ordered := OrderSets(sets)
	var rounds []int
	for _, s := range ordered {
		rounds = append(rounds, s.Round)
	}
	assert.Equal(t, []int{-3, -2, -1, 1, 2}, rounds)
}

func TestOrderSetsStableWithinRound(t *testing.T) {
	sets := []startgg.Set{
		{ID: 1, Round: 1},
		{ID: 2, Round: 1},
		{ID: 3, Round: 1},
	}
	ordered := OrderSets(sets)
	assert.Equal(t, int64(1), ordered[0].ID)
	assert.Equal(t, int64(2), ordered[1].ID)
	assert.Equal(t, int64(3), ordered[2].ID)
}

func TestRoundsDedupedAndCached(t *testing.T) {
	api := newStubAPI()
	api.rounds = []startgg.Round{
		{Round: 1, FullRoundText: "Winners Round 1"},
		{Round: 1, FullRoundText: "Winners Round 1"},
		{Round: 2, FullRoundText: "Winners Final"},
		{Round: -1, FullRoundText: "Losers Round 1"},
	}
	tour := newSelectedTournament(t, api)

	rounds, err := tour.Rounds(context.Background())
	require.NoError(t, err)
	assert.Len(t, rounds, 3)
	assert.Equal(t, 1, api.getRoundsCalls)

	_, err = tour.Rounds(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, api.getRoundsCalls)
}

// endregion

// region match construction tests

func TestNewMatchUsesEffectiveBestOf(t *testing.T) {
	tour := newSelectedTournament(t, newStubAPI())
	w, l := 2, -4
	require.NoError(t, tour.SetBestOf(3, &w, &l))

	mt, err := tour.NewMatch(filledSet(1, 3))
	require.NoError(t, err)
	assert.Equal(t, 5, mt.BestOf)
	assert.Equal(t, "Mango", mt.P1.Name)
	assert.Equal(t, "Armada", mt.P2.Name)
	assert.Equal(t, "d1", mt.P1.Identity())

	mt, err = tour.NewMatch(filledSet(2, 1))
	require.NoError(t, err)
	assert.Equal(t, 3, mt.BestOf)

	_, err = tour.NewMatch(startgg.Set{ID: 3, Slots: []startgg.Slot{{Entrant: nil}, {Entrant: nil}}})
	assert.ErrorContains(t, err, "does not have both entrants")
}

// endregion
