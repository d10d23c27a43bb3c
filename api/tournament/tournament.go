/* tournament.go
 * Contains the Tournament context: the selected event/phase/pool, the player roster with Discord
 * identity mapping, the best-of configuration and the station registry (see stations.go). All of it
 * is rebuilt from start.gg on demand, nothing is persisted locally
 * Authors: Zachary Bower
 */

package tournament

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"

	"station-bot/api/match"
	"station-bot/api/shared"
	"station-bot/api/startgg"
)

// Configuration errors are fail fast: surfaced to the invoking command,
// never retried.
var (
	ErrNoEventSelected = errors.New("no event selected")
	ErrNoPhaseSelected = errors.New("no phase selected")
	ErrNoPoolSelected  = errors.New("no pool selected")
)

// DefaultBestOf applies when no round thresholds are configured.
const DefaultBestOf = 3

// BestOfConfig is either a flat default, or round thresholds from which
// matches become best of 5. Thresholds are only honoured when both are set,
// matching the platform's winners/losers round sign convention.
type BestOfConfig struct {
	Default            int
	Bo5FromRoundWinner *int
	Bo5FromRoundLoser  *int
}

// Tournament is the per-tournament context handed to the scheduling engine.
// It is not safe for concurrent mutation; the engine serializes access.
type Tournament struct {
	api startgg.API

	Slug string
	ID   int64
	Name string

	Events []startgg.EventSummary

	event *startgg.Event
	phase *startgg.Phase
	group *startgg.PhaseGroup

	players          map[int64]shared.Player
	discordByEntrant map[int64]string
	characters       map[string]int64 // lowercased name -> id
	characterNames   []string         // lowercased, for fuzzy ranking
	characterDisplay map[string]string
	bestOf           BestOfConfig
	stations         []*Station
	cachedRounds     []startgg.Round
}

// New fetches the tournament record for slug and builds an empty context
// Preconditions: Receives context, the remote API and a tournament slug
// Postconditions: Returns pointer to Tournament, or an error if the slug is unknown
func New(ctx context.Context, api startgg.API, slug string) (*Tournament, error) {
	info, err := api.GetTournament(ctx, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to load tournament %q: %w", slug, err)
	}

	t := &Tournament{
		api:              api,
		Slug:             slug,
		ID:               info.ID,
		Name:             info.Name,
		Events:           info.Events,
		players:          make(map[int64]shared.Player),
		discordByEntrant: make(map[int64]string),
		bestOf:           BestOfConfig{Default: DefaultBestOf},
	}
	// Adopt stations that already exist remotely so re-runs see them
	for _, s := range info.Stations {
		t.stations = append(t.stations, &Station{Number: s.Number, ID: s.ID})
	}
	return t, nil
}

// API exposes the remote client, used by the engine for set level calls.
func (t *Tournament) API() startgg.API {
	return t.api
}

// SelectEvent loads the event's phase tree, roster and character list
// Preconditions: Receives context and an event id belonging to this tournament
// Postconditions: Event is selected and roster populated, or an error if it occurs
func (t *Tournament) SelectEvent(ctx context.Context, eventID int64) error {
	event, err := t.api.GetEvent(ctx, eventID)
	if err != nil {
		return fmt.Errorf("failed to load event %d: %w", eventID, err)
	}
	t.event = event
	t.phase = nil
	t.group = nil
	t.cachedRounds = nil

	if err := t.loadRoster(ctx); err != nil {
		return err
	}
	if err := t.loadCharacters(ctx); err != nil {
		return err
	}
	return nil
}

// SelectEventByName selects an event by display name, hyphens treated as spaces.
func (t *Tournament) SelectEventByName(ctx context.Context, name string) error {
	name = strings.ReplaceAll(name, "-", " ")
	for _, e := range t.Events {
		if strings.EqualFold(e.Name, name) {
			return t.SelectEvent(ctx, e.ID)
		}
	}
	return fmt.Errorf("event %q not found in tournament %s", name, t.Slug)
}

// SelectPhase selects a phase of the current event and clears the pool selection.
func (t *Tournament) SelectPhase(phaseID int64) error {
	if t.event == nil {
		return ErrNoEventSelected
	}
	for i := range t.event.Phases {
		if t.event.Phases[i].ID == phaseID {
			t.phase = &t.event.Phases[i]
			t.group = nil
			t.cachedRounds = nil
			return nil
		}
	}
	return fmt.Errorf("phase %d not found in event %s", phaseID, t.event.Name)
}

// SelectPool selects a phase group of the current phase.
func (t *Tournament) SelectPool(groupID int64) error {
	if t.event == nil {
		return ErrNoEventSelected
	}
	if t.phase == nil {
		return ErrNoPhaseSelected
	}
	for i := range t.phase.Groups {
		if t.phase.Groups[i].ID == groupID {
			t.group = &t.phase.Groups[i]
			t.cachedRounds = nil
			return nil
		}
	}
	return fmt.Errorf("pool %d not found in phase %s", groupID, t.phase.Name)
}

// SelectedEvent returns the current event, nil when none is selected.
func (t *Tournament) SelectedEvent() *startgg.Event { return t.event }

// SelectedPhase returns the current phase, nil when none is selected.
func (t *Tournament) SelectedPhase() *startgg.Phase { return t.phase }

// SelectedPool returns the current phase group, nil when none is selected.
func (t *Tournament) SelectedPool() *startgg.PhaseGroup { return t.group }

func (t *Tournament) loadRoster(ctx context.Context) error {
	entrants, err := t.api.GetEntrants(ctx, t.event.ID)
	if err != nil {
		return fmt.Errorf("failed to load roster: %w", err)
	}
	t.players = make(map[int64]shared.Player, len(entrants))
	t.discordByEntrant = make(map[int64]string)
	for _, e := range entrants {
		p := shared.Player{
			EntrantID:   e.ID,
			Name:        e.Name,
			DiscordID:   e.DiscordID,
			DiscordName: e.DiscordName,
		}
		t.players[e.ID] = p
		if e.DiscordID != "" {
			t.discordByEntrant[e.ID] = e.DiscordID
		}
	}
	return nil
}

func (t *Tournament) loadCharacters(ctx context.Context) error {
	chars, err := t.api.GetCharacters(ctx, t.event.VideogameID)
	if err != nil {
		return fmt.Errorf("failed to load characters: %w", err)
	}
	t.characters = make(map[string]int64, len(chars))
	t.characterDisplay = make(map[string]string, len(chars))
	t.characterNames = t.characterNames[:0]
	for _, ch := range chars {
		lower := strings.ToLower(ch.Name)
		t.characters[lower] = ch.ID
		t.characterDisplay[lower] = ch.Name
		t.characterNames = append(t.characterNames, lower)
	}
	return nil
}

// Player resolves an entrant id against the roster. Sets can reference
// entrants missing from the roster snapshot; callers get a name-only record.
func (t *Tournament) Player(entrantID int64, fallbackName string) shared.Player {
	if p, ok := t.players[entrantID]; ok {
		return p
	}
	return shared.Player{EntrantID: entrantID, Name: fallbackName}
}

// CharacterID fuzzy matches a reported character name against the videogame's
// character list
// Preconditions: Receives a character name as typed by a player
// Postconditions: Returns the character id and true, or 0 and false when nothing matches
func (t *Tournament) CharacterID(name string) (int64, bool) {
	if name == "" || len(t.characters) == 0 {
		return 0, false
	}
	lower := strings.ToLower(strings.TrimSpace(name))
	if id, ok := t.characters[lower]; ok {
		return id, true
	}
	ranks := fuzzy.RankFind(lower, t.characterNames)
	if len(ranks) == 0 {
		return 0, false
	}
	sort.Sort(ranks)
	return t.characters[ranks[0].Target], true
}

// CharacterName returns the display name for a character the same way
// CharacterID resolves it, used for confirmation messages.
func (t *Tournament) CharacterName(name string) string {
	lower := strings.ToLower(strings.TrimSpace(name))
	if display, ok := t.characterDisplay[lower]; ok {
		return display
	}
	ranks := fuzzy.RankFind(lower, t.characterNames)
	if len(ranks) == 0 {
		return name
	}
	sort.Sort(ranks)
	return t.characterDisplay[ranks[0].Target]
}

// SetBestOf configures the best-of rules
// Preconditions: Receives a positive odd default, and optional winners/losers round thresholds
// Postconditions: Configuration is replaced, or an error for a non-positive default
func (t *Tournament) SetBestOf(defaultN int, bo5FromRoundWinner, bo5FromRoundLoser *int) error {
	if defaultN <= 0 {
		return fmt.Errorf("best of must be a positive integer, got %d", defaultN)
	}
	t.bestOf = BestOfConfig{
		Default:            defaultN,
		Bo5FromRoundWinner: bo5FromRoundWinner,
		Bo5FromRoundLoser:  bo5FromRoundLoser,
	}
	return nil
}

// EffectiveBestOf resolves the best-of for a signed round. With thresholds
// configured: bo5 from the configured winners round up, and from the
// configured losers round down; bo3 otherwise. Without thresholds the flat
// default applies uniformly.
func (t *Tournament) EffectiveBestOf(round int) int {
	w, l := t.bestOf.Bo5FromRoundWinner, t.bestOf.Bo5FromRoundLoser
	if w != nil && l != nil {
		if round >= 0 && round >= *w {
			return 5
		}
		if round < 0 && round <= *l {
			return 5
		}
		return DefaultBestOf
	}
	return t.bestOf.Default
}

// GetMatches fetches the pool's sets filtered by state, drops sets whose two
// entrant slots are not both filled and sets that already have a stream
// (streamed sets are run manually by operators), and orders the remainder in
// bracket progression order
// Preconditions: Event, phase and pool must all be selected
// Postconditions: Returns ordered slice of Set, or a configuration/remote error
func (t *Tournament) GetMatches(ctx context.Context, states []int) ([]startgg.Set, error) {
	if t.event == nil {
		return nil, ErrNoEventSelected
	}
	if t.phase == nil {
		return nil, ErrNoPhaseSelected
	}
	if t.group == nil {
		return nil, ErrNoPoolSelected
	}

	sets, err := t.api.GetSets(ctx, t.event.ID, t.phase.ID, t.group.ID, states)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch sets: %w", err)
	}

	var playable []startgg.Set
	for _, s := range sets {
		if len(s.Slots) < 2 || s.Slots[0].Entrant == nil || s.Slots[1].Entrant == nil {
			continue
		}
		if s.HasStream {
			continue
		}
		playable = append(playable, s)
	}
	return OrderSets(playable), nil
}

// Rounds returns the distinct rounds of the selected pool, cached after the
// first fetch. Used by the best-of configuration flow.
func (t *Tournament) Rounds(ctx context.Context) ([]startgg.Round, error) {
	if t.event == nil {
		return nil, ErrNoEventSelected
	}
	if t.phase == nil {
		return nil, ErrNoPhaseSelected
	}
	if t.group == nil {
		return nil, ErrNoPoolSelected
	}
	if t.cachedRounds != nil {
		return t.cachedRounds, nil
	}

	rounds, err := t.api.GetRounds(ctx, t.event.ID, t.phase.ID, t.group.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch rounds: %w", err)
	}
	seen := make(map[int]bool)
	var unique []startgg.Round
	for _, r := range rounds {
		if seen[r.Round] {
			continue
		}
		seen[r.Round] = true
		unique = append(unique, r)
	}
	t.cachedRounds = unique
	return unique, nil
}

// NewMatch builds a Match entity for a set using the resolved players and the
// effective best-of for the set's round
// Preconditions: Receives a set with both entrant slots filled
// Postconditions: Returns pointer to a fresh Match, or an error for an unfilled set
func (t *Tournament) NewMatch(set startgg.Set) (*match.Match, error) {
	if len(set.Slots) < 2 || set.Slots[0].Entrant == nil || set.Slots[1].Entrant == nil {
		return nil, fmt.Errorf("set %d does not have both entrants", set.ID)
	}
	p1 := t.Player(set.Slots[0].Entrant.ID, set.Slots[0].Entrant.Name)
	p2 := t.Player(set.Slots[1].Entrant.ID, set.Slots[1].Entrant.Name)
	bestOf := t.EffectiveBestOf(set.Round)
	return match.New(set.ID, p1, p2, set.Round, set.FullRoundText, bestOf, t.api), nil
}

// OrderSets sorts sets into bracket progression order: losers bracket rounds
// first by descending absolute round value, then winners bracket and grand
// final rounds ascending.
func OrderSets(sets []startgg.Set) []startgg.Set {
	sort.SliceStable(sets, func(i, j int) bool {
		ri, rj := sets[i].Round, sets[j].Round
		gi, gj := 1, 1
		if ri < 0 {
			gi = 0
		}
		if rj < 0 {
			gj = 0
		}
		if gi != gj {
			return gi < gj
		}
		// Losers rounds are negative, so plain ascending order is descending
		// absolute round value; winners rounds ascend as-is.
		return ri < rj
	})
	return sets
}
