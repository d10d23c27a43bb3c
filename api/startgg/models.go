/* models.go
 * This file contains the models returned by the start.gg client. These are the typed records the rest of
 * the application works with; raw GraphQL response shapes stay inside client.go
 * Authors: Zachary Bower
 */

package startgg

// Set states used by the start.gg sets filter.
const (
	SetStateNotStarted = 1
	SetStateInProgress = 2
	SetStateComplete   = 3
)

// TournamentInfo is the top level tournament record fetched by slug.
type TournamentInfo struct {
	ID       int64
	Name     string
	Events   []EventSummary
	Stations []StationInfo
	IsAdmin  bool
}

type EventSummary struct {
	ID          int64
	Name        string
	NumEntrants int
}

// StationInfo is a station as known to the remote platform.
type StationInfo struct {
	ID     int64
	Number int
}

// Event is a single event with its phase tree, fetched by id.
type Event struct {
	ID          int64
	Name        string
	NumEntrants int
	Phases      []Phase
	VideogameID int64
}

type Phase struct {
	ID     int64
	Name   string
	Groups []PhaseGroup
}

// PhaseGroup is what operators call a pool.
type PhaseGroup struct {
	ID                int64
	DisplayIdentifier string
}

// Entrant is one participant of an event, with the Discord identity from the
// start.gg account authorizations when one is linked.
type Entrant struct {
	ID          int64
	Name        string
	DiscordID   string
	DiscordName string
}

type Character struct {
	ID   int64
	Name string
}

// Set is a single bracket set as returned by the sets query. Slots may hold
// nil entrants when the bracket has not resolved both sides yet.
type Set struct {
	ID            int64
	Identifier    string
	Round         int
	FullRoundText string
	Slots         []Slot
	HasStream     bool
	StationID     int64 // 0 when no station is assigned remotely
}

type Slot struct {
	Entrant *SetEntrant
}

type SetEntrant struct {
	ID   int64
	Name string
}

// Round is a distinct bracket round of a pool, used for best-of configuration.
type Round struct {
	Round         int
	FullRoundText string
}

// GameData is one reported game inside a set report. GameNum starts at 1.
type GameData struct {
	GameNum    int         `json:"gameNum"`
	WinnerID   int64       `json:"winnerId"`
	Selections []Selection `json:"selections,omitempty"`
}

// Selection is a per-player character pick attached to a game.
type Selection struct {
	EntrantID   int64 `json:"entrantId"`
	CharacterID int64 `json:"characterId"`
}
