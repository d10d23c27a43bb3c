/* interface.go
 * Contains the API interface implemented by Client. Consumers depend on this interface so tests can
 * substitute a mock remote platform
 * Authors: Zachary Bower
 */

package startgg

import "context"

// API defines the remote bracket-platform calls the application makes. Every
// call may fail; a returned error means the request did not take effect and
// callers must not assume any remote state changed.
type API interface {
	GetTournament(ctx context.Context, slug string) (*TournamentInfo, error)
	GetEvent(ctx context.Context, eventID int64) (*Event, error)
	GetEntrants(ctx context.Context, eventID int64) ([]Entrant, error)
	GetCharacters(ctx context.Context, videogameID int64) ([]Character, error)
	GetSets(ctx context.Context, eventID, phaseID, groupID int64, states []int) ([]Set, error)
	GetRounds(ctx context.Context, eventID, phaseID, groupID int64) ([]Round, error)

	ReportSet(ctx context.Context, setID, winnerID int64, games []GameData) error
	MarkSetCalled(ctx context.Context, setID int64) error
	MarkSetInProgress(ctx context.Context, setID int64) error
	AssignStation(ctx context.Context, setID, stationID int64) error
	CreateStation(ctx context.Context, tournamentID int64, number int) (int64, error)
	DeleteStation(ctx context.Context, stationID int64) error
	ResetSet(ctx context.Context, setID int64) error
	DisqualifyEntrant(ctx context.Context, setID, winnerID int64) error
}

// Ensure Client implements API
var _ API = (*Client)(nil)
