/* client.go
 * Contains the HTTP client used to talk to the start.gg GraphQL endpoint. The platform rate limits
 * at roughly 80 requests per minute, so every request goes through a shared limiter
 * Authors: Zachary Bower
 */

package startgg

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://api.start.gg/gql/alpha"

// entrantsMaxPages bounds the roster pagination loop for very large events.
const entrantsMaxPages = 100

// Client is the concrete start.gg GraphQL client. It implements the API
// interface consumed by the tournament and manager packages.
type Client struct {
	BaseURL    string
	apiKey     string
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a start.gg client using the provided bearer key
// Preconditions: Receives string containing a start.gg developer API key
// Postconditions: Returns pointer to a Client ready for use
func NewClient(apiKey string) *Client {
	return &Client{
		BaseURL: defaultBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		// Keep comfortably under the documented 80 req/min cap
		limiter: rate.NewLimiter(rate.Every(time.Minute/75), 5),
	}
}

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables"`
}

type gqlEnvelope struct {
	Data   json.RawMessage `json:"data"`
	Errors []struct {
		Message string `json:"message"`
	} `json:"errors"`
}

// do executes a single GraphQL request and decodes the data payload into out.
// A GraphQL-level errors array counts as a failed request: the caller must not
// assume any remote state changed.
func (c *Client) do(ctx context.Context, query string, variables map[string]any, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(gqlRequest{Query: query, Variables: variables})
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	request.Header.Set("Authorization", "Bearer "+c.apiKey)
	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer response.Body.Close()

	if response.StatusCode != http.StatusOK {
		io.Copy(io.Discard, response.Body)
		return fmt.Errorf("start.gg returned status %d", response.StatusCode)
	}

	var envelope gqlEnvelope
	if err := json.NewDecoder(response.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	if len(envelope.Errors) > 0 {
		msgs := make([]string, 0, len(envelope.Errors))
		for _, e := range envelope.Errors {
			msgs = append(msgs, e.Message)
		}
		return fmt.Errorf("start.gg error: %s", strings.Join(msgs, "; "))
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Data, out); err != nil {
			return fmt.Errorf("failed to decode data: %w", err)
		}
	}
	return nil
}

// rawSet is the wire shape of a set node, converted to the exported Set type.
type rawSet struct {
	ID            int64  `json:"id"`
	Identifier    string `json:"identifier"`
	Round         int    `json:"round"`
	FullRoundText string `json:"fullRoundText"`
	Slots         []struct {
		Entrant *struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		} `json:"entrant"`
	} `json:"slots"`
	Stream *struct {
		ID int64 `json:"id"`
	} `json:"stream"`
	Station *struct {
		ID int64 `json:"id"`
	} `json:"station"`
}

func (r rawSet) toSet() Set {
	s := Set{
		ID:            r.ID,
		Identifier:    r.Identifier,
		Round:         r.Round,
		FullRoundText: r.FullRoundText,
		HasStream:     r.Stream != nil,
	}
	if r.Station != nil {
		s.StationID = r.Station.ID
	}
	for _, slot := range r.Slots {
		out := Slot{}
		if slot.Entrant != nil {
			out.Entrant = &SetEntrant{ID: slot.Entrant.ID, Name: slot.Entrant.Name}
		}
		s.Slots = append(s.Slots, out)
	}
	return s
}

// GetTournament fetches the top level tournament record by slug
// Preconditions: Receives context and string containing the tournament slug
// Postconditions: Returns pointer to TournamentInfo, or an error if the slug is unknown or the request fails
func (c *Client) GetTournament(ctx context.Context, slug string) (*TournamentInfo, error) {
	var data struct {
		Tournament *struct {
			ID     int64  `json:"id"`
			Name   string `json:"name"`
			Events []struct {
				ID          int64  `json:"id"`
				Name        string `json:"name"`
				NumEntrants int    `json:"numEntrants"`
			} `json:"events"`
			Stations struct {
				Nodes []struct {
					ID     int64 `json:"id"`
					Number int   `json:"number"`
				} `json:"nodes"`
			} `json:"stations"`
			Admins []struct {
				Name string `json:"name"`
			} `json:"admins"`
		} `json:"tournament"`
	}
	if err := c.do(ctx, tournamentQuery, map[string]any{"slug": slug}, &data); err != nil {
		return nil, err
	}
	if data.Tournament == nil {
		return nil, fmt.Errorf("tournament with slug %q not found", slug)
	}

	info := &TournamentInfo{
		ID:      data.Tournament.ID,
		Name:    data.Tournament.Name,
		IsAdmin: data.Tournament.Admins != nil,
	}
	for _, e := range data.Tournament.Events {
		info.Events = append(info.Events, EventSummary{ID: e.ID, Name: e.Name, NumEntrants: e.NumEntrants})
	}
	for _, s := range data.Tournament.Stations.Nodes {
		info.Stations = append(info.Stations, StationInfo{ID: s.ID, Number: s.Number})
	}
	return info, nil
}

// GetEvent fetches an event with its phase tree and videogame id
// Preconditions: Receives context and the event id
// Postconditions: Returns pointer to Event, or an error if it occurs
func (c *Client) GetEvent(ctx context.Context, eventID int64) (*Event, error) {
	var data struct {
		Event *struct {
			ID          int64  `json:"id"`
			Name        string `json:"name"`
			NumEntrants int    `json:"numEntrants"`
			Phases      []struct {
				ID          int64  `json:"id"`
				Name        string `json:"name"`
				PhaseGroups struct {
					Nodes []struct {
						ID                int64  `json:"id"`
						DisplayIdentifier string `json:"displayIdentifier"`
					} `json:"nodes"`
				} `json:"phaseGroups"`
			} `json:"phases"`
			Videogame struct {
				ID int64 `json:"id"`
			} `json:"videogame"`
		} `json:"event"`
	}
	if err := c.do(ctx, eventPhasesQuery, map[string]any{"eventId": eventID}, &data); err != nil {
		return nil, err
	}
	if data.Event == nil {
		return nil, fmt.Errorf("event %d not found", eventID)
	}

	event := &Event{
		ID:          data.Event.ID,
		Name:        data.Event.Name,
		NumEntrants: data.Event.NumEntrants,
		VideogameID: data.Event.Videogame.ID,
	}
	for _, p := range data.Event.Phases {
		phase := Phase{ID: p.ID, Name: p.Name}
		for _, g := range p.PhaseGroups.Nodes {
			phase.Groups = append(phase.Groups, PhaseGroup{ID: g.ID, DisplayIdentifier: g.DisplayIdentifier})
		}
		event.Phases = append(event.Phases, phase)
	}
	return event, nil
}

// GetEntrants fetches the full roster of an event, following pagination until an empty page
// Preconditions: Receives context and the event id
// Postconditions: Returns slice of Entrant with Discord identities resolved where linked, or an error if it occurs
func (c *Client) GetEntrants(ctx context.Context, eventID int64) ([]Entrant, error) {
	var all []Entrant
	for page := 1; page <= entrantsMaxPages; page++ {
		var data struct {
			Event *struct {
				Entrants struct {
					Nodes []struct {
						ID           int64  `json:"id"`
						Name         string `json:"name"`
						Participants []struct {
							User *struct {
								Authorizations []struct {
									ExternalID       string `json:"externalId"`
									ExternalUsername string `json:"externalUsername"`
									Type             string `json:"type"`
								} `json:"authorizations"`
							} `json:"user"`
						} `json:"participants"`
					} `json:"nodes"`
				} `json:"entrants"`
			} `json:"event"`
		}
		vars := map[string]any{"eventId": eventID, "pageNumber": page}
		if err := c.do(ctx, eventEntrantsQuery, vars, &data); err != nil {
			return nil, err
		}
		if data.Event == nil || len(data.Event.Entrants.Nodes) == 0 {
			break
		}
		for _, node := range data.Event.Entrants.Nodes {
			entrant := Entrant{ID: node.ID, Name: node.Name}
			if len(node.Participants) > 0 && node.Participants[0].User != nil {
				for _, auth := range node.Participants[0].User.Authorizations {
					if auth.Type == "DISCORD" {
						entrant.DiscordID = auth.ExternalID
						entrant.DiscordName = auth.ExternalUsername
					}
				}
			}
			all = append(all, entrant)
		}
	}
	if all == nil {
		return nil, fmt.Errorf("no entrants found for event %d", eventID)
	}
	return all, nil
}

// GetCharacters fetches the character list for a videogame
// Preconditions: Receives context and the videogame id
// Postconditions: Returns slice of Character, or an error if it occurs
func (c *Client) GetCharacters(ctx context.Context, videogameID int64) ([]Character, error) {
	var data struct {
		Videogame *struct {
			Characters []struct {
				ID   int64  `json:"id"`
				Name string `json:"name"`
			} `json:"characters"`
		} `json:"videogame"`
	}
	if err := c.do(ctx, charactersQuery, map[string]any{"id": videogameID}, &data); err != nil {
		return nil, err
	}
	if data.Videogame == nil {
		return nil, fmt.Errorf("videogame %d not found", videogameID)
	}
	var chars []Character
	for _, ch := range data.Videogame.Characters {
		chars = append(chars, Character{ID: ch.ID, Name: ch.Name})
	}
	return chars, nil
}

// GetSets fetches the sets of a pool filtered by state
// Preconditions: Receives context, event, phase and phase group ids and the set states to filter on
// Postconditions: Returns slice of Set in the order the platform returned them, or an error if it occurs
func (c *Client) GetSets(ctx context.Context, eventID, phaseID, groupID int64, states []int) ([]Set, error) {
	var data struct {
		Event *struct {
			Phases []struct {
				Sets struct {
					Nodes []rawSet `json:"nodes"`
				} `json:"sets"`
			} `json:"phases"`
		} `json:"event"`
	}
	vars := map[string]any{
		"eventId":      eventID,
		"phaseId":      phaseID,
		"phaseGroupId": groupID,
		"state":        states,
	}
	if err := c.do(ctx, phaseSetsQuery, vars, &data); err != nil {
		return nil, err
	}
	if data.Event == nil || len(data.Event.Phases) == 0 {
		return nil, fmt.Errorf("no sets found for phase %d", phaseID)
	}
	var sets []Set
	for _, raw := range data.Event.Phases[0].Sets.Nodes {
		sets = append(sets, raw.toSet())
	}
	return sets, nil
}

// GetRounds fetches every set round of a pool; callers dedupe as needed
// Preconditions: Receives context, event, phase and phase group ids
// Postconditions: Returns slice of Round, or an error if it occurs
func (c *Client) GetRounds(ctx context.Context, eventID, phaseID, groupID int64) ([]Round, error) {
	var data struct {
		Event *struct {
			Phases []struct {
				Sets struct {
					Nodes []struct {
						Round         int    `json:"round"`
						FullRoundText string `json:"fullRoundText"`
					} `json:"nodes"`
				} `json:"sets"`
			} `json:"phases"`
		} `json:"event"`
	}
	vars := map[string]any{"eventId": eventID, "phaseId": phaseID, "phaseGroupId": groupID}
	if err := c.do(ctx, phaseRoundsQuery, vars, &data); err != nil {
		return nil, err
	}
	if data.Event == nil || len(data.Event.Phases) == 0 {
		return nil, fmt.Errorf("no rounds found for phase %d", phaseID)
	}
	var rounds []Round
	for _, node := range data.Event.Phases[0].Sets.Nodes {
		rounds = append(rounds, Round{Round: node.Round, FullRoundText: node.FullRoundText})
	}
	return rounds, nil
}

// ReportSet submits the full game-by-game score of a set in one call
// Preconditions: Receives context, set id, the winning entrant id and the accumulated game list
// Postconditions: Returns nil on success, or an error if it occurs
func (c *Client) ReportSet(ctx context.Context, setID, winnerID int64, games []GameData) error {
	vars := map[string]any{"setId": setID, "winnerId": winnerID, "gameData": games}
	return c.do(ctx, reportSetMutation, vars, nil)
}

// MarkSetCalled flags a set as called, i.e. waiting on its players
func (c *Client) MarkSetCalled(ctx context.Context, setID int64) error {
	return c.do(ctx, markSetCalledMutation, map[string]any{"setId": setID}, nil)
}

// MarkSetInProgress flags a set as started. The platform tolerates repeated calls
func (c *Client) MarkSetInProgress(ctx context.Context, setID int64) error {
	return c.do(ctx, markSetInProgressMutation, map[string]any{"setId": setID}, nil)
}

// AssignStation binds a set to a station on the remote platform
func (c *Client) AssignStation(ctx context.Context, setID, stationID int64) error {
	vars := map[string]any{"setId": setID, "stationId": stationID}
	return c.do(ctx, assignStationMutation, vars, nil)
}

// CreateStation creates a numbered station under the tournament
// Preconditions: Receives context, tournament id and the operator facing station number
// Postconditions: Returns the remote station id, or an error if the platform issued none
func (c *Client) CreateStation(ctx context.Context, tournamentID int64, number int) (int64, error) {
	var data struct {
		UpsertStation *struct {
			ID int64 `json:"id"`
		} `json:"upsertStation"`
	}
	vars := map[string]any{
		"tournamentId": tournamentID,
		"fields":       map[string]any{"number": number},
	}
	if err := c.do(ctx, upsertStationMutation, vars, &data); err != nil {
		return 0, err
	}
	if data.UpsertStation == nil || data.UpsertStation.ID == 0 {
		return 0, fmt.Errorf("start.gg returned no id for station %d", number)
	}
	return data.UpsertStation.ID, nil
}

// DeleteStation removes a station from the remote platform
func (c *Client) DeleteStation(ctx context.Context, stationID int64) error {
	return c.do(ctx, deleteStationMutation, map[string]any{"stationId": stationID}, nil)
}

// ResetSet resets a set back to its initial state on the remote platform
func (c *Client) ResetSet(ctx context.Context, setID int64) error {
	return c.do(ctx, resetSetMutation, map[string]any{"setId": setID}, nil)
}

// DisqualifyEntrant awards a set to winnerID without game data, the platform
// records the opponent as disqualified
func (c *Client) DisqualifyEntrant(ctx context.Context, setID, winnerID int64) error {
	vars := map[string]any{"setId": setID, "winnerId": winnerID, "gameData": []GameData{}}
	return c.do(ctx, reportSetMutation, vars, nil)
}
