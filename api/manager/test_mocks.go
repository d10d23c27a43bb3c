/* test_mocks.go
 * Contains mock implementations of the remote platform and the Messenger for testing the engine
 * and its consumers
 * Authors: Zachary Bower
 */

package manager

import (
	"context"
	"fmt"
	"sync"
	"time"

	"station-bot/api/shared"
	"station-bot/api/startgg"
)

// MockAPI implements startgg.API against in-memory fixtures, with per-method
// error injection and call recording. Safe for concurrent use.
type MockAPI struct {
	mu sync.Mutex

	Tournament *startgg.TournamentInfo
	Event      *startgg.Event
	Entrants   []startgg.Entrant
	Characters []startgg.Character
	Sets       []startgg.Set
	Rounds     []startgg.Round

	NextStationID int64

	GetTournamentError error
	GetEventError      error
	GetEntrantsError   error
	GetCharactersError error
	GetSetsError       error
	GetRoundsError     error
	ReportSetError     error
	MarkCalledError    error
	MarkStartedError   error
	AssignStationError error
	CreateStationError error
	DeleteStationError error
	ResetSetError      error
	DisqualifyError    error

	GetSetsCalls      int
	ReportSetCalls    []ReportSetCall
	DisqualifyCalls   []DisqualifyCall
	AssignedStations  map[int64]int64 // set id -> station id
	CalledSets        []int64
	StartedSets       []int64
	ResetSets         []int64
	DeletedStationIDs []int64
}

type ReportSetCall struct {
	SetID    int64
	WinnerID int64
	Games    []startgg.GameData
}

type DisqualifyCall struct {
	SetID    int64
	WinnerID int64
}

// NewMockAPI creates a MockAPI with empty fixtures.
func NewMockAPI() *MockAPI {
	return &MockAPI{
		NextStationID:    9000,
		AssignedStations: make(map[int64]int64),
	}
}

func (m *MockAPI) GetTournament(ctx context.Context, slug string) (*startgg.TournamentInfo, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetTournamentError != nil {
		return nil, m.GetTournamentError
	}
	if m.Tournament == nil {
		return nil, fmt.Errorf("tournament with slug %q not found", slug)
	}
	return m.Tournament, nil
}

func (m *MockAPI) GetEvent(ctx context.Context, eventID int64) (*startgg.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetEventError != nil {
		return nil, m.GetEventError
	}
	if m.Event == nil || m.Event.ID != eventID {
		return nil, fmt.Errorf("event %d not found", eventID)
	}
	return m.Event, nil
}

func (m *MockAPI) GetEntrants(ctx context.Context, eventID int64) ([]startgg.Entrant, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetEntrantsError != nil {
		return nil, m.GetEntrantsError
	}
	return m.Entrants, nil
}

func (m *MockAPI) GetCharacters(ctx context.Context, videogameID int64) ([]startgg.Character, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetCharactersError != nil {
		return nil, m.GetCharactersError
	}
	return m.Characters, nil
}

func (m *MockAPI) GetSets(ctx context.Context, eventID, phaseID, groupID int64, states []int) ([]startgg.Set, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetSetsCalls++
	if m.GetSetsError != nil {
		return nil, m.GetSetsError
	}
	out := make([]startgg.Set, len(m.Sets))
	copy(out, m.Sets)
	return out, nil
}

func (m *MockAPI) GetRounds(ctx context.Context, eventID, phaseID, groupID int64) ([]startgg.Round, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetRoundsError != nil {
		return nil, m.GetRoundsError
	}
	return m.Rounds, nil
}

func (m *MockAPI) ReportSet(ctx context.Context, setID, winnerID int64, games []startgg.GameData) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ReportSetError != nil {
		return m.ReportSetError
	}
	recorded := make([]startgg.GameData, len(games))
	copy(recorded, games)
	m.ReportSetCalls = append(m.ReportSetCalls, ReportSetCall{SetID: setID, WinnerID: winnerID, Games: recorded})
	return nil
}

func (m *MockAPI) MarkSetCalled(ctx context.Context, setID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.MarkCalledError != nil {
		return m.MarkCalledError
	}
	m.CalledSets = append(m.CalledSets, setID)
	return nil
}

func (m *MockAPI) MarkSetInProgress(ctx context.Context, setID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.MarkStartedError != nil {
		return m.MarkStartedError
	}
	m.StartedSets = append(m.StartedSets, setID)
	return nil
}

func (m *MockAPI) AssignStation(ctx context.Context, setID, stationID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.AssignStationError != nil {
		return m.AssignStationError
	}
	m.AssignedStations[setID] = stationID
	return nil
}

func (m *MockAPI) CreateStation(ctx context.Context, tournamentID int64, number int) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateStationError != nil {
		return 0, m.CreateStationError
	}
	m.NextStationID++
	return m.NextStationID, nil
}

func (m *MockAPI) DeleteStation(ctx context.Context, stationID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DeleteStationError != nil {
		return m.DeleteStationError
	}
	m.DeletedStationIDs = append(m.DeletedStationIDs, stationID)
	return nil
}

func (m *MockAPI) ResetSet(ctx context.Context, setID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ResetSetError != nil {
		return m.ResetSetError
	}
	m.ResetSets = append(m.ResetSets, setID)
	return nil
}

func (m *MockAPI) DisqualifyEntrant(ctx context.Context, setID, winnerID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.DisqualifyError != nil {
		return m.DisqualifyError
	}
	m.DisqualifyCalls = append(m.DisqualifyCalls, DisqualifyCall{SetID: setID, WinnerID: winnerID})
	return nil
}

// Ensure MockAPI implements startgg.API
var _ startgg.API = (*MockAPI)(nil)

// MockMessenger implements Messenger in memory. Prompts hand out buffered
// channels tests can feed through the inbox helpers.
type MockMessenger struct {
	mu sync.Mutex

	CreatedRooms  []string
	DeletedRooms  []string
	Messages      map[string][]string
	Announcements []string

	CreateRoomError error

	nextRoom int
	presence map[string]chan PresenceConfirmation
	reports  map[string]chan GameReport
}

// NewMockMessenger creates an empty MockMessenger.
func NewMockMessenger() *MockMessenger {
	return &MockMessenger{
		Messages: make(map[string][]string),
		presence: make(map[string]chan PresenceConfirmation),
		reports:  make(map[string]chan GameReport),
	}
}

func (m *MockMessenger) CreateMatchRoom(ctx context.Context, station int, p1, p2 shared.Player) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateRoomError != nil {
		return "", m.CreateRoomError
	}
	m.nextRoom++
	roomID := fmt.Sprintf("room-%d", m.nextRoom)
	m.CreatedRooms = append(m.CreatedRooms, roomID)
	return roomID, nil
}

func (m *MockMessenger) DeleteRoom(roomID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeletedRooms = append(m.DeletedRooms, roomID)
	return nil
}

func (m *MockMessenger) Send(roomID, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages[roomID] = append(m.Messages[roomID], content)
	return nil
}

func (m *MockMessenger) Announce(content string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Announcements = append(m.Announcements, content)
}

func (m *MockMessenger) PromptPresence(ctx context.Context, roomID string, p1, p2 shared.Player) (<-chan PresenceConfirmation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan PresenceConfirmation, 8)
	m.presence[roomID] = ch
	return ch, nil
}

func (m *MockMessenger) PromptGameReport(ctx context.Context, roomID string, gameNum int, p1, p2 shared.Player) (<-chan GameReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch := make(chan GameReport, 8)
	m.reports[roomID] = ch
	return ch, nil
}

// PresenceInbox polls until the presence prompt for roomID is registered and
// returns its channel. Fails open with nil after one second.
func (m *MockMessenger) PresenceInbox(roomID string) chan PresenceConfirmation {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		m.mu.Lock()
		ch := m.presence[roomID]
		m.mu.Unlock()
		if ch != nil {
			return ch
		}
		time.Sleep(2 * time.Millisecond)
	}
	return nil
}

// ReportInbox polls until a game-report prompt for roomID is registered.
func (m *MockMessenger) ReportInbox(roomID string) chan GameReport {
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		m.mu.Lock()
		ch := m.reports[roomID]
		m.mu.Unlock()
		if ch != nil {
			return ch
		}
		time.Sleep(2 * time.Millisecond)
	}
	return nil
}

// ClearReportInbox drops the registered report prompt so the next prompt can
// be awaited distinctly.
func (m *MockMessenger) ClearReportInbox(roomID string) {
	m.mu.Lock()
	delete(m.reports, roomID)
	m.mu.Unlock()
}

// DeletedRoomsSnapshot returns a copy of the rooms deleted so far.
func (m *MockMessenger) DeletedRoomsSnapshot() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.DeletedRooms))
	copy(out, m.DeletedRooms)
	return out
}

// AnnouncementCount returns how many operator announcements were made.
func (m *MockMessenger) AnnouncementCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Announcements)
}

// AnnouncementsSnapshot returns a copy of the announcements so far.
func (m *MockMessenger) AnnouncementsSnapshot() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Announcements))
	copy(out, m.Announcements)
	return out
}

// RoomMessages returns a copy of the messages sent to one room.
func (m *MockMessenger) RoomMessages(roomID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.Messages[roomID]))
	copy(out, m.Messages[roomID])
	return out
}

// Ensure MockMessenger implements Messenger
var _ Messenger = (*MockMessenger)(nil)
