/* handlers_test.go
 * Contains tests for the command handlers using the MockDiscordSession
 * Authors: Zachary Bower
 */

package bot

import (
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"station-bot/api/manager"
	"station-bot/api/startgg"
)

const testBotUserID = "bot-user"

func newTestAPI() *manager.MockAPI {
	api := manager.NewMockAPI()
	api.Tournament = &startgg.TournamentInfo{
		ID:   1,
		Name: "Genesis",
		Events: []startgg.EventSummary{
			{ID: 10, Name: "Melee Singles", NumEntrants: 4},
		},
	}
	api.Event = &startgg.Event{
		ID:          10,
		Name:        "Melee Singles",
		VideogameID: 1,
		Phases: []startgg.Phase{
			{ID: 100, Name: "Bracket", Groups: []startgg.PhaseGroup{{ID: 1000, DisplayIdentifier: "A1"}}},
		},
	}
	api.Entrants = []startgg.Entrant{
		{ID: 101, Name: "Mango", DiscordID: "d1", DiscordName: "mango"},
		{ID: 102, Name: "Armada", DiscordID: "d2", DiscordName: "armada"},
	}
	api.Characters = []startgg.Character{{ID: 1, Name: "Fox"}, {ID: 2, Name: "Falco"}}
	return api
}

func newTestBot(t *testing.T, api *manager.MockAPI) (*Bot, *MockDiscordSession) {
	t.Helper()
	opts := manager.DefaultOptions()
	opts.PollInterval = 5 * time.Millisecond
	b, err := NewBot("token", "guild-1", "announce-1", api, opts)
	require.NoError(t, err)
	session := NewMockDiscordSession()
	b.Rooms().Bind(session)
	return b, session
}

func msg(channelID, authorID, content string) *discordgo.MessageCreate {
	return &discordgo.MessageCreate{
		Message: &discordgo.Message{
			ChannelID: channelID,
			Content:   content,
			Author:    &discordgo.User{ID: authorID, Username: "user-" + authorID},
		},
	}
}

func send(b *Bot, session *MockDiscordSession, content string) {
	b.newMessageHandler(session, msg("ops", "operator", content), testBotUserID)
}

func TestSelfMessagesIgnored(t *testing.T) {
	b, session := newTestBot(t, newTestAPI())
	b.newMessageHandler(session, msg("ops", testBotUserID, "$help"), testBotUserID)
	assert.Empty(t, session.SentMessages)
}

func TestHelpHandler(t *testing.T) {
	b, session := newTestBot(t, newTestAPI())
	send(b, session, "$help")
	last := session.GetLastMessage()
	assert.Equal(t, "ops", last.ChannelID)
	assert.Contains(t, last.Content, "$tournament")
	assert.Contains(t, last.Content, "$report")
}

func TestCommandsRequireTournament(t *testing.T) {
	b, session := newTestBot(t, newTestAPI())
	for _, cmd := range []string{"$event melee", "$init", "$status", "$stations", "$start"} {
		session.ClearMessages()
		send(b, session, cmd)
		assert.Contains(t, session.GetLastMessage().Content, "Load a tournament first", "command %s", cmd)
	}
}

func TestTournamentSetupFlow(t *testing.T) {
	b, session := newTestBot(t, newTestAPI())

	send(b, session, "$tournament genesis")
	last := session.GetLastMessage().Content
	assert.Contains(t, last, "Loaded Genesis")
	assert.Contains(t, last, "Melee Singles")

	send(b, session, "$event melee-singles")
	last = session.GetLastMessage().Content
	assert.Contains(t, last, "Event Melee Singles selected")
	assert.Contains(t, last, "100: Bracket")

	send(b, session, "$phase 100")
	last = session.GetLastMessage().Content
	assert.Contains(t, last, "Phase Bracket selected")
	assert.Contains(t, last, "1000: pool A1")

	send(b, session, "$pool 1000")
	assert.Contains(t, session.GetLastMessage().Content, "Pool A1 selected")

	send(b, session, "$bestof 3 3 -2")
	assert.Contains(t, session.GetLastMessage().Content, "bo5 from winners round 3 and losers round -2")

	send(b, session, "$createstations 2")
	assert.Contains(t, session.GetLastMessage().Content, "Created 2 station(s)")

	send(b, session, "$stations")
	last = session.GetLastMessage().Content
	assert.Contains(t, last, "1: free")
	assert.Contains(t, last, "2: free")

	send(b, session, "$init")
	assert.Contains(t, session.GetLastMessage().Content, "0 match(es) queued")

	_, name, ok := b.EngineStatus()
	require.True(t, ok)
	assert.Equal(t, "Genesis", name)
}

func TestBestOfWithoutArgsListsRounds(t *testing.T) {
	api := newTestAPI()
	api.Rounds = []startgg.Round{
		{Round: 1, FullRoundText: "Winners Round 1"},
		{Round: -1, FullRoundText: "Losers Round 1"},
	}
	b, session := newTestBot(t, api)

	send(b, session, "$tournament genesis")
	send(b, session, "$event melee-singles")
	send(b, session, "$phase 100")
	send(b, session, "$pool 1000")

	send(b, session, "$bestof")
	last := session.GetLastMessage().Content
	assert.Contains(t, last, "Winners Round 1")
	assert.Contains(t, last, "Losers Round 1")
}

func TestStatusHandler(t *testing.T) {
	api := newTestAPI()
	api.Sets = []startgg.Set{
		{
			ID:            1,
			Round:         1,
			FullRoundText: "Winners Round 1",
			Slots: []startgg.Slot{
				{Entrant: &startgg.SetEntrant{ID: 101, Name: "Mango"}},
				{Entrant: &startgg.SetEntrant{ID: 102, Name: "Armada"}},
			},
		},
	}
	b, session := newTestBot(t, api)

	send(b, session, "$tournament genesis")
	send(b, session, "$event melee-singles")
	send(b, session, "$phase 100")
	send(b, session, "$pool 1000")
	send(b, session, "$createstations 1")
	send(b, session, "$init")
	assert.Contains(t, session.GetLastMessage().Content, "1 match(es) queued")

	send(b, session, "$assign 1 1")
	assert.Contains(t, session.GetLastMessage().Content, "Set 1 assigned to station 1")

	send(b, session, "$status")
	last := session.GetLastMessage().Content
	assert.Contains(t, last, "Processing: stopped")
	assert.Contains(t, last, "active: 1")
	assert.Contains(t, last, "Station 1: Mango 0 - 0 Armada")

	send(b, session, "$free 1")
	assert.Contains(t, session.GetLastMessage().Content, "Station 1 freed")
}

func TestTournamentSwitchBlockedWhileRunning(t *testing.T) {
	api := newTestAPI()
	api.Sets = []startgg.Set{
		{
			ID:    1,
			Round: 1,
			Slots: []startgg.Slot{
				{Entrant: &startgg.SetEntrant{ID: 101, Name: "Mango"}},
				{Entrant: &startgg.SetEntrant{ID: 102, Name: "Armada"}},
			},
		},
	}
	b, session := newTestBot(t, api)

	send(b, session, "$tournament genesis")
	send(b, session, "$event melee-singles")
	send(b, session, "$phase 100")
	send(b, session, "$pool 1000")
	send(b, session, "$start")
	assert.Contains(t, session.GetLastMessage().Content, "Match processing started")

	send(b, session, "$tournament genesis")
	assert.Contains(t, session.GetLastMessage().Content, "Stop match processing")

	send(b, session, "$stop")
	assert.Contains(t, session.GetLastMessage().Content, "Match processing stopped")
}

func TestBadNumericArguments(t *testing.T) {
	b, session := newTestBot(t, newTestAPI())
	send(b, session, "$tournament genesis")

	send(b, session, "$phase abc")
	assert.Contains(t, session.GetLastMessage().Content, "Usage")

	send(b, session, "$createstations lots")
	assert.Contains(t, session.GetLastMessage().Content, "Usage")

	send(b, session, "$assign 1")
	assert.Contains(t, session.GetLastMessage().Content, "Usage")
}
