/* bot.go
 * Contains the Bot type: the Discord surface over the tournament context and the scheduling
 * engine. The tournament and engine are created by the $tournament command, not at startup,
 * so one process can serve consecutive tournaments
 * Authors: Zachary Bower
 */

package bot

import (
	"fmt"
	"sync"

	"station-bot/api/manager"
	"station-bot/api/startgg"
	"station-bot/api/tournament"
)

type Bot struct {
	BotToken          string
	GuildID           string
	AnnounceChannelID string

	client startgg.API
	rooms  *ChannelRooms
	opts   manager.Options

	mu   sync.Mutex
	tour *tournament.Tournament
	mgr  *manager.Manager
}

// NewBot creates a Bot bound to one guild
// Preconditions: Receives the bot token, guild id, announcement channel id, a start.gg client and engine options
// Postconditions: Returns pointer to a Bot, or an error for missing required configuration
func NewBot(botToken, guildID, announceChannelID string, client startgg.API, opts manager.Options) (*Bot, error) {
	if botToken == "" {
		return nil, fmt.Errorf("botToken is required but none was provided")
	}
	if guildID == "" {
		return nil, fmt.Errorf("guildID is required but none was provided")
	}

	return &Bot{
		BotToken:          botToken,
		GuildID:           guildID,
		AnnounceChannelID: announceChannelID,
		client:            client,
		rooms:             NewChannelRooms(guildID, announceChannelID),
		opts:              opts,
	}, nil
}

// Rooms exposes the room layer so the runtime can bind the live session.
func (b *Bot) Rooms() *ChannelRooms {
	return b.rooms
}

// engine returns the current engine, nil before $tournament was run.
func (b *Bot) engine() *manager.Manager {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.mgr
}

// context returns the current tournament, nil before $tournament was run.
func (b *Bot) tournament() *tournament.Tournament {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.tour
}

// EngineStatus returns the engine snapshot and tournament name for the web
// status endpoint. ok is false until a tournament is loaded.
func (b *Bot) EngineStatus() (manager.Status, string, bool) {
	b.mu.Lock()
	mgr, tour := b.mgr, b.tour
	b.mu.Unlock()
	if mgr == nil || tour == nil {
		return manager.Status{}, "", false
	}
	return mgr.Status(), tour.Name, true
}
