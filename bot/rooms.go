/* rooms.go
 * Contains the Discord implementation of the engine's Messenger: private match channels with
 * player-only permission overwrites, plus the routing of !here and $report messages back into
 * the engine's prompt channels
 * Authors: Zachary Bower
 */

package bot

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/go-andiamo/splitter"

	"station-bot/api/manager"
	"station-bot/api/shared"
)

// roomState is the per-channel record of a live match room. The prompt
// channels are set by the engine and replaced per prompt; writes from the
// message handler are non-blocking so slow consumers can never stall Discord
// event dispatch.
type roomState struct {
	p1       shared.Player
	p2       shared.Player
	presence chan manager.PresenceConfirmation
	reports  chan manager.GameReport
}

// ChannelRooms implements manager.Messenger on top of Discord guild channels.
// The session is bound once at startup; Bind exists because the session only
// comes to life inside Run.
type ChannelRooms struct {
	mu         sync.Mutex
	session    DiscordSession
	guildID    string
	announceID string
	rooms      map[string]*roomState
}

// NewChannelRooms creates a ChannelRooms for one guild. announceChannelID is
// where operator announcements land; empty means log-only.
func NewChannelRooms(guildID, announceChannelID string) *ChannelRooms {
	return &ChannelRooms{
		guildID:    guildID,
		announceID: announceChannelID,
		rooms:      make(map[string]*roomState),
	}
}

// Bind attaches the live Discord session.
func (r *ChannelRooms) Bind(session DiscordSession) {
	r.mu.Lock()
	r.session = session
	r.mu.Unlock()
}

// CreateMatchRoom creates a text channel only the two players (and the bot)
// can see
// Preconditions: Receives context, the station number and both players
// Postconditions: Returns the channel id, or an error if Discord refused
func (r *ChannelRooms) CreateMatchRoom(ctx context.Context, station int, p1, p2 shared.Player) (string, error) {
	r.mu.Lock()
	session := r.session
	r.mu.Unlock()
	if session == nil {
		return "", fmt.Errorf("no discord session bound")
	}

	overwrites := []*discordgo.PermissionOverwrite{
		{
			// @everyone role id equals the guild id
			ID:   r.guildID,
			Type: discordgo.PermissionOverwriteTypeRole,
			Deny: discordgo.PermissionViewChannel,
		},
	}
	for _, p := range []shared.Player{p1, p2} {
		if p.DiscordID == "" {
			continue
		}
		overwrites = append(overwrites, &discordgo.PermissionOverwrite{
			ID:    p.DiscordID,
			Type:  discordgo.PermissionOverwriteTypeMember,
			Allow: discordgo.PermissionViewChannel | discordgo.PermissionSendMessages,
		})
	}

	channel, err := session.GuildChannelCreateComplex(r.guildID, discordgo.GuildChannelCreateData{
		Name:                 channelName(station, p1, p2),
		Type:                 discordgo.ChannelTypeGuildText,
		PermissionOverwrites: overwrites,
	})
	if err != nil {
		return "", fmt.Errorf("failed to create match channel: %w", err)
	}

	r.mu.Lock()
	r.rooms[channel.ID] = &roomState{p1: p1, p2: p2}
	r.mu.Unlock()
	return channel.ID, nil
}

// DeleteRoom removes the channel and drops its routing state.
func (r *ChannelRooms) DeleteRoom(roomID string) error {
	r.mu.Lock()
	session := r.session
	delete(r.rooms, roomID)
	r.mu.Unlock()
	if session == nil {
		return fmt.Errorf("no discord session bound")
	}
	_, err := session.ChannelDelete(roomID)
	return err
}

// Send posts a message into a match room.
func (r *ChannelRooms) Send(roomID, content string) error {
	r.mu.Lock()
	session := r.session
	r.mu.Unlock()
	if session == nil {
		return fmt.Errorf("no discord session bound")
	}
	_, err := session.ChannelMessageSend(roomID, content)
	return err
}

// Announce posts an operator-facing status line to the announcement channel.
func (r *ChannelRooms) Announce(content string) {
	r.mu.Lock()
	session := r.session
	announceID := r.announceID
	r.mu.Unlock()
	if session == nil || announceID == "" {
		log.Println(content)
		return
	}
	if _, err := session.ChannelMessageSend(announceID, content); err != nil {
		log.Printf("failed to announce: %v", err)
	}
}

// PromptPresence posts the confirmation instructions and registers the
// channel incoming !here messages are routed to.
func (r *ChannelRooms) PromptPresence(ctx context.Context, roomID string, p1, p2 shared.Player) (<-chan manager.PresenceConfirmation, error) {
	r.mu.Lock()
	rs, ok := r.rooms[roomID]
	if !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("unknown room %s", roomID)
	}
	ch := make(chan manager.PresenceConfirmation, 8)
	rs.presence = ch
	r.mu.Unlock()

	r.Send(roomID, "Both players must confirm presence by typing `!here`. A TO can confirm a slot with `!here 1` or `!here 2`.")
	return ch, nil
}

// PromptGameReport registers the channel incoming $report messages are routed
// to. Usage instructions are posted once, before game 1.
func (r *ChannelRooms) PromptGameReport(ctx context.Context, roomID string, gameNum int, p1, p2 shared.Player) (<-chan manager.GameReport, error) {
	r.mu.Lock()
	rs, ok := r.rooms[roomID]
	if !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("unknown room %s", roomID)
	}
	ch := make(chan manager.GameReport, 8)
	rs.reports = ch
	r.mu.Unlock()

	if gameNum == 1 {
		r.Send(roomID, "Report each game with `$report <1|2>` for the winning slot, optionally followed by both characters, e.g. `$report 1 \"fox\" \"falco\"`.")
	}
	return ch, nil
}

// HandleMessage routes one incoming Discord message. Returns true when the
// message belonged to a match room action; everything else falls through to
// the command handlers.
func (r *ChannelRooms) HandleMessage(channelID, authorID, content string) bool {
	r.mu.Lock()
	rs, ok := r.rooms[channelID]
	r.mu.Unlock()
	if !ok {
		return false
	}

	switch {
	case startsWith(content, "!here"):
		r.handlePresence(channelID, rs, authorID, content)
		return true
	case startsWith(content, "$report"):
		r.handleReport(channelID, rs, authorID, content)
		return true
	}
	return false
}

func (r *ChannelRooms) handlePresence(roomID string, rs *roomState, authorID, content string) {
	fields := strings.Fields(content)
	slot := 0
	if len(fields) > 1 {
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			r.Send(roomID, "Usage: `!here` or `!here <1|2>`")
			return
		}
		slot = n
	} else {
		// Without an explicit slot the author confirms themselves
		switch authorID {
		case rs.p1.DiscordID:
			slot = 1
		case rs.p2.DiscordID:
			slot = 2
		}
	}

	r.mu.Lock()
	ch := rs.presence
	r.mu.Unlock()
	if ch == nil {
		return
	}
	select {
	case ch <- manager.PresenceConfirmation{Slot: slot, By: r.identityOf(rs, authorID)}:
	default:
	}
}

func (r *ChannelRooms) handleReport(roomID string, rs *roomState, authorID, content string) {
	tokens, err := splitArgs(content)
	if err != nil || len(tokens) < 2 {
		r.Send(roomID, "Usage: `$report <1|2> [\"char1\" \"char2\"]`")
		return
	}
	slot, err := strconv.Atoi(tokens[1])
	if err != nil || (slot != 1 && slot != 2) {
		r.Send(roomID, "The winner must be slot 1 or 2")
		return
	}

	report := manager.GameReport{WinnerSlot: slot, By: r.identityOf(rs, authorID)}
	if len(tokens) >= 4 {
		report.P1Character = strings.Trim(tokens[2], `"`)
		report.P2Character = strings.Trim(tokens[3], `"`)
	}

	r.mu.Lock()
	ch := rs.reports
	r.mu.Unlock()
	if ch == nil {
		r.Send(roomID, "There is no game waiting for a report right now")
		return
	}
	select {
	case ch <- report:
	default:
	}
}

// identityOf maps a Discord author to the engine's player identity. Unknown
// authors pass through as-is and are rejected by the engine's policy checks.
func (r *ChannelRooms) identityOf(rs *roomState, authorID string) string {
	switch authorID {
	case rs.p1.DiscordID:
		return rs.p1.Identity()
	case rs.p2.DiscordID:
		return rs.p2.Identity()
	}
	return authorID
}

// channelName builds a Discord-safe channel name for a match room.
func channelName(station int, p1, p2 shared.Player) string {
	return fmt.Sprintf("station-%d-%s-vs-%s", station, slugify(p1.Name), slugify(p2.Name))
}

// slugify lowercases a player tag and strips everything Discord channel names
// reject.
func slugify(name string) string {
	var b strings.Builder
	lastDash := true
	for _, c := range strings.ToLower(name) {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			b.WriteRune(c)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// splitArgs splits a command line keeping double-quoted character names as
// single tokens.
func splitArgs(content string) ([]string, error) {
	spaceSplitter, err := splitter.NewSplitter(' ', splitter.DoubleQuotes, splitter.LeftRightDoubleDoubleQuotes)
	if err != nil {
		return nil, err
	}
	tokens, err := spaceSplitter.Split(content)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, tok := range tokens {
		if tok != "" {
			out = append(out, tok)
		}
	}
	return out, nil
}
