/* handlers.go
 * Contains testable handler methods that accept DiscordSession interface
 * Authors: Zachary Bower
 * AI-Generated: Extracted runtime functionality from bot.go
 */

package bot

import (
	"context"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/bwmarrin/discordgo"

	"station-bot/api/manager"
	"station-bot/api/tournament"
)

// helpHandler handles the $help command with a DiscordSession interface
func (b *Bot) helpHandler(session DiscordSession, message *discordgo.MessageCreate) {
	var res strings.Builder
	res.WriteString("Station Bot\n")
	res.WriteString("`$tournament <slug>`: loads a start.gg tournament and lists its events\n")
	res.WriteString("`$event <name>`: selects an event by name, hyphens work as spaces (e.g. melee-singles)\n")
	res.WriteString("`$phase <id>`: selects a phase of the event\n")
	res.WriteString("`$pool <id>`: selects a pool of the phase\n")
	res.WriteString("`$bestof <n> [winnersRound losersRound]`: flat best-of, or bo5 thresholds per bracket side. Run without arguments to list the pool's rounds\n")
	res.WriteString("`$stations`: lists stations and who is on them\n")
	res.WriteString("`$createstations <count>`: creates stations numbered 1 to count\n")
	res.WriteString("`$deletestation <number>`: deletes a free station\n")
	res.WriteString("`$init`: loads the pool's unplayed matches into the queue\n")
	res.WriteString("`$start` / `$stop`: starts or stops automatic match processing\n")
	res.WriteString("`$refresh`: pulls newly available matches into the queue\n")
	res.WriteString("`$status`: shows the queue and every station\n")
	res.WriteString("`$assign <setId> <station>`: manually puts a queued match on a station\n")
	res.WriteString("`$free <station>`: force frees a station and unlocks its players\n")
	res.WriteString("`$reset`: resets every active set on start.gg and clears the engine\n")
	res.WriteString("Inside a match room players use `!here` to confirm presence and `$report <1|2> [\"char1\" \"char2\"]` to report games\n")
	session.ChannelMessageSend(message.ChannelID, res.String())
}

// tournamentHandler handles the $tournament command with a DiscordSession interface
func (b *Bot) tournamentHandler(session DiscordSession, message *discordgo.MessageCreate) {
	args := commandArgs(message.Content)
	if len(args) < 1 {
		session.ChannelMessageSend(message.ChannelID, "Usage: `$tournament <slug>`")
		return
	}

	b.mu.Lock()
	if b.mgr != nil && b.mgr.Running() {
		b.mu.Unlock()
		session.ChannelMessageSend(message.ChannelID, "Stop match processing with $stop before switching tournaments")
		return
	}
	b.mu.Unlock()

	tour, err := tournament.New(context.Background(), b.client, args[0])
	if err != nil {
		log.Println(err)
		session.ChannelMessageSend(message.ChannelID, fmt.Sprintf("Could not load tournament %q", args[0]))
		return
	}

	b.mu.Lock()
	b.tour = tour
	b.mgr = manager.New(tour, b.rooms, b.opts)
	b.mu.Unlock()

	var res strings.Builder
	res.WriteString(fmt.Sprintf("Loaded %s\nEvents:\n", tour.Name))
	for _, e := range tour.Events {
		res.WriteString(fmt.Sprintf("- %s (%d entrants)\n", e.Name, e.NumEntrants))
	}
	res.WriteString("Select one with `$event <name>`")
	session.ChannelMessageSend(message.ChannelID, res.String())
}

// eventHandler handles the $event command with a DiscordSession interface
func (b *Bot) eventHandler(session DiscordSession, message *discordgo.MessageCreate) {
	tour := b.requireTournament(session, message)
	if tour == nil {
		return
	}
	args := commandArgs(message.Content)
	if len(args) < 1 {
		session.ChannelMessageSend(message.ChannelID, "Usage: `$event <name>`")
		return
	}

	if err := tour.SelectEventByName(context.Background(), strings.Join(args, " ")); err != nil {
		log.Println(err)
		session.ChannelMessageSend(message.ChannelID, err.Error())
		return
	}

	event := tour.SelectedEvent()
	var res strings.Builder
	res.WriteString(fmt.Sprintf("Event %s selected\nPhases:\n", event.Name))
	for _, p := range event.Phases {
		res.WriteString(fmt.Sprintf("- %d: %s\n", p.ID, p.Name))
	}
	res.WriteString("Select one with `$phase <id>`")
	session.ChannelMessageSend(message.ChannelID, res.String())
}

// phaseHandler handles the $phase command with a DiscordSession interface
func (b *Bot) phaseHandler(session DiscordSession, message *discordgo.MessageCreate) {
	tour := b.requireTournament(session, message)
	if tour == nil {
		return
	}
	id, ok := int64Arg(session, message, "Usage: `$phase <id>`")
	if !ok {
		return
	}

	if err := tour.SelectPhase(id); err != nil {
		session.ChannelMessageSend(message.ChannelID, err.Error())
		return
	}

	phase := tour.SelectedPhase()
	var res strings.Builder
	res.WriteString(fmt.Sprintf("Phase %s selected\nPools:\n", phase.Name))
	for _, g := range phase.Groups {
		res.WriteString(fmt.Sprintf("- %d: pool %s\n", g.ID, g.DisplayIdentifier))
	}
	res.WriteString("Select one with `$pool <id>`")
	session.ChannelMessageSend(message.ChannelID, res.String())
}

// poolHandler handles the $pool command with a DiscordSession interface
func (b *Bot) poolHandler(session DiscordSession, message *discordgo.MessageCreate) {
	tour := b.requireTournament(session, message)
	if tour == nil {
		return
	}
	id, ok := int64Arg(session, message, "Usage: `$pool <id>`")
	if !ok {
		return
	}

	if err := tour.SelectPool(id); err != nil {
		session.ChannelMessageSend(message.ChannelID, err.Error())
		return
	}
	session.ChannelMessageSend(message.ChannelID, fmt.Sprintf("Pool %s selected. Run `$init` to load its matches", tour.SelectedPool().DisplayIdentifier))
}

// bestOfHandler handles the $bestof command with a DiscordSession interface
func (b *Bot) bestOfHandler(session DiscordSession, message *discordgo.MessageCreate) {
	tour := b.requireTournament(session, message)
	if tour == nil {
		return
	}
	args := commandArgs(message.Content)

	// Without arguments, list the pool's rounds to pick thresholds from
	if len(args) == 0 {
		rounds, err := tour.Rounds(context.Background())
		if err != nil {
			session.ChannelMessageSend(message.ChannelID, err.Error())
			return
		}
		var res strings.Builder
		res.WriteString("Rounds in this pool:\n")
		for _, r := range rounds {
			res.WriteString(fmt.Sprintf("- %d: %s\n", r.Round, r.FullRoundText))
		}
		res.WriteString("Configure with `$bestof <n>` or `$bestof <n> <winnersRound> <losersRound>`")
		session.ChannelMessageSend(message.ChannelID, res.String())
		return
	}

	n, err := strconv.Atoi(args[0])
	if err != nil {
		session.ChannelMessageSend(message.ChannelID, "Usage: `$bestof <n> [winnersRound losersRound]`")
		return
	}

	if len(args) >= 3 {
		w, errW := strconv.Atoi(args[1])
		l, errL := strconv.Atoi(args[2])
		if errW != nil || errL != nil {
			session.ChannelMessageSend(message.ChannelID, "Usage: `$bestof <n> <winnersRound> <losersRound>`")
			return
		}
		if err := tour.SetBestOf(n, &w, &l); err != nil {
			session.ChannelMessageSend(message.ChannelID, err.Error())
			return
		}
		session.ChannelMessageSend(message.ChannelID, fmt.Sprintf("Best of %d, bo5 from winners round %d and losers round %d", n, w, l))
		return
	}

	if err := tour.SetBestOf(n, nil, nil); err != nil {
		session.ChannelMessageSend(message.ChannelID, err.Error())
		return
	}
	session.ChannelMessageSend(message.ChannelID, fmt.Sprintf("All matches are best of %d", n))
}

// stationsHandler handles the $stations command with a DiscordSession interface
func (b *Bot) stationsHandler(session DiscordSession, message *discordgo.MessageCreate) {
	tour := b.requireTournament(session, message)
	if tour == nil {
		return
	}
	stations := tour.Stations()
	if len(stations) == 0 {
		session.ChannelMessageSend(message.ChannelID, "No stations yet. Create some with `$createstations <count>`")
		return
	}
	var res strings.Builder
	res.WriteString("Stations:\n")
	for _, s := range stations {
		if s.InUse {
			res.WriteString(fmt.Sprintf("- %d: set %d in progress\n", s.Number, s.CurrentSetID))
		} else {
			res.WriteString(fmt.Sprintf("- %d: free\n", s.Number))
		}
	}
	session.ChannelMessageSend(message.ChannelID, res.String())
}

// createStationsHandler handles the $createstations command with a DiscordSession interface
func (b *Bot) createStationsHandler(session DiscordSession, message *discordgo.MessageCreate) {
	tour := b.requireTournament(session, message)
	if tour == nil {
		return
	}
	args := commandArgs(message.Content)
	if len(args) < 1 {
		session.ChannelMessageSend(message.ChannelID, "Usage: `$createstations <count>`")
		return
	}
	count, err := strconv.Atoi(args[0])
	if err != nil {
		session.ChannelMessageSend(message.ChannelID, "Usage: `$createstations <count>`")
		return
	}

	created, err := tour.CreateStations(context.Background(), count)
	if err != nil {
		log.Println(err)
		session.ChannelMessageSend(message.ChannelID, fmt.Sprintf("Created %d station(s) before an error occurred: %s", created, err))
		return
	}
	session.ChannelMessageSend(message.ChannelID, fmt.Sprintf("Created %d station(s)", created))
}

// deleteStationHandler handles the $deletestation command with a DiscordSession interface
func (b *Bot) deleteStationHandler(session DiscordSession, message *discordgo.MessageCreate) {
	tour := b.requireTournament(session, message)
	if tour == nil {
		return
	}
	id, ok := int64Arg(session, message, "Usage: `$deletestation <number>`")
	if !ok {
		return
	}
	if err := tour.DeleteStation(context.Background(), int(id)); err != nil {
		session.ChannelMessageSend(message.ChannelID, err.Error())
		return
	}
	session.ChannelMessageSend(message.ChannelID, fmt.Sprintf("Station %d deleted", id))
}

// initHandler handles the $init command with a DiscordSession interface
func (b *Bot) initHandler(session DiscordSession, message *discordgo.MessageCreate) {
	mgr := b.requireEngine(session, message)
	if mgr == nil {
		return
	}
	count, err := mgr.InitializeMatches(context.Background())
	if err != nil {
		log.Println(err)
		session.ChannelMessageSend(message.ChannelID, err.Error())
		return
	}
	session.ChannelMessageSend(message.ChannelID, fmt.Sprintf("%d match(es) queued. Run `$start` to begin assigning them", count))
}

// startHandler handles the $start command with a DiscordSession interface
func (b *Bot) startHandler(session DiscordSession, message *discordgo.MessageCreate) {
	mgr := b.requireEngine(session, message)
	if mgr == nil {
		return
	}
	if err := mgr.StartProcessing(context.Background()); err != nil {
		session.ChannelMessageSend(message.ChannelID, err.Error())
		return
	}
	session.ChannelMessageSend(message.ChannelID, "Match processing started")
}

// stopHandler handles the $stop command with a DiscordSession interface
func (b *Bot) stopHandler(session DiscordSession, message *discordgo.MessageCreate) {
	mgr := b.requireEngine(session, message)
	if mgr == nil {
		return
	}
	if err := mgr.StopProcessing(); err != nil {
		session.ChannelMessageSend(message.ChannelID, err.Error())
		return
	}
	session.ChannelMessageSend(message.ChannelID, "Match processing stopped. Matches already underway keep running")
}

// refreshHandler handles the $refresh command with a DiscordSession interface
func (b *Bot) refreshHandler(session DiscordSession, message *discordgo.MessageCreate) {
	mgr := b.requireEngine(session, message)
	if mgr == nil {
		return
	}
	added, err := mgr.RefreshPendingMatches(context.Background())
	if err != nil {
		log.Println(err)
		session.ChannelMessageSend(message.ChannelID, err.Error())
		return
	}
	session.ChannelMessageSend(message.ChannelID, fmt.Sprintf("%d new match(es) added to the queue", added))
}

// statusHandler handles the $status command with a DiscordSession interface
func (b *Bot) statusHandler(session DiscordSession, message *discordgo.MessageCreate) {
	mgr := b.requireEngine(session, message)
	if mgr == nil {
		return
	}
	st := mgr.Status()
	var res strings.Builder
	if st.Running {
		res.WriteString("Processing: running\n")
	} else {
		res.WriteString("Processing: stopped\n")
	}
	res.WriteString(fmt.Sprintf("Queued: %d, active: %d\n", st.Pending, st.Active))
	for _, s := range st.Stations {
		line := fmt.Sprintf("Station %d: %s %d - %d %s", s.Station, s.P1, s.P1Wins, s.P2Wins, s.P2)
		if s.Paused {
			line += " (paused, waiting on a TO)"
		}
		res.WriteString(line + "\n")
	}
	session.ChannelMessageSend(message.ChannelID, res.String())
}

// assignHandler handles the $assign command with a DiscordSession interface
func (b *Bot) assignHandler(session DiscordSession, message *discordgo.MessageCreate) {
	mgr := b.requireEngine(session, message)
	if mgr == nil {
		return
	}
	args := commandArgs(message.Content)
	if len(args) < 2 {
		session.ChannelMessageSend(message.ChannelID, "Usage: `$assign <setId> <station>`")
		return
	}
	setID, errSet := strconv.ParseInt(args[0], 10, 64)
	station, errStation := strconv.Atoi(args[1])
	if errSet != nil || errStation != nil {
		session.ChannelMessageSend(message.ChannelID, "Usage: `$assign <setId> <station>`")
		return
	}

	if err := mgr.AssignMatch(setID, station); err != nil {
		session.ChannelMessageSend(message.ChannelID, err.Error())
		return
	}
	session.ChannelMessageSend(message.ChannelID, fmt.Sprintf("Set %d assigned to station %d", setID, station))
}

// freeHandler handles the $free command with a DiscordSession interface
func (b *Bot) freeHandler(session DiscordSession, message *discordgo.MessageCreate) {
	mgr := b.requireEngine(session, message)
	if mgr == nil {
		return
	}
	id, ok := int64Arg(session, message, "Usage: `$free <station>`")
	if !ok {
		return
	}
	if err := mgr.ForceStationFree(int(id)); err != nil {
		session.ChannelMessageSend(message.ChannelID, err.Error())
		return
	}
	session.ChannelMessageSend(message.ChannelID, fmt.Sprintf("Station %d freed", id))
}

// resetHandler handles the $reset command with a DiscordSession interface
func (b *Bot) resetHandler(session DiscordSession, message *discordgo.MessageCreate) {
	mgr := b.requireEngine(session, message)
	if mgr == nil {
		return
	}
	if err := mgr.ResetAllMatches(context.Background()); err != nil {
		log.Println(err)
		session.ChannelMessageSend(message.ChannelID, fmt.Sprintf("Reset finished with errors: %s", err))
		return
	}
	session.ChannelMessageSend(message.ChannelID, "All active matches were reset and the engine cleared")
}

// newMessageHandler routes messages to appropriate handlers with a DiscordSession interface
// botUserID is the bot's user ID to prevent self-responses
func (b *Bot) newMessageHandler(session DiscordSession, message *discordgo.MessageCreate, botUserID string) {
	// Prevent bot from responding to its own messages
	if message.Author.ID == botUserID {
		return
	}

	// Match room actions (!here, $report) take priority over commands
	if b.rooms.HandleMessage(message.ChannelID, message.Author.ID, message.Content) {
		return
	}

	// Route to appropriate handler
	switch {
	case startsWith(message.Content, "$help"):
		b.helpHandler(session, message)

	case startsWith(message.Content, "$tournament"):
		b.tournamentHandler(session, message)

	case startsWith(message.Content, "$event"):
		b.eventHandler(session, message)

	case startsWith(message.Content, "$phase"):
		b.phaseHandler(session, message)

	case startsWith(message.Content, "$pool"):
		b.poolHandler(session, message)

	case startsWith(message.Content, "$bestof"):
		b.bestOfHandler(session, message)

	case startsWith(message.Content, "$stations"):
		b.stationsHandler(session, message)

	case startsWith(message.Content, "$createstations"):
		b.createStationsHandler(session, message)

	case startsWith(message.Content, "$deletestation"):
		b.deleteStationHandler(session, message)

	case startsWith(message.Content, "$init"):
		b.initHandler(session, message)

	case startsWith(message.Content, "$start"):
		b.startHandler(session, message)

	case startsWith(message.Content, "$stop"):
		b.stopHandler(session, message)

	case startsWith(message.Content, "$refresh"):
		b.refreshHandler(session, message)

	case startsWith(message.Content, "$status"):
		b.statusHandler(session, message)

	case startsWith(message.Content, "$assign"):
		b.assignHandler(session, message)

	case startsWith(message.Content, "$free"):
		b.freeHandler(session, message)

	case startsWith(message.Content, "$reset"):
		b.resetHandler(session, message)
	}
}

// requireTournament replies with a hint and returns nil when no tournament is loaded.
func (b *Bot) requireTournament(session DiscordSession, message *discordgo.MessageCreate) *tournament.Tournament {
	tour := b.tournament()
	if tour == nil {
		session.ChannelMessageSend(message.ChannelID, "Load a tournament first with `$tournament <slug>`")
	}
	return tour
}

// requireEngine replies with a hint and returns nil when no engine exists yet.
func (b *Bot) requireEngine(session DiscordSession, message *discordgo.MessageCreate) *manager.Manager {
	mgr := b.engine()
	if mgr == nil {
		session.ChannelMessageSend(message.ChannelID, "Load a tournament first with `$tournament <slug>`")
	}
	return mgr
}

// commandArgs splits a command line and drops the command token itself.
func commandArgs(content string) []string {
	tokens, err := splitArgs(content)
	if err != nil || len(tokens) < 2 {
		return nil
	}
	return tokens[1:]
}

// int64Arg parses the single numeric argument of a command, replying with
// usage when it is missing or malformed.
func int64Arg(session DiscordSession, message *discordgo.MessageCreate, usage string) (int64, bool) {
	args := commandArgs(message.Content)
	if len(args) < 1 {
		session.ChannelMessageSend(message.ChannelID, usage)
		return 0, false
	}
	n, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		session.ChannelMessageSend(message.ChannelID, usage)
		return 0, false
	}
	return n, true
}

// Helper function to check if a string starts with a given substring
// Preconditions: Recieves an input string and a substring
// Postconditions: Returns true if the substring is at the start of the string, else returns false
func startsWith(inputString string, substring string) bool {
	return strings.HasPrefix(inputString, substring)
}
