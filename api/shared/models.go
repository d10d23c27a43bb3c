/* models.go
 * This file contains the structs and helper functions that are shared between sub packages
 * Authors: Zachary Bower
 */

package shared

import "fmt"

// Player is one entrant of a bracket set, constructed once at the start.gg
// boundary and passed around by value everywhere else.
type Player struct {
	EntrantID   int64
	Name        string
	DiscordID   string // empty when the entrant has no linked Discord account
	DiscordName string
}

// Identity returns the key used to lock a player to an active match. Players
// without a linked Discord account fall back to their entrant id so two
// unlinked players can never collide.
func (p Player) Identity() string {
	if p.DiscordID != "" {
		return p.DiscordID
	}
	return fmt.Sprintf("entrant:%d", p.EntrantID)
}

// Mention returns the string used to address the player in a chat message.
func (p Player) Mention() string {
	if p.DiscordID != "" {
		return fmt.Sprintf("<@%s>", p.DiscordID)
	}
	return p.Name
}
