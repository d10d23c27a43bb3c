/* main.go
 * The "main" method for running the bot. For details about the bot see `readme.md`
 * Usage: go run main.go -guild="<guild id>" -announce="<channel id>"
 * Authors: Zachary Bower
 */

package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"station-bot/api/manager"
	"station-bot/api/startgg"
	"station-bot/bot"
	"station-bot/web"

	"github.com/joho/godotenv"
)

func main() {
	err := godotenv.Load()

	// Flags
	guildPtr := flag.String("guild", "", "Discord guild (server) id the bot manages")
	announcePtr := flag.String("announce", "", "Discord channel id for operator announcements")
	webAddrPtr := flag.String("web", ":8080", "Listen address for the status HTTP server, empty to disable")
	testPtr := flag.String("test", "false", "Use main or test bot: takes true or false as argument")

	flag.Parse()

	if err != nil {
		log.Fatal("Error loading .env file")
	}

	useTestBot, err := parseBoolFlag(*testPtr)
	if err != nil {
		log.Fatal("Invalid \"test\" flag. Should be true or false")
	}

	var discordToken string
	if useTestBot {
		discordToken = os.Getenv("DISCORD_BETA_TOKEN")
	} else {
		discordToken = os.Getenv("DISCORD_PROD_TOKEN")
	}

	apiKey := os.Getenv("STARTGG_API_KEY")
	if apiKey == "" {
		log.Fatal("STARTGG_API_KEY is required but none was provided")
	}
	client := startgg.NewClient(apiKey)

	stationBot, err := bot.NewBot(discordToken, *guildPtr, *announcePtr, client, manager.DefaultOptions())
	if err != nil {
		log.Fatalf("failed to initialize bot: %v", err)
	}

	// Status endpoint for overlays and dashboards
	if *webAddrPtr != "" {
		go func() {
			if err := web.Start(web.Config{Addr: *webAddrPtr, Source: stationBot}); err != nil {
				log.Printf("web server stopped: %v", err)
			}
		}()
	}

	if err := stationBot.Run(); err != nil {
		log.Fatalf("bot exited with error: %v", err)
	}
}

// parseBoolFlag converts a true/false flag value into a boolean
// Preconditions: Receives a string containing true or false (case insensitive, surrounding whitespace ignored)
// Postconditions: Returns the boolean value, or an error for anything else
func parseBoolFlag(value string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	return false, fmt.Errorf("invalid boolean string %q", value)
}
