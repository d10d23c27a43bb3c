/* models.go
 * Contains the configuration and response types for the status HTTP server
 * Authors: Zachary Bower
 */

package web

import (
	"station-bot/api/manager"
)

// StatusSource is what the server reads its snapshot from; the bot implements
// it. ok is false until a tournament has been loaded.
type StatusSource interface {
	EngineStatus() (status manager.Status, tournamentName string, ok bool)
}

// Config holds the configuration for the web server
type Config struct {
	Addr   string
	Source StatusSource
}

// Server is the HTTP server that exposes the engine status
type Server struct {
	source StatusSource
}

// StatusResponse is the JSON body of GET /status.
type StatusResponse struct {
	Configured bool            `json:"configured"`
	Tournament string          `json:"tournament,omitempty"`
	Engine     *manager.Status `json:"engine,omitempty"`
}
