/* status.go
 * Contains the GET /status handler: a read-only JSON snapshot of the scheduling engine for
 * stream overlays and TO dashboards
 * Authors: Zachary Bower
 */

package web

import (
	"encoding/json"
	"log"
	"net/http"
)

// StatusHandler serves the engine snapshot as JSON
// Preconditions: Receives the response writer and request
// Postconditions: Writes a StatusResponse, or 405 for anything but GET
func (s *Server) StatusHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	res := StatusResponse{}
	if status, name, ok := s.source.EngineStatus(); ok {
		res.Configured = true
		res.Tournament = name
		res.Engine = &status
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(res); err != nil {
		log.Printf("failed to write status response: %v", err)
	}
}
