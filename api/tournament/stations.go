/* stations.go
 * Contains the station registry: the physical resources matches get assigned to. Stations are
 * created and deleted by explicit operator action and toggled busy/free by the scheduling engine
 * Authors: Zachary Bower
 */

package tournament

import (
	"context"
	"fmt"
	"sort"
)

// Station is one physical or virtual setup. InUse and CurrentSetID must stay
// in step with the engine's active-match table.
type Station struct {
	Number       int
	ID           int64
	InUse        bool
	CurrentSetID int64
}

// CreateStation creates one station both remotely and in the registry
// Preconditions: Receives context and an operator facing station number not yet in the registry
// Postconditions: Returns pointer to the new Station, or an error if the number exists or the platform issued no id
func (t *Tournament) CreateStation(ctx context.Context, number int) (*Station, error) {
	for _, s := range t.stations {
		if s.Number == number {
			return nil, fmt.Errorf("station %d already exists", number)
		}
	}
	id, err := t.api.CreateStation(ctx, t.ID, number)
	if err != nil {
		return nil, fmt.Errorf("failed to create station %d: %w", number, err)
	}
	station := &Station{Number: number, ID: id}
	t.stations = append(t.stations, station)
	return station, nil
}

// CreateStations batch-creates stations numbered 1..count, skipping numbers
// that already exist. Used by tournament setup
// Preconditions: Receives context and a positive count
// Postconditions: Returns how many stations were created, or the first remote error
func (t *Tournament) CreateStations(ctx context.Context, count int) (int, error) {
	if count <= 0 {
		return 0, fmt.Errorf("station count must be positive, got %d", count)
	}
	created := 0
	for number := 1; number <= count; number++ {
		if t.StationByNumber(number) != nil {
			continue
		}
		if _, err := t.CreateStation(ctx, number); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

// DeleteStation removes a free station remotely and from the registry
// Preconditions: Receives context and the number of an existing station that is not in use
// Postconditions: Station is removed, or an error if it is busy or unknown
func (t *Tournament) DeleteStation(ctx context.Context, number int) error {
	for i, s := range t.stations {
		if s.Number != number {
			continue
		}
		if s.InUse {
			return fmt.Errorf("station %d is in use and cannot be deleted", number)
		}
		if err := t.api.DeleteStation(ctx, s.ID); err != nil {
			return fmt.Errorf("failed to delete station %d: %w", number, err)
		}
		t.stations = append(t.stations[:i], t.stations[i+1:]...)
		return nil
	}
	return fmt.Errorf("station %d does not exist", number)
}

// FindFreeStation returns the lowest numbered free station
// Postconditions: Returns the station number and true, or 0 and false when every station is busy
func (t *Tournament) FindFreeStation() (int, bool) {
	best := 0
	for _, s := range t.stations {
		if s.InUse {
			continue
		}
		if best == 0 || s.Number < best {
			best = s.Number
		}
	}
	return best, best != 0
}

// StationByNumber returns the station with the given number, nil if unknown.
func (t *Tournament) StationByNumber(number int) *Station {
	for _, s := range t.stations {
		if s.Number == number {
			return s
		}
	}
	return nil
}

// MarkStationUsed flags a station busy and records the set occupying it.
func (t *Tournament) MarkStationUsed(number int, setID int64) error {
	s := t.StationByNumber(number)
	if s == nil {
		return fmt.Errorf("station %d does not exist", number)
	}
	s.InUse = true
	s.CurrentSetID = setID
	return nil
}

// MarkStationFree clears a station's busy flag and set reference.
func (t *Tournament) MarkStationFree(number int) error {
	s := t.StationByNumber(number)
	if s == nil {
		return fmt.Errorf("station %d does not exist", number)
	}
	s.InUse = false
	s.CurrentSetID = 0
	return nil
}

// Stations returns a snapshot copy of the registry for display.
func (t *Tournament) Stations() []Station {
	out := make([]Station, 0, len(t.stations))
	for _, s := range t.stations {
		out = append(out, *s)
	}
	return out
}

// FreeStations returns the numbers of every free station in ascending order,
// so the assignment pass always fills the lowest numbered setup first.
func (t *Tournament) FreeStations() []int {
	var out []int
	for _, s := range t.stations {
		if !s.InUse {
			out = append(out, s.Number)
		}
	}
	sort.Ints(out)
	return out
}
