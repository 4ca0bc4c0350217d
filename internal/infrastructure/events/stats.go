package events

import (
	"NSSaDS/fileshare/internal/domain"
	"encoding/json"
	"net/http"
	"sync"
	"time"
)

type CommandStats struct {
	Completed   int64     `json:"completed"`
	Failed      int64     `json:"failed"`
	LastRequest time.Time `json:"last_request"`
}

type StatsSnapshot struct {
	Uptime           string                  `json:"uptime"`
	Connections      int                     `json:"connections"`
	PeakConnections  int                     `json:"peak_connections"`
	TotalConnections int64                   `json:"total_connections"`
	Commands         map[string]CommandStats `json:"commands"`
}

// Stats aggregates server events into counters served as JSON at /stats.
type Stats struct {
	mu        sync.Mutex
	startTime time.Time
	commands  map[string]*CommandStats
	current   int
	peak      int
	total     int64
}

func NewStats() *Stats {
	return &Stats{
		startTime: time.Now(),
		commands:  make(map[string]*CommandStats),
	}
}

func (s *Stats) Notify(event domain.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch event.Type {
	case domain.EventConnected:
		s.total++
	case domain.EventConnections:
		s.current = event.Count
		s.peak = max(s.peak, event.Count)
	case domain.EventCommandDone, domain.EventCommandFailed:
		cs, ok := s.commands[event.Command]
		if !ok {
			cs = &CommandStats{}
			s.commands[event.Command] = cs
		}
		if event.Type == domain.EventCommandDone {
			cs.Completed++
		} else {
			cs.Failed++
		}
		cs.LastRequest = event.Time
	}
}

func (s *Stats) Snapshot() StatsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	commands := make(map[string]CommandStats, len(s.commands))
	for name, cs := range s.commands {
		commands[name] = *cs
	}

	return StatsSnapshot{
		Uptime:           time.Since(s.startTime).Round(time.Second).String(),
		Connections:      s.current,
		PeakConnections:  s.peak,
		TotalConnections: s.total,
		Commands:         commands,
	}
}

func (s *Stats) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	data, err := json.MarshalIndent(s.Snapshot(), "", "  ")
	if err != nil {
		http.Error(w, "failed to marshal stats", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}
