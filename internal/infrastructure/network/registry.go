package network

import (
	"NSSaDS/fileshare/internal/domain"
	"encoding/json"
	"io"
	"net/http"
	"sort"
	"sync"
)

type registryEntry struct {
	info domain.ConnInfo
	conn io.Closer
}

type ConnectionRegistry struct {
	conns map[string]registryEntry
	mutex sync.RWMutex
}

func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{
		conns: make(map[string]registryEntry),
	}
}

// Add registers a live connection and returns the new count.
func (r *ConnectionRegistry) Add(info domain.ConnInfo, conn io.Closer) int {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	r.conns[info.ID] = registryEntry{info: info, conn: conn}
	return len(r.conns)
}

// Remove drops a connection and returns the new count.
func (r *ConnectionRegistry) Remove(id string) int {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	delete(r.conns, id)
	return len(r.conns)
}

func (r *ConnectionRegistry) Count() int {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	return len(r.conns)
}

func (r *ConnectionRegistry) List() []domain.ConnInfo {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	infos := make([]domain.ConnInfo, 0, len(r.conns))
	for _, entry := range r.conns {
		infos = append(infos, entry.info)
	}

	sort.Slice(infos, func(i, j int) bool {
		return infos[i].ConnectedAt.Before(infos[j].ConnectedAt)
	})

	return infos
}

// CloseAll closes every live connection. Entries are removed by their
// handlers as they exit.
func (r *ConnectionRegistry) CloseAll() {
	r.mutex.RLock()
	defer r.mutex.RUnlock()

	for _, entry := range r.conns {
		entry.conn.Close()
	}
}

// ServeHTTP lists the live connections as JSON, oldest first.
func (r *ConnectionRegistry) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	data, err := json.MarshalIndent(r.List(), "", "  ")
	if err != nil {
		http.Error(w, "failed to marshal connections", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}
