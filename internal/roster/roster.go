package roster

import (
	"sort"
	"sync"

	"github.com/fleetwatch/fleetwatch/pkg/models"
)

// Roster is the live registry of agent snapshots.
// It is the authoritative source of truth for "what is true right now";
// the source goroutine writes it while the dashboard reads it, so all
// access is mutex-guarded.
type Roster struct {
	// agents maps agent IDs to their latest snapshot.
	agents map[string]*models.AgentSnapshot
	// order remembers first-seen order for stable sibling ordering.
	order map[string]int
	// next is the next first-seen sequence number.
	next int
	// mu protects all fields.
	mu sync.RWMutex
}

// New creates an empty Roster.
func New() *Roster {
	return &Roster{
		agents: make(map[string]*models.AgentSnapshot),
		order:  make(map[string]int),
	}
}

// Upsert inserts or replaces the snapshot for an agent.
func (r *Roster) Upsert(snap *models.AgentSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, seen := r.order[snap.ID]; !seen {
		r.order[snap.ID] = r.next
		r.next++
	}
	r.agents[snap.ID] = snap
}

// Remove deletes an agent from the roster.
func (r *Roster) Remove(agentID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.agents, agentID)
	delete(r.order, agentID)
}

// Get retrieves an agent snapshot by ID.
// Returns nil if the agent is not on the roster.
func (r *Roster) Get(agentID string) *models.AgentSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.agents[agentID]
}

// All returns every snapshot in first-seen order.
func (r *Roster) All() []*models.AgentSnapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	agents := make([]*models.AgentSnapshot, 0, len(r.agents))
	for _, a := range r.agents {
		agents = append(agents, a)
	}
	sort.Slice(agents, func(i, j int) bool {
		return r.order[agents[i].ID] < r.order[agents[j].ID]
	})
	return agents
}

// Count returns the number of agents on the roster.
func (r *Roster) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.agents)
}
