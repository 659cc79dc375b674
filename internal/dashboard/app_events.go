package dashboard

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/fleetwatch/fleetwatch/internal/roster"
	"github.com/fleetwatch/fleetwatch/pkg/models"
)

// handleEvent applies one roster event to the row store and keeps the
// dependent caches coherent. Events are applied strictly in delivery
// order; a later re-sync may overwrite their effect, and the roster wins
// on conflicting fields.
func (a *App) handleEvent(ev roster.Event) []tea.Cmd {
	a.rows.Apply(ev)

	var cmds []tea.Cmd
	switch ev.Kind {
	case roster.EventToolDone:
		// The session's history just changed underneath the caches.
		if row := a.rows.Get(ev.AgentID); row != nil {
			sessionID := row.Snapshot.SessionID
			a.cache.Invalidate(sessionID)
			if a.mode != ModeList {
				if cmd := a.cache.EnsureHistory(sessionID); cmd != nil {
					cmds = append(cmds, cmd)
				}
			}
			if a.expanded[ev.AgentID] {
				if cmd := a.cache.EnsureSubAgents(sessionID); cmd != nil {
					cmds = append(cmds, cmd)
				}
			}
		}

	case roster.EventAgentCreated, roster.EventSubagentCreated:
		if a.mode != ModeList {
			if snap := a.roster.Get(ev.AgentID); snap != nil {
				if cmd := a.cache.EnsureHistory(snap.SessionID); cmd != nil {
					cmds = append(cmds, cmd)
				}
			}
		}
	}
	return cmds
}

// handleResync runs the slow-cadence reconciliation: every row re-reads
// its snapshot, and in timeline/stats mode the history of currently
// active agents is invalidated and refetched. Finished agents keep their
// cached history untouched.
func (a *App) handleResync() []tea.Cmd {
	a.rows.SyncAll()
	if a.mode == ModeList {
		return nil
	}
	return a.refreshActive()
}

// refreshActive forces a refetch of tool history for agents that are
// still producing data.
func (a *App) refreshActive() []tea.Cmd {
	var cmds []tea.Cmd
	for _, snap := range a.roster.All() {
		if snap.Status != models.AgentStatusActive {
			continue
		}
		a.cache.Invalidate(snap.SessionID)
		if cmd := a.cache.EnsureHistory(snap.SessionID); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	return cmds
}
