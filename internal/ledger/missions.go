package ledger

import (
	"sync"

	"github.com/sirupsen/logrus"

	"hackterm/internal/analyzer"
	"hackterm/internal/config"
	"hackterm/internal/kvstore"
)

const missionsKey = "missions.progress"

// Missions tracks ordered objectives. Progress is the number of objectives done.
type Missions struct {
	defs  []config.Mission
	byID  map[string]config.Mission
	store kvstore.Store
	log   logrus.FieldLogger
	mu    sync.Mutex
}

// NewMissions creates the tracker.
func NewMissions(defs []config.Mission, store kvstore.Store) *Missions {
	byID := make(map[string]config.Mission, len(defs))
	for _, d := range defs {
		byID[d.ID] = d
	}
	return &Missions{
		defs:  defs,
		byID:  byID,
		store: store,
		log:   logrus.WithField("component", "missions"),
	}
}

// Track advances every active mission whose next objective inv satisfies.
// It returns the ids of missions completed by this invocation.
func (m *Missions) Track(inv analyzer.Invocation) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	progress := m.load()
	var completed []string
	changed := false
	for _, def := range m.defs {
		step := progress[def.ID]
		if step >= len(def.Objectives) {
			continue
		}
		ok, err := analyzer.Match(def.Objectives[step].Trigger, inv)
		if err != nil {
			m.log.WithField("mission", def.ID).WithError(err).Warn("Skipping objective with invalid trigger")
			continue
		}
		if !ok {
			continue
		}
		progress[def.ID] = step + 1
		changed = true
		log := m.log.WithFields(logrus.Fields{"mission": def.ID, "objective": step + 1})
		if step+1 == len(def.Objectives) {
			completed = append(completed, def.ID)
			log.Info("Mission completed")
		} else {
			log.Debug("Objective completed")
		}
	}

	if changed && !kvstore.SetJSON(m.store, missionsKey, progress) {
		return nil
	}
	return completed
}

// Notification returns the completion message of mission id.
func (m *Missions) Notification(id string) string {
	return m.byID[id].Notification
}

// IsCompleted reports whether every objective of mission id is done.
func (m *Missions) IsCompleted(id string) bool {
	done, total := m.Progress(id)
	return total > 0 && done >= total
}

// Progress returns objectives done and the objective count of mission id.
func (m *Missions) Progress(id string) (done, total int) {
	def, ok := m.byID[id]
	if !ok {
		return 0, 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return min(m.load()[id], len(def.Objectives)), len(def.Objectives)
}

// All returns every mission definition.
func (m *Missions) All() []config.Mission {
	return m.defs
}

func (m *Missions) load() map[string]int {
	p := kvstore.GetJSON(m.store, missionsKey, map[string]int{})
	if p == nil {
		p = map[string]int{}
	}
	return p
}
