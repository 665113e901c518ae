package ledger

import (
	"slices"
	"sync"

	"github.com/sirupsen/logrus"

	"hackterm/internal/analyzer"
	"hackterm/internal/config"
	"hackterm/internal/kvstore"
)

const secretsKey = "secrets.discovered"

// Secrets discovers hidden easter eggs. A secret is reported at most once.
type Secrets struct {
	defs     []config.Secret
	missions *Missions
	store    kvstore.Store
	log      logrus.FieldLogger
	mu       sync.Mutex
}

// NewSecrets creates the ledger. missions may be nil when no secret requires one.
func NewSecrets(defs []config.Secret, missions *Missions, store kvstore.Store) *Secrets {
	return &Secrets{
		defs:     defs,
		missions: missions,
		store:    store,
		log:      logrus.WithField("component", "secrets"),
	}
}

// Check returns the first undiscovered secret matched by inv and marks it discovered.
func (s *Secrets) Check(inv analyzer.Invocation) (config.Secret, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	found := s.load()
	for _, def := range s.defs {
		if slices.Contains(found, def.ID) {
			continue
		}
		if req := def.Trigger.Mission; req != "" && (s.missions == nil || !s.missions.IsCompleted(req)) {
			continue
		}
		ok, err := analyzer.Match(def.Trigger, inv)
		if err != nil {
			s.log.WithField("secret", def.ID).WithError(err).Warn("Skipping secret with invalid trigger")
			continue
		}
		if !ok {
			continue
		}
		if !kvstore.SetJSON(s.store, secretsKey, append(found, def.ID)) {
			return config.Secret{}, false
		}
		s.log.WithField("secret", def.ID).Info("Secret discovered")
		return def, true
	}
	return config.Secret{}, false
}

// Discovered returns discovered secret ids in discovery order.
func (s *Secrets) Discovered() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.load()
}

// All returns every secret definition.
func (s *Secrets) All() []config.Secret {
	return s.defs
}

func (s *Secrets) load() []string {
	return kvstore.GetJSON(s.store, secretsKey, []string{})
}
