package profile

import (
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/gofrs/flock"

	"verbum/internal/domain"
)

// maxRecentClicks bounds the navigation history kept in the profile.
const maxRecentClicks = 5

// defaultInterestStep is how much a single interaction bumps a domain weight.
const defaultInterestStep = 0.1

// Store owns the user profile. All mutation goes through the store, which
// serializes in-process access with a mutex and cross-process file rewrites
// with a file lock. The profile file is rewritten in full on every mutation;
// last writer wins.
type Store struct {
	mu     sync.Mutex
	path   string
	flk    *flock.Flock
	prof   domain.Profile
	logger *slog.Logger
}

// NewStore loads the profile from path, falling back to a default profile on
// any read or parse failure. Load failures are non-fatal.
func NewStore(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Store{
		path:   path,
		flk:    flock.New(path + ".lock"),
		prof:   defaultProfile(),
		logger: logger,
	}
	s.load()
	return s
}

func defaultProfile() domain.Profile {
	return domain.Profile{
		Domains:      map[string]float64{},
		RecentClicks: []string{},
		ExpertiseLevels: map[string]float64{
			"math":        0.0,
			"physics":     0.0,
			"programming": 0.0,
			"business":    0.0,
			"medicine":    0.0,
		},
	}
}

func (s *Store) load() {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Warn("profile unreadable, using defaults", "path", s.path, "error", err)
		}
		return
	}
	var p domain.Profile
	if err := json.Unmarshal(data, &p); err != nil {
		s.logger.Warn("profile corrupt, using defaults", "path", s.path, "error", err)
		return
	}
	// tolerate missing keys in files written by older versions
	if p.Domains == nil {
		p.Domains = map[string]float64{}
	}
	if p.RecentClicks == nil {
		p.RecentClicks = []string{}
	}
	if p.ExpertiseLevels == nil {
		p.ExpertiseLevels = defaultProfile().ExpertiseLevels
	}
	s.prof = p
}

// persist rewrites the profile file. Failures are logged and swallowed: the
// in-memory state stays updated and the request is not failed.
func (s *Store) persist() {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		s.logger.Warn("cannot create profile directory", "path", s.path, "error", err)
		return
	}
	data, err := json.Marshal(s.prof)
	if err != nil {
		s.logger.Warn("cannot encode profile", "error", err)
		return
	}
	if err := s.flk.Lock(); err != nil {
		s.logger.Warn("cannot lock profile file", "path", s.path, "error", err)
		return
	}
	defer func() { _ = s.flk.Unlock() }()
	if err := os.WriteFile(s.path, data, 0o644); err != nil {
		s.logger.Warn("cannot persist profile", "path", s.path, "error", err)
	}
}

// Snapshot returns a copy of the current profile.
func (s *Store) Snapshot() domain.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := domain.Profile{
		Domains:         make(map[string]float64, len(s.prof.Domains)),
		RecentClicks:    append([]string(nil), s.prof.RecentClicks...),
		ExpertiseLevels: make(map[string]float64, len(s.prof.ExpertiseLevels)),
	}
	for k, v := range s.prof.Domains {
		p.Domains[k] = v
	}
	for k, v := range s.prof.ExpertiseLevels {
		p.ExpertiseLevels[k] = v
	}
	return p
}

// DomainWeight reports the interest weight recorded for a domain.
func (s *Store) DomainWeight(name string) (float64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.prof.Domains[name]
	return w, ok
}

// UpdateDomainInterest bumps the interest weight for a domain, clamped to 1.0,
// and persists immediately. A non-positive amount uses the default step.
func (s *Store) UpdateDomainInterest(name string, amount float64) {
	if amount <= 0 {
		amount = defaultInterestStep
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	w := s.prof.Domains[name] + amount
	if w > 1.0 {
		w = 1.0
	}
	s.prof.Domains[name] = w
	s.persist()
}

// RecordClick appends a navigation path to the history, keeping only the most
// recent entries, and persists immediately.
func (s *Store) RecordClick(path string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.prof.RecentClicks = append(s.prof.RecentClicks, path)
	if n := len(s.prof.RecentClicks); n > maxRecentClicks {
		s.prof.RecentClicks = s.prof.RecentClicks[n-maxRecentClicks:]
	}
	s.persist()
}

// Summarize builds a natural-language description of the user's interests,
// used as the embedding input for the "Me" node.
func (s *Store) Summarize() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	parts := []string{"Personal knowledge profile"}

	if len(s.prof.Domains) > 0 {
		top := rankedDomains(s.prof.Domains)
		if len(top) > 3 {
			top = top[:3]
		}
		parts = append(parts, "Primary interests: "+strings.Join(top, ", "))
	}

	var expert []string
	for name, level := range s.prof.ExpertiseLevels {
		if level > 0.7 {
			expert = append(expert, name)
		}
	}
	if len(expert) > 0 {
		sort.Strings(expert)
		parts = append(parts, "Expert in: "+strings.Join(expert, ", "))
	}

	return strings.Join(parts, " ")
}

// PredictNextClick guesses the most likely next navigation target. It scans
// the click history filtered to the current path's domain for transitions out
// of currentPath and returns the most frequent follow-on; ties go to the
// first one encountered. With no usable transition it falls back to the
// highest-weighted domain. The second return is false when there is nothing
// to suggest.
//
// Note the history is filtered by domain prefix before scanning consecutive
// pairs, so a "transition" may span entries that were not adjacent in time.
func (s *Store) PredictNextClick(currentPath string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	currentDomain := currentPath
	if i := strings.Index(currentPath, "/"); i >= 0 {
		currentDomain = currentPath[:i]
	}

	var domainClicks []string
	for _, click := range s.prof.RecentClicks {
		if strings.HasPrefix(click, currentDomain) {
			domainClicks = append(domainClicks, click)
		}
	}

	if len(domainClicks) > 1 {
		counts := map[string]int{}
		var order []string
		for i := 0; i < len(domainClicks)-1; i++ {
			if domainClicks[i] == currentPath {
				next := domainClicks[i+1]
				if counts[next] == 0 {
					order = append(order, next)
				}
				counts[next]++
			}
		}
		best, bestCount := "", 0
		for _, next := range order {
			if counts[next] > bestCount {
				best, bestCount = next, counts[next]
			}
		}
		if best != "" {
			return best, true
		}
	}

	ranked := rankedDomains(s.prof.Domains)
	if len(ranked) > 0 {
		return ranked[0], true
	}
	return "", false
}

// rankedDomains orders domain names by weight descending, name ascending on
// ties, so rankings are stable across calls.
func rankedDomains(weights map[string]float64) []string {
	names := make([]string, 0, len(weights))
	for name := range weights {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		if weights[names[i]] != weights[names[j]] {
			return weights[names[i]] > weights[names[j]]
		}
		return names[i] < names[j]
	})
	return names
}
