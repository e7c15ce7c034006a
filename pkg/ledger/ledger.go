// Package ledger tracks consecutive start failures per bot and decides
// when a bot crossed the line into "requires operator". The state
// survives process restarts through a local JSON file.
package ledger

import (
	"encoding/json"
	"os"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultSkipThreshold marks a bot as skipped after this many
// consecutive start failures.
const DefaultSkipThreshold = 2

type Entry struct {
	BotID         string    `json:"botId"`
	FailureCount  int       `json:"failureCount"`
	LastFailureAt time.Time `json:"lastFailureAt"`
	Skipped       bool      `json:"skipped"`
}

type Ledger struct {
	mu        sync.Mutex
	path      string
	threshold int
	entries   map[string]*Entry
}

// New loads the ledger file at path, creating an empty ledger when the
// file does not exist yet. A corrupt file is discarded with a warning
// so a bad write can never wedge the whole fleet.
func New(path string) *Ledger {
	l := &Ledger{
		path:      path,
		threshold: envInt("FLEET_SKIP_THRESHOLD", DefaultSkipThreshold),
		entries:   make(map[string]*Entry),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return l
	}

	var stored []Entry
	if err := json.Unmarshal(data, &stored); err != nil {
		logrus.Warnf("[LEDGER] discarding corrupt ledger file %s: %v", path, err)
		return l
	}
	for i := range stored {
		e := stored[i]
		l.entries[e.BotID] = &e
	}
	return l
}

// RecordFailure increments the failure count for a bot and flips the
// skipped flag once the threshold is reached. The file is rewritten
// before returning.
func (l *Ledger) RecordFailure(botID string) (Entry, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[botID]
	if !ok {
		e = &Entry{BotID: botID}
		l.entries[botID] = e
	}

	e.FailureCount++
	e.LastFailureAt = time.Now().UTC()
	if e.FailureCount >= l.threshold {
		e.Skipped = true
	}

	return *e, l.persist()
}

// Clear removes a bot's entry. Used after a successful start and when
// a bot is destroyed.
func (l *Ledger) Clear(botID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.entries[botID]; !ok {
		return nil
	}
	delete(l.entries, botID)
	return l.persist()
}

// IsSkipped reports whether a bot crossed the failure threshold.
func (l *Ledger) IsSkipped(botID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[botID]
	return ok && e.Skipped
}

// Get returns a copy of the entry for a bot.
func (l *Ledger) Get(botID string) (Entry, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	e, ok := l.entries[botID]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

// Entries returns all entries sorted by bot id.
func (l *Ledger) Entries() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.snapshot()
}

// SkippedCount reports how many bots currently require an operator.
func (l *Ledger) SkippedCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()

	n := 0
	for _, e := range l.entries {
		if e.Skipped {
			n++
		}
	}
	return n
}

// persist rewrites the whole file. Callers hold the mutex.
func (l *Ledger) persist() error {
	data, err := json.MarshalIndent(l.snapshot(), "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(l.path, data, 0644)
}

func (l *Ledger) snapshot() []Entry {
	out := make([]Entry, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BotID < out[j].BotID })
	return out
}

func envInt(name string, def int) int {
	v := strings.TrimSpace(os.Getenv(name))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return def
	}
	return n
}
