package state

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Feed names one independently tracked account pool.
type Feed string

const (
	FeedDomestic      Feed = "domestic"
	FeedInternational Feed = "international"
)

const (
	seenDomesticFile      = "seen_ids.json"
	seenInternationalFile = "seen_ids_international.json"
	mappingDomesticFile   = "account_mapping.json"
	mappingIntlFile       = "account_mapping_international.json"
	marginConfigFile      = "margin_config.json"
)

// ErrNegativeMargin rejects margin values below zero.
var ErrNegativeMargin = errors.New("margin cannot be negative")

// Store owns the durable feed state: per-feed seen sets, per-feed client-code
// mappings, and the global price margin. Every in-memory mutation is followed
// by a full rewrite of the backing JSON document; a failed write is logged and
// the in-memory state stays authoritative for this process lifetime.
type Store struct {
	mu     sync.Mutex
	dir    string
	logger zerolog.Logger

	seen    map[Feed]map[int64]struct{}
	mapping map[Feed]map[string]int64
	margin  decimal.Decimal

	newCode func() string
}

// Open loads the persisted snapshots from dir, tolerating absent or corrupt
// files by starting that piece of state empty.
func Open(dir string, logger zerolog.Logger) (*Store, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	s := &Store{
		dir:    dir,
		logger: logger.With().Str("component", "state_store").Logger(),
		seen: map[Feed]map[int64]struct{}{
			FeedDomestic:      {},
			FeedInternational: {},
		},
		mapping: map[Feed]map[string]int64{
			FeedDomestic:      {},
			FeedInternational: {},
		},
		newCode: generateCode,
	}

	s.loadSeen(FeedDomestic, seenDomesticFile)
	s.loadSeen(FeedInternational, seenInternationalFile)
	s.loadMapping(FeedDomestic, mappingDomesticFile)
	s.loadMapping(FeedInternational, mappingIntlFile)
	s.loadMargin()

	return s, nil
}

// generateCode produces a short client-facing code: the first six characters
// of a v4 UUID, uppercased. Collisions are theoretically possible and not
// checked; a duplicate would overwrite the older mapping entry.
func generateCode() string {
	return strings.ToUpper(uuid.NewString()[:6])
}

// SeenSet returns a copy of the feed's seen identifiers.
func (s *Store) SeenSet(feed Feed) map[int64]struct{} {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[int64]struct{}, len(s.seen[feed]))
	for id := range s.seen[feed] {
		out[id] = struct{}{}
	}
	return out
}

// MarkSeen merges the given identifiers into the feed's seen set and persists.
func (s *Store) MarkSeen(feed Feed, ids ...int64) {
	if len(ids) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		s.seen[feed][id] = struct{}{}
	}
	s.saveSeenLocked(feed)
}

// ReplaceSeen swaps the feed's seen set for exactly the given identifiers and
// persists. Used when resynchronising against a listing snapshot.
func (s *Store) ReplaceSeen(feed Feed, ids []int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		next[id] = struct{}{}
	}
	s.seen[feed] = next
	s.saveSeenLocked(feed)
}

// AllocateCode generates a fresh client code for the real item ID, records the
// mapping, and persists it.
func (s *Store) AllocateCode(feed Feed, realID int64) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	code := s.newCode()
	s.mapping[feed][code] = realID
	s.saveMappingLocked(feed)
	return code
}

// ResolveCode looks a client code up, checking the domestic mapping first.
func (s *Store) ResolveCode(code string) (Feed, int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, feed := range []Feed{FeedDomestic, FeedInternational} {
		if realID, ok := s.mapping[feed][code]; ok {
			return feed, realID, true
		}
	}
	return "", 0, false
}

// Margin returns the current price margin percentage.
func (s *Store) Margin() decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.margin
}

// SetMargin updates the price margin and persists it.
func (s *Store) SetMargin(margin decimal.Decimal) error {
	if margin.IsNegative() {
		return ErrNegativeMargin
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.margin = margin
	s.saveMarginLocked()
	return nil
}

type marginDoc struct {
	Margin float64 `json:"margin"`
}

func (s *Store) loadSeen(feed Feed, name string) {
	var ids []int64
	if !s.loadJSON(name, &ids) {
		return
	}
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	s.seen[feed] = set
	s.logger.Info().Str("feed", string(feed)).Int("count", len(set)).Msg("seen ids loaded")
}

func (s *Store) loadMapping(feed Feed, name string) {
	mapping := map[string]int64{}
	if !s.loadJSON(name, &mapping) {
		return
	}
	s.mapping[feed] = mapping
	s.logger.Info().Str("feed", string(feed)).Int("count", len(mapping)).Msg("account mappings loaded")
}

func (s *Store) loadMargin() {
	var doc marginDoc
	if !s.loadJSON(marginConfigFile, &doc) {
		return
	}
	s.margin = decimal.NewFromFloat(doc.Margin)
	s.logger.Info().Str("margin", s.margin.String()).Msg("price margin loaded")
}

func (s *Store) loadJSON(name string, out any) bool {
	path := filepath.Join(s.dir, name)
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.Error().Err(err).Str("file", name).Msg("failed to read state file")
		}
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		s.logger.Error().Err(err).Str("file", name).Msg("failed to parse state file")
		return false
	}
	return true
}

func (s *Store) saveSeenLocked(feed Feed) {
	ids := make([]int64, 0, len(s.seen[feed]))
	for id := range s.seen[feed] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	name := seenDomesticFile
	if feed == FeedInternational {
		name = seenInternationalFile
	}
	s.saveJSON(name, ids)
}

func (s *Store) saveMappingLocked(feed Feed) {
	name := mappingDomesticFile
	if feed == FeedInternational {
		name = mappingIntlFile
	}
	s.saveJSON(name, s.mapping[feed])
}

func (s *Store) saveMarginLocked() {
	f, _ := s.margin.Float64()
	s.saveJSON(marginConfigFile, marginDoc{Margin: f})
}

func (s *Store) saveJSON(name string, in any) {
	data, err := json.Marshal(in)
	if err != nil {
		s.logger.Error().Err(err).Str("file", name).Msg("failed to encode state file")
		return
	}
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		s.logger.Error().Err(err).Str("file", name).Msg("failed to write state file")
	}
}
