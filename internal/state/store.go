package state

import (
	"encoding/json"
	"os"
	"slices"
	"time"

	"github.com/rs/zerolog"
)

// PersistedState is the single durable entity: the cached token pair
// and the list of fully handled ticket numbers. expiresAt is stored as
// RFC 3339 text in the file.
type PersistedState struct {
	AccessToken      string     `json:"accessToken,omitempty"`
	RefreshToken     string     `json:"refreshToken,omitempty"`
	ExpiresAt        *time.Time `json:"expiresAt,omitempty"`
	ProcessedTickets []string   `json:"processedTickets,omitempty"`
}

// IsProcessed reports whether the ticket number has already been fully
// handled in a previous run.
func (s PersistedState) IsProcessed(ticketNo string) bool {
	return slices.Contains(s.ProcessedTickets, ticketNo)
}

// MarkProcessed appends the ticket number; a number already present is
// left alone so the list stays duplicate-free.
func (s *PersistedState) MarkProcessed(ticketNo string) {
	if s.IsProcessed(ticketNo) {
		return
	}
	s.ProcessedTickets = append(s.ProcessedTickets, ticketNo)
}

// SetToken records a fresh token pair with its absolute expiry.
func (s *PersistedState) SetToken(accessToken, refreshToken string, expiresAt time.Time) {
	s.AccessToken = accessToken
	s.RefreshToken = refreshToken
	s.ExpiresAt = &expiresAt
}

// Store persists PersistedState to a single JSON file. Single-process,
// single-run assumption: no locking.
type Store struct {
	path string
	log  zerolog.Logger
}

func NewStore(path string, log zerolog.Logger) *Store {
	return &Store{path: path, log: log}
}

// Load reads the state file. A missing or unparseable file yields the
// empty state rather than an error so a corrupt file never blocks a
// run.
func (st *Store) Load() PersistedState {
	data, err := os.ReadFile(st.path)
	if err != nil {
		if !os.IsNotExist(err) {
			st.log.Warn().Err(err).Str("path", st.path).Msg("state file unreadable, starting empty")
		}
		return PersistedState{}
	}

	var state PersistedState
	if err := json.Unmarshal(data, &state); err != nil {
		st.log.Warn().Err(err).Str("path", st.path).Msg("state file corrupt, starting empty")
		return PersistedState{}
	}
	return state
}

// Save rewrites the whole state file. The write goes to a temp file
// first and lands with a rename, so a crash mid-write never leaves a
// truncated file behind.
func (st *Store) Save(state PersistedState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}

	tmp := st.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, st.path)
}
