package credential

import (
	"bufio"
	"errors"
	"os"
	"strings"
	"sync/atomic"

	"github.com/kbukum/authgate/apperr"
)

// Store holds the verified credential set. The entry map is an immutable
// snapshot behind an atomically swappable reference: readers take a cheap
// snapshot per verification and a reload never mutates in place.
type Store struct {
	snap   atomic.Pointer[snapshot]
	hasher Hasher
}

type snapshot struct {
	entries map[string]entry

	// dummyHash is verified against whenever the username is unknown or
	// disabled, so a lookup miss costs the same wall-clock time as a failed
	// comparison for a real user.
	dummyHash string
}

type entry struct {
	hash     string
	disabled bool
}

// NewStore builds a Store from the given entries. Malformed hashes, empty
// usernames, and duplicate usernames are configuration errors, surfaced at
// startup and never at request time.
func NewStore(entries []Entry, cfg Config) (*Store, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, apperr.Config("%v", err)
	}

	s := &Store{hasher: NewHasher(cfg)}
	snap, err := s.buildSnapshot(entries)
	if err != nil {
		return nil, err
	}
	s.snap.Store(snap)
	return s, nil
}

// FromConfig builds a Store from configuration, merging inline users with
// the optional credential file.
func FromConfig(cfg Config) (*Store, error) {
	entries := cfg.Users
	if cfg.File != "" {
		fileEntries, err := ParseFile(cfg.File)
		if err != nil {
			return nil, err
		}
		entries = append(append([]Entry{}, entries...), fileEntries...)
	}
	return NewStore(entries, cfg)
}

// ParseFile reads a htpasswd-style credential file: one "username:hash"
// pair per line, blank lines and '#' comments ignored. An unreadable file
// is a startup-fatal store error.
func ParseFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, apperr.StoreIO(path, err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		username, hash, found := strings.Cut(line, ":")
		if !found {
			return nil, apperr.Config("credential file %s: malformed line %q", path, line)
		}
		entries = append(entries, Entry{Username: username, Hash: hash})
	}
	if err := scanner.Err(); err != nil {
		return nil, apperr.StoreIO(path, err)
	}
	return entries, nil
}

// Verify checks a username/password pair against the current snapshot.
// Returns nil on success and an invalid-credentials error otherwise. The
// error and its timing never reveal whether the username exists: unknown
// and disabled usernames are verified against the snapshot's dummy hash.
func (s *Store) Verify(username, password string) error {
	snap := s.snap.Load()

	e, ok := snap.entries[username]
	if !ok || e.disabled {
		// Burn the same hashing cost as a real comparison.
		_ = s.verifyHash(password, snap.dummyHash)
		return apperr.InvalidCredentials()
	}
	if err := s.verifyHash(password, e.hash); err != nil {
		return apperr.InvalidCredentials()
	}
	return nil
}

// Swap validates a new entry set and installs it as the current snapshot.
// Readers in flight keep the snapshot they already loaded.
func (s *Store) Swap(entries []Entry) error {
	snap, err := s.buildSnapshot(entries)
	if err != nil {
		return err
	}
	s.snap.Store(snap)
	return nil
}

// Len returns the number of entries in the current snapshot, disabled
// entries included.
func (s *Store) Len() int {
	return len(s.snap.Load().entries)
}

func (s *Store) buildSnapshot(entries []Entry) (*snapshot, error) {
	m := make(map[string]entry, len(entries))
	for _, e := range entries {
		if e.Username == "" {
			return nil, apperr.Config("credential entry with empty username")
		}
		if _, err := verifierFor(e.Hash); err != nil {
			return nil, apperr.Config("credential entry %q: %v", e.Username, err)
		}
		if _, dup := m[e.Username]; dup {
			return nil, apperr.Config("duplicate credential entry %q", e.Username)
		}
		m[e.Username] = entry{hash: e.Hash, disabled: e.Disabled}
	}

	dummyPassword, err := generateRandomBytes(18)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	dummyHash, err := s.hasher.Hash(string(dummyPassword))
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &snapshot{entries: m, dummyHash: dummyHash}, nil
}

func (s *Store) verifyHash(password, hash string) error {
	verifier, err := verifierFor(hash)
	if err != nil {
		// Hashes are validated at load; treat as mismatch if it happens.
		return errors.Join(ErrMismatch, err)
	}
	return verifier.Verify(password, hash)
}
