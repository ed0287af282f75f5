package client

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var profilesBucket = []byte("profiles")

// Profile is what the client remembers about a server between runs.
type Profile struct {
	Username string    `json:"username"`
	Token    string    `json:"token,omitempty"`
	SavedAt  time.Time `json:"saved_at"`
}

// Store keeps one Profile per server address in a bbolt file.
type Store struct {
	db *bolt.DB
}

func OpenStore(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open client store %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(profilesBucket)
		return err
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to prepare client store: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Save(addr string, p Profile) error {
	if p.SavedAt.IsZero() {
		p.SavedAt = time.Now().UTC()
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(profilesBucket).Put([]byte(addr), raw)
	})
}

// Load returns the profile saved for addr; ok is false when none exists.
func (s *Store) Load(addr string) (p Profile, ok bool, err error) {
	err = s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(profilesBucket).Get([]byte(addr))
		if raw == nil {
			return nil
		}
		ok = true
		return json.Unmarshal(raw, &p)
	})
	return p, ok, err
}

// ForgetToken keeps the username but drops the token, e.g. after logout.
func (s *Store) ForgetToken(addr string) error {
	p, ok, err := s.Load(addr)
	if err != nil || !ok {
		return err
	}
	p.Token = ""
	return s.Save(addr, p)
}

func (s *Store) Delete(addr string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(profilesBucket).Delete([]byte(addr))
	})
}

func (s *Store) Close() error { return s.db.Close() }
