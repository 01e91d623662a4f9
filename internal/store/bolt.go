package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

var menusServedBucket = []byte("menus_served")

// maxMenusServed caps how far back a session can navigate.
const maxMenusServed = 50

var ErrNoPreviousMenu = errors.New("store: no previous menu")

// MenusServed is the navigation trail of a single USSD session, plus the
// last request answered so a gateway retry gets the same reply.
type MenusServed struct {
	SessionID   string    `json:"session_id"`
	PhoneNumber string    `json:"phone_number"`
	Menus       []string  `json:"menus"`
	LastText    string    `json:"last_text,omitempty"`
	LastReply   *Reply    `json:"last_reply,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Reply is a response already sent to the subscriber.
type Reply struct {
	Text string `json:"text"`
	End  bool   `json:"end"`
}

type Store interface {
	Track(sessionID, phone, menuID string) error
	Latest(sessionID string) (string, error)
	Previous(sessionID string) (string, error)
	Clear(sessionID string) error
	Remember(sessionID, phone, text string, reply Reply) error
	Replay(sessionID, text string) (*Reply, error)
	Cleanup(maxAge time.Duration) (int, error)
	Close() error
}

type BoltStore struct {
	db  *bolt.DB
	now func() time.Time
}

func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(menusServedBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating menus_served bucket: %w", err)
	}

	return &BoltStore{db: db, now: time.Now}, nil
}

// Track appends menuID to the session trail. Re-serving the current menu is a no-op.
func (s *BoltStore) Track(sessionID, phone, menuID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(menusServedBucket)
		ms, err := get(b, sessionID)
		if err != nil {
			return err
		}
		if ms == nil {
			ms = &MenusServed{SessionID: sessionID, PhoneNumber: phone}
		}
		if n := len(ms.Menus); n > 0 && ms.Menus[n-1] == menuID {
			return nil
		}
		ms.Menus = append(ms.Menus, menuID)
		if len(ms.Menus) > maxMenusServed {
			ms.Menus = ms.Menus[len(ms.Menus)-maxMenusServed:]
		}
		return s.put(b, ms)
	})
}

// Latest returns the menu currently shown to the session, or "" if none was served.
func (s *BoltStore) Latest(sessionID string) (string, error) {
	var latest string
	err := s.db.View(func(tx *bolt.Tx) error {
		ms, err := get(tx.Bucket(menusServedBucket), sessionID)
		if err != nil || ms == nil || len(ms.Menus) == 0 {
			return err
		}
		latest = ms.Menus[len(ms.Menus)-1]
		return nil
	})
	return latest, err
}

// Previous drops the current menu from the trail and returns the one before it.
func (s *BoltStore) Previous(sessionID string) (string, error) {
	var prev string
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(menusServedBucket)
		ms, err := get(b, sessionID)
		if err != nil {
			return err
		}
		if ms == nil || len(ms.Menus) < 2 {
			return ErrNoPreviousMenu
		}
		ms.Menus = ms.Menus[:len(ms.Menus)-1]
		prev = ms.Menus[len(ms.Menus)-1]
		return s.put(b, ms)
	})
	return prev, err
}

// Remember records the reply sent for the raw request text.
func (s *BoltStore) Remember(sessionID, phone, text string, reply Reply) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(menusServedBucket)
		ms, err := get(b, sessionID)
		if err != nil {
			return err
		}
		if ms == nil {
			ms = &MenusServed{SessionID: sessionID, PhoneNumber: phone}
		}
		ms.LastText = text
		ms.LastReply = &reply
		return s.put(b, ms)
	})
}

// Replay returns the reply remembered for text, or nil when text is not the
// last request this session answered.
func (s *BoltStore) Replay(sessionID, text string) (*Reply, error) {
	var reply *Reply
	err := s.db.View(func(tx *bolt.Tx) error {
		ms, err := get(tx.Bucket(menusServedBucket), sessionID)
		if err != nil || ms == nil || ms.LastReply == nil || ms.LastText != text {
			return err
		}
		reply = ms.LastReply
		return nil
	})
	return reply, err
}

func (s *BoltStore) Clear(sessionID string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(menusServedBucket).Delete([]byte(sessionID))
	})
}

// Cleanup removes trails not updated within maxAge and reports how many were dropped.
func (s *BoltStore) Cleanup(maxAge time.Duration) (int, error) {
	cutoff := s.now().Add(-maxAge)
	removed := 0
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(menusServedBucket)
		var stale [][]byte
		err := b.ForEach(func(k, v []byte) error {
			var ms MenusServed
			if err := json.Unmarshal(v, &ms); err != nil {
				return fmt.Errorf("decoding session %s: %w", k, err)
			}
			if ms.UpdatedAt.Before(cutoff) {
				stale = append(stale, append([]byte(nil), k...))
			}
			return nil
		})
		if err != nil {
			return err
		}
		for _, k := range stale {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(stale)
		return nil
	})
	return removed, err
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}

func get(b *bolt.Bucket, sessionID string) (*MenusServed, error) {
	v := b.Get([]byte(sessionID))
	if v == nil {
		return nil, nil
	}
	var ms MenusServed
	if err := json.Unmarshal(v, &ms); err != nil {
		return nil, err
	}
	return &ms, nil
}

func (s *BoltStore) put(b *bolt.Bucket, ms *MenusServed) error {
	ms.UpdatedAt = s.now()
	data, err := json.Marshal(ms)
	if err != nil {
		return err
	}
	return b.Put([]byte(ms.SessionID), data)
}
