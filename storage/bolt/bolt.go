// Package bolt is a storage.Storage that uses bbolt: a bucket per
// session and a key per symbol.
//
// A symbol's value is its storage.SymbolState as JSON without the
// Symbol, which is the key.  A Deleted state removes the key.
package bolt

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"github.com/Comcast/mkernel/storage"

	bolt "go.etcd.io/bbolt"
)

// OpenTimeout is how long Open waits for the file lock.
var OpenTimeout = time.Second

// Storage persists sessions' definitions in one bbolt file.
type Storage struct {
	// Debug turns on logging of every operation.
	Debug bool

	filename string
	db       *bolt.DB
}

func NewStorage(filename string) (*Storage, error) {
	if filename == "" {
		return nil, errors.New("no filename")
	}
	return &Storage{
		filename: filename,
	}, nil
}

func (s *Storage) Open(ctx context.Context) error {
	db, err := bolt.Open(s.filename, 0644, &bolt.Options{
		Timeout: OpenTimeout,
	})
	if err != nil {
		return err
	}
	s.db = db
	s.logf("Open %s", s.filename)
	return nil
}

func (s *Storage) Close(ctx context.Context) error {
	if s.db == nil {
		return nil
	}
	s.logf("Close %s", s.filename)
	err := s.db.Close()
	s.db = nil
	return err
}

func (s *Storage) logf(format string, args ...interface{}) {
	if s.Debug {
		log.Printf("BoltDB Storage."+format, args...)
	}
}

func (s *Storage) MakeSession(ctx context.Context, sid string) error {
	s.logf("MakeSession %s", sid)
	return s.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(sid))
		return err
	})
}

// RemSession deletes the session.  A missing session isn't an error.
func (s *Storage) RemSession(ctx context.Context, sid string) error {
	s.logf("RemSession %s", sid)
	return s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket([]byte(sid)); err != bolt.ErrBucketNotFound {
			return err
		}
		return nil
	})
}

// Sessions lists the session ids in byte order.
func (s *Storage) Sessions(ctx context.Context) ([]string, error) {
	var acc []string
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.ForEach(func(name []byte, _ *bolt.Bucket) error {
			acc = append(acc, string(name))
			return nil
		})
	})
	s.logf("Sessions found %d", len(acc))
	return acc, err
}

// GetSession returns the session's states sorted by symbol.  An empty
// or missing session gives nil.
func (s *Storage) GetSession(ctx context.Context, sid string) ([]*storage.SymbolState, error) {
	var acc []*storage.SymbolState
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(sid))
		if b == nil {
			return nil
		}
		return b.ForEach(func(sym, bs []byte) error {
			ss := &storage.SymbolState{}
			if err := json.Unmarshal(bs, ss); err != nil {
				return err
			}
			ss.Symbol = string(sym)
			acc = append(acc, ss)
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	s.logf("GetSession %s found %d symbols", sid, len(acc))
	return acc, nil
}

// WriteState writes the given states in one transaction.
func (s *Storage) WriteState(ctx context.Context, sid string, sss []*storage.SymbolState) error {
	if len(sss) == 0 {
		return nil
	}
	if s.Debug {
		js, _ := json.Marshal(sss)
		s.logf("WriteState %s %s", sid, js)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(sid))
		if err != nil {
			return err
		}
		for _, ss := range sss {
			key := []byte(ss.Symbol)
			if ss.Deleted {
				if err := b.Delete(key); err != nil {
					return err
				}
				continue
			}
			val := *ss
			val.Symbol = ""
			js, err := json.Marshal(&val)
			if err != nil {
				return err
			}
			if err := b.Put(key, js); err != nil {
				return err
			}
		}
		return nil
	})
}
