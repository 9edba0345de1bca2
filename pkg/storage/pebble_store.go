package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/cockroachdb/pebble"

	"github.com/uhyunpark/lobsim/pkg/app/core/exchange"
)

// SessionMeta identifies one archived session.
type SessionMeta struct {
	ID        string
	Seed      int64
	Start     float64
	End       float64
	Buyers    string
	Sellers   string
	CreatedAt time.Time
}

// PebbleStore archives session tapes and reports.
type PebbleStore struct {
	db *pebble.DB
}

func NewPebbleStore(path string) (*PebbleStore, error) {
	db, err := pebble.Open(path, &pebble.Options{})
	if err != nil {
		return nil, err
	}
	return &PebbleStore{db: db}, nil
}

func (s *PebbleStore) Close() error { return s.db.Close() }

// SaveSession records session metadata.
func (s *PebbleStore) SaveSession(meta SessionMeta) error {
	val, err := encodeGob(meta)
	if err != nil {
		return fmt.Errorf("failed to encode session: %w", err)
	}
	if err := s.db.Set(sessionKey(meta.ID), val, pebble.Sync); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Sessions lists every archived session in id order.
func (s *PebbleStore) Sessions() ([]SessionMeta, error) {
	prefix := []byte(prefixSession)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open iterator: %w", err)
	}
	defer iter.Close()

	var out []SessionMeta
	for iter.First(); iter.Valid(); iter.Next() {
		var meta SessionMeta
		if err := decodeGob(iter.Value(), &meta); err != nil {
			return nil, fmt.Errorf("failed to decode session %q: %w", iter.Key(), err)
		}
		out = append(out, meta)
	}
	return out, nil
}

// Append persists one tape record. Writes are not synced individually;
// SaveReport syncs the log at the end of the session.
func (s *PebbleStore) Append(sessionID string, seq uint64, rec exchange.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}
	if err := s.db.Set(tapeKey(sessionID, seq), data, pebble.NoSync); err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}
	return nil
}

// LoadTape returns the whole tape of a session in order.
func (s *PebbleStore) LoadTape(sessionID string) ([]exchange.Record, error) {
	prefix := tapePrefix(sessionID)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open iterator: %w", err)
	}
	defer iter.Close()

	var tape []exchange.Record
	for iter.First(); iter.Valid(); iter.Next() {
		var rec exchange.Record
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal record: %w", err)
		}
		tape = append(tape, rec)
	}
	return tape, nil
}

// LoadRecentTrades returns up to limit trades, newest first.
func (s *PebbleStore) LoadRecentTrades(sessionID string, limit int) ([]exchange.Trade, error) {
	prefix := tapePrefix(sessionID)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: prefix,
		UpperBound: keyUpperBound(prefix),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open iterator: %w", err)
	}
	defer iter.Close()

	var trades []exchange.Trade
	for iter.Last(); iter.Valid() && len(trades) < limit; iter.Prev() {
		var rec exchange.Record
		if err := json.Unmarshal(iter.Value(), &rec); err != nil {
			continue
		}
		if t, ok := rec.Trade(); ok {
			trades = append(trades, t)
		}
	}
	return trades, nil
}

// SaveReport stores the end-of-session report as JSON.
func (s *PebbleStore) SaveReport(sessionID string, report any) error {
	data, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}
	if err := s.db.Set(reportKey(sessionID), data, pebble.Sync); err != nil {
		return fmt.Errorf("failed to save report: %w", err)
	}
	return nil
}

// LoadReport decodes a stored report into out. It returns false when the
// session has no report.
func (s *PebbleStore) LoadReport(sessionID string, out any) (bool, error) {
	data, closer, err := s.db.Get(reportKey(sessionID))
	if errors.Is(err, pebble.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get report: %w", err)
	}
	defer closer.Close()

	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("failed to unmarshal report: %w", err)
	}
	return true, nil
}
