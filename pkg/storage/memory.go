package storage

import (
	"encoding/json"
	"sync"

	"github.com/uhyunpark/lobsim/pkg/app/core/exchange"
)

// MemoryStore keeps tapes and reports in process memory.
type MemoryStore struct {
	mu      sync.Mutex
	tapes   map[string][]exchange.Record
	reports map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		tapes:   make(map[string][]exchange.Record),
		reports: make(map[string][]byte),
	}
}

func (s *MemoryStore) Append(sessionID string, _ uint64, rec exchange.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tapes[sessionID] = append(s.tapes[sessionID], rec)
	return nil
}

func (s *MemoryStore) LoadTape(sessionID string) ([]exchange.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tape := s.tapes[sessionID]
	out := make([]exchange.Record, len(tape))
	copy(out, tape)
	return out, nil
}

func (s *MemoryStore) SaveReport(sessionID string, report any) error {
	data, err := json.Marshal(report)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[sessionID] = data
	return nil
}

func (s *MemoryStore) LoadReport(sessionID string, out any) (bool, error) {
	s.mu.Lock()
	data, ok := s.reports[sessionID]
	s.mu.Unlock()
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(data, out)
}
