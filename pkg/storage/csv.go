package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"

	"github.com/uhyunpark/lobsim/pkg/app/core/exchange"
)

// CSVTape writes one "time,price" line per trade. Cancels are skipped.
type CSVTape struct {
	mu     sync.Mutex
	closer io.Closer
	w      *csv.Writer
}

// NewCSVTape truncates path and writes trades to it.
func NewCSVTape(path string) (*CSVTape, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	return &CSVTape{closer: f, w: csv.NewWriter(f)}, nil
}

// NewCSVWriter writes trades to w. Close only flushes.
func NewCSVWriter(w io.Writer) *CSVTape {
	return &CSVTape{w: csv.NewWriter(w)}
}

func (c *CSVTape) Append(_ string, _ uint64, rec exchange.Record) error {
	t, ok := rec.Trade()
	if !ok {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.w.Write([]string{
		strconv.FormatFloat(t.Time, 'f', -1, 64),
		strconv.FormatInt(t.Price, 10),
	})
}

// WriteAll dumps the trades of a whole tape.
func (c *CSVTape) WriteAll(tape []exchange.Record) error {
	for i, rec := range tape {
		if err := c.Append("", uint64(i), rec); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
	}
	return nil
}

func (c *CSVTape) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.w.Flush()
	if err := c.w.Error(); err != nil {
		return err
	}
	if c.closer != nil {
		return c.closer.Close()
	}
	return nil
}
