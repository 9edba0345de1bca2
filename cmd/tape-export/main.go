package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/uhyunpark/lobsim/pkg/storage"
	"github.com/uhyunpark/lobsim/pkg/util"
)

func main() {
	dbPath := flag.String("db", "data/tape", "pebble tape archive")
	sessionID := flag.String("session", "", "session id to export (empty lists sessions)")
	out := flag.String("out", "", "output CSV file (default stdout)")
	flag.Parse()

	logger, err := util.NewLogger(false)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()
	sugar := logger.Sugar()

	store, err := storage.NewPebbleStore(*dbPath)
	if err != nil {
		sugar.Fatalw("tape_db_open_failed", "path", *dbPath, "err", err)
	}
	defer store.Close()

	if *sessionID == "" {
		sessions, err := store.Sessions()
		if err != nil {
			sugar.Fatalw("session_list_failed", "err", err)
		}
		for _, m := range sessions {
			fmt.Printf("%s\tseed=%d\t[%g, %g)\tbuyers=%s\tsellers=%s\t%s\n",
				m.ID, m.Seed, m.Start, m.End, m.Buyers, m.Sellers, m.CreatedAt.Format("2006-01-02T15:04:05Z"))
		}
		return
	}

	tape, err := store.LoadTape(*sessionID)
	if err != nil {
		sugar.Fatalw("tape_load_failed", "session", *sessionID, "err", err)
	}

	var sink *storage.CSVTape
	if *out == "" {
		sink = storage.NewCSVWriter(os.Stdout)
	} else if sink, err = storage.NewCSVTape(*out); err != nil {
		sugar.Fatalw("csv_open_failed", "path", *out, "err", err)
	}
	if err := sink.WriteAll(tape); err != nil {
		sugar.Fatalw("csv_write_failed", "err", err)
	}
	if err := sink.Close(); err != nil {
		sugar.Fatalw("csv_close_failed", "err", err)
	}
	sugar.Infow("tape_exported", "session", *sessionID, "records", len(tape), "out", *out)
}
