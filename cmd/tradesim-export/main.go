// One-shot tool: export recorded trades and clickstream events to parquet
// for offline analysis. Rows are grouped into one file per UTC date under
// <export-dir>/trades/ and <export-dir>/events/; re-running merges with any
// existing files, so the export is safe to repeat as data accumulates.
//
// Usage:
//
//	go build -o bin/tradesim-export ./cmd/tradesim-export/
//	bin/tradesim-export [-trades] [-events]
//
// With no flags both datasets are exported.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"

	"tradesim/internal/config"
	"tradesim/internal/store"
)

func main() {
	var (
		tradesOnly = flag.Bool("trades", false, "export trades only")
		eventsOnly = flag.Bool("events", false, "export clickstream events only")
	)
	flag.Parse()

	godotenv.Load()

	cfgPath := "config/tradesim.yaml"
	if p := os.Getenv("TRADESIM_CONFIG"); p != "" {
		cfgPath = p
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		if !os.IsNotExist(err) {
			log.Fatalf("failed to load config: %v", err)
		}
		cfg = config.Default()
	}

	st, err := store.NewSQLiteStore(cfg.Storage.SQLitePath)
	if err != nil {
		log.Fatalf("opening sqlite store: %v", err)
	}
	defer st.Close()

	exporter := store.NewResearchExporter(cfg.Storage.ExportDir)
	ctx := context.Background()

	doTrades := !*eventsOnly
	doEvents := !*tradesOnly

	if doTrades {
		trades, err := st.ListAllTrades(ctx)
		if err != nil {
			log.Fatalf("reading trades: %v", err)
		}
		if err := exporter.ExportTrades(ctx, trades); err != nil {
			log.Fatalf("exporting trades: %v", err)
		}
		fmt.Printf("exported %d trades to %s\n", len(trades), cfg.Storage.ExportDir)
	}

	if doEvents {
		events, err := st.ListAllEvents(ctx)
		if err != nil {
			log.Fatalf("reading events: %v", err)
		}
		if err := exporter.ExportEvents(ctx, events); err != nil {
			log.Fatalf("exporting events: %v", err)
		}
		fmt.Printf("exported %d events to %s\n", len(events), cfg.Storage.ExportDir)
	}
}
