package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/parquet-go/parquet-go"

	"tradesim/internal/domain"
)

// ResearchExporter writes trade and clickstream data to Parquet files for
// offline behavioral analysis. Files are grouped by calendar date and merged
// on re-export, so the exporter can run repeatedly over a live database.
type ResearchExporter struct {
	ExportDir string
}

// NewResearchExporter creates an exporter rooted at the given directory.
func NewResearchExporter(exportDir string) *ResearchExporter {
	return &ResearchExporter{ExportDir: exportDir}
}

// ---------------------------------------------------------------------------
// Parquet record types (on-disk schema)
// ---------------------------------------------------------------------------

// TradeExport is the Parquet schema for executed trades. Money fields are
// exported as strings to keep exact decimal values for analysis.
type TradeExport struct {
	TradeID   int64  `parquet:"trade_id"`
	SessionID string `parquet:"session_id"`
	Symbol    string `parquet:"symbol"`
	Side      string `parquet:"side"`
	Shares    int64  `parquet:"shares"`
	Price     string `parquet:"price"`
	Total     string `parquet:"total"`
	Timestamp int64  `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
}

// EventExport is the Parquet schema for clickstream events.
type EventExport struct {
	ClickID   int64  `parquet:"click_id"`
	SessionID string `parquet:"session_id"`
	EventType string `parquet:"event_type"`
	EventData string `parquet:"event_data"`
	PageURL   string `parquet:"page_url"`
	Timestamp int64  `parquet:"timestamp,timestamp(millisecond)"` // Unix ms
}

// ---------------------------------------------------------------------------
// Export
// ---------------------------------------------------------------------------

// ExportTrades writes trades to Parquet files grouped by date at:
//
//	<ExportDir>/trades/<YYYY-MM-DD>.parquet
//
// Existing files are merged by trade ID, preferring incoming records.
func (e *ResearchExporter) ExportTrades(_ context.Context, trades []domain.Trade) error {
	if len(trades) == 0 {
		return nil
	}

	groups := make(map[string][]TradeExport)
	for _, t := range trades {
		date := t.Timestamp.UTC().Format("2006-01-02")
		groups[date] = append(groups[date], TradeExport{
			TradeID:   t.ID,
			SessionID: t.SessionID,
			Symbol:    t.Symbol,
			Side:      string(t.Side),
			Shares:    t.Shares,
			Price:     t.Price.String(),
			Total:     t.Total.String(),
			Timestamp: t.Timestamp.UnixMilli(),
		})
	}

	for date, records := range groups {
		path := e.tradePath(date)

		existing, _ := readParquetFile[TradeExport](path)
		merged := mergeByID(existing, records, func(r TradeExport) int64 { return r.TradeID })

		if err := writeParquetFile(path, merged); err != nil {
			return fmt.Errorf("writing trades for %s: %w", date, err)
		}
	}
	return nil
}

// ExportEvents writes clickstream events to Parquet files grouped by date at:
//
//	<ExportDir>/events/<YYYY-MM-DD>.parquet
func (e *ResearchExporter) ExportEvents(_ context.Context, events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}

	groups := make(map[string][]EventExport)
	for _, ev := range events {
		date := ev.Timestamp.UTC().Format("2006-01-02")
		groups[date] = append(groups[date], EventExport{
			ClickID:   ev.ID,
			SessionID: ev.SessionID,
			EventType: ev.Type,
			EventData: string(ev.Data),
			PageURL:   ev.PageURL,
			Timestamp: ev.Timestamp.UnixMilli(),
		})
	}

	for date, records := range groups {
		path := e.eventPath(date)

		existing, _ := readParquetFile[EventExport](path)
		merged := mergeByID(existing, records, func(r EventExport) int64 { return r.ClickID })

		if err := writeParquetFile(path, merged); err != nil {
			return fmt.Errorf("writing events for %s: %w", date, err)
		}
	}
	return nil
}

// ReadTrades reads back an exported trade file for one date.
func (e *ResearchExporter) ReadTrades(date string) ([]TradeExport, error) {
	return readParquetFile[TradeExport](e.tradePath(date))
}

// ReadEvents reads back an exported event file for one date.
func (e *ResearchExporter) ReadEvents(date string) ([]EventExport, error) {
	return readParquetFile[EventExport](e.eventPath(date))
}

// ---------------------------------------------------------------------------
// Path and file helpers
// ---------------------------------------------------------------------------

func (e *ResearchExporter) tradePath(date string) string {
	return filepath.Join(e.ExportDir, "trades", date+".parquet")
}

func (e *ResearchExporter) eventPath(date string) string {
	return filepath.Join(e.ExportDir, "events", date+".parquet")
}

func writeParquetFile[T any](path string, records []T) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return parquet.WriteFile(path, records)
}

func readParquetFile[T any](path string) ([]T, error) {
	return parquet.ReadFile[T](path)
}

// mergeByID deduplicates records by ID, preferring incoming over existing.
// Results are sorted by ID.
func mergeByID[T any](existing, incoming []T, id func(T) int64) []T {
	seen := make(map[int64]T, len(existing)+len(incoming))
	for _, r := range existing {
		seen[id(r)] = r
	}
	for _, r := range incoming {
		seen[id(r)] = r
	}

	merged := make([]T, 0, len(seen))
	for _, r := range seen {
		merged = append(merged, r)
	}
	sort.Slice(merged, func(i, j int) bool {
		return id(merged[i]) < id(merged[j])
	})
	return merged
}
