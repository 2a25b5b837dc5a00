package store

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"

	"github.com/ppiankov/banklab/internal/ingest"
	"github.com/ppiankov/banklab/internal/model"
)

// WriteCSV writes t to w with its header
func WriteCSV(w io.Writer, t Table) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(t.records()); err != nil {
		return fmt.Errorf("write %s: %w", t.Name, err)
	}
	return nil
}

// WriteCSVFile writes t to path, replacing any existing file
func WriteCSVFile(path string, t Table) error {
	return writeFile(path, func(w io.Writer) error { return WriteCSV(w, t) })
}

// WriteRawFacts writes the raw-fact table
func WriteRawFacts(path string, facts []model.RawFact) error {
	return writeFile(path, func(w io.Writer) error { return ingest.WriteRawFacts(w, facts) })
}

// ReadRawFacts loads a raw-fact table written by WriteRawFacts
func ReadRawFacts(path string) ([]model.RawFact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return ingest.ReadRawFacts(f)
}

// WritePrices writes the daily price table
func WritePrices(path string, bars []model.PriceBar) error {
	return writeFile(path, func(w io.Writer) error { return ingest.WritePrices(w, bars) })
}

// ReadPrices loads a daily price table. A missing file yields no bars.
func ReadPrices(path string) ([]model.PriceBar, error) {
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	return ingest.ReadPrices(f)
}

// writeFile writes through a temp file in the target directory and renames it into place
func writeFile(path string, write func(io.Writer) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := write(tmp); err != nil {
		_ = tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename %s: %w", path, err)
	}
	log.WithField("path", path).Debug("Wrote file")
	return nil
}
