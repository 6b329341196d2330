// Package backup exports and imports collection data as JSONL, one
// record per line. Exports are plain text so they survive tooling
// changes, and imports go through the synchronizer so they merge with
// existing records instead of clobbering them.
package backup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/fathom/ledgerdesk/internal/identity"
	"github.com/fathom/ledgerdesk/internal/model"
	"github.com/fathom/ledgerdesk/internal/store/local"
	"github.com/fathom/ledgerdesk/internal/syncer"
)

// Line is one exported record together with its collection.
type Line struct {
	Collection string       `json:"collection"`
	Record     model.Fields `json:"record"`
}

// Result contains statistics about an export or import run.
type Result struct {
	RecordsWritten int
	RecordsSkipped int
	BackupCreated  string
	Errors         []string
}

// ImportOptions configures an import run.
type ImportOptions struct {
	// DryRun previews the import without writing anything.
	DryRun bool

	// Backup exports the current store next to path before importing.
	Backup bool
}

// exportCollections is everything Export covers by default.
var exportCollections = append(append([]string{}, model.StandardCollections...), model.CollectionSettings)

// Export writes every record in the local store to a JSONL file at path.
func Export(adapter *local.Adapter, path string) (*Result, error) {
	result := &Result{}

	tmpPath := path + ".tmp"
	// #nosec G304 - controlled path from CLI
	file, err := os.Create(tmpPath)
	if err != nil {
		return nil, fmt.Errorf("failed to create export file: %w", err)
	}

	enc := json.NewEncoder(file)
	for _, collection := range exportCollections {
		for _, record := range adapter.Load(collection) {
			if err := enc.Encode(Line{Collection: collection, Record: record}); err != nil {
				_ = file.Close()
				_ = os.Remove(tmpPath)
				return nil, fmt.Errorf("failed to encode record: %w", err)
			}
			result.RecordsWritten++
		}
	}

	if err := file.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to close export file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return nil, fmt.Errorf("failed to rename export file: %w", err)
	}

	return result, nil
}

// Import reads a JSONL file and saves each record through the
// synchronizer. Records merge with existing ones by id; lines without
// an id or with an unknown collection are skipped and reported.
func Import(ctx context.Context, sc *syncer.Synchronizer, id identity.Identity, adapter *local.Adapter, path string, opts ImportOptions) (*Result, error) {
	result := &Result{}

	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("input file does not exist: %w", err)
	}

	if opts.Backup && !opts.DryRun {
		backupPath := path + ".backup." + time.Now().Format("20060102-150405")
		if _, err := Export(adapter, backupPath); err != nil {
			return nil, fmt.Errorf("failed to back up current store: %w", err)
		}
		result.BackupCreated = backupPath
	}

	// #nosec G304 - controlled path from CLI
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open import file: %w", err)
	}
	defer file.Close()

	dec := json.NewDecoder(file)
	lineNum := 0
	for {
		var line Line
		if err := dec.Decode(&line); err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("invalid JSON at line %d: %w", lineNum+1, err)
		}
		lineNum++

		if !knownCollection(line.Collection) {
			result.RecordsSkipped++
			result.Errors = append(result.Errors,
				fmt.Sprintf("line %d: unknown collection %q", lineNum, line.Collection))
			continue
		}
		if line.Record.ID() == "" {
			result.RecordsSkipped++
			result.Errors = append(result.Errors,
				fmt.Sprintf("line %d: record has no id", lineNum))
			continue
		}

		if !opts.DryRun {
			if err := sc.Save(ctx, id, line.Collection, line.Record); err != nil {
				result.Errors = append(result.Errors,
					fmt.Sprintf("line %d: failed to save %s: %v", lineNum, line.Record.ID(), err))
				continue
			}
		}
		result.RecordsWritten++
	}

	return result, nil
}

func knownCollection(name string) bool {
	for _, c := range exportCollections {
		if c == name {
			return true
		}
	}
	return false
}
