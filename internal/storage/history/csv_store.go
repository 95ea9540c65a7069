package history

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/nuntius/internal/interfaces"
	"github.com/ternarybob/nuntius/internal/models"
)

// header is the fixed column set of the send log. External tooling depends on
// this layout, so it never changes shape; new information goes into new logs.
var header = []string{"date", "identifier", "locator", "outcome", "error", "message"}

// Store is the append-only CSV send log. It is the single source of truth for
// dedup and reporting. Appends go through one long-lived writer; scans open
// independent read handles so reporting never disturbs the write position.
type Store struct {
	path   string
	file   *os.File
	writer *csv.Writer
	logger arbor.ILogger
}

// Open opens or creates the send log at path, writing the header row when
// the file is new.
func Open(path string, logger arbor.ILogger) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create history directory: %w", err)
	}

	info, err := os.Stat(path)
	isNew := os.IsNotExist(err) || (err == nil && info.Size() == 0)

	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open history log: %w", err)
	}

	s := &Store{
		path:   path,
		file:   file,
		writer: csv.NewWriter(file),
		logger: logger,
	}

	if isNew {
		if err := s.writer.Write(header); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to write history header: %w", err)
		}
		s.writer.Flush()
		if err := s.writer.Error(); err != nil {
			file.Close()
			return nil, fmt.Errorf("failed to flush history header: %w", err)
		}
		logger.Info().Str("path", path).Msg("History log created")
	}

	return s, nil
}

// Append writes one attempt record and flushes it to disk. Records are never
// edited or deleted afterwards.
func (s *Store) Append(attempt models.SendAttempt) error {
	row := []string{
		attempt.Timestamp.Format(models.TimestampFormat),
		attempt.Identifier,
		attempt.Locator,
		string(attempt.Outcome),
		attempt.ErrorDetail,
		attempt.MessageExcerpt,
	}
	if err := s.writer.Write(row); err != nil {
		return fmt.Errorf("failed to append history record: %w", err)
	}
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		return fmt.Errorf("failed to flush history record: %w", err)
	}
	return nil
}

// Scan streams records with Timestamp >= since in log order. Malformed rows
// (wrong column count, unparsable date, unknown outcome) are skipped, never
// fatal: the log may contain rows from older tooling or truncated writes.
// fn returning false stops the scan early.
func (s *Store) Scan(since time.Time, fn func(models.SendAttempt) bool) error {
	file, err := os.Open(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("failed to open history log for scan: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1 // tolerate ragged rows, validated per record below

	first := true
	skipped := 0
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			skipped++
			continue
		}
		if first {
			first = false
			if len(row) > 0 && row[0] == header[0] {
				continue
			}
		}

		attempt, ok := parseRow(row)
		if !ok {
			skipped++
			continue
		}
		if attempt.Timestamp.Before(since) {
			continue
		}
		if !fn(attempt) {
			break
		}
	}

	if skipped > 0 {
		s.logger.Debug().Int("skipped", skipped).Str("path", s.path).Msg("Skipped malformed history rows")
	}
	return nil
}

// BuildIndex scans Success records strictly newer than now - windowDays and
// returns identifier -> most recent Success timestamp. Rebuilt at campaign
// start; never persisted.
func (s *Store) BuildIndex(now time.Time, windowDays int) (models.HistoryIndex, error) {
	cutoff := now.AddDate(0, 0, -windowDays)
	index := make(models.HistoryIndex)

	err := s.Scan(time.Time{}, func(attempt models.SendAttempt) bool {
		if attempt.Outcome != models.OutcomeSuccess {
			return true
		}
		if !attempt.Timestamp.After(cutoff) {
			return true
		}
		if prev, ok := index[attempt.Identifier]; !ok || attempt.Timestamp.After(prev) {
			index[attempt.Identifier] = attempt.Timestamp
		}
		return true
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info().
		Int("identifiers", len(index)).
		Int("window_days", windowDays).
		Msg("Rolling history index built")

	return index, nil
}

// Close releases the writer handle.
func (s *Store) Close() error {
	s.writer.Flush()
	if err := s.writer.Error(); err != nil {
		s.file.Close()
		return err
	}
	return s.file.Close()
}

// parseRow converts one CSV row into a SendAttempt, reporting whether the
// row was well formed.
func parseRow(row []string) (models.SendAttempt, bool) {
	if len(row) < len(header) {
		return models.SendAttempt{}, false
	}
	ts, err := time.ParseInLocation(models.TimestampFormat, row[0], time.Local)
	if err != nil {
		return models.SendAttempt{}, false
	}
	outcome := models.Outcome(row[3])
	if outcome != models.OutcomeSuccess && outcome != models.OutcomeFailed {
		return models.SendAttempt{}, false
	}
	if row[1] == "" {
		return models.SendAttempt{}, false
	}
	return models.SendAttempt{
		Timestamp:      ts,
		Identifier:     row[1],
		Locator:        row[2],
		Outcome:        outcome,
		ErrorDetail:    row[4],
		MessageExcerpt: row[5],
	}, true
}

// interface guard
var _ interfaces.HistoryStorage = (*Store)(nil)
