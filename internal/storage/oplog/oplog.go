// Package oplog implements the append-only operation log that is the
// durable source of truth for platform reviews. Each mutation of the review
// store is appended as one CSV row; replaying the rows in order rebuilds the
// live review set. Compaction rewrites the file down to one create row per
// live review.
//
// The log is not safe for concurrent use on its own: the review store
// serializes all calls under its write lock.
package oplog

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/cinescope/movie_reviewer/internal/domain"
)

// Op is the kind of a logged mutation.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Entry is one durable record of a review mutation. Create and update
// entries carry the full review state; delete entries only need the id.
type Entry struct {
	Op     Op
	Review domain.Review
}

var header = []string{
	"operation", "review_id", "movie_id", "user_id",
	"imdb_username", "rating", "review_text", "review_date",
}

// Log is an append-only CSV operation log. The file handle stays open in
// append mode between writes; compaction swaps the file atomically and
// reopens it.
type Log struct {
	path    string
	file    *os.File
	writer  *csv.Writer
	entries int
}

// Open opens (or creates) the operation log at path and counts its existing
// entries. A malformed existing file is an error: silently skipping rows
// would mean silent data loss on replay.
func Open(path string) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}

	l := &Log{path: path}

	entries, err := l.readAll()
	if err != nil {
		return nil, err
	}
	l.entries = len(entries)

	if err := l.openAppend(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Log) openAppend() error {
	_, statErr := os.Stat(l.path)
	fresh := os.IsNotExist(statErr)

	file, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open operation log: %w", err)
	}
	l.file = file
	l.writer = csv.NewWriter(file)

	if fresh {
		if err := l.writer.Write(header); err != nil {
			file.Close()
			return fmt.Errorf("write log header: %w", err)
		}
		l.writer.Flush()
		if err := l.writer.Error(); err != nil {
			file.Close()
			return fmt.Errorf("write log header: %w", err)
		}
	}
	return nil
}

// Append durably records one entry. The row is flushed and synced before
// returning so that a successful append survives a crash.
func (l *Log) Append(op Op, review domain.Review) error {
	if err := l.writer.Write(encode(op, review)); err != nil {
		return fmt.Errorf("append %s entry for %s: %w", op, review.ID, err)
	}
	l.writer.Flush()
	if err := l.writer.Error(); err != nil {
		return fmt.Errorf("append %s entry for %s: %w", op, review.ID, err)
	}
	if err := l.file.Sync(); err != nil {
		return fmt.Errorf("sync operation log: %w", err)
	}
	l.entries++
	return nil
}

// Replay reads every entry in append order. Create and update entries upsert
// their review id, delete entries remove it; the caller applies them with
// last-writer-wins semantics. A row that cannot be parsed fails the replay.
func (l *Log) Replay() ([]Entry, error) {
	return l.readAll()
}

// Compact rewrites the log to exactly one create entry per review in live,
// preserving the given order, and returns the number of entries discarded.
// The rewrite goes through a temp file and an atomic rename so a crash mid
// compaction leaves the previous log intact.
func (l *Log) Compact(live []domain.Review) (int, error) {
	tmp, err := os.CreateTemp(filepath.Dir(l.path), "reviews-compact-*.csv")
	if err != nil {
		return 0, fmt.Errorf("create compaction temp file: %w", err)
	}
	tmpPath := tmp.Name()

	w := csv.NewWriter(tmp)
	if err := w.Write(header); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return 0, fmt.Errorf("write compacted header: %w", err)
	}
	for _, review := range live {
		if err := w.Write(encode(OpCreate, review)); err != nil {
			tmp.Close()
			os.Remove(tmpPath)
			return 0, fmt.Errorf("write compacted entry for %s: %w", review.ID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return 0, fmt.Errorf("flush compacted log: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return 0, fmt.Errorf("sync compacted log: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("close compacted log: %w", err)
	}

	if err := l.file.Close(); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("close operation log: %w", err)
	}
	if err := os.Rename(tmpPath, l.path); err != nil {
		os.Remove(tmpPath)
		return 0, fmt.Errorf("swap compacted log: %w", err)
	}

	discarded := l.entries - len(live)
	l.entries = len(live)
	if err := l.openAppend(); err != nil {
		return discarded, err
	}
	return discarded, nil
}

// Len returns the number of entries currently in the log file.
func (l *Log) Len() int {
	return l.entries
}

// Close releases the underlying file handle.
func (l *Log) Close() error {
	l.writer.Flush()
	if err := l.writer.Error(); err != nil {
		l.file.Close()
		return err
	}
	return l.file.Close()
}

func (l *Log) readAll() ([]Entry, error) {
	file, err := os.Open(l.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open operation log: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = len(header)

	var entries []Entry
	for line := 1; ; line++ {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("operation log %s line %d: %w", l.path, line, err)
		}
		if line == 1 {
			continue // header row
		}
		entry, err := decode(record)
		if err != nil {
			return nil, fmt.Errorf("operation log %s line %d: %w", l.path, line, err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func encode(op Op, review domain.Review) []string {
	userID := ""
	if review.UserID != nil {
		userID = *review.UserID
	}
	return []string{
		string(op),
		review.ID,
		review.MovieID,
		userID,
		review.IMDBUsername,
		strconv.Itoa(review.Rating),
		review.ReviewText,
		review.ReviewDate,
	}
}

func decode(record []string) (Entry, error) {
	op := Op(record[0])
	switch op {
	case OpCreate, OpUpdate, OpDelete:
	default:
		return Entry{}, fmt.Errorf("unknown operation %q", record[0])
	}

	rating, err := strconv.Atoi(record[5])
	if err != nil {
		return Entry{}, fmt.Errorf("invalid rating %q: %w", record[5], err)
	}

	review := domain.Review{
		ID:           record[1],
		MovieID:      record[2],
		IMDBUsername: record[4],
		Rating:       rating,
		ReviewText:   record[6],
		ReviewDate:   record[7],
	}
	if record[3] != "" {
		userID := record[3]
		review.UserID = &userID
	}
	return Entry{Op: op, Review: review}, nil
}
