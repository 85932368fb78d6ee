// Package logfile implements the append-only activity log kept at each
// workspace root. Entries are plain text lines, one per timer fire,
// carrying the logged coding duration and an RFC 3339 timestamp.
package logfile

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Name is the fixed log file name placed at every workspace root.
const Name = "worklog-log"

// PathFor returns the log file path for a workspace root.
func PathFor(root string) string {
	return filepath.Join(root, Name)
}

// Entry is one recorded activity interval.
type Entry struct {
	LoggedFor time.Duration // active coding time covered by this entry
	At        time.Time     // wall-clock instant the entry was written
}

// Format renders the entry as a single newline-terminated log line.
func (e Entry) Format() string {
	return fmt.Sprintf("%s\t%s\n", e.At.Format(time.RFC3339), e.LoggedFor)
}

// ParseLine parses a line previously produced by Format.
func ParseLine(line string) (Entry, error) {
	ts, dur, ok := strings.Cut(strings.TrimRight(line, "\n"), "\t")
	if !ok {
		return Entry{}, fmt.Errorf("malformed log line: %q", line)
	}
	at, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return Entry{}, fmt.Errorf("malformed log timestamp: %w", err)
	}
	d, err := time.ParseDuration(dur)
	if err != nil {
		return Entry{}, fmt.Errorf("malformed log duration: %w", err)
	}
	return Entry{LoggedFor: d, At: at}, nil
}

// Exists reports whether a log file is present at path.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Append writes the entry to the log file at path, creating the file
// on first write and appending thereafter.
func Append(path string, e Entry) error {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("opening log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(e.Format()); err != nil {
		return fmt.Errorf("appending log entry: %w", err)
	}
	return nil
}

// Read returns all entries in the log file at path, oldest first.
// A missing file yields an empty slice, not an error. Malformed lines
// are skipped.
func Read(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading log file: %w", err)
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		e, err := ParseLine(line)
		if err != nil {
			continue
		}
		entries = append(entries, e)
	}
	return entries, scanner.Err()
}

// Total sums the logged durations of all entries.
func Total(entries []Entry) time.Duration {
	var total time.Duration
	for _, e := range entries {
		total += e.LoggedFor
	}
	return total
}

// Delete removes the log file at path. Removing an absent file is not
// an error.
func Delete(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("deleting log file: %w", err)
	}
	return nil
}
