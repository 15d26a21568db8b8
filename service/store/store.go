package store

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"sort"
	"sync"
)

// ErrPersist is returned when a record cannot be appended to the backing file.
var ErrPersist = errors.New("failed to persist transaction")

// maxLineSize bounds a single record line. Longer lines are skipped.
const maxLineSize = 1 << 20

// Transaction is a normalized transaction record.
// Records are immutable once created.
type Transaction struct {
	Signature string `json:"signature"`
	Sender    string `json:"sender"`
	Receiver  string `json:"receiver"`
	Amount    uint64 `json:"amount"`
	Timestamp uint64 `json:"timestamp"` // Unix seconds, 0 if the block time was unavailable
}

// Store keeps transactions grouped by tracking key and mirrors every insert
// to an append-only JSON-lines file.
//
// A single mutex guards the whole map. The backing file is opened per append,
// so no file handle outlives a call.
type Store struct {
	mu     sync.Mutex
	txns   map[string][]Transaction
	path   string
	logger *slog.Logger
}

// New creates an empty store backed by the file at path.
// The file is created lazily on the first insert.
func New(path string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		txns:   make(map[string][]Transaction),
		path:   path,
		logger: logger,
	}
}

// Path returns the backing file path.
func (s *Store) Path() string {
	return s.path
}

// Insert appends txn to the backing file and then to the sequence for key.
// If the append fails the in-memory state is left untouched and the returned
// error wraps ErrPersist.
func (s *Store) Insert(key string, txn Transaction) error {
	line, err := json.Marshal(txn)
	if err != nil {
		return fmt.Errorf("%w: marshal %s: %v", ErrPersist, txn.Signature, err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.appendLine(line); err != nil {
		s.logger.Error("failed to append transaction to backing file",
			"path", s.path,
			"signature", txn.Signature,
			"error", err,
		)
		return fmt.Errorf("%w: %v", ErrPersist, err)
	}

	s.txns[key] = append(s.txns[key], txn)
	return nil
}

func (s *Store) appendLine(line []byte) error {
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open %s: %w", s.path, err)
	}
	if _, err := f.Write(line); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", s.path, err)
	}
	return f.Close()
}

// Reload hydrates the store from the backing file. Each line is decoded on its
// own; undecodable lines are skipped. Records are grouped by their Sender.
// A missing file loads nothing. Returns the number of records loaded.
//
// Reload must only be called during initialization, before the store is
// shared with the ingestion loop or the HTTP handlers.
func (s *Store) Reload() (int, error) {
	f, err := os.Open(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		s.logger.Info("no backing file found, starting empty", "path", s.path)
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", s.path, err)
	}
	defer f.Close()

	s.mu.Lock()
	defer s.mu.Unlock()

	loaded := 0
	skipped, err := decodeLines(f, func(txn Transaction) {
		s.txns[txn.Sender] = append(s.txns[txn.Sender], txn)
		loaded++
	})
	if err != nil {
		return loaded, fmt.Errorf("read %s: %w", s.path, err)
	}

	s.logger.Info("reloaded transactions from backing file",
		"path", s.path,
		"loaded", loaded,
		"skipped", skipped,
	)
	return loaded, nil
}

// ReadFile decodes every parseable record of a backing file in file order.
// It returns the records and the number of lines that failed to decode.
func ReadFile(path string) ([]Transaction, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	var txns []Transaction
	skipped, err := decodeLines(f, func(txn Transaction) {
		txns = append(txns, txn)
	})
	if err != nil {
		return txns, skipped, fmt.Errorf("read %s: %w", path, err)
	}
	return txns, skipped, nil
}

// decodeLines calls fn for every line of r that decodes as a Transaction and
// returns how many non-blank lines did not. Lines longer than maxLineSize are
// discarded without being buffered and count as skipped.
func decodeLines(r io.Reader, fn func(Transaction)) (int, error) {
	br := bufio.NewReaderSize(r, 64*1024)

	skipped := 0
	var line []byte
	tooLong := false
	for {
		chunk, err := br.ReadSlice('\n')
		if !tooLong {
			if len(line)+len(chunk) > maxLineSize {
				tooLong = true
				line = line[:0]
			} else {
				line = append(line, chunk...)
			}
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}

		switch {
		case tooLong:
			skipped++
		case len(bytes.TrimSpace(line)) > 0:
			var txn Transaction
			if jerr := json.Unmarshal(line, &txn); jerr != nil {
				skipped++
			} else {
				fn(txn)
			}
		}
		line = line[:0]
		tooLong = false

		if errors.Is(err, io.EOF) {
			return skipped, nil
		}
		if err != nil {
			return skipped, err
		}
	}
}

// Query returns a copy of the transactions stored under key, in insertion
// order. The result is empty, never nil, when the key is unknown.
func (s *Store) Query(key string) []Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()

	txns := s.txns[key]
	out := make([]Transaction, len(txns))
	copy(out, txns)
	return out
}

// Keys returns the tracking keys currently present, sorted.
func (s *Store) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, 0, len(s.txns))
	for k := range s.txns {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the total number of stored transactions across all keys.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, txns := range s.txns {
		n += len(txns)
	}
	return n
}
