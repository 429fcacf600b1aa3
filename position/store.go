package position

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/rs/zerolog"
)

const (
	// positionsDir is the directory holding open position records.
	positionsDir = "positions"
	// ledgerFile is the append-only closed trade ledger.
	ledgerFile = "closed_positions.json"
)

// StoreConfig represents the position store configuration.
type StoreConfig struct {
	// Dir is the state directory holding position records and the ledger.
	Dir string
	// Logger represents the application logger.
	Logger *zerolog.Logger
}

// Store persists open positions as one flat file per symbol and closed trades
// as an append-only ledger. It is not safe for multi-process access, the
// mutex only serializes accidental concurrent use within the process.
type Store struct {
	cfg *StoreConfig
	mtx sync.Mutex
}

// NewStore initializes the position store, creating the state directory if
// it does not exist.
func NewStore(cfg *StoreConfig) (*Store, error) {
	if cfg.Dir == "" {
		return nil, fmt.Errorf("store directory cannot be an empty string")
	}

	err := os.MkdirAll(filepath.Join(cfg.Dir, positionsDir), 0o755)
	if err != nil {
		return nil, fmt.Errorf("creating positions directory: %w", err)
	}

	return &Store{cfg: cfg}, nil
}

// positionKey derives the filesystem-safe key of the provided symbol.
func positionKey(symbol string) string {
	return strings.ReplaceAll(symbol, "/", "_")
}

// positionPath derives the record path of the provided symbol.
func (s *Store) positionPath(symbol string) string {
	return filepath.Join(s.cfg.Dir, positionsDir, positionKey(symbol)+".json")
}

// ledgerPath derives the closed trade ledger path.
func (s *Store) ledgerPath() string {
	return filepath.Join(s.cfg.Dir, ledgerFile)
}

// Load fetches the open position for the provided symbol. A missing record
// means no open position and returns nil without an error.
func (s *Store) Load(symbol string) (*Position, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	data, err := os.ReadFile(s.positionPath(symbol))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading position record for %s: %w", symbol, err)
	}

	var pos Position
	err = json.Unmarshal(data, &pos)
	if err != nil {
		return nil, fmt.Errorf("unmarshaling position record for %s: %w", symbol, err)
	}

	return &pos, nil
}

// Save persists the provided open position keyed by its symbol.
func (s *Store) Save(pos *Position) error {
	err := pos.Validate()
	if err != nil {
		return err
	}

	s.mtx.Lock()
	defer s.mtx.Unlock()

	data, err := json.MarshalIndent(pos, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling position record for %s: %w", pos.Symbol, err)
	}

	err = os.WriteFile(s.positionPath(pos.Symbol), data, 0o644)
	if err != nil {
		return fmt.Errorf("writing position record for %s: %w", pos.Symbol, err)
	}

	return nil
}

// Clear removes the open position record for the provided symbol. A missing
// record is not an error.
func (s *Store) Clear(symbol string) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	err := os.Remove(s.positionPath(symbol))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing position record for %s: %w", symbol, err)
	}

	return nil
}

// CountOpen returns the number of open positions.
func (s *Store) CountOpen() (int, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	entries, err := os.ReadDir(filepath.Join(s.cfg.Dir, positionsDir))
	if err != nil {
		return 0, fmt.Errorf("listing position records: %w", err)
	}

	var count int
	for idx := range entries {
		if strings.HasSuffix(entries[idx].Name(), ".json") {
			count++
		}
	}

	return count, nil
}

// Symbols returns the symbols with open positions.
func (s *Store) Symbols() ([]string, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	entries, err := os.ReadDir(filepath.Join(s.cfg.Dir, positionsDir))
	if err != nil {
		return nil, fmt.Errorf("listing position records: %w", err)
	}

	symbols := make([]string, 0, len(entries))
	for idx := range entries {
		name := entries[idx].Name()
		if !strings.HasSuffix(name, ".json") {
			continue
		}

		key := strings.TrimSuffix(name, ".json")
		symbols = append(symbols, strings.ReplaceAll(key, "_", "/"))
	}

	return symbols, nil
}

// ClosedTrades fetches the closed trade ledger in append order. A missing
// ledger returns an empty slice.
func (s *Store) ClosedTrades() ([]ClosedTrade, error) {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	return s.loadLedger()
}

// loadLedger reads the ledger without locking, callers must hold the mutex.
func (s *Store) loadLedger() ([]ClosedTrade, error) {
	data, err := os.ReadFile(s.ledgerPath())
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []ClosedTrade{}, nil
		}
		return nil, fmt.Errorf("reading closed trade ledger: %w", err)
	}

	var trades []ClosedTrade
	err = json.Unmarshal(data, &trades)
	if err != nil {
		return nil, fmt.Errorf("unmarshaling closed trade ledger: %w", err)
	}

	return trades, nil
}

// AppendClosedTrade appends the provided trade to the ledger, preserving all
// prior entries in order.
func (s *Store) AppendClosedTrade(trade *ClosedTrade) error {
	s.mtx.Lock()
	defer s.mtx.Unlock()

	trades, err := s.loadLedger()
	if err != nil {
		return err
	}

	trades = append(trades, *trade)
	data, err := json.MarshalIndent(trades, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling closed trade ledger: %w", err)
	}

	err = os.WriteFile(s.ledgerPath(), data, 0o644)
	if err != nil {
		return fmt.Errorf("writing closed trade ledger: %w", err)
	}

	return nil
}
