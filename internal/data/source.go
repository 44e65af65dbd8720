// Package data loads pre-provisioned shopper accounts for the journey simulator.
package data

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
)

// Mode defines how accounts are handed out to sessions.
type Mode string

const (
	// ModeSequential iterates through rows in order, wrapping around.
	ModeSequential Mode = "sequential"
	// ModeRandom selects a random row for each session.
	ModeRandom Mode = "random"
)

// Account is one shopper the target already knows, or will after registration.
type Account struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Source hands out accounts to concurrent sessions.
type Source struct {
	accounts []Account
	mode     Mode
	counter  atomic.Uint64
	mu       sync.Mutex
	rng      *rand.Rand
}

// NewSource creates a source over accounts.
func NewSource(accounts []Account, mode Mode) *Source {
	if mode == "" {
		mode = ModeSequential
	}
	return &Source{
		accounts: accounts,
		mode:     mode,
		rng:      rand.New(rand.NewSource(rand.Int63())),
	}
}

// Len returns the number of accounts.
func (s *Source) Len() int {
	return len(s.accounts)
}

// Next returns the next account based on the iteration mode.
// Safe for concurrent use by multiple sessions.
func (s *Source) Next() (Account, bool) {
	if len(s.accounts) == 0 {
		return Account{}, false
	}

	var idx int
	switch s.mode {
	case ModeRandom:
		s.mu.Lock()
		idx = s.rng.Intn(len(s.accounts))
		s.mu.Unlock()
	default: // ModeSequential
		n := s.counter.Add(1) - 1
		idx = int(n % uint64(len(s.accounts)))
	}

	return s.accounts[idx], true
}

// LoadFile loads accounts from a CSV or JSON file. Relative paths are resolved
// against baseDir, normally the directory of the config file.
func LoadFile(path string, mode Mode, baseDir string) (*Source, error) {
	if !filepath.IsAbs(path) && baseDir != "" {
		path = filepath.Join(baseDir, path)
	}

	var accounts []Account
	var err error

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		accounts, err = loadCSV(path)
	case ".json":
		accounts, err = loadJSON(path)
	default:
		return nil, fmt.Errorf("unsupported file format %q (use .csv or .json)", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", path, err)
	}

	if len(accounts) == 0 {
		return nil, fmt.Errorf("users file %s is empty", path)
	}
	for i, a := range accounts {
		if a.Email == "" {
			return nil, fmt.Errorf("users file %s: row %d has no email", path, i+1)
		}
	}

	return NewSource(accounts, mode), nil
}

// loadCSV loads a CSV file whose header row names the columns
// email, password, first_name and last_name. Only email is required.
func loadCSV(path string) ([]Account, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}

	if len(records) < 2 {
		return nil, fmt.Errorf("CSV must have header row and at least one data row")
	}

	col := make(map[string]int)
	for i, h := range records[0] {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	if _, ok := col["email"]; !ok {
		return nil, fmt.Errorf("CSV header must contain an email column")
	}

	field := func(record []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(record) {
			return ""
		}
		return strings.TrimSpace(record[i])
	}

	accounts := make([]Account, 0, len(records)-1)
	for _, record := range records[1:] {
		accounts = append(accounts, Account{
			Email:     field(record, "email"),
			Password:  field(record, "password"),
			FirstName: field(record, "first_name"),
			LastName:  field(record, "last_name"),
		})
	}
	return accounts, nil
}

// loadJSON loads a JSON array of account objects.
func loadJSON(path string) ([]Account, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var accounts []Account
	if err := json.Unmarshal(data, &accounts); err != nil {
		return nil, fmt.Errorf("JSON must be an array of objects: %w", err)
	}
	return accounts, nil
}
