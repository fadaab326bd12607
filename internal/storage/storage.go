package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"guest-checkin/internal/checkin"
	"guest-checkin/internal/models"
)

// Storage is a guest table kept in a JSON file. It serves deployments that
// have no hosted table and backs the tests.
type Storage struct {
	mu      sync.RWMutex
	records []models.StoredRecord
	file    string
}

var _ checkin.Store = (*Storage)(nil)

// NewStorage creates a new storage instance
func NewStorage(filePath string) (*Storage, error) {
	s := &Storage{
		records: make([]models.StoredRecord, 0),
		file:    filePath,
	}

	// Load existing data if file exists
	if _, err := os.Stat(filePath); err == nil {
		if err := s.Load(); err != nil {
			return nil, fmt.Errorf("failed to load storage: %w", err)
		}
	}

	return s, nil
}

// Search returns every record matching q, in insertion order
func (s *Storage) Search(_ context.Context, q models.Query) ([]models.StoredRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []models.StoredRecord
	for _, r := range s.records {
		if q.Matches(r) {
			result = append(result, clone(r))
		}
	}
	return result, nil
}

// Update merges fields into the record with the given id
func (s *Storage) Update(_ context.Context, id string, fields map[string]any) (models.StoredRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, r := range s.records {
		if r.ID != id {
			continue
		}
		prev := r.Fields
		next := make(map[string]any, len(prev)+len(fields))
		for k, v := range prev {
			next[k] = v
		}
		for k, v := range fields {
			next[k] = v
		}
		s.records[i].Fields = next
		if err := s.Save(); err != nil {
			s.records[i].Fields = prev
			return models.StoredRecord{}, &checkin.StoreError{Op: "update", Err: err}
		}
		return clone(s.records[i]), nil
	}
	return models.StoredRecord{}, &checkin.StoreError{Op: "update", Message: fmt.Sprintf("record %s not found", id)}
}

// Create appends a record with a fresh id
func (s *Storage) Create(_ context.Context, fields map[string]any) (models.StoredRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := models.StoredRecord{ID: uuid.NewString(), Fields: make(map[string]any, len(fields))}
	for k, v := range fields {
		r.Fields[k] = v
	}
	s.records = append(s.records, r)
	if err := s.Save(); err != nil {
		s.records = s.records[:len(s.records)-1]
		return models.StoredRecord{}, &checkin.StoreError{Op: "create", Err: err}
	}
	return clone(r), nil
}

// All returns a copy of every record
func (s *Storage) All() []models.StoredRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	records := make([]models.StoredRecord, len(s.records))
	for i, r := range s.records {
		records[i] = clone(r)
	}
	return records
}

// Save saves the records to file. Callers hold the lock.
func (s *Storage) Save() error {
	data, err := json.MarshalIndent(s.records, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}

	// Ensure directory exists
	dir := filepath.Dir(s.file)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp := s.file + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	return os.Rename(tmp, s.file)
}

// Load loads records from file
func (s *Storage) Load() error {
	data, err := os.ReadFile(s.file)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	if len(data) == 0 {
		s.records = make([]models.StoredRecord, 0)
		return nil
	}

	if err := json.Unmarshal(data, &s.records); err != nil {
		return fmt.Errorf("failed to unmarshal data: %w", err)
	}
	for i := range s.records {
		if s.records[i].Fields == nil {
			s.records[i].Fields = map[string]any{}
		}
	}

	return nil
}

func clone(r models.StoredRecord) models.StoredRecord {
	out := models.StoredRecord{ID: r.ID, Fields: make(map[string]any, len(r.Fields))}
	for k, v := range r.Fields {
		out.Fields[k] = v
	}
	return out
}
