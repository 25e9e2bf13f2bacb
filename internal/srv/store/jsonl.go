package store

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/jypelle/papier/apimodel"
)

// JSONLinesManifest keeps one JSON record per line in a flat file. The whole file is held in memory,
// additions are appended and removals rewrite the file.
type JSONLinesManifest struct {
	lock      sync.RWMutex
	path      string
	records   map[string]Record
	locations map[string]string
}

var _ Manifest = (*JSONLinesManifest)(nil)

func OpenJSONLinesManifest(path string) (*JSONLinesManifest, error) {
	m := &JSONLinesManifest{
		path:      path,
		records:   make(map[string]Record),
		locations: make(map[string]string),
	}

	content, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if err := os.MkdirAll(filepath.Dir(path), 0770); err != nil {
				return nil, fmt.Errorf("unable to create manifest folder: %w", err)
			}
			return m, nil
		}
		return nil, fmt.Errorf("unable to read manifest %s: %w", path, err)
	}

	scanner := bufio.NewScanner(bytes.NewReader(content))
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)
	line := 0
	for scanner.Scan() {
		line++
		raw := bytes.TrimSpace(scanner.Bytes())
		if len(raw) == 0 {
			continue
		}
		var record Record
		if err := json.Unmarshal(raw, &record); err != nil {
			return nil, fmt.Errorf("corrupted manifest %s at line %d: %w", path, line, err)
		}
		m.records[record.Id] = record
		m.locations[record.StorageLocation] = record.Id
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("unable to read manifest %s: %w", path, err)
	}
	return m, nil
}

func (m *JSONLinesManifest) Get(id string) (*Record, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	record, ok := m.records[id]
	if !ok {
		return nil, nil
	}
	return &record, nil
}

func (m *JSONLinesManifest) List() ([]Record, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	records := make([]Record, 0, len(m.records))
	for _, record := range m.records {
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Id < records[j].Id })
	return records, nil
}

func (m *JSONLinesManifest) Add(record Record) error {
	m.lock.Lock()
	defer m.lock.Unlock()

	if _, exists := m.records[record.Id]; exists {
		return apimodel.AlreadyExistsf("manifest record %s", record.Id)
	}
	if id, used := m.locations[record.StorageLocation]; used {
		return apimodel.AlreadyExistsf("storage location %s already used by %s", record.StorageLocation, id)
	}

	raw, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("unable to encode manifest record %s: %w", record.Id, err)
	}
	f, err := os.OpenFile(m.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0660)
	if err != nil {
		return fmt.Errorf("unable to open manifest %s: %w", m.path, err)
	}
	defer f.Close()
	if _, err := f.Write(append(raw, '\n')); err != nil {
		return fmt.Errorf("unable to append to manifest %s: %w", m.path, err)
	}

	m.records[record.Id] = record
	m.locations[record.StorageLocation] = record.Id
	return nil
}

func (m *JSONLinesManifest) Remove(id string) (bool, error) {
	m.lock.Lock()
	defer m.lock.Unlock()

	record, exists := m.records[id]
	if !exists {
		return false, nil
	}
	delete(m.records, id)
	if err := m.rewrite(); err != nil {
		m.records[id] = record
		return false, err
	}
	delete(m.locations, record.StorageLocation)
	return true, nil
}

func (m *JSONLinesManifest) HasLocation(location string) (bool, error) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	_, used := m.locations[location]
	return used, nil
}

func (m *JSONLinesManifest) Close() error {
	return nil
}

func (m *JSONLinesManifest) rewrite() error {
	ids := make([]string, 0, len(m.records))
	for id := range m.records {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var buf bytes.Buffer
	encoder := json.NewEncoder(&buf)
	for _, id := range ids {
		if err := encoder.Encode(m.records[id]); err != nil {
			return fmt.Errorf("unable to encode manifest record %s: %w", id, err)
		}
	}

	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0660); err != nil {
		return fmt.Errorf("unable to write manifest %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		return fmt.Errorf("unable to replace manifest %s: %w", m.path, err)
	}
	return nil
}
