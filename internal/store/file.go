package store

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"

	appLog "rxremind/internal/log"
	"rxremind/internal/model"
)

// ErrCorrupt is returned when the data file exists but cannot be decoded.
var ErrCorrupt = errors.New("store: data file is corrupt")

// document is the on-disk layout of the data file.
type document struct {
	Prescriptions []model.Prescription   `yaml:"prescriptions"`
	Reminders     []model.Reminder       `yaml:"reminders"`
	Refills       []model.RefillReminder `yaml:"refill_reminders"`
}

// File persists all collections in a single YAML document. Every save
// rewrites the whole file atomically (temp file + rename, 0600).
type File struct {
	mu   sync.Mutex
	path string
}

func NewFile(path string) *File {
	return &File{path: path}
}

func (f *File) Path() string {
	return f.path
}

func (f *File) LoadPrescriptions(_ context.Context) ([]model.Prescription, error) {
	doc, err := f.read()
	if err != nil {
		return nil, err
	}
	return clonePrescriptions(doc.Prescriptions), nil
}

func (f *File) SavePrescriptions(_ context.Context, ps []model.Prescription) error {
	return f.update(func(doc *document) { doc.Prescriptions = clonePrescriptions(ps) })
}

func (f *File) LoadReminders(_ context.Context) ([]model.Reminder, error) {
	doc, err := f.read()
	if err != nil {
		return nil, err
	}
	return cloneReminders(doc.Reminders), nil
}

func (f *File) SaveReminders(_ context.Context, rs []model.Reminder) error {
	return f.update(func(doc *document) { doc.Reminders = cloneReminders(rs) })
}

func (f *File) LoadRefills(_ context.Context) ([]model.RefillReminder, error) {
	doc, err := f.read()
	if err != nil {
		return nil, err
	}
	return append([]model.RefillReminder{}, doc.Refills...), nil
}

func (f *File) SaveRefills(_ context.Context, rs []model.RefillReminder) error {
	return f.update(func(doc *document) { doc.Refills = append([]model.RefillReminder{}, rs...) })
}

func (f *File) read() (document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.readLocked()
}

func (f *File) readLocked() (document, error) {
	var doc document
	data, err := os.ReadFile(f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return doc, nil
		}
		return doc, fmt.Errorf("store: read %s: %w", f.path, err)
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		appLog.Error("store: decode failed", err, "path", f.path)
		return document{}, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return doc, nil
}

func (f *File) update(mutate func(*document)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	doc, err := f.readLocked()
	if err != nil {
		return err
	}
	mutate(&doc)
	return f.writeLocked(doc)
}

func (f *File) writeLocked(doc document) error {
	dir := filepath.Dir(f.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return err
	}

	data, err := yaml.Marshal(&doc)
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".rxremind-data-*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return err
	}
	return os.Rename(tmpName, f.path)
}
