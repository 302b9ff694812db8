package ratecard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/gyeh/billaudit/internal/model"
)

// FileBackend stores the whole document as one JSON file, rewritten on every
// change via a temp file and rename.
type FileBackend struct {
	path string

	mu  sync.Mutex
	doc *model.Document
}

// NewFileBackend returns a backend writing to path. The parent directory is
// created on first write.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

func (b *FileBackend) Load(ctx context.Context) (*model.Document, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	doc, err := b.read()
	if err != nil {
		return nil, err
	}
	b.doc = doc
	return cloneDocument(doc), nil
}

func (b *FileBackend) PutEntry(ctx context.Context, entry model.LedgerEntry) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.ensureLoaded(); err != nil {
		return err
	}
	b.doc.RateCard[entry.ServiceKey] = entry
	return b.write()
}

func (b *FileBackend) PutBills(ctx context.Context, bills []model.BillRecord) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.ensureLoaded(); err != nil {
		return err
	}
	b.doc.Bills = bills
	return b.write()
}

func (b *FileBackend) Close() error { return nil }

func (b *FileBackend) ensureLoaded() error {
	if b.doc != nil {
		return nil
	}
	doc, err := b.read()
	if err != nil {
		return err
	}
	b.doc = doc
	return nil
}

func (b *FileBackend) read() (*model.Document, error) {
	data, err := os.ReadFile(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return model.NewDocument(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history file: %w", err)
	}

	doc := model.NewDocument()
	if err := json.Unmarshal(data, doc); err != nil {
		return nil, fmt.Errorf("parse history file: %w", err)
	}
	if doc.Bills == nil {
		doc.Bills = []model.BillRecord{}
	}
	if doc.RateCard == nil {
		doc.RateCard = model.RateCard{}
	}
	for k, e := range doc.RateCard {
		if e.ServiceKey == "" {
			e.ServiceKey = k
			doc.RateCard[k] = e
		}
	}
	return doc, nil
}

func (b *FileBackend) write() error {
	data, err := json.MarshalIndent(b.doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create data dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(b.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), b.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replace history file: %w", err)
	}
	return nil
}

func cloneDocument(d *model.Document) *model.Document {
	out := &model.Document{
		Bills:    make([]model.BillRecord, len(d.Bills)),
		RateCard: make(model.RateCard, len(d.RateCard)),
	}
	copy(out.Bills, d.Bills)
	for k, e := range d.RateCard {
		out.RateCard[k] = e.Clone()
	}
	return out
}
