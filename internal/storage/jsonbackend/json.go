// Package jsonbackend stores exchanges as newline-delimited JSON, one record
// per line, appended in arrival order.
package jsonbackend

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/FranksOps/ddgs/internal/storage"
)

var _ storage.Backend = (*ndjson)(nil)

type ndjson struct {
	mu   sync.Mutex
	file *os.File
	w    *bufio.Writer
	enc  *json.Encoder
}

// New opens, or creates, the NDJSON file at path.
func New(path string) (storage.Backend, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0o644)
	if err != nil {
		return nil, fmt.Errorf("context: %w", err)
	}
	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &ndjson{file: f, w: w, enc: enc}, nil
}

// Save appends e. Each record is flushed before Save returns.
func (b *ndjson) Save(_ context.Context, e *storage.Exchange) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err := b.enc.Encode(e); err != nil {
		return fmt.Errorf("context: %w", err)
	}
	if err := b.w.Flush(); err != nil {
		return fmt.Errorf("context: %w", err)
	}
	return nil
}

// Query streams the file from the start. The write offset is unaffected
// since the file is opened in append mode.
func (b *ndjson) Query(ctx context.Context, filter storage.Filter) ([]*storage.Exchange, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	dec := json.NewDecoder(io.NewSectionReader(b.file, 0, 1<<62))
	var matched []*storage.Exchange
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		e := new(storage.Exchange)
		err := dec.Decode(e)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("context: %w", err)
		}
		if filter.Match(e) {
			matched = append(matched, e)
		}
	}
	return filter.Window(matched), nil
}

func (b *ndjson) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.w.Flush(); err != nil {
		b.file.Close()
		return fmt.Errorf("context: %w", err)
	}
	return b.file.Close()
}
