package csvbackend

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/FranksOps/ddgs/internal/storage"
)

// ensure csvBackend implements storage.Backend
var _ storage.Backend = (*csvBackend)(nil)

type csvBackend struct {
	mu   sync.Mutex
	file *os.File
}

// columns defines the CSV column order
var columns = []string{
	"id",
	"endpoint",
	"method",
	"url",
	"status_code",
	"headers_json",
	"body_size",
	"duration_ms",
	"profile",
	"proxy",
	"detected_bot",
	"detection_src",
	"created_at",
	"error",
}

// New creates a new CSV-backed storage.Backend. A header row is written when
// the file is empty.
func New(filePath string) (storage.Backend, error) {
	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("context: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("context: %w", err)
	}

	if info.Size() == 0 {
		if err := writeRecord(f, columns); err != nil {
			f.Close()
			return nil, err
		}
	}

	return &csvBackend{file: f}, nil
}

func writeRecord(w io.Writer, record []string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(record); err != nil {
		return fmt.Errorf("context: %w", err)
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("context: %w", err)
	}
	return nil
}

func encode(e *storage.Exchange) ([]string, error) {
	headersJSON, err := json.Marshal(e.Headers)
	if err != nil {
		return nil, fmt.Errorf("context: %w", err)
	}
	return []string{
		e.ID,
		e.Endpoint,
		e.Method,
		e.URL,
		strconv.Itoa(e.StatusCode),
		string(headersJSON),
		strconv.FormatInt(e.BodySize, 10),
		strconv.FormatInt(e.Duration.Milliseconds(), 10),
		e.Profile,
		e.Proxy,
		strconv.FormatBool(e.DetectedBot),
		e.DetectionSrc,
		e.CreatedAt.Format(time.RFC3339Nano),
		e.Error,
	}, nil
}

// decode is lenient: unparsable numeric or time cells become zero values.
func decode(record []string) *storage.Exchange {
	statusCode, _ := strconv.Atoi(record[4])
	var headers map[string][]string
	if err := json.Unmarshal([]byte(record[5]), &headers); err != nil {
		headers = map[string][]string{}
	}
	bodySize, _ := strconv.ParseInt(record[6], 10, 64)
	durationMs, _ := strconv.ParseInt(record[7], 10, 64)
	detectedBot, _ := strconv.ParseBool(record[10])
	createdAt, _ := time.Parse(time.RFC3339Nano, record[12])

	return &storage.Exchange{
		ID:           record[0],
		Endpoint:     record[1],
		Method:       record[2],
		URL:          record[3],
		StatusCode:   statusCode,
		Headers:      headers,
		BodySize:     bodySize,
		Duration:     time.Duration(durationMs) * time.Millisecond,
		Profile:      record[8],
		Proxy:        record[9],
		DetectedBot:  detectedBot,
		DetectionSrc: record[11],
		CreatedAt:    createdAt,
		Error:        record[13],
	}
}

func (b *csvBackend) Save(ctx context.Context, e *storage.Exchange) error {
	record, err := encode(e)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	return writeRecord(b.file, record)
}

func (b *csvBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.Exchange, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("context: %w", err)
	}
	defer func() {
		_, _ = b.file.Seek(0, io.SeekEnd)
	}()

	r := csv.NewReader(b.file)
	r.FieldsPerRecord = -1

	if _, err := r.Read(); err != nil {
		if errors.Is(err, io.EOF) {
			return []*storage.Exchange{}, nil
		}
		return nil, fmt.Errorf("context: %w", err)
	}

	var matched []*storage.Exchange
	for {
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("context: %w", err)
		}
		if len(record) != len(columns) {
			continue // skip malformed rows
		}

		if e := decode(record); filter.Match(e) {
			matched = append(matched, e)
		}
	}

	return filter.Window(matched), nil
}

func (b *csvBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file.Close()
}
