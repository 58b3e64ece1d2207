// Package fs implements a filesystem-backed queue vendor on top of viant/afs.
// Messages survive restarts, which makes it the vendor of choice when the
// form service and the user service run as separate processes sharing a
// mounted queue location.
package fs

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/viant/afs"
	"github.com/viant/afs/file"

	"github.com/skillstorm/reimbursement/internal/idgen"
	"github.com/skillstorm/reimbursement/service/messaging"
)

// Config holds configuration for the filesystem queue.
type Config struct {
	BaseURL      string        // base location for queue entries
	MaxRetries   int           // attempts before a message moves to the dlq
	PollInterval time.Duration // how often Consume re-lists the pending dir
}

// DefaultConfig returns a default queue configuration.
func DefaultConfig() Config {
	return Config{
		BaseURL:      "/tmp/reimbursement/queue",
		MaxRetries:   3,
		PollInterval: 50 * time.Millisecond,
	}
}

type envelope[T any] struct {
	ID        string    `json:"id"`
	Data      T         `json:"data"`
	Retries   int       `json:"retries"`
	CreatedAt time.Time `json:"createdAt"`
}

// Message implements messaging.Message for the filesystem queue.
type Message[T any] struct {
	envelope  envelope[T]
	location  string
	queue     *Queue[T]
	mu        sync.Mutex
	processed bool
}

// T returns the message payload.
func (m *Message[T]) T() *T {
	return &m.envelope.Data
}

// Ack removes the message from the processing directory.
func (m *Message[T]) Ack() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return fmt.Errorf("message already processed")
	}
	m.processed = true
	return m.queue.fs.Delete(context.Background(), m.location)
}

// Nack requeues the message for another attempt, or parks it in the dlq once
// the retry limit is exhausted.
func (m *Message[T]) Nack(err error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.processed {
		return fmt.Errorf("message already processed")
	}
	m.processed = true
	m.envelope.Retries++

	destDir := m.queue.pendingURL
	if m.envelope.Retries > m.queue.config.MaxRetries {
		destDir = m.queue.dlqURL
	}
	ctx := context.Background()
	data, mErr := json.Marshal(m.envelope)
	if mErr != nil {
		return mErr
	}
	dest := path.Join(destDir, path.Base(m.location))
	if uErr := m.queue.fs.Upload(ctx, dest, file.DefaultFileOsMode, strings.NewReader(string(data))); uErr != nil {
		return uErr
	}
	return m.queue.fs.Delete(ctx, m.location)
}

// Queue implements a filesystem-based messaging.Queue.
type Queue[T any] struct {
	fs            afs.Service
	config        Config
	pendingURL    string
	processingURL string
	dlqURL        string
	mu            sync.Mutex
}

// NewQueue creates a new filesystem-backed queue rooted at config.BaseURL.
func NewQueue[T any](fs afs.Service, config Config) (*Queue[T], error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("base URL cannot be empty")
	}
	if config.PollInterval <= 0 {
		config.PollInterval = DefaultConfig().PollInterval
	}
	q := &Queue[T]{
		fs:            fs,
		config:        config,
		pendingURL:    path.Join(config.BaseURL, "pending"),
		processingURL: path.Join(config.BaseURL, "processing"),
		dlqURL:        path.Join(config.BaseURL, "dlq"),
	}
	ctx := context.Background()
	for _, dir := range []string{q.pendingURL, q.processingURL, q.dlqURL} {
		if exists, _ := fs.Exists(ctx, dir); exists {
			continue
		}
		if err := fs.Create(ctx, dir, file.DefaultDirOsMode, true); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return q, nil
}

// Publish writes a message to the pending directory. Filenames embed the
// creation timestamp so consumption is oldest-first.
func (q *Queue[T]) Publish(ctx context.Context, t *T) error {
	entry := envelope[T]{
		ID:        idgen.New(),
		Data:      *t,
		CreatedAt: time.Now(),
	}
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}
	name := fmt.Sprintf("%020d-%s.json", entry.CreatedAt.UnixNano(), entry.ID)
	return q.fs.Upload(ctx, path.Join(q.pendingURL, name), file.DefaultFileOsMode, strings.NewReader(string(data)))
}

// Consume blocks until a pending message is available or ctx is done. The
// claimed message is moved to the processing directory before it is returned
// so concurrent consumers never see it twice.
func (q *Queue[T]) Consume(ctx context.Context) (messaging.Message[T], error) {
	ticker := time.NewTicker(q.config.PollInterval)
	defer ticker.Stop()
	for {
		msg, err := q.tryConsume(ctx)
		if err != nil || msg != nil {
			return msg, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (q *Queue[T]) tryConsume(ctx context.Context) (messaging.Message[T], error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	objects, err := q.fs.List(ctx, q.pendingURL)
	if err != nil {
		return nil, fmt.Errorf("failed to list pending messages: %w", err)
	}
	var names []string
	for _, object := range objects {
		if !object.IsDir() && strings.HasSuffix(object.Name(), ".json") {
			names = append(names, object.Name())
		}
	}
	if len(names) == 0 {
		return nil, nil
	}
	sort.Strings(names)
	name := names[0]

	pendingLocation := path.Join(q.pendingURL, name)
	data, err := q.fs.DownloadWithURL(ctx, pendingLocation)
	if err != nil {
		return nil, fmt.Errorf("failed to download message %s: %w", name, err)
	}
	var entry envelope[T]
	if err = json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal message %s: %w", name, err)
	}

	processingLocation := path.Join(q.processingURL, name)
	if err = q.fs.Upload(ctx, processingLocation, file.DefaultFileOsMode, strings.NewReader(string(data))); err != nil {
		return nil, err
	}
	if err = q.fs.Delete(ctx, pendingLocation); err != nil {
		return nil, err
	}
	return &Message[T]{envelope: entry, location: processingLocation, queue: q}, nil
}

// Size returns the number of pending messages.
func (q *Queue[T]) Size(ctx context.Context) int {
	objects, err := q.fs.List(ctx, q.pendingURL)
	if err != nil {
		return 0
	}
	count := 0
	for _, object := range objects {
		if !object.IsDir() && strings.HasSuffix(object.Name(), ".json") {
			count++
		}
	}
	return count
}

var _ messaging.Queue[any] = (*Queue[any])(nil)
