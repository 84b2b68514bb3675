package services

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"fleet-analytics-service/internal/adapters/repositories"
	"fleet-analytics-service/internal/domain"
	"fleet-analytics-service/internal/platform/db"
	"fleet-analytics-service/internal/ports"
)

var errBoom = errors.New("boom")

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// fakeRepo routes queries to callbacks; nil callbacks return empty results.
type fakeRepo struct {
	mu    sync.Mutex
	fetch func(query string, args []any) ([]ports.Row, error)
	exec  func(query string, args []any) (int64, error)
	execs [][]any
}

func (f *fakeRepo) FetchAll(ctx context.Context, query string, args ...any) ([]ports.Row, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fetch == nil {
		return nil, nil
	}
	return f.fetch(query, args)
}

func (f *fakeRepo) Execute(ctx context.Context, query string, args ...any) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.execs = append(f.execs, args)
	if f.exec == nil {
		return 1, nil
	}
	return f.exec(query, args)
}

type memoryStore struct {
	data []byte
}

func (m *memoryStore) Read(ctx context.Context) ([]byte, error) {
	if m.data == nil {
		return nil, ports.ErrArtifactNotFound
	}
	return m.data, nil
}

func (m *memoryStore) Write(ctx context.Context, data []byte) error {
	m.data = append([]byte(nil), data...)
	return nil
}

func (m *memoryStore) Location() string { return "memory" }

type fakeCache struct {
	summary     *domain.OptimizationSummary
	puts        int
	invalidated int
}

func (c *fakeCache) Get(ctx context.Context) (domain.OptimizationSummary, bool, error) {
	if c.summary == nil {
		return domain.OptimizationSummary{}, false, nil
	}
	return *c.summary, true, nil
}

func (c *fakeCache) Put(ctx context.Context, s domain.OptimizationSummary) error {
	c.puts++
	c.summary = &s
	return nil
}

func (c *fakeCache) Invalidate(ctx context.Context) error {
	c.invalidated++
	c.summary = nil
	return nil
}

type recordingPublisher struct {
	events []domain.AssignmentEvent
	err    error
}

func (p *recordingPublisher) PublishAssignment(ctx context.Context, e domain.AssignmentEvent) error {
	p.events = append(p.events, e)
	return p.err
}

// newSeededRepo returns a repository over an in-memory database holding seed.
func newSeededRepo(t *testing.T, seed repositories.Seed) (*repositories.SqlRepository, *sql.DB) {
	t.Helper()
	conn, err := db.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if err := repositories.InitSchema(conn); err != nil {
		t.Fatalf("init schema: %v", err)
	}
	if err := repositories.InsertSeed(context.Background(), conn, repositories.DialectQuestion, seed, nil); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return repositories.NewSqlRepository(conn, repositories.DialectQuestion), conn
}

func minutes(v int) *int { return &v }

var fixedNow = time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)

func clock() time.Time { return fixedNow }
