package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alexanderramin/signoff/internal/db"
	"github.com/alexanderramin/signoff/internal/domain"
	"github.com/alexanderramin/signoff/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newConcurrentTestDB creates a file-backed SQLite database in a temp directory.
// Unlike :memory:, a file-backed DB shares state across all connections in the
// pool, which is required to test real concurrent access with WAL mode.
func newConcurrentTestDB(t *testing.T) *sql.DB {
	t.Helper()
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "concurrent_test.db")
	database, err := db.OpenDB(dbPath)
	require.NoError(t, err, "failed to create concurrent test database")
	t.Cleanup(func() { database.Close() })
	return database
}

func TestConcurrentAccess_TaskSequence_NoDuplicateSeq(t *testing.T) {
	database := newConcurrentTestDB(t)
	ctx := context.Background()
	uow := db.NewSQLiteUnitOfWork(database)

	const workers = 40
	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		seen  = make(map[int]bool, workers)
		errCh = make(chan error, workers)
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := uow.WithinTx(ctx, func(ctx context.Context, tx db.DBTX) error {
				seq, err := NewSQLTaskSequenceRepo(tx).NextTaskSeq(ctx, "20250615")
				if err != nil {
					return err
				}
				mu.Lock()
				defer mu.Unlock()
				if seen[seq] {
					t.Errorf("duplicate seq %d", seq)
				}
				seen[seq] = true
				return nil
			})
			if err != nil {
				errCh <- err
			}
		}()
	}
	wg.Wait()
	close(errCh)
	for err := range errCh {
		require.NoError(t, err)
	}
	assert.Len(t, seen, workers)
	for i := 1; i <= workers; i++ {
		assert.Truef(t, seen[i], "seq %d was never allocated", i)
	}
}

// TestConcurrentAccess_ResolvePending_SingleWinner races many claims on
// one pending record. Exactly one claim must succeed.
func TestConcurrentAccess_ResolvePending_SingleWinner(t *testing.T) {
	database := newConcurrentTestDB(t)
	ctx := context.Background()
	s := NewStores(database)
	seed := seedFlow(t, s)
	n1 := seed.nodes[0]

	task := testutil.NewTestTask("alice", seed.flow.ID, testutil.WithTaskStatus(domain.TaskPending), testutil.AtNode(n1, 1))
	require.NoError(t, s.Tasks.Create(ctx, task))
	rec := testutil.NewTestRecord(task.ID, n1, 1, "bob")
	require.NoError(t, s.Records.Insert(ctx, rec))

	const workers = 20
	var (
		wg   sync.WaitGroup
		wins atomic.Int32
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := NewSQLRecordRepo(database).ResolvePending(ctx, rec.ID, domain.ResultApproved,
				domain.Resolution{Action: domain.ActionApprove, At: time.Now().UTC()})
			if err != nil {
				t.Errorf("resolve: %v", err)
				return
			}
			if ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
}

// TestConcurrentAccess_TaskUpdate_OneVersionWins has several writers update
// the same loaded task version. Only one may commit.
func TestConcurrentAccess_TaskUpdate_OneVersionWins(t *testing.T) {
	database := newConcurrentTestDB(t)
	ctx := context.Background()
	s := NewStores(database)
	seed := seedFlow(t, s)

	task := testutil.NewTestTask("alice", seed.flow.ID)
	require.NoError(t, s.Tasks.Create(ctx, task))

	const workers = 10
	var (
		wg        sync.WaitGroup
		wins      atomic.Int32
		conflicts atomic.Int32
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			copyOf := *task
			copyOf.Title = "edited"
			err := NewSQLTaskRepo(database).Update(ctx, &copyOf)
			switch {
			case err == nil:
				wins.Add(1)
			case domain.KindOf(err) == domain.KindConcurrencyConflict:
				conflicts.Add(1)
			default:
				t.Errorf("update: %v", err)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(workers-1), conflicts.Load())

	got, err := s.Tasks.GetByID(ctx, task.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Version)
}
