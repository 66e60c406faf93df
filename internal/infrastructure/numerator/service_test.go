package numerator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facturard/internal/core/apperror"
	"facturard/internal/core/id"
	corenumerator "facturard/internal/core/numerator"
)

// Mock objects
type mockRow struct {
	values []any
	err    error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.err != nil {
		return m.err
	}
	for i, d := range dest {
		switch ptr := d.(type) {
		case *id.ID:
			*ptr = m.values[i].(id.ID)
		case *string:
			*ptr = m.values[i].(string)
		case *int64:
			*ptr = m.values[i].(int64)
		case **time.Time:
			*ptr = m.values[i].(*time.Time)
		}
	}
	return nil
}

type mockBatch struct {
	id        id.ID
	owner     id.ID
	docType   string
	series    string
	cursor    int64
	rangeEnd  int64
	active    bool
	expiresAt *time.Time
}

// mockQuerier applies the conditional increment the way the UPDATE does.
type mockQuerier struct {
	mu      sync.Mutex
	batches []*mockBatch
	lastSQL string
	err     error
}

func (m *mockQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.lastSQL = sql
	if m.err != nil {
		return &mockRow{err: m.err}
	}

	owner := args[0].(id.ID)
	docType := args[1].(string)
	for i := len(m.batches) - 1; i >= 0; i-- {
		b := m.batches[i]
		if b.owner != owner || b.docType != docType || !b.active || b.cursor >= b.rangeEnd {
			continue
		}
		b.cursor++
		return &mockRow{values: []any{b.id, b.series, b.docType, b.cursor, b.expiresAt}}
	}
	return &mockRow{err: pgx.ErrNoRows}
}

func TestAllocate_SequentialThenExhausted(t *testing.T) {
	owner := id.New()
	q := &mockQuerier{batches: []*mockBatch{{
		id: id.New(), owner: owner, docType: "32", series: "E", cursor: 0, rangeEnd: 3, active: true,
	}}}
	svc := New(Static(q))
	ctx := context.Background()

	want := []string{"E320000000001", "E320000000002", "E320000000003"}
	for _, w := range want {
		a, err := svc.Allocate(ctx, owner, corenumerator.TypeEConsumo)
		require.NoError(t, err)
		assert.Equal(t, w, a.Identifier())
	}

	_, err := svc.Allocate(ctx, owner, corenumerator.TypeEConsumo)
	require.Error(t, err)
	assert.True(t, errors.Is(err, corenumerator.ErrNoSequenceAvailable))
	assert.True(t, apperror.HasCode(err, apperror.CodeNoSequenceAvailable))
	assert.Equal(t, int64(3), q.batches[0].cursor)
}

func TestAllocate_SkipsInactiveBatch(t *testing.T) {
	owner := id.New()
	q := &mockQuerier{batches: []*mockBatch{{
		id: id.New(), owner: owner, docType: "01", series: "B", rangeEnd: 100, active: false,
	}}}

	_, err := New(Static(q)).Allocate(context.Background(), owner, corenumerator.TypeCreditoFiscal)
	assert.ErrorIs(t, err, corenumerator.ErrNoSequenceAvailable)
	assert.Equal(t, int64(0), q.batches[0].cursor)
}

func TestAllocate_TraditionalPadding(t *testing.T) {
	owner := id.New()
	expires := time.Date(2027, 12, 31, 0, 0, 0, 0, time.UTC)
	q := &mockQuerier{batches: []*mockBatch{{
		id: id.New(), owner: owner, docType: "01", series: "B", cursor: 41, rangeEnd: 100, active: true, expiresAt: &expires,
	}}}

	a, err := New(Static(q)).Allocate(context.Background(), owner, corenumerator.TypeCreditoFiscal)
	require.NoError(t, err)
	assert.Equal(t, "B0100000042", a.Identifier())
	assert.Equal(t, expires, a.ExpiresAt)
}

func TestAllocate_SingleConditionalStatement(t *testing.T) {
	q := &mockQuerier{}
	_, _ = New(Static(q)).Allocate(context.Background(), id.New(), corenumerator.TypeEConsumo)

	assert.True(t, strings.Contains(q.lastSQL, "cursor = b.cursor + 1"))
	assert.True(t, strings.Contains(q.lastSQL, "b.cursor < b.range_end"))
	assert.True(t, strings.Contains(q.lastSQL, "RETURNING"))
}

func TestAllocate_DatabaseError(t *testing.T) {
	q := &mockQuerier{err: errors.New("connection reset")}

	_, err := New(Static(q)).Allocate(context.Background(), id.New(), corenumerator.TypeEConsumo)
	require.Error(t, err)
	assert.False(t, errors.Is(err, corenumerator.ErrNoSequenceAvailable))
	assert.Contains(t, err.Error(), "connection reset")
}

func TestAllocate_Concurrent(t *testing.T) {
	owner := id.New()
	q := &mockQuerier{batches: []*mockBatch{{
		id: id.New(), owner: owner, docType: "31", series: "E", rangeEnd: 50, active: true,
	}}}
	svc := New(Static(q))

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = make(map[string]bool)
		fail int
	)
	for i := 0; i < 60; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a, err := svc.Allocate(context.Background(), owner, corenumerator.TypeECreditoFiscal)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				fail++
				return
			}
			assert.False(t, seen[a.Identifier()], "duplicate %s", a.Identifier())
			seen[a.Identifier()] = true
		}()
	}
	wg.Wait()

	assert.Len(t, seen, 50)
	assert.Equal(t, 10, fail)
}
