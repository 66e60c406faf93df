package batches_test

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"facturard/internal/core/apperror"
	appctx "facturard/internal/core/context"
	"facturard/internal/core/id"
	"facturard/internal/core/numerator"
	"facturard/internal/domain"
	"facturard/internal/domain/batches"
)

type passthroughTx struct{}

func (passthroughTx) RunInTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type memRepo struct {
	rows []*batches.Batch
}

func (m *memRepo) Create(_ context.Context, b *batches.Batch) error {
	cp := *b
	m.rows = append(m.rows, &cp)
	return nil
}

func (m *memRepo) GetByID(_ context.Context, ownerID, batchID id.ID) (*batches.Batch, error) {
	for _, b := range m.rows {
		if b.ID == batchID && b.OwnerID == ownerID {
			cp := *b
			return &cp, nil
		}
	}
	return nil, apperror.NewNotFound("ncf_batches", batchID)
}

func (m *memRepo) List(_ context.Context, ownerID id.ID, f batches.Filter) ([]*batches.Batch, error) {
	var out []*batches.Batch
	for _, b := range m.rows {
		if b.OwnerID != ownerID || (f.ActiveOnly && !b.IsActive) {
			continue
		}
		if f.DocumentType != "" && b.DocumentType != f.DocumentType {
			continue
		}
		cp := *b
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *memRepo) DeactivateActive(_ context.Context, ownerID id.ID, t numerator.DocumentType, s numerator.Series) ([]id.ID, error) {
	var ids []id.ID
	for _, b := range m.rows {
		if b.OwnerID == ownerID && b.DocumentType == t && b.Series == s && b.IsActive {
			b.IsActive = false
			ids = append(ids, b.ID)
		}
	}
	return ids, nil
}

func (m *memRepo) Deactivate(_ context.Context, ownerID, batchID id.ID) error {
	for _, b := range m.rows {
		if b.ID == batchID && b.OwnerID == ownerID {
			b.IsActive = false
			return nil
		}
	}
	return apperror.NewNotFound("ncf_batches", batchID)
}

func (m *memRepo) ListLowStock(_ context.Context, threshold int64) ([]*batches.Batch, error) {
	var out []*batches.Batch
	for _, b := range m.rows {
		if b.IsActive && b.Remaining() <= threshold {
			out = append(out, b)
		}
	}
	return out, nil
}

type recordingPublisher struct{ events []domain.Event }

func (p *recordingPublisher) Publish(_ context.Context, e domain.Event) error {
	p.events = append(p.events, e)
	return nil
}

func ownerCtx(ownerID id.ID) context.Context {
	return appctx.WithUser(context.Background(), &appctx.UserContext{UserID: ownerID.String()})
}

func future() *time.Time {
	t := time.Now().Add(365 * 24 * time.Hour)
	return &t
}

func TestCreate_Validation(t *testing.T) {
	svc := batches.NewService(&memRepo{}, passthroughTx{}, nil, nil)
	ctx := ownerCtx(id.New())
	past := time.Now().Add(-time.Hour)

	tests := []struct {
		name string
		req  batches.CreateRequest
	}{
		{"unknown series", batches.CreateRequest{Series: "A", DocumentType: "31", RangeStart: 1, RangeEnd: 10}},
		{"type of other series", batches.CreateRequest{Series: "E", DocumentType: "01", RangeStart: 1, RangeEnd: 10}},
		{"zero start", batches.CreateRequest{Series: "E", DocumentType: "31", RangeStart: 0, RangeEnd: 10}},
		{"inverted range", batches.CreateRequest{Series: "B", DocumentType: "02", RangeStart: 10, RangeEnd: 9}},
		{"too many digits", batches.CreateRequest{Series: "B", DocumentType: "02", RangeStart: 1, RangeEnd: 100000000}},
		{"expired", batches.CreateRequest{Series: "E", DocumentType: "32", RangeStart: 1, RangeEnd: 10, ExpiresAt: &past}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.req)
			assert.True(t, apperror.HasCode(err, apperror.CodeValidation), "got %v", err)
		})
	}
}

func TestCreate_SingleNumberRange(t *testing.T) {
	svc := batches.NewService(&memRepo{}, passthroughTx{}, nil, nil)

	b, err := svc.Create(ownerCtx(id.New()), batches.CreateRequest{
		Series: numerator.SeriesElectronic, DocumentType: numerator.TypeEConsumo,
		RangeStart: 7, RangeEnd: 7, ExpiresAt: future(),
	})
	require.NoError(t, err)
	assert.Equal(t, int64(6), b.Cursor)
	assert.Equal(t, int64(1), b.Remaining())
	assert.Equal(t, "E320000000007", b.NextIdentifier())
}

func TestCreate_ReplacesActiveBatch(t *testing.T) {
	repo := &memRepo{}
	events := &recordingPublisher{}
	svc := batches.NewService(repo, passthroughTx{}, events, nil)
	owner := id.New()
	ctx := ownerCtx(owner)

	first, err := svc.Create(ctx, batches.CreateRequest{Series: "B", DocumentType: "01", RangeStart: 1, RangeEnd: 100})
	require.NoError(t, err)
	second, err := svc.Create(ctx, batches.CreateRequest{Series: "B", DocumentType: "01", RangeStart: 101, RangeEnd: 200})
	require.NoError(t, err)

	// A different type is untouched.
	other, err := svc.Create(ctx, batches.CreateRequest{Series: "B", DocumentType: "02", RangeStart: 1, RangeEnd: 50})
	require.NoError(t, err)

	got, err := svc.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)

	active, err := svc.List(ctx, batches.Filter{ActiveOnly: true})
	require.NoError(t, err)
	ids := []id.ID{}
	for _, b := range active {
		ids = append(ids, b.ID)
	}
	assert.ElementsMatch(t, []id.ID{second.ID, other.ID}, ids)

	require.Len(t, events.events, 3)
	assert.Equal(t, domain.EventBatchCreated, events.events[1].Type)
	assert.Equal(t, []id.ID{first.ID}, events.events[1].Payload.(map[string]any)["replaced"])
}

func TestDeactivate(t *testing.T) {
	repo := &memRepo{}
	events := &recordingPublisher{}
	svc := batches.NewService(repo, passthroughTx{}, events, nil)
	owner := id.New()
	ctx := ownerCtx(owner)

	b, err := svc.Create(ctx, batches.CreateRequest{Series: "E", DocumentType: "31", RangeStart: 1, RangeEnd: 10})
	require.NoError(t, err)

	got, err := svc.Deactivate(ctx, b.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
	assert.NotNil(t, got.DeactivatedAt)

	// Second call is a no-op.
	_, err = svc.Deactivate(ctx, b.ID)
	require.NoError(t, err)
	assert.Len(t, events.events, 2)

	// Other owners cannot see it.
	_, err = svc.Deactivate(ownerCtx(id.New()), b.ID)
	assert.True(t, apperror.IsNotFound(err))
}

func TestList_UnknownType(t *testing.T) {
	svc := batches.NewService(&memRepo{}, passthroughTx{}, nil, nil)
	_, err := svc.List(ownerCtx(id.New()), batches.Filter{DocumentType: "99"})
	assert.True(t, apperror.HasCode(err, apperror.CodeValidation))
}

func TestBatchCounters(t *testing.T) {
	b := batches.NewBatch(id.New(), "B", "02", 1, 3, nil)
	assert.Equal(t, int64(0), b.Issued())
	assert.Equal(t, "B0200000001", b.NextIdentifier())

	b.Cursor = 3
	assert.True(t, b.Exhausted())
	assert.Equal(t, int64(3), b.Issued())
	assert.Equal(t, "", b.NextIdentifier())
	assert.False(t, b.Expired(time.Now()))
}
