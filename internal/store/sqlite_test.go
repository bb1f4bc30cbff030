package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/residuals-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	st, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() }) //nolint:errcheck
	require.NoError(t, st.Migrate(context.Background()))
	return st
}

func seedRevenue(t *testing.T, st *SQLiteStore, month, mid, name, processor string, revenue float64) model.RevenueEntry {
	t.Helper()
	ctx := context.Background()

	m, err := st.FindOrCreateMerchant(ctx, mid, name)
	require.NoError(t, err)
	p, err := st.FindOrCreateProcessor(ctx, processor)
	require.NoError(t, err)

	entry := model.RevenueEntry{
		Month:        month,
		MerchantID:   m.ID,
		MID:          m.MID,
		MerchantName: name,
		ProcessorID:  p.ID,
		Revenue:      revenue,
		Volume:       revenue * 100,
		Transactions: 10,
	}
	_, err = st.UpsertRevenue(ctx, []model.RevenueEntry{entry})
	require.NoError(t, err)
	return entry
}

// --- Identities ---

func TestSQLite_FindOrCreateMerchant_Idempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	m1, err := st.FindOrCreateMerchant(ctx, "123456789", "Joe's Coffee")
	require.NoError(t, err)
	assert.NotEmpty(t, m1.ID)

	m2, err := st.FindOrCreateMerchant(ctx, "123456789", "Joe's Coffee")
	require.NoError(t, err)
	assert.Equal(t, m1.ID, m2.ID)
}

func TestSQLite_FindOrCreateMerchant_NameUpdates(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	m1, err := st.FindOrCreateMerchant(ctx, "123456789", "Joe's Coffee")
	require.NoError(t, err)

	// A later import with an empty name keeps the existing one.
	m2, err := st.FindOrCreateMerchant(ctx, "123456789", "")
	require.NoError(t, err)
	assert.Equal(t, m1.ID, m2.ID)
	assert.Equal(t, "Joe's Coffee", m2.Name)

	// A non-empty name wins.
	m3, err := st.FindOrCreateMerchant(ctx, "123456789", "Joe's Coffee LLC")
	require.NoError(t, err)
	assert.Equal(t, "Joe's Coffee LLC", m3.Name)
}

func TestSQLite_FindOrCreateMerchant_RequiresMID(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.FindOrCreateMerchant(context.Background(), "", "No MID")
	assert.Error(t, err)
}

func TestSQLite_FindOrCreateProcessor_Idempotent(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	p1, err := st.FindOrCreateProcessor(ctx, "clearent")
	require.NoError(t, err)
	p2, err := st.FindOrCreateProcessor(ctx, "clearent")
	require.NoError(t, err)
	assert.Equal(t, p1.ID, p2.ID)
}

// --- Revenue ---

func TestSQLite_UpsertRevenue_Converges(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	entry := seedRevenue(t, st, "2025-06", "123456789", "Joe's Coffee", "clearent", 45.50)

	// Re-import with corrected figures: same key, one row, new values.
	entry.Revenue = 48.00
	entry.Transactions = 12
	n, err := st.UpsertRevenue(ctx, []model.RevenueEntry{entry})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	entries, err := st.ListRevenue(ctx, "2025-06", RevenueFilter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.InDelta(t, 48.00, entries[0].Revenue, 0.001)
	assert.Equal(t, 12, entries[0].Transactions)
}

func TestSQLite_UpsertRevenue_Empty(t *testing.T) {
	st := newTestSQLiteStore(t)

	n, err := st.UpsertRevenue(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSQLite_ListRevenue_Filters(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	seedRevenue(t, st, "2025-06", "111111111", "A", "clearent", 45)
	seedRevenue(t, st, "2025-06", "222222222", "B", "trx", 500)
	seedRevenue(t, st, "2025-05", "111111111", "A", "clearent", 40)

	// Month scoping.
	entries, err := st.ListRevenue(ctx, "2025-06", RevenueFilter{})
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	// Processor filter is case-insensitive.
	entries, err = st.ListRevenue(ctx, "2025-06", RevenueFilter{Processor: "Clearent"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "111111111", entries[0].MID)
	assert.Equal(t, "clearent", entries[0].ProcessorName)

	// Revenue range.
	min := 100.0
	entries, err = st.ListRevenue(ctx, "2025-06", RevenueFilter{MinRevenue: &min})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "222222222", entries[0].MID)

	max := 100.0
	entries, err = st.ListRevenue(ctx, "2025-06", RevenueFilter{MaxRevenue: &max})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "111111111", entries[0].MID)
}

// --- Progress ---

func TestSQLite_Progress(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	proc, err := st.FindOrCreateProcessor(ctx, "clearent")
	require.NoError(t, err)

	// Missing progress is nil, not an error.
	p, err := st.GetProgress(ctx, "2025-06", proc.ID)
	require.NoError(t, err)
	assert.Nil(t, p)

	require.NoError(t, st.UpsertProgress(ctx, model.ImportProgress{
		Month:       "2025-06",
		ProcessorID: proc.ID,
		RecordCount: 42,
		Status:      model.ProgressValidated,
	}))

	p, err = st.GetProgress(ctx, "2025-06", proc.ID)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, 42, p.RecordCount)
	assert.Equal(t, model.ProgressValidated, p.Status)
	assert.False(t, p.UpdatedAt.IsZero())

	// Re-import bumps the same row.
	require.NoError(t, st.UpsertProgress(ctx, model.ImportProgress{
		Month:       "2025-06",
		ProcessorID: proc.ID,
		RecordCount: 45,
		Status:      model.ProgressCompiled,
	}))
	p, err = st.GetProgress(ctx, "2025-06", proc.ID)
	require.NoError(t, err)
	assert.Equal(t, 45, p.RecordCount)
	assert.Equal(t, model.ProgressCompiled, p.Status)
}

// --- Assignments ---

func TestSQLite_ReplaceAssignments_ReplacesScope(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	first := []model.Assignment{
		{MerchantID: "m1", RoleID: model.RoleAgent, Month: "2025-06", Percentage: 60},
		{MerchantID: "m1", RoleID: model.RoleCompany, Month: "2025-06", Percentage: 40},
	}
	n, err := st.ReplaceAssignments(ctx, "2025-06", []string{"m1"}, first)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	// Second write for the same merchant replaces, never merges.
	second := []model.Assignment{
		{MerchantID: "m1", RoleID: model.RolePartner, Month: "2025-06", Percentage: 100},
	}
	_, err = st.ReplaceAssignments(ctx, "2025-06", []string{"m1"}, second)
	require.NoError(t, err)

	rows, err := st.ListAssignments(ctx, "2025-06", []string{"m1"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, model.RolePartner, rows[0].RoleID)
	assert.InDelta(t, 100, rows[0].Percentage, 0.001)
}

func TestSQLite_ReplaceAssignments_ScopedToTargetedMerchants(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.ReplaceAssignments(ctx, "2025-06", []string{"m1"}, []model.Assignment{
		{MerchantID: "m1", RoleID: model.RoleAgent, Month: "2025-06", Percentage: 100},
	})
	require.NoError(t, err)
	_, err = st.ReplaceAssignments(ctx, "2025-06", []string{"m2"}, []model.Assignment{
		{MerchantID: "m2", RoleID: model.RoleAgent, Month: "2025-06", Percentage: 100},
	})
	require.NoError(t, err)

	// Untargeted merchant is untouched.
	rows, err := st.ListAssignments(ctx, "2025-06", nil)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestSQLite_ReplaceAssignments_OtherMonthsUntouched(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.ReplaceAssignments(ctx, "2025-05", []string{"m1"}, []model.Assignment{
		{MerchantID: "m1", RoleID: model.RoleAgent, Month: "2025-05", Percentage: 100},
	})
	require.NoError(t, err)

	_, err = st.ReplaceAssignments(ctx, "2025-06", []string{"m1"}, []model.Assignment{
		{MerchantID: "m1", RoleID: model.RolePartner, Month: "2025-06", Percentage: 100},
	})
	require.NoError(t, err)

	rows, err := st.ListAssignments(ctx, "2025-05", []string{"m1"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, model.RoleAgent, rows[0].RoleID)
}

func TestSQLite_ReplaceAssignments_RequiresTargets(t *testing.T) {
	st := newTestSQLiteStore(t)

	_, err := st.ReplaceAssignments(context.Background(), "2025-06", nil, nil)
	assert.Error(t, err)
}

func TestSQLite_ReplaceAssignments_EmptyRowsClearsScope(t *testing.T) {
	st := newTestSQLiteStore(t)
	ctx := context.Background()

	_, err := st.ReplaceAssignments(ctx, "2025-06", []string{"m1"}, []model.Assignment{
		{MerchantID: "m1", RoleID: model.RoleAgent, Month: "2025-06", Percentage: 100},
	})
	require.NoError(t, err)

	n, err := st.ReplaceAssignments(ctx, "2025-06", []string{"m1"}, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	rows, err := st.ListAssignments(ctx, "2025-06", []string{"m1"})
	require.NoError(t, err)
	assert.Empty(t, rows)
}
