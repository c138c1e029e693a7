package dataset

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/insight-labs/insightai/internal/adapter"
	"github.com/insight-labs/insightai/internal/testutil"
)

const salesCSV = `Region,Sales Amount,Order Date
north,100.5,2024-01-05
south,200.25,2024-02-10
east,50,2024-03-15
west,75.75,2024-04-20
`

func newTestStore(t *testing.T) *Store {
	t.Helper()

	db := adapter.NewDuckDBAdapter(testutil.NewTestLogger(t))
	require.NoError(t, db.Connect(context.Background(), adapter.Config{Path: ":memory:"}))
	t.Cleanup(func() { _ = db.Close() })

	return NewStore(db, testutil.NewTestLogger(t))
}

func TestStore_Ingest(t *testing.T) {
	store := newTestStore(t)

	ds, err := store.Ingest(context.Background(), strings.NewReader(salesCSV))
	require.NoError(t, err)

	assert.NotEmpty(t, ds.Handle)
	assert.True(t, strings.HasPrefix(ds.Schema.Table, "ds_"))
	assert.Equal(t, 4, ds.Schema.RowCount)

	require.Len(t, ds.Schema.Columns, 3)
	assert.Equal(t, Column{Name: "region", Type: TypeText}, ds.Schema.Columns[0])
	assert.Equal(t, Column{Name: "sales_amount", Type: TypeFloat}, ds.Schema.Columns[1])
	assert.Equal(t, Column{Name: "order_date", Type: TypeDate}, ds.Schema.Columns[2])

	require.Len(t, ds.Schema.SampleRows, 4)
	assert.Equal(t, "north", ds.Schema.SampleRows[0]["region"])
	assert.Equal(t, 100.5, ds.Schema.SampleRows[0]["sales_amount"])

	// The backing table holds the full row count with the inferred types.
	meta, err := store.Adapter().GetTableMetadata(context.Background(), ds.Schema.Table)
	require.NoError(t, err)
	assert.Equal(t, int64(4), meta.RowCount)
	require.Len(t, meta.Columns, 3)
}

func TestStore_IngestEmptyInput(t *testing.T) {
	store := newTestStore(t)

	for name, input := range map[string]string{
		"no rows":     "region,sales\n",
		"empty":       "",
		"only header": "a,b,c",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := store.Ingest(context.Background(), strings.NewReader(input))
			require.Error(t, err)

			var ingErr *IngestionError
			require.True(t, errors.As(err, &ingErr))
			assert.Equal(t, StageEmpty, ingErr.Stage)
		})
	}
}

func TestStore_IngestUnparsable(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Ingest(context.Background(), strings.NewReader("a,b\n\"unterminated\n"))
	require.Error(t, err)

	var ingErr *IngestionError
	require.True(t, errors.As(err, &ingErr))
	assert.Equal(t, StageParse, ingErr.Stage)
}

func TestStore_GetAndCurrent(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get("")
	assert.ErrorIs(t, err, ErrNoDataset)

	_, ok := store.Current()
	assert.False(t, ok)

	first, err := store.Ingest(context.Background(), strings.NewReader(salesCSV))
	require.NoError(t, err)

	got, err := store.Get(first.Handle)
	require.NoError(t, err)
	assert.Equal(t, first.Handle, got.Handle)

	// Empty handle resolves to the current dataset.
	got, err = store.Get("")
	require.NoError(t, err)
	assert.Equal(t, first.Handle, got.Handle)

	_, err = store.Get("does-not-exist")
	assert.ErrorIs(t, err, ErrNoDataset)
}

func TestStore_NewUploadSupersedesButOldHandleResolves(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first, err := store.Ingest(ctx, strings.NewReader(salesCSV))
	require.NoError(t, err)

	second, err := store.Ingest(ctx, strings.NewReader("month,revenue\n2024-01,10\n2024-02,20\n"))
	require.NoError(t, err)

	current, ok := store.Current()
	require.True(t, ok)
	assert.Equal(t, second.Handle, current)

	// A handle snapshotted before the new upload still resolves, so an
	// in-flight analyze completes against the dataset it started with.
	got, err := store.Get(first.Handle)
	require.NoError(t, err)
	assert.Equal(t, first.Schema.Table, got.Schema.Table)
	assert.NotEqual(t, first.Schema.Table, second.Schema.Table)
}

func TestStore_IngestIntegerColumn(t *testing.T) {
	store := newTestStore(t)

	ds, err := store.Ingest(context.Background(), strings.NewReader("id,qty\n1,10\n2,20\n3,30\n"))
	require.NoError(t, err)

	require.Len(t, ds.Schema.Columns, 2)
	assert.Equal(t, TypeInteger, ds.Schema.Columns[0].Type)
	assert.Equal(t, TypeInteger, ds.Schema.Columns[1].Type)

	rows, err := store.Adapter().Query(context.Background(), "SELECT id, qty FROM "+ds.Schema.Table+" ORDER BY id")
	require.NoError(t, err)
	defer rows.Close()

	var total int64
	for rows.Next() {
		var id, qty int64
		require.NoError(t, rows.Scan(&id, &qty))
		total += qty
	}
	require.NoError(t, rows.Err())
	assert.Equal(t, int64(60), total)
}
