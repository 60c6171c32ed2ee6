package database

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"govetachun/go-page-db/internal/catalog"
	"govetachun/go-page-db/internal/config"
	"govetachun/go-page-db/internal/record"
	"govetachun/go-page-db/internal/storage"
	dberrors "govetachun/go-page-db/pkg/errors"
)

func testConfig() *config.Config {
	cfg := config.Default()
	cfg.SyncMode = config.SyncOff
	return cfg
}

func openTestDB(t *testing.T, cfg *config.Config) (*Database, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path, cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, path
}

func usersColumns() []catalog.ColumnSpec {
	return []catalog.ColumnSpec{
		{Name: "id", Type: record.TypeInt, PrimaryKey: true},
		{Name: "name", Type: record.TypeText},
		{Name: "email", Type: record.TypeText, Unique: true},
	}
}

func ordersColumns() []catalog.ColumnSpec {
	return []catalog.ColumnSpec{
		{Name: "oid", Type: record.TypeInt, PrimaryKey: true},
		{Name: "user_id", Type: record.TypeInt},
	}
}

func userRow(id int64, name string) record.Row {
	return record.NewRow([]string{"id", "name", "email"},
		[]record.Value{record.Int(id), record.Text(name), record.Text(fmt.Sprintf("%s%d@example.com", name, id))})
}

func orderRow(oid, userID int64) record.Row {
	return record.NewRow([]string{"oid", "user_id"}, []record.Value{record.Int(oid), record.Int(userID)})
}

func names(rows []record.Row) []string {
	var out []string
	for _, r := range rows {
		out = append(out, r.Get("name").String())
	}
	return out
}

func TestInsertSelectRoundTrip(t *testing.T) {
	fmt.Println("Testing Insert/Select round trip...")
	db, _ := openTestDB(t, testConfig())

	users, err := db.CreateTable("users", usersColumns())
	require.NoError(t, err)

	want := []record.Row{userRow(1, "Ann"), userRow(2, "Bo"), userRow(3, "Cy")}
	for _, r := range want {
		require.NoError(t, users.Insert(r))
	}

	got, err := users.Select()
	require.NoError(t, err)
	assert.Equal(t, want, got)

	// columns come back in schema order whatever the insert order
	require.NoError(t, users.Insert(record.NewRow([]string{"email", "name", "id"},
		[]record.Value{record.Text("d@x"), record.Text("Di"), record.Int(4)})))
	got, err = users.SelectWhere("id", record.Int(4))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []string{"id", "name", "email"}, got[0].Cols)
}

func TestDeleteHidesRowAndAllowsReinsert(t *testing.T) {
	db, _ := openTestDB(t, testConfig())
	users, err := db.CreateTable("users", usersColumns())
	require.NoError(t, err)

	require.NoError(t, users.Insert(userRow(1, "Ann")))
	require.NoError(t, users.Insert(userRow(2, "Bo")))
	require.NoError(t, users.Delete("id", record.Int(1)))

	rows, err := users.Select()
	require.NoError(t, err)
	assert.Equal(t, []string{"Bo"}, names(rows))

	// every index entry of the deleted row is gone
	require.NoError(t, users.Insert(userRow(1, "Ann")))
	rows, err = users.Select()
	require.NoError(t, err)
	assert.Equal(t, []string{"Bo", "Ann"}, names(rows))

	// delete through the unique column
	require.NoError(t, users.Delete("email", record.Text("Bo2@example.com")))
	require.NoError(t, users.Insert(userRow(2, "Bo")))

	stats := users.Stats()
	assert.Equal(t, uint64(4), stats.Inserts)
	assert.Equal(t, uint64(2), stats.Deletes)
	assert.Equal(t, 2, stats.IndexSizes["id"])
	assert.Equal(t, 2, stats.IndexSizes["email"])
}

func TestDeleteErrors(t *testing.T) {
	db, _ := openTestDB(t, testConfig())
	users, err := db.CreateTable("users", usersColumns())
	require.NoError(t, err)
	require.NoError(t, users.Insert(userRow(1, "Ann")))

	err = users.Delete("name", record.Text("Ann"))
	assert.True(t, errors.Is(err, dberrors.ErrNoIndexForColumn))

	err = users.Delete("id", record.Int(42))
	assert.True(t, errors.Is(err, dberrors.ErrRowNotFound))

	// failed deletes release the writer slot
	require.NoError(t, users.Insert(userRow(2, "Bo")))
}

func TestConstraintViolations(t *testing.T) {
	db, _ := openTestDB(t, testConfig())
	users, err := db.CreateTable("users", usersColumns())
	require.NoError(t, err)
	require.NoError(t, users.Insert(userRow(1, "Ann")))

	err = users.Insert(userRow(1, "Impostor"))
	assert.True(t, errors.Is(err, dberrors.ErrConstraintViolation))
	assert.True(t, errors.Is(err, dberrors.ErrDuplicateKey))

	dupEmail := record.NewRow([]string{"id", "name", "email"},
		[]record.Value{record.Int(2), record.Text("Other"), record.Text("Ann1@example.com")})
	err = users.Insert(dupEmail)
	assert.True(t, errors.Is(err, dberrors.ErrConstraintViolation))
	assert.True(t, errors.Is(err, dberrors.ErrDuplicateUnique))

	rows, err := users.Select()
	require.NoError(t, err)
	assert.Equal(t, []record.Row{userRow(1, "Ann")}, rows)

	// rejected inserts did not consume page ids
	assert.Equal(t, storage.PageID(2), db.Stats().NextPage)
}

func TestSchemaViolations(t *testing.T) {
	db, _ := openTestDB(t, testConfig())
	users, err := db.CreateTable("users", usersColumns())
	require.NoError(t, err)

	err = users.Insert(record.NewRow([]string{"id", "name"}, []record.Value{record.Int(1), record.Text("Ann")}))
	assert.True(t, errors.Is(err, dberrors.ErrSchemaViolation))
	assert.True(t, errors.Is(err, dberrors.ErrColumnSet))

	err = users.Insert(record.NewRow([]string{"id", "name", "email"},
		[]record.Value{record.Text("1"), record.Text("Ann"), record.Text("a@x")}))
	assert.True(t, errors.Is(err, dberrors.ErrTypeMismatch))
	assert.Contains(t, err.Error(), "id")

	big := record.NewRow([]string{"id", "name", "email"},
		[]record.Value{record.Int(1), record.Text(string(make([]byte, storage.PageSize))), record.Text("a@x")})
	err = users.Insert(big)
	assert.True(t, errors.Is(err, dberrors.ErrRowTooLarge))

	rows, err := users.Select()
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestCreateAndGetTables(t *testing.T) {
	db, _ := openTestDB(t, testConfig())

	_, err := db.CreateTable("users", usersColumns())
	require.NoError(t, err)
	_, err = db.CreateTable("orders", ordersColumns())
	require.NoError(t, err)

	_, err = db.CreateTable("users", usersColumns())
	assert.True(t, errors.Is(err, dberrors.ErrDuplicateTable))

	_, err = db.CreateTable("bad name", usersColumns())
	assert.True(t, errors.Is(err, dberrors.ErrInvalidSchema))

	_, err = db.GetTable("missing")
	assert.True(t, errors.Is(err, dberrors.ErrUnknownTable))

	assert.Equal(t, []string{"users", "orders"}, db.ListTables())
}

func TestCatalogSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path, testConfig())
	require.NoError(t, err)
	_, err = db.CreateTable("users", usersColumns())
	require.NoError(t, err)
	orders, err := db.CreateTable("orders", ordersColumns())
	require.NoError(t, err)
	schema := orders.Schema()
	require.NoError(t, db.Close())

	db, err = Open(path, testConfig())
	require.NoError(t, err)
	defer db.Close()

	reopened, err := db.GetTable("orders")
	require.NoError(t, err)
	assert.Equal(t, schema, reopened.Schema())
	assert.Equal(t, []string{"users", "orders"}, db.ListTables())
}

func TestCounterSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path, testConfig())
	require.NoError(t, err)
	users, err := db.CreateTable("users", usersColumns())
	require.NoError(t, err)
	for i := int64(1); i <= 3; i++ {
		require.NoError(t, users.Insert(userRow(i, "U")))
	}
	require.NoError(t, db.Close())

	db, err = Open(path, testConfig())
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, storage.PageID(4), db.Stats().NextPage)

	users, err = db.GetTable("users")
	require.NoError(t, err)
	// the rebuilt index still rejects old keys
	assert.True(t, errors.Is(users.Insert(userRow(2, "U")), dberrors.ErrDuplicateKey))

	for i := int64(4); i <= 5; i++ {
		require.NoError(t, users.Insert(userRow(i, "U")))
	}
	rows, err := users.Select()
	require.NoError(t, err)
	require.Len(t, rows, 5)
	for i, r := range rows {
		assert.Equal(t, int64(i+1), r.Get("id").I64)
	}
}

func TestRecoveryWithoutCheckpoint(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	cfg := testConfig()
	cfg.CheckpointEvery = 0
	db, err := Open(path, cfg)
	require.NoError(t, err)
	users, err := db.CreateTable("users", usersColumns())
	require.NoError(t, err)
	require.NoError(t, users.Insert(userRow(1, "Ann")))

	// simulate a crash: drop the files without the closing checkpoint
	require.Greater(t, db.store.Stats().LogVersions, 0)
	require.NoError(t, db.store.Close())

	db, err = Open(path, cfg)
	require.NoError(t, err)
	defer db.Close()
	users, err = db.GetTable("users")
	require.NoError(t, err)
	rows, err := users.Select()
	require.NoError(t, err)
	assert.Equal(t, []record.Row{userRow(1, "Ann")}, rows)
}

func TestTablesShareThePageSpace(t *testing.T) {
	db, _ := openTestDB(t, testConfig())
	users, err := db.CreateTable("users", usersColumns())
	require.NoError(t, err)
	orders, err := db.CreateTable("orders", ordersColumns())
	require.NoError(t, err)

	require.NoError(t, users.Insert(userRow(1, "Ann")))
	require.NoError(t, orders.Insert(orderRow(10, 1)))
	require.NoError(t, users.Insert(userRow(2, "Bo")))
	require.NoError(t, orders.Insert(orderRow(11, 2)))
	require.NoError(t, orders.Delete("oid", record.Int(10)))

	userRows, err := users.Select()
	require.NoError(t, err)
	assert.Equal(t, []string{"Ann", "Bo"}, names(userRows))

	orderRows, err := orders.Select()
	require.NoError(t, err)
	require.Len(t, orderRows, 1)
	assert.Equal(t, int64(11), orderRows[0].Get("oid").I64)
}

func TestUpdate(t *testing.T) {
	db, _ := openTestDB(t, testConfig())
	users, err := db.CreateTable("users", usersColumns())
	require.NoError(t, err)
	require.NoError(t, users.Insert(userRow(1, "Ann")))
	require.NoError(t, users.Insert(userRow(2, "Bo")))

	// same key, new name
	renamed := record.NewRow([]string{"id", "name", "email"},
		[]record.Value{record.Int(1), record.Text("Anna"), record.Text("Ann1@example.com")})
	require.NoError(t, users.Update("id", record.Int(1), renamed))

	rows, err := users.Select()
	require.NoError(t, err)
	assert.Equal(t, []string{"Bo", "Anna"}, names(rows))

	// moving onto another row's key is rejected
	err = users.Update("id", record.Int(1), userRow(2, "Clash"))
	assert.True(t, errors.Is(err, dberrors.ErrDuplicateKey))

	err = users.Update("id", record.Int(9), userRow(9, "Nobody"))
	assert.True(t, errors.Is(err, dberrors.ErrRowNotFound))

	rows, err = users.SelectWhere("name", record.Text("Anna"))
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, uint64(1), users.Stats().Updates)
	assert.Equal(t, 2, users.Stats().IndexSizes["id"])
}

func TestSelectWhere(t *testing.T) {
	db, _ := openTestDB(t, testConfig())
	orders, err := db.CreateTable("orders", ordersColumns())
	require.NoError(t, err)
	for i, uid := range []int64{1, 2, 1} {
		require.NoError(t, orders.Insert(orderRow(int64(10+i), uid)))
	}

	rows, err := orders.SelectWhere("user_id", record.Int(1))
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(10), rows[0].Get("oid").I64)
	assert.Equal(t, int64(12), rows[1].Get("oid").I64)

	// filters are type strict
	rows, err = orders.SelectWhere("user_id", record.Text("1"))
	require.NoError(t, err)
	assert.Empty(t, rows)

	_, err = orders.SelectWhere("nope", record.Int(1))
	assert.True(t, errors.Is(err, dberrors.ErrUnknownColumn))
}

func TestHashJoinUsersOrders(t *testing.T) {
	db, _ := openTestDB(t, testConfig())
	users, err := db.CreateTable("users", []catalog.ColumnSpec{
		{Name: "id", Type: record.TypeInt, PrimaryKey: true},
		{Name: "name", Type: record.TypeText},
	})
	require.NoError(t, err)
	orders, err := db.CreateTable("orders", ordersColumns())
	require.NoError(t, err)

	for _, u := range []struct {
		id   int64
		name string
	}{{1, "Ann"}, {2, "Bo"}} {
		require.NoError(t, users.Insert(record.NewRow([]string{"id", "name"},
			[]record.Value{record.Int(u.id), record.Text(u.name)})))
	}
	require.NoError(t, orders.Insert(orderRow(10, 1)))
	require.NoError(t, orders.Insert(orderRow(11, 2)))
	require.NoError(t, orders.Insert(orderRow(12, 1)))

	out, err := users.HashJoin(orders, "id", "user_id")
	require.NoError(t, err)
	require.Len(t, out, 3)
	var got []string
	for _, r := range out {
		got = append(got, fmt.Sprintf("%s/%s", r.Get("oid"), r.Get("name")))
	}
	assert.Equal(t, []string{"10/Ann", "11/Bo", "12/Ann"}, got)
	assert.Equal(t, []string{"oid", "user_id", "id", "name"}, out[0].Cols)

	_, err = users.HashJoin(orders, "missing", "user_id")
	assert.True(t, errors.Is(err, dberrors.ErrUnknownColumn))
}

func TestHashJoinOutputLimit(t *testing.T) {
	cfg := testConfig()
	cfg.JoinOutputLimit = 64
	db, _ := openTestDB(t, cfg)
	users, err := db.CreateTable("users", usersColumns())
	require.NoError(t, err)
	orders, err := db.CreateTable("orders", ordersColumns())
	require.NoError(t, err)
	require.NoError(t, users.Insert(userRow(1, "Ann")))
	for i := int64(0); i < 5; i++ {
		require.NoError(t, orders.Insert(orderRow(i, 1)))
	}

	_, err = users.HashJoin(orders, "id", "user_id")
	assert.True(t, errors.Is(err, dberrors.ErrJoinOutputOverflow))
}

// writeRawPage commits data on a freshly allocated page, bypassing the row codec.
func writeRawPage(t *testing.T, db *Database, data []byte) storage.PageID {
	t.Helper()
	wtx := db.txm.BeginWrite()
	id, err := db.alloc.Allocate(wtx)
	require.NoError(t, err)
	require.NoError(t, wtx.WritePage(id, data))
	require.NoError(t, db.writeCatalog(wtx))
	_, err = wtx.Commit()
	require.NoError(t, err)
	return id
}

func TestCorruptPagesAreSkipped(t *testing.T) {
	db, _ := openTestDB(t, testConfig())
	users, err := db.CreateTable("users", usersColumns())
	require.NoError(t, err)

	require.NoError(t, users.Insert(userRow(1, "Ann")))
	bad := writeRawPage(t, db, []byte("PR this is not a row"))
	require.NoError(t, users.Insert(userRow(2, "Bo")))

	rows, err := users.Select()
	require.NoError(t, err)
	assert.Equal(t, []string{"Ann", "Bo"}, names(rows))
	assert.Equal(t, uint64(1), users.Stats().CorruptPages)

	rtx := db.txm.BeginRead()
	defer rtx.Release()
	sc, err := users.NewScanner(rtx, storage.FirstDataPageID, 0)
	require.NoError(t, err)
	var corrupt []storage.PageID
	for sc.Next() {
		if res := sc.Result(); res.Err != nil {
			assert.True(t, errors.Is(res.Err, dberrors.ErrCorruptPage))
			corrupt = append(corrupt, res.PageID)
		}
	}
	require.NoError(t, sc.Err())
	assert.Equal(t, []storage.PageID{bad}, corrupt)
}

func TestScannerResumesFromPosition(t *testing.T) {
	db, _ := openTestDB(t, testConfig())
	users, err := db.CreateTable("users", usersColumns())
	require.NoError(t, err)
	for i := int64(1); i <= 5; i++ {
		require.NoError(t, users.Insert(userRow(i, "U")))
	}

	rtx := db.txm.BeginRead()
	defer rtx.Release()
	sc, err := users.NewScanner(rtx, storage.FirstDataPageID, 0)
	require.NoError(t, err)
	require.True(t, sc.Next())
	require.True(t, sc.Next())
	assert.True(t, sc.Valid())
	pos := sc.Position()

	resumed, err := users.NewScanner(rtx, pos, 0)
	require.NoError(t, err)
	var ids []int64
	for resumed.Next() {
		res := resumed.Result()
		ids = append(ids, res.Row.Get("id").I64)
	}
	assert.Equal(t, []int64{3, 4, 5}, ids)
	assert.False(t, resumed.Valid())
}

func TestReadersSeeTheirSnapshot(t *testing.T) {
	db, _ := openTestDB(t, testConfig())
	users, err := db.CreateTable("users", usersColumns())
	require.NoError(t, err)
	require.NoError(t, users.Insert(userRow(1, "Ann")))

	rtx := db.txm.BeginRead()
	defer rtx.Release()
	require.NoError(t, users.Insert(userRow(2, "Bo")))
	_, err = db.Checkpoint()
	require.NoError(t, err)

	sc, err := users.NewScanner(rtx, storage.FirstDataPageID, 0)
	require.NoError(t, err)
	count := 0
	for sc.Next() {
		count++
	}
	assert.Equal(t, 1, count)

	rows, err := users.Select()
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestAutomaticCheckpoint(t *testing.T) {
	cfg := testConfig()
	cfg.CheckpointEvery = 2
	db, _ := openTestDB(t, cfg)
	users, err := db.CreateTable("users", usersColumns())
	require.NoError(t, err)

	base := db.Stats().Txn.Checkpoints
	for i := int64(1); i <= 4; i++ {
		require.NoError(t, users.Insert(userRow(i, "U")))
	}
	assert.Equal(t, base+2, db.Stats().Txn.Checkpoints)
	assert.Equal(t, 0, db.Stats().Store.LogVersions)
}

func TestConcurrentReadersAndWriter(t *testing.T) {
	db, _ := openTestDB(t, testConfig())
	users, err := db.CreateTable("users", usersColumns())
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 64)
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := int64(1); i <= 30; i++ {
			if err := users.Insert(userRow(i, "U")); err != nil {
				errs <- err
			}
		}
	}()
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			last := 0
			for i := 0; i < 20; i++ {
				rows, err := users.Select()
				if err != nil {
					errs <- err
					return
				}
				// a later snapshot never has fewer rows
				if len(rows) < last {
					errs <- fmt.Errorf("row count went from %d to %d", last, len(rows))
				}
				last = len(rows)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Error(err)
	}

	rows, err := users.Select()
	require.NoError(t, err)
	assert.Len(t, rows, 30)
}

func TestClosedDatabase(t *testing.T) {
	db, _ := openTestDB(t, testConfig())
	users, err := db.CreateTable("users", usersColumns())
	require.NoError(t, err)
	require.NoError(t, db.Close())
	require.NoError(t, db.Close())

	_, err = db.CreateTable("orders", ordersColumns())
	assert.True(t, errors.Is(err, dberrors.ErrStoreClosed))
	assert.True(t, errors.Is(users.Insert(userRow(1, "Ann")), dberrors.ErrStorage))
	_, err = users.Select()
	assert.True(t, errors.Is(err, dberrors.ErrStorage))
}

func TestFullCatalogStillAcceptsRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path, testConfig())
	require.NoError(t, err)

	cols := []catalog.ColumnSpec{{Name: "id", Type: record.TypeInt, PrimaryKey: true}}
	first, err := db.CreateTable("first", cols)
	require.NoError(t, err)

	// fill page 0 with long table names until one no longer fits
	rejected := ""
	for i := 0; i < 100 && rejected == ""; i++ {
		name := fmt.Sprintf("t%d_%s", i, strings.Repeat("x", 200))
		if _, err := db.CreateTable(name, cols); err != nil {
			assert.True(t, errors.Is(err, dberrors.ErrRowTooLarge))
			rejected = name
		}
	}
	require.NotEmpty(t, rejected)

	// pack whatever space is left with shorter names
	for n := 200; n >= 0; n-- {
		_, err := db.CreateTable(fmt.Sprintf("p%d%s", n, strings.Repeat("x", n)), cols)
		if err != nil {
			require.True(t, errors.Is(err, dberrors.ErrRowTooLarge), err)
		}
	}

	_, err = db.GetTable(rejected)
	assert.True(t, errors.Is(err, dberrors.ErrUnknownTable))
	tables := db.ListTables()

	// the page counter gains digits as rows are allocated
	for i := int64(1); i <= 12; i++ {
		require.NoError(t, first.Insert(record.NewRow([]string{"id"}, []record.Value{record.Int(i)})))
	}
	assert.Equal(t, storage.PageID(13), db.Stats().NextPage)
	require.NoError(t, db.Close())

	db, err = Open(path, testConfig())
	require.NoError(t, err)
	defer db.Close()
	assert.Equal(t, tables, db.ListTables())
	_, err = db.GetTable(rejected)
	assert.True(t, errors.Is(err, dberrors.ErrUnknownTable))

	first, err = db.GetTable("first")
	require.NoError(t, err)
	rows, err := first.Select()
	require.NoError(t, err)
	assert.Len(t, rows, 12)
}

func TestFailedCommitLeavesNoTrace(t *testing.T) {
	db, _ := openTestDB(t, testConfig())
	users, err := db.CreateTable("users", usersColumns())
	require.NoError(t, err)
	require.NoError(t, users.Insert(userRow(1, "Ann")))

	next := db.alloc.Next()
	sizes := users.Stats().IndexSizes
	require.NoError(t, db.store.Close())

	err = users.Insert(userRow(2, "Bo"))
	assert.True(t, errors.Is(err, dberrors.ErrStoreClosed))
	assert.Equal(t, next, db.alloc.Next())
	assert.Equal(t, next, db.alloc.Committed())
	assert.Equal(t, sizes, users.Stats().IndexSizes)
	assert.Equal(t, uint64(1), users.Stats().Inserts)

	// the writer slot was released by the abort
	wtx, err := db.txm.TryBeginWrite()
	require.NoError(t, err)
	require.NoError(t, wtx.Abort())
}

func TestBoundedScan(t *testing.T) {
	db, _ := openTestDB(t, testConfig())
	users, err := db.CreateTable("users", usersColumns())
	require.NoError(t, err)
	for i := int64(1); i <= 5; i++ {
		require.NoError(t, users.Insert(userRow(i, "U")))
	}

	rows, err := users.SelectRange(2, 4)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, int64(2), rows[0].Get("id").I64)
	assert.Equal(t, int64(3), rows[1].Get("id").I64)

	// a bound past the page counter is clamped to it
	rows, err = users.SelectRange(4, 1000)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	rows, err = users.SelectRange(storage.FirstDataPageID, 0)
	require.NoError(t, err)
	assert.Len(t, rows, 5)

	rtx := db.txm.BeginRead()
	defer rtx.Release()
	sc, err := users.NewScanner(rtx, storage.FirstDataPageID, 3)
	require.NoError(t, err)
	count := 0
	for sc.Next() {
		count++
	}
	require.NoError(t, sc.Err())
	assert.Equal(t, 2, count)
	assert.Equal(t, storage.PageID(3), sc.Position())
}
