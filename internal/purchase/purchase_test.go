package purchase

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/jsonio"
	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/models"
	"github.com/edwinkarolczyk/Warsztat-Menager-sub000/internal/util"
)

func newGenerator(t *testing.T) *Generator {
	t.Helper()
	clock := util.NewFixedClock(time.Date(2025, 2, 3, 12, 0, 0, 0, time.Local))
	return New(filepath.Join(t.TempDir(), "zamowienia"), Options{Logger: zerolog.Nop(), Clock: clock})
}

func TestNextID(t *testing.T) {
	g := newGenerator(t)

	id, err := g.NextID()
	require.NoError(t, err)
	assert.Equal(t, "000001", id)

	require.NoError(t, os.MkdirAll(g.Dir(), 0750))
	for _, name := range []string{"000007.json", "000002.json", "notes.json", "000099.txt", PendingFile} {
		require.NoError(t, os.WriteFile(filepath.Join(g.Dir(), name), []byte("{}"), 0640))
	}

	id, err = g.NextID()
	require.NoError(t, err)
	assert.Equal(t, "000008", id)
}

func TestCreate(t *testing.T) {
	g := newGenerator(t)
	braki := []models.Shortage{{Kod: "MAT-C", Nazwa: "Pręt", IloscPotrzebna: 4}}

	id, path, err := g.Create(braki)
	require.NoError(t, err)
	assert.Equal(t, "000001", id)
	assert.Equal(t, filepath.Join(g.Dir(), "000001.json"), path)

	order, err := g.Get(id)
	require.NoError(t, err)
	assert.Equal(t, "2025-02-03 12:00:00", order.Utworzono)
	assert.Equal(t, braki, order.Pozycje)

	id, _, err = g.Create(nil)
	require.NoError(t, err)
	assert.Equal(t, "000002", id)

	_, err = g.Get("999999")
	assert.ErrorIs(t, err, models.ErrNotFound)
}

func TestCreate_ConcurrentIDsAreUnique(t *testing.T) {
	g := newGenerator(t)
	const n = 12

	var (
		mu  sync.Mutex
		ids = map[string]bool{}
		wg  sync.WaitGroup
	)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			other := New(g.Dir(), Options{Logger: zerolog.Nop()})
			id, _, err := other.Create(nil)
			assert.NoError(t, err)
			mu.Lock()
			ids[id] = true
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Len(t, ids, n)
	assert.True(t, ids["000012"])
}

func TestAddPending_ReplacesByItem(t *testing.T) {
	g := newGenerator(t)

	require.NoError(t, g.AddPending("MAT-1", 5, "pierwszy"))
	require.NoError(t, g.AddPending("MAT-2", 1, ""))
	require.NoError(t, g.AddPending("MAT-1", 8, "poprawka"))
	assert.ErrorIs(t, g.AddPending("", 1, ""), models.ErrValidation)

	rows, err := g.Pending()
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, models.PendingRow{Type: models.PendingRowType, ID: "MAT-1", Qty: 8, Comment: "poprawka", TS: "2025-02-03 12:00:00"}, rows[0])
	assert.Equal(t, "MAT-2", rows[1].ID)
}

func TestAddPending_KeepsOtherFields(t *testing.T) {
	g := newGenerator(t)
	seed := []map[string]any{
		{"type": "narzedzie", "id": "N1", "qty": 2, "dostawca": "ACME", "pilne": true},
		{"type": models.PendingRowType, "id": "MAT-1", "qty": 1, "dostawca": "Stalhurt"},
	}
	require.NoError(t, jsonio.Write(filepath.Join(g.Dir(), PendingFile), seed))

	require.NoError(t, g.AddPending("MAT-1", 3, "uzupełnienie"))
	require.NoError(t, g.AddPending("N1", 9, ""))

	var rows []map[string]any
	require.NoError(t, jsonio.Read(filepath.Join(g.Dir(), PendingFile), &rows))
	require.Len(t, rows, 3)

	assert.Equal(t, map[string]any{"type": "narzedzie", "id": "N1", "qty": 2.0, "dostawca": "ACME", "pilne": true}, rows[0])

	assert.Equal(t, 3.0, rows[1]["qty"])
	assert.Equal(t, "uzupełnienie", rows[1]["comment"])
	assert.Equal(t, "Stalhurt", rows[1]["dostawca"])

	assert.Equal(t, models.PendingRowType, rows[2]["type"])
	assert.Equal(t, "N1", rows[2]["id"])
}

func TestAutoOrderMissing(t *testing.T) {
	g := newGenerator(t)
	stany := filepath.Join(t.TempDir(), "stany.json")
	require.NoError(t, jsonio.Write(stany, map[string]any{
		"A": map[string]any{"nazwa": "a", "stan": 1, "min": 5},
		"B": map[string]any{"nazwa": "b", "stan": 1, "prog_alert": 3},
		"C": map[string]any{"nazwa": "c", "stan": 10, "min_poziom": 3},
		"D": map[string]any{"nazwa": "d", "stan": 0},
		"E": map[string]any{"nazwa": "e", "stan": "2", "min_qty": "4,5"},
	}))

	added, err := g.AutoOrderMissing(stany)
	require.NoError(t, err)

	got := map[string]float64{}
	for _, r := range added {
		got[r.ID] = r.Qty
	}
	assert.Equal(t, map[string]float64{"A": 4, "B": 2, "E": 2.5}, got)

	rows, err := g.Pending()
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	// Running again replaces rather than duplicates.
	_, err = g.AutoOrderMissing(stany)
	require.NoError(t, err)
	rows, _ = g.Pending()
	assert.Len(t, rows, 3)
}

func TestAutoOrderMissing_NoSnapshot(t *testing.T) {
	g := newGenerator(t)
	added, err := g.AutoOrderMissing(filepath.Join(t.TempDir(), "missing.json"))
	require.NoError(t, err)
	assert.Empty(t, added)
}
