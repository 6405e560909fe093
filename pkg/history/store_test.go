package history

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"reflect"
	"testing"
)

func openTestStore(t *testing.T, max int) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := Open(path, max)
	if err != nil {
		t.Fatalf("opening store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store, path
}

func TestAddMostRecentFirst(t *testing.T) {
	store, _ := openTestStore(t, 0)

	for _, q := range []string{"green ramp", "blue counterspells", "goblins"} {
		if err := store.Add(q); err != nil {
			t.Fatal(err)
		}
	}

	want := []string{"goblins", "blue counterspells", "green ramp"}
	if got := store.Entries(); !reflect.DeepEqual(got, want) {
		t.Errorf("entries = %v, want %v", got, want)
	}
}

func TestAddDedupesCaseInsensitively(t *testing.T) {
	store, _ := openTestStore(t, 0)

	_ = store.Add("Sol Ring")
	_ = store.Add("goblins")
	if err := store.Add("sol ring"); err != nil {
		t.Fatal(err)
	}

	want := []string{"sol ring", "goblins"}
	if got := store.Entries(); !reflect.DeepEqual(got, want) {
		t.Errorf("duplicate should move to front with new casing: got %v, want %v", got, want)
	}
}

func TestAddIgnoresBlankQueries(t *testing.T) {
	store, _ := openTestStore(t, 0)

	if err := store.Add("   "); err != nil {
		t.Fatal(err)
	}
	if err := store.Add(""); err != nil {
		t.Fatal(err)
	}
	if got := store.Entries(); len(got) != 0 {
		t.Errorf("expected empty history, got %v", got)
	}
}

func TestAddTrimsWhitespace(t *testing.T) {
	store, _ := openTestStore(t, 0)

	_ = store.Add("  goblins  ")
	if got := store.Entries(); len(got) != 1 || got[0] != "goblins" {
		t.Errorf("expected trimmed entry, got %v", got)
	}
}

func TestCapDropsOldest(t *testing.T) {
	store, _ := openTestStore(t, 3)

	for i := 0; i < 5; i++ {
		if err := store.Add(fmt.Sprintf("query %d", i)); err != nil {
			t.Fatal(err)
		}
	}

	want := []string{"query 4", "query 3", "query 2"}
	if got := store.Entries(); !reflect.DeepEqual(got, want) {
		t.Errorf("entries = %v, want %v", got, want)
	}
}

func TestRemoveAndClear(t *testing.T) {
	store, _ := openTestStore(t, 0)

	_ = store.Add("green ramp")
	_ = store.Add("goblins")

	if err := store.Remove("GREEN RAMP"); err != nil {
		t.Fatal(err)
	}
	if got := store.Entries(); len(got) != 1 || got[0] != "goblins" {
		t.Errorf("after remove: got %v", got)
	}

	if err := store.Clear(); err != nil {
		t.Fatal(err)
	}
	if got := store.Entries(); len(got) != 0 {
		t.Errorf("after clear: got %v", got)
	}
}

func TestPersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	store, err := Open(path, 0)
	if err != nil {
		t.Fatal(err)
	}
	_ = store.Add("green ramp")
	_ = store.Add("goblins")
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(path, 0)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	want := []string{"goblins", "green ramp"}
	if got := reopened.Entries(); !reflect.DeepEqual(got, want) {
		t.Errorf("reopened entries = %v, want %v", got, want)
	}
}

func TestCorruptValueMeansEmptyHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	store, err := Open(path, 0)
	if err != nil {
		t.Fatal(err)
	}
	_ = store.Add("goblins")
	_ = store.Close()

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Exec(`UPDATE kv SET value = ? WHERE key = ?`, "{not json", storageKey); err != nil {
		t.Fatal(err)
	}
	_ = db.Close()

	reopened, err := Open(path, 0)
	if err != nil {
		t.Fatalf("corrupt value must not fail open: %v", err)
	}
	defer reopened.Close()
	if got := reopened.Entries(); len(got) != 0 {
		t.Errorf("expected empty history for corrupt value, got %v", got)
	}
}

func TestReopenTruncatesToMax(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")

	store, err := Open(path, 10)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		_ = store.Add(fmt.Sprintf("query %d", i))
	}
	_ = store.Close()

	reopened, err := Open(path, 4)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	if got := len(reopened.Entries()); got != 4 {
		t.Errorf("expected reopened history truncated to 4, got %d", got)
	}
}
