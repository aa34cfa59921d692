package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

// newTestStore creates a new Store with a temporary database for testing.
func newTestStore(t *testing.T) *Store {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})

	return s
}

func TestNewStore_CreatesDatabase(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	if _, err := os.Stat(dbPath); !os.IsNotExist(err) {
		t.Fatal("database file should not exist before creating store")
	}

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Fatal("database file should exist after creating store")
	}
	if s.Path() != dbPath {
		t.Errorf("Path() = %q, want %q", s.Path(), dbPath)
	}
}

func TestNewStore_RunsMigrations(t *testing.T) {
	s := newTestStore(t)

	var name string
	err := s.DB().QueryRow(
		"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
		"settings",
	).Scan(&name)
	if err != nil {
		t.Errorf("table settings should exist after migrations: %v", err)
	}
}

func TestNewStore_Reopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	if err := s.Settings().Set("k", "v"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	s.Close()

	// Migrations must be idempotent and data must survive
	s, err = New(dbPath)
	if err != nil {
		t.Fatalf("failed to reopen store: %v", err)
	}
	defer s.Close()

	st, err := s.Settings().Get("k")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if st.Value != "v" {
		t.Errorf("value = %q, want %q", st.Value, "v")
	}
}

func TestStore_Close(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")

	s, err := New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	if err := s.Close(); err != nil {
		t.Errorf("close should not return error: %v", err)
	}

	if _, err := s.DB().Exec("SELECT 1"); err == nil {
		t.Error("DB operations should fail after close")
	}
}

func TestSettings_GetSet(t *testing.T) {
	s := newTestStore(t)
	repo := s.Settings()

	t.Run("missing key", func(t *testing.T) {
		if _, err := repo.Get("missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("Get() error = %v, want ErrNotFound", err)
		}
	})

	t.Run("set then overwrite", func(t *testing.T) {
		if err := repo.Set("theme", "dark"); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
		if err := repo.Set("theme", "light"); err != nil {
			t.Fatalf("Set() overwrite error = %v", err)
		}

		st, err := repo.Get("theme")
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if st.Value != "light" {
			t.Errorf("value = %q, want %q", st.Value, "light")
		}
		if st.UpdatedAt.IsZero() {
			t.Error("UpdatedAt should be set")
		}
	})

	t.Run("list is ordered by key", func(t *testing.T) {
		if err := repo.Set("alpha", "1"); err != nil {
			t.Fatalf("Set() error = %v", err)
		}

		settings, err := repo.List()
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(settings) != 2 {
			t.Fatalf("List() returned %d settings, want 2", len(settings))
		}
		if settings[0].Key != "alpha" || settings[1].Key != "theme" {
			t.Errorf("order = %s, %s; want alpha, theme", settings[0].Key, settings[1].Key)
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := repo.Delete("alpha"); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}
		if err := repo.Delete("alpha"); !errors.Is(err, ErrNotFound) {
			t.Errorf("second Delete() error = %v, want ErrNotFound", err)
		}
	})
}

func TestSettings_JSON(t *testing.T) {
	s := newTestStore(t)
	repo := s.Settings()

	type options struct {
		MaxHands  int     `json:"maxNumHands"`
		Threshold float64 `json:"minDetectionConfidence"`
	}

	if err := repo.SetJSON(KeyHandOptions, options{MaxHands: 1, Threshold: 0.7}); err != nil {
		t.Fatalf("SetJSON() error = %v", err)
	}

	var got options
	if err := repo.GetJSON(KeyHandOptions, &got); err != nil {
		t.Fatalf("GetJSON() error = %v", err)
	}
	if got.MaxHands != 1 || got.Threshold != 0.7 {
		t.Errorf("GetJSON() = %+v", got)
	}

	if err := repo.Set(KeyPoseOptions, "{not json"); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := repo.GetJSON(KeyPoseOptions, &got); err == nil {
		t.Error("expected decode error for malformed value")
	}
	if err := repo.GetJSON("absent", &got); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetJSON() missing error = %v, want ErrNotFound", err)
	}
}
