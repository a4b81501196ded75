package store

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/ayusman/darshan/internal/clips"
)

func TestSlotRepository_MalformedIsEmpty(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	repo := s.Slot("")

	if _, err := s.DB().Exec(`INSERT INTO settings (key, value) VALUES (?, ?)`, DefaultSlot, "{not json"); err != nil {
		t.Fatalf("seed slot: %v", err)
	}

	list, err := repo.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v, want nil for malformed slot", err)
	}
	if len(list) != 0 {
		t.Errorf("List() = %v, want empty", list)
	}

	// Appending over a corrupt slot starts a fresh list
	if err := repo.Append(ctx, clips.Clip{ID: "fresh"}); err != nil {
		t.Fatalf("Append() error = %v", err)
	}
	list, _ = repo.List(ctx)
	if len(list) != 1 || list[0].ID != "fresh" {
		t.Errorf("List() = %+v, want [fresh]", list)
	}
}

func TestSlotRepository_NullListIsEmpty(t *testing.T) {
	s := newTestStore(t)
	if _, err := s.DB().Exec(`INSERT INTO settings (key, value) VALUES (?, ?)`, DefaultSlot, "null"); err != nil {
		t.Fatalf("seed slot: %v", err)
	}

	list, err := s.Slot("").List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if list == nil || len(list) != 0 {
		t.Errorf("List() = %v, want empty slice", list)
	}
}

func TestSlotRepository_ClearRemovesSlot(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	repo := s.Slot("")

	if err := repo.Append(ctx, clips.Clip{ID: "a"}); err != nil {
		t.Fatal(err)
	}
	if err := repo.Clear(ctx); err != nil {
		t.Fatal(err)
	}

	var n int
	if err := s.DB().QueryRow(`SELECT COUNT(*) FROM settings WHERE key = ?`, DefaultSlot).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("slot rows after Clear = %d, want 0", n)
	}
}

func TestSlotRepository_SeparateKeys(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	a := s.Slot("a")
	b := s.Slot("b")
	if err := a.Append(ctx, clips.Clip{ID: "1"}); err != nil {
		t.Fatal(err)
	}

	list, _ := b.List(ctx)
	if len(list) != 0 {
		t.Errorf("slot b sees %d clips from slot a", len(list))
	}
}

func TestSlotRepository_Malformed_Mock(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT value FROM settings WHERE key = \?`).
		WithArgs(DefaultSlot).
		WillReturnRows(sqlmock.NewRows([]string{"value"}).AddRow("[{"))

	list, err := NewSlotRepository(db, "", nil).List(context.Background())
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(list) != 0 {
		t.Errorf("List() = %v, want empty", list)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal("ExpectationsWereMet err:", err)
	}
}
