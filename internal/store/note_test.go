package store

import (
	"context"
	"testing"
	"time"
)

func setupNoteTestDB(t *testing.T) *NoteStore {
	t.Helper()
	return NewNoteStore(setupTestDB(t))
}

func strPtr(s string) *string { return &s }

func TestNoteCRUD(t *testing.T) {
	ns := setupNoteTestDB(t)
	ctx := context.Background()

	// Create
	id, err := ns.Create(ctx, "Test Note", strPtr("Some content"))
	if err != nil {
		t.Fatalf("create note: %v", err)
	}
	if id <= 0 {
		t.Fatalf("id = %d, want positive", id)
	}

	// Get by ID
	note, err := ns.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("get note: %v", err)
	}
	if note == nil {
		t.Fatal("expected note, got nil")
	}
	if note.Title != "Test Note" {
		t.Errorf("title = %q, want %q", note.Title, "Test Note")
	}
	if note.Content == nil || *note.Content != "Some content" {
		t.Errorf("content = %v, want %q", note.Content, "Some content")
	}
	if !note.UpdatedAt.Equal(note.CreatedAt) {
		t.Errorf("updated_at %v != created_at %v at creation", note.UpdatedAt, note.CreatedAt)
	}
	if note.CreatedAt.IsZero() {
		t.Error("created_at not set")
	}

	// Update
	ok, err := ns.Update(ctx, id, "Updated Title", strPtr("Updated content"))
	if err != nil {
		t.Fatalf("update note: %v", err)
	}
	if !ok {
		t.Error("expected update to affect a row")
	}
	updated, err := ns.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("get updated note: %v", err)
	}
	if updated.Title != "Updated Title" {
		t.Errorf("title = %q, want %q", updated.Title, "Updated Title")
	}
	if updated.Content == nil || *updated.Content != "Updated content" {
		t.Errorf("content = %v, want %q", updated.Content, "Updated content")
	}
	if !updated.CreatedAt.Equal(note.CreatedAt) {
		t.Errorf("created_at changed: %v -> %v", note.CreatedAt, updated.CreatedAt)
	}
	if updated.UpdatedAt.Before(note.UpdatedAt) {
		t.Errorf("updated_at went backwards: %v -> %v", note.UpdatedAt, updated.UpdatedAt)
	}

	// Delete
	ok, err = ns.Delete(ctx, id)
	if err != nil {
		t.Fatalf("delete note: %v", err)
	}
	if !ok {
		t.Error("expected delete to affect a row")
	}
	got, err := ns.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("get deleted note: %v", err)
	}
	if got != nil {
		t.Error("expected nil after delete")
	}
}

func TestNoteNotFound(t *testing.T) {
	ns := setupNoteTestDB(t)

	got, err := ns.GetByID(context.Background(), 999)
	if err != nil {
		t.Fatalf("get note: %v", err)
	}
	if got != nil {
		t.Error("expected nil for non-existent note")
	}
}

func TestNoteUpdateDeleteMissing(t *testing.T) {
	ns := setupNoteTestDB(t)
	ctx := context.Background()

	ok, err := ns.Update(ctx, 999, "nobody", nil)
	if err != nil {
		t.Fatalf("update missing: %v", err)
	}
	if ok {
		t.Error("update of missing note reported a row affected")
	}

	ok, err = ns.Delete(ctx, 999)
	if err != nil {
		t.Fatalf("delete missing: %v", err)
	}
	if ok {
		t.Error("delete of missing note reported a row affected")
	}
}

func TestNoteNilContent(t *testing.T) {
	ns := setupNoteTestDB(t)
	ctx := context.Background()

	id, err := ns.Create(ctx, "No content", nil)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	note, _ := ns.GetByID(ctx, id)
	if note.Content != nil {
		t.Errorf("content = %q, want nil", *note.Content)
	}
}

func TestNoteListStorageOrder(t *testing.T) {
	ns := setupNoteTestDB(t)
	ctx := context.Background()

	titles := []string{"first", "second", "third"}
	for _, title := range titles {
		if _, err := ns.Create(ctx, title, nil); err != nil {
			t.Fatalf("create %s: %v", title, err)
		}
	}

	notes, err := ns.List(ctx)
	if err != nil {
		t.Fatalf("list notes: %v", err)
	}
	if len(notes) != len(titles) {
		t.Fatalf("expected %d notes, got %d", len(titles), len(notes))
	}
	for i, want := range titles {
		if notes[i].Title != want {
			t.Errorf("notes[%d].Title = %q, want %q", i, notes[i].Title, want)
		}
	}
}

func TestNoteListEmpty(t *testing.T) {
	ns := setupNoteTestDB(t)

	notes, err := ns.List(context.Background())
	if err != nil {
		t.Fatalf("list notes: %v", err)
	}
	if len(notes) != 0 {
		t.Errorf("expected no notes, got %d", len(notes))
	}
}

func TestNoteSearchByTitle(t *testing.T) {
	ns := setupNoteTestDB(t)
	ctx := context.Background()

	ns.Create(ctx, "Team Meeting", nil)
	ns.Create(ctx, "Budget", nil)
	ns.Create(ctx, "MEETUP ideas", nil)

	notes, err := ns.SearchByTitle(ctx, "meet")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(notes) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(notes))
	}
	for _, n := range notes {
		if n.Title == "Budget" {
			t.Error("Budget should not match meet")
		}
	}

	all, err := ns.SearchByTitle(ctx, "")
	if err != nil {
		t.Fatalf("search empty: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("empty substring matched %d notes, want 3", len(all))
	}
}

func TestNoteCount(t *testing.T) {
	ns := setupNoteTestDB(t)
	ctx := context.Background()

	count, err := ns.Count(ctx)
	if err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 0 {
		t.Errorf("count = %d, want 0", count)
	}

	ns.Create(ctx, "a", nil)
	ns.Create(ctx, "b", nil)

	count, _ = ns.Count(ctx)
	if count != 2 {
		t.Errorf("count = %d, want 2", count)
	}
}

func TestNoteRecent(t *testing.T) {
	db := setupTestDB(t)
	ns := NewNoteStore(db)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	// Insert out of order so storage order differs from updated_at order.
	offsets := []int{3, 0, 6, 1, 5, 2, 4}
	for _, off := range offsets {
		id, err := ns.Create(ctx, "note", nil)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		ts := base.Add(time.Duration(off) * time.Hour)
		if _, err := db.Exec(`UPDATE notes SET title = ?, updated_at = ? WHERE id = ?`,
			ts.Format("15:04"), ts, id); err != nil {
			t.Fatalf("set updated_at: %v", err)
		}
	}

	notes, err := ns.Recent(ctx, RecentLimit)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(notes) != RecentLimit {
		t.Fatalf("expected %d notes, got %d", RecentLimit, len(notes))
	}

	want := []string{"18:00", "17:00", "16:00", "15:00", "14:00"}
	for i, w := range want {
		if notes[i].Title != w {
			t.Errorf("notes[%d].Title = %q, want %q", i, notes[i].Title, w)
		}
	}
	for i := 1; i < len(notes); i++ {
		if notes[i].UpdatedAt.After(notes[i-1].UpdatedAt) {
			t.Errorf("notes not sorted by updated_at desc at %d", i)
		}
	}
}

func TestNoteRecentFewerThanLimit(t *testing.T) {
	ns := setupNoteTestDB(t)
	ctx := context.Background()

	ns.Create(ctx, "only", nil)

	notes, err := ns.Recent(ctx, RecentLimit)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(notes) != 1 {
		t.Errorf("expected 1 note, got %d", len(notes))
	}
}

func TestNoteBulkDelete(t *testing.T) {
	ns := setupNoteTestDB(t)
	ctx := context.Background()

	var ids []int64
	for _, title := range []string{"one", "two", "three", "four"} {
		id, err := ns.Create(ctx, title, nil)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		ids = append(ids, id)
	}

	before, _ := ns.Count(ctx)

	// 999 does not exist
	deleted, err := ns.BulkDelete(ctx, []int64{ids[0], ids[1], 999})
	if err != nil {
		t.Fatalf("bulk delete: %v", err)
	}
	if deleted != 2 {
		t.Errorf("deleted = %d, want 2", deleted)
	}

	after, _ := ns.Count(ctx)
	if before-after != deleted {
		t.Errorf("count delta = %d, want %d", before-after, deleted)
	}

	for _, id := range ids[2:] {
		n, _ := ns.GetByID(ctx, id)
		if n == nil {
			t.Errorf("note %d should survive bulk delete", id)
		}
	}
}

func TestNoteBulkDeleteEmpty(t *testing.T) {
	ns := setupNoteTestDB(t)
	ctx := context.Background()

	ns.Create(ctx, "keep", nil)

	deleted, err := ns.BulkDelete(ctx, nil)
	if err != nil {
		t.Fatalf("bulk delete: %v", err)
	}
	if deleted != 0 {
		t.Errorf("deleted = %d, want 0", deleted)
	}
	if count, _ := ns.Count(ctx); count != 1 {
		t.Errorf("count = %d, want 1", count)
	}
}
