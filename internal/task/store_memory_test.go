package task

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestMemoryStoreSaveAssignsIDAndTimestamps(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	tk := Task{Title: "First", CreatedBy: UserRef{ID: "u1", Name: "Alice"}}
	if err := s.Save(ctx, tk); err != nil {
		t.Fatalf("Save() = %v", err)
	}

	list, err := s.ListByRelation(ctx, "u1", RelationCreated, time.Now())
	if err != nil {
		t.Fatalf("ListByRelation() = %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("len(list) = %d, want 1", len(list))
	}
	got := list[0]
	if got.ID == "" {
		t.Error("Save did not assign an id")
	}
	if got.CreatedAt.IsZero() || got.UpdatedAt.IsZero() {
		t.Error("Save did not stamp timestamps")
	}
}

func TestMemoryStoreGetAndDelete(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Save(ctx, Task{ID: "t1", Title: "Keep"}); err != nil {
		t.Fatalf("Save() = %v", err)
	}
	got, err := s.Get(ctx, "t1")
	if err != nil {
		t.Fatalf("Get(t1) = %v", err)
	}
	if got.Title != "Keep" {
		t.Fatalf("Get(t1).Title = %q, want %q", got.Title, "Keep")
	}

	if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get(missing) = %v, want ErrNotFound", err)
	}
	if err := s.Delete(ctx, "t1"); err != nil {
		t.Fatalf("Delete(t1) = %v", err)
	}
	if err := s.Delete(ctx, "t1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second Delete(t1) = %v, want ErrNotFound", err)
	}
}

func TestMemoryStoreListByRelation(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	today := time.Date(2025, 5, 15, 0, 0, 0, 0, time.UTC)

	alice := UserRef{ID: "u1", Name: "Alice"}
	bob := UserRef{ID: "u2", Name: "Bob"}

	seed := []Task{
		{ID: "a", Title: "mine, due later", CreatedBy: bob, AssignedTo: &alice, DueDate: "2025-06-01", Status: StatusPending, CreatedAt: today.Add(1 * time.Hour)},
		{ID: "b", Title: "mine, overdue", CreatedBy: bob, AssignedTo: &alice, DueDate: "2025-05-01", Status: StatusPending, CreatedAt: today.Add(2 * time.Hour)},
		{ID: "c", Title: "mine, overdue but done", CreatedBy: bob, AssignedTo: &alice, DueDate: "2025-05-01", Status: StatusCompleted, CreatedAt: today.Add(3 * time.Hour)},
		{ID: "d", Title: "created by me", CreatedBy: alice, AssignedTo: &bob, DueDate: "2025-05-01", Status: StatusPending, CreatedAt: today.Add(4 * time.Hour)},
		{ID: "e", Title: "unassigned", CreatedBy: bob, DueDate: "2025-05-01", Status: StatusPending, CreatedAt: today.Add(5 * time.Hour)},
	}
	for _, tk := range seed {
		if err := s.Save(ctx, tk); err != nil {
			t.Fatalf("Save(%s) = %v", tk.ID, err)
		}
	}

	assertIDs := func(rel Relation, want ...string) {
		t.Helper()
		list, err := s.ListByRelation(ctx, "u1", rel, today)
		if err != nil {
			t.Fatalf("ListByRelation(%s) = %v", rel, err)
		}
		var got []string
		for _, tk := range list {
			got = append(got, tk.ID)
		}
		if len(got) != len(want) {
			t.Fatalf("ListByRelation(%s) ids = %v, want %v", rel, got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Fatalf("ListByRelation(%s) ids = %v, want %v", rel, got, want)
			}
		}
	}

	assertIDs(RelationAssigned, "a", "b", "c")
	assertIDs(RelationCreated, "d")
	assertIDs(RelationOverdue, "b")
}

func TestMemoryStoreReturnsClones(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()
	if err := s.Save(ctx, Task{ID: "t1", Title: "orig", AssignedTo: &UserRef{ID: "u1", Name: "Alice"}}); err != nil {
		t.Fatalf("Save() = %v", err)
	}
	got, err := s.Get(ctx, "t1")
	if err != nil {
		t.Fatalf("Get() = %v", err)
	}
	got.AssignedTo.Name = "Mallory"
	again, err := s.Get(ctx, "t1")
	if err != nil {
		t.Fatalf("Get() = %v", err)
	}
	if again.AssignedTo.Name != "Alice" {
		t.Fatalf("stored assignee mutated through returned copy: %q", again.AssignedTo.Name)
	}
}
