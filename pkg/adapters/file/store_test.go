package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/stepwise/pkg/adapters/file"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/ports"
)

// Ensure Store implements StateStore
var _ ports.StateStore = (*file.Store)(nil)

func TestFileStore_Contract(t *testing.T) {
	ports.RunStateStoreContract(t, file.NewStore(t.TempDir()))
}

func TestFileStore_Disk(t *testing.T) {
	dir := t.TempDir()
	store := file.NewStore(dir)
	ctx := context.Background()

	t.Run("NumbersRoundTripAsFloat", func(t *testing.T) {
		snap := &domain.Snapshot{
			SessionID: "session-1",
			State:     domain.NewNavigationState(),
			Responses: domain.ResponseMap{"age": 42},
		}
		if err := store.Save(ctx, "session-1", snap); err != nil {
			t.Fatalf("Save failed: %v", err)
		}

		loaded, err := store.Load(ctx, "session-1")
		if err != nil {
			t.Fatalf("Load failed: %v", err)
		}
		// encoding/json decodes numbers into float64.
		if val, ok := loaded.Responses["age"].(float64); !ok || val != 42 {
			t.Errorf("expected Responses['age'] = 42, got %v (%T)", loaded.Responses["age"], loaded.Responses["age"])
		}
	})

	t.Run("DeleteNonExistentSession", func(t *testing.T) {
		if err := store.Delete(ctx, "ghost-session"); err != nil {
			t.Errorf("Delete of non-existent session should not fail, got %v", err)
		}
	})

	t.Run("RejectsPathTraversal", func(t *testing.T) {
		if err := store.Save(ctx, "../escape", &domain.Snapshot{}); err == nil {
			t.Error("expected error for session ID with path separators")
		}
	})

	t.Run("ListIgnoresGarbage", func(t *testing.T) {
		listDir := t.TempDir()
		listStore := file.NewStore(listDir)

		for _, id := range []string{"s2", "s1"} {
			if err := listStore.Save(ctx, id, &domain.Snapshot{SessionID: id}); err != nil {
				t.Fatalf("Save failed: %v", err)
			}
		}
		if err := os.WriteFile(filepath.Join(listDir, "garbage.txt"), []byte("garbage"), 0644); err != nil {
			t.Fatalf("failed to create garbage file: %v", err)
		}
		if err := os.WriteFile(filepath.Join(listDir, "tmp-s3-123.json"), []byte("{}"), 0644); err != nil {
			t.Fatalf("failed to create temp file: %v", err)
		}

		list, err := listStore.List(ctx)
		if err != nil {
			t.Fatalf("List failed: %v", err)
		}
		if len(list) != 2 || list[0] != "s1" || list[1] != "s2" {
			t.Errorf("expected [s1 s2], got %v", list)
		}
	})
}
