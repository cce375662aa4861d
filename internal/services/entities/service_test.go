package entities

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/j-veylop/rewardgate/internal/models"
)

func newTestService(t *testing.T) (*Service, string) {
	t.Helper()

	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "entities.json")

	svc, err := New(path)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	t.Cleanup(func() {
		if err := svc.Close(); err != nil {
			t.Logf("Close() failed: %v", err)
		}
	})

	return svc, path
}

func writeCatalog(t *testing.T, path string, entities ...models.TrackedEntity) {
	t.Helper()
	if err := writeFile(path, EntitiesFile{Entities: entities, Version: 1}); err != nil {
		t.Fatalf("writeFile() failed: %v", err)
	}
}

func TestNew_CreatesFile(t *testing.T) {
	svc, path := newTestService(t)

	if _, err := os.Stat(path); err != nil {
		t.Errorf("entities file was not created: %v", err)
	}
	if svc.Count() != 0 {
		t.Errorf("Count() = %d, want 0", svc.Count())
	}

	select {
	case ev := <-svc.Events():
		if ev.Type != EventEntitiesLoaded {
			t.Errorf("first event = %v, want EventEntitiesLoaded", ev.Type)
		}
	default:
		t.Error("no loaded event")
	}
}

func TestNew_EmptyPath(t *testing.T) {
	if _, err := New(""); err == nil {
		t.Error("New(\"\") should fail")
	}
}

func TestNew_LoadsAndResolves(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entities.json")
	writeCatalog(t, path,
		models.TrackedEntity{Handle: "h1", BundleID: "com.example.words", DisplayName: "Words", Category: models.CategoryLearning, PointsPerMinute: 2},
		models.TrackedEntity{Handle: "h2", DisplayName: "Arcade", Category: models.CategoryReward, Blocked: true},
		models.TrackedEntity{DisplayName: "Pending"},
	)

	svc, err := New(path)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer func() { _ = svc.Close() }()

	tracked := svc.Tracked()
	if len(tracked) != 2 {
		t.Fatalf("Tracked() len = %d, want 2", len(tracked))
	}
	if tracked[0].DisplayName != "Arcade" {
		t.Errorf("Tracked() not sorted by name: %v", tracked[0].DisplayName)
	}
	for _, e := range tracked {
		if e.LogicalID == "" {
			t.Errorf("entity %s has no logical ID", e.DisplayName)
		}
	}

	if got := svc.Unresolved(); len(got) != 1 || got[0].DisplayName != "Pending" {
		t.Errorf("Unresolved() = %v", got)
	}

	arcade := tracked[0]
	if !svc.Contains(arcade.LogicalID) {
		t.Error("Contains() should report the blocked entity")
	}
	if svc.Contains(tracked[1].LogicalID) {
		t.Error("Contains() should not report an unblocked entity")
	}

	if _, ok := svc.Get(arcade.LogicalID); !ok {
		t.Error("Get() did not find tracked entity")
	}
}

func TestLoad_IdentityStableWhenBundleLearned(t *testing.T) {
	svc, path := newTestService(t)

	writeCatalog(t, path, models.TrackedEntity{Handle: "h1", DisplayName: "Words"})
	if err := svc.load(); err != nil {
		t.Fatalf("load() failed: %v", err)
	}
	before := svc.Tracked()

	writeCatalog(t, path, models.TrackedEntity{Handle: "h1", BundleID: "com.example.words", DisplayName: "Words"})
	if err := svc.load(); err != nil {
		t.Fatalf("load() failed: %v", err)
	}
	after := svc.Tracked()

	if len(before) != 1 || len(after) != 1 {
		t.Fatalf("Tracked() lens = %d, %d, want 1, 1", len(before), len(after))
	}
	if before[0].LogicalID != after[0].LogicalID {
		t.Errorf("logical ID changed from %s to %s", before[0].LogicalID, after[0].LogicalID)
	}
}

func TestNew_BareArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entities.json")
	if err := os.WriteFile(path, []byte(`[{"handle":"x","displayName":"X"}]`), 0600); err != nil {
		t.Fatal(err)
	}

	svc, err := New(path)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}
	defer func() { _ = svc.Close() }()

	if svc.Count() != 1 {
		t.Errorf("Count() = %d, want 1", svc.Count())
	}
}

func TestNew_InvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "entities.json")
	if err := os.WriteFile(path, []byte("not json"), 0600); err != nil {
		t.Fatal(err)
	}

	if _, err := New(path); err == nil {
		t.Error("New() should fail on invalid JSON")
	}
}

func TestWatch_ReloadsOnChange(t *testing.T) {
	svc, path := newTestService(t)
	<-svc.Events()

	writeCatalog(t, path, models.TrackedEntity{Handle: "h", DisplayName: "Notes"})

	deadline := time.After(3 * time.Second)
	for {
		select {
		case ev := <-svc.Events():
			if ev.Type == EventEntitiesChanged && svc.Count() == 1 {
				return
			}
		case <-deadline:
			t.Fatal("change was not picked up")
		}
	}
}
