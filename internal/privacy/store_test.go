package privacy

import (
	"sort"
	"testing"

	"vision-backend/internal/models"
)

func newTestStore(t *testing.T) *SecureStore {
	t.Helper()
	codec, err := NewCodec("test_password")
	if err != nil {
		t.Fatalf("NewCodec failed: %v", err)
	}
	return NewSecureStore(codec)
}

// TestStoreRetrieveRoundTrip verifies stored structured values come
// back intact.
func TestStoreRetrieveRoundTrip(t *testing.T) {
	store := newTestStore(t)

	event := models.MovementEvent{
		Detected:    true,
		RegionCount: 2,
		TotalArea:   1200,
		Intensity:   0.39,
	}
	if !store.Store("movement_0001", event) {
		t.Fatal("Store failed")
	}

	var back models.MovementEvent
	if !store.RetrieveInto("movement_0001", &back) {
		t.Fatal("RetrieveInto failed")
	}
	if back.RegionCount != 2 || back.TotalArea != 1200 {
		t.Errorf("round trip mismatch: %+v", back)
	}

	out, ok := store.Retrieve("movement_0001", true)
	if !ok {
		t.Fatal("Retrieve failed")
	}
	if _, isMap := out.(map[string]interface{}); !isMap {
		t.Errorf("expected structured map, got %T", out)
	}
}

// TestRetrieveMissingKey verifies absent keys report ok=false.
func TestRetrieveMissingKey(t *testing.T) {
	store := newTestStore(t)

	if _, ok := store.Retrieve("nope", false); ok {
		t.Error("Retrieve returned ok for absent key")
	}
	if store.RetrieveInto("nope", &struct{}{}) {
		t.Error("RetrieveInto returned ok for absent key")
	}
}

// TestCiphertextOpaque verifies the raw stored form is ciphertext, not
// recognizable plaintext.
func TestCiphertextOpaque(t *testing.T) {
	store := newTestStore(t)
	store.Store("k", "the plain text body")

	ciphertext, ok := store.Ciphertext("k")
	if !ok {
		t.Fatal("Ciphertext lookup failed")
	}
	if ciphertext == "the plain text body" {
		t.Error("store holds plaintext")
	}
}

// TestCorruptEntryFailsClosed verifies a corrupted entry reads as
// absent rather than returning garbage.
func TestCorruptEntryFailsClosed(t *testing.T) {
	store := newTestStore(t)
	store.Store("k", "value")

	store.entries["k"] = "corrupted+++not/valid/ciphertext"
	if _, ok := store.Retrieve("k", false); ok {
		t.Error("corrupt entry retrieved successfully")
	}
}

// TestListKeysSorted verifies key listing is lexicographic, which for
// timestamp-suffixed keys is chronological per kind.
func TestListKeysSorted(t *testing.T) {
	store := newTestStore(t)
	for _, k := range []string{"movement_3", "analysis_2", "movement_1", "analysis_9"} {
		store.Store(k, k)
	}

	keys := store.ListKeys()
	if len(keys) != 4 {
		t.Fatalf("expected 4 keys, got %d", len(keys))
	}
	if !sort.StringsAreSorted(keys) {
		t.Errorf("keys not sorted: %v", keys)
	}
}

// TestDeleteAndClear verifies removal semantics and Len accounting.
func TestDeleteAndClear(t *testing.T) {
	store := newTestStore(t)
	store.Store("a", 1)
	store.Store("b", 2)

	if !store.Delete("a") {
		t.Error("Delete existing key returned false")
	}
	if store.Delete("a") {
		t.Error("Delete absent key returned true")
	}
	if store.Len() != 1 {
		t.Errorf("expected 1 entry, got %d", store.Len())
	}

	store.Clear()
	if store.Len() != 0 {
		t.Errorf("expected empty store, got %d entries", store.Len())
	}
}
