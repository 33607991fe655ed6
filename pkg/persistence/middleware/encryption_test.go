package middleware_test

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"io"
	"testing"

	"github.com/aretw0/stepwise/pkg/adapters/memory"
	"github.com/aretw0/stepwise/pkg/domain"
	"github.com/aretw0/stepwise/pkg/persistence/middleware"
	"github.com/aretw0/stepwise/pkg/ports"
)

func generateKey(t *testing.T) []byte {
	k := make([]byte, middleware.KeySize)
	if _, err := io.ReadFull(rand.Reader, k); err != nil {
		t.Fatal(err)
	}
	return k
}

func newSecureStore(t *testing.T, next ports.StateStore, cfg middleware.EncryptionConfig) ports.StateStore {
	t.Helper()
	mw, err := middleware.NewEncryptionMiddleware(cfg)
	if err != nil {
		t.Fatalf("NewEncryptionMiddleware failed: %v", err)
	}
	return mw(next)
}

func newSnapshot(sessionID string, responses domain.ResponseMap) *domain.Snapshot {
	state := domain.NewNavigationState()
	state.History = []int{0, 1}
	state.CurrentStepIndex = 1
	return &domain.Snapshot{
		SessionID: sessionID,
		SurveyID:  "onboarding",
		State:     state,
		Responses: responses,
	}
}

func TestEncryptionMiddleware_Roundtrip(t *testing.T) {
	underlyingStore := memory.NewStore()
	secureStore := newSecureStore(t, underlyingStore, middleware.EncryptionConfig{ActiveKey: generateKey(t)})

	ctx := context.Background()
	sessionID := "test-session"
	original := newSnapshot(sessionID, domain.ResponseMap{"secret": "my-secret-sauce"})

	if err := secureStore.Save(ctx, sessionID, original); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// The underlying store only sees the envelope.
	stored, err := underlyingStore.Load(ctx, sessionID)
	if err != nil {
		t.Fatalf("Underlying load failed: %v", err)
	}
	if val, ok := stored.Responses["secret"]; ok {
		t.Fatalf("Expected secret to be hidden, found: %v", val)
	}
	if _, ok := stored.Responses[middleware.EnvelopeKey]; !ok {
		t.Fatal("Expected envelope key in responses")
	}
	if len(stored.State.History) != 0 {
		t.Errorf("Expected history to be hidden, got %v", stored.State.History)
	}
	if stored.SurveyID != "onboarding" {
		t.Errorf("Expected survey ID to stay readable, got %q", stored.SurveyID)
	}

	loaded, err := secureStore.Load(ctx, sessionID)
	if err != nil {
		t.Fatalf("Load via middleware failed: %v", err)
	}
	if loaded.Responses["secret"] != "my-secret-sauce" {
		t.Errorf("Expected 'my-secret-sauce', got %v", loaded.Responses["secret"])
	}
	if loaded.State.CurrentStepIndex != 1 || len(loaded.State.History) != 2 {
		t.Errorf("Navigation state not restored: %+v", loaded.State)
	}
}

func TestEncryptionMiddleware_KeyRotation(t *testing.T) {
	underlyingStore := memory.NewStore()
	oldKey := generateKey(t)
	newKey := generateKey(t)

	secureStoreOld := newSecureStore(t, underlyingStore, middleware.EncryptionConfig{ActiveKey: oldKey})

	ctx := context.Background()
	sessionID := "rotation-session"

	if err := secureStoreOld.Save(ctx, sessionID, newSnapshot(sessionID, domain.ResponseMap{"data": "old"})); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	secureStoreNew := newSecureStore(t, underlyingStore, middleware.EncryptionConfig{
		ActiveKey:    newKey,
		FallbackKeys: [][]byte{oldKey},
	})

	loaded, err := secureStoreNew.Load(ctx, sessionID)
	if err != nil {
		t.Fatalf("Load with rotated key failed: %v", err)
	}
	if loaded.Responses["data"] != "old" {
		t.Errorf("Decryption with fallback key failed")
	}

	loaded.Responses["data"] = "new"
	if err := secureStoreNew.Save(ctx, sessionID, loaded); err != nil {
		t.Fatalf("Save with new key failed: %v", err)
	}

	if _, err := secureStoreOld.Load(ctx, sessionID); err == nil {
		t.Error("Expected failure when loading new-key encryption with old-key middleware")
	}
}

func TestEncryptionMiddleware_PlainSnapshotRejected(t *testing.T) {
	underlyingStore := memory.NewStore()
	ctx := context.Background()
	if err := underlyingStore.Save(ctx, "plain", newSnapshot("plain", domain.ResponseMap{"a": "b"})); err != nil {
		t.Fatal(err)
	}

	secureStore := newSecureStore(t, underlyingStore, middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	if _, err := secureStore.Load(ctx, "plain"); err == nil {
		t.Error("Expected plain snapshot to be rejected")
	}
}

func TestEncryptionMiddleware_InvalidKey(t *testing.T) {
	if _, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: []byte("short-key")}); err == nil {
		t.Error("Expected error for invalid key size")
	}
	if _, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    generateKey(t),
		FallbackKeys: [][]byte{[]byte("short")},
	}); err == nil {
		t.Error("Expected error for invalid fallback key size")
	}
}

func TestDecodeKey(t *testing.T) {
	key := generateKey(t)
	decoded, err := middleware.DecodeKey(base64.StdEncoding.EncodeToString(key))
	if err != nil {
		t.Fatalf("DecodeKey failed: %v", err)
	}
	if string(decoded) != string(key) {
		t.Error("Decoded key differs")
	}

	if _, err := middleware.DecodeKey("not base64!"); err == nil {
		t.Error("Expected error for malformed key")
	}
	if _, err := middleware.DecodeKey(base64.StdEncoding.EncodeToString([]byte("short"))); err == nil {
		t.Error("Expected error for short key")
	}
}
