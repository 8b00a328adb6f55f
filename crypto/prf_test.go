package crypto

import (
	"bytes"
	"testing"
)

func TestSHA256PRFDeterministicAndLength(t *testing.T) {
	key := []byte("a fixed test key")
	out1 := SHA256PRF(key, "AEK Derivation", []byte("context"), 32)
	out2 := SHA256PRF(key, "AEK Derivation", []byte("context"), 32)

	if len(out1) != 32 {
		t.Fatalf("expected 32 bytes, got %d", len(out1))
	}
	if !bytes.Equal(out1, out2) {
		t.Fatal("SHA256PRF must be deterministic for identical inputs")
	}
}

func TestSHA256PRFDistinguishesLabels(t *testing.T) {
	key := []byte("a fixed test key")
	ctx := []byte("context")
	aek := SHA256PRF(key, "AEK Derivation", ctx, 32)
	mtk := SHA256PRF(key, "Temporal Key Derivation", ctx, 32)
	if bytes.Equal(aek, mtk) {
		t.Fatal("different labels must not collide")
	}
}

func TestSHA256PRFBeyondOneBlock(t *testing.T) {
	key := []byte("key")
	out := SHA256PRF(key, "label", []byte("ctx"), 70) // > 2 SHA-256 blocks
	if len(out) != 70 {
		t.Fatalf("expected 70 bytes, got %d", len(out))
	}
}
