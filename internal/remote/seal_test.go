package remote

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestSealer(t *testing.T) *Sealer {
	t.Helper()
	dir := t.TempDir()
	return NewSealer(filepath.Join(dir, "keys", "omex.pub"), filepath.Join(dir, "keys", "omex.key"))
}

func TestKeygen(t *testing.T) {
	sealer := newTestSealer(t)

	if sealer.Configured() {
		t.Error("Configured() = true before Keygen()")
	}

	if err := sealer.Keygen(); err != nil {
		t.Fatalf("Keygen() error = %v", err)
	}

	if !sealer.Configured() {
		t.Error("Configured() = false after Keygen()")
	}

	pub, err := os.ReadFile(sealer.recipientPath)
	if err != nil {
		t.Fatalf("recipient key missing: %v", err)
	}
	if !strings.HasPrefix(string(pub), "age1") {
		t.Errorf("recipient key = %q, want an age1 public key", pub)
	}

	key, err := os.ReadFile(sealer.identityPath)
	if err != nil {
		t.Fatalf("identity key missing: %v", err)
	}
	if !strings.HasPrefix(string(key), "AGE-SECRET-KEY-") {
		t.Errorf("identity key = %q, want an age secret key", key)
	}

	info, err := os.Stat(sealer.identityPath)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("identity key permissions = %o, want 0600", perm)
	}
}

func TestKeygenRefusesToOverwrite(t *testing.T) {
	sealer := newTestSealer(t)

	if err := sealer.Keygen(); err != nil {
		t.Fatalf("first Keygen() error = %v", err)
	}
	if err := sealer.Keygen(); err == nil {
		t.Fatal("second Keygen() overwrote existing keys")
	}
}

func TestSealUnsealRoundTrip(t *testing.T) {
	sealer := newTestSealer(t)
	if err := sealer.Keygen(); err != nil {
		t.Fatalf("Keygen() error = %v", err)
	}

	plaintext := "the archive bytes"
	var sealed bytes.Buffer
	if err := sealer.Seal(strings.NewReader(plaintext), &sealed); err != nil {
		t.Fatalf("Seal() error = %v", err)
	}
	if strings.Contains(sealed.String(), plaintext) {
		t.Error("sealed output contains the plaintext")
	}

	var unsealed bytes.Buffer
	if err := sealer.Unseal(bytes.NewReader(sealed.Bytes()), &unsealed); err != nil {
		t.Fatalf("Unseal() error = %v", err)
	}
	if unsealed.String() != plaintext {
		t.Errorf("Unseal() wrote %q, want %q", unsealed.String(), plaintext)
	}
}

func TestUnsealWithWrongKey(t *testing.T) {
	sealer := newTestSealer(t)
	if err := sealer.Keygen(); err != nil {
		t.Fatal(err)
	}

	var sealed bytes.Buffer
	if err := sealer.Seal(strings.NewReader("secret"), &sealed); err != nil {
		t.Fatal(err)
	}

	other := newTestSealer(t)
	if err := other.Keygen(); err != nil {
		t.Fatal(err)
	}

	if err := other.Unseal(bytes.NewReader(sealed.Bytes()), &bytes.Buffer{}); err == nil {
		t.Fatal("Unseal() succeeded with the wrong identity")
	}
}

func TestSealWithoutKeys(t *testing.T) {
	sealer := newTestSealer(t)

	if err := sealer.Seal(strings.NewReader("x"), &bytes.Buffer{}); err == nil {
		t.Fatal("Seal() succeeded without a recipient key")
	}
	if err := sealer.Unseal(strings.NewReader("x"), &bytes.Buffer{}); err == nil {
		t.Fatal("Unseal() succeeded without an identity key")
	}
}
