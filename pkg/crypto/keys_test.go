package crypto

import (
	"bytes"
	"crypto/ed25519"
	"os"
	"path/filepath"
	"testing"
)

func TestGenerateKeyPair(t *testing.T) {
	pub, priv, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() error = %v", err)
	}

	if len(pub) != ed25519.PublicKeySize {
		t.Errorf("public key length = %d, want %d", len(pub), ed25519.PublicKeySize)
	}
	if len(priv) != ed25519.PrivateKeySize {
		t.Errorf("private key length = %d, want %d", len(priv), ed25519.PrivateKeySize)
	}

	msg := []byte("signed bytes")
	sig := ed25519.Sign(priv, msg)
	if !ed25519.Verify(pub, msg, sig) {
		t.Errorf("generated pair does not sign/verify")
	}
}

func TestKeyPEMRoundTrip(t *testing.T) {
	pub, priv, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() error = %v", err)
	}

	privPEM, err := ExportPrivateKeyPEM(priv)
	if err != nil {
		t.Fatalf("ExportPrivateKeyPEM() error = %v", err)
	}
	pubPEM, err := ExportPublicKeyPEM(pub)
	if err != nil {
		t.Fatalf("ExportPublicKeyPEM() error = %v", err)
	}

	importedPriv, err := ImportPrivateKeyPEM(privPEM)
	if err != nil {
		t.Fatalf("ImportPrivateKeyPEM() error = %v", err)
	}
	importedPub, err := ImportPublicKeyPEM(pubPEM)
	if err != nil {
		t.Fatalf("ImportPublicKeyPEM() error = %v", err)
	}

	if !bytes.Equal(importedPriv, priv) {
		t.Errorf("imported private key differs")
	}
	if !bytes.Equal(importedPub, pub) {
		t.Errorf("imported public key differs")
	}
}

func TestImportRejectsGarbage(t *testing.T) {
	if _, err := ImportPrivateKeyPEM([]byte("not pem")); err != ErrInvalidKey {
		t.Errorf("ImportPrivateKeyPEM(garbage) error = %v, want %v", err, ErrInvalidKey)
	}
	if _, err := ImportPublicKeyPEM([]byte("not pem")); err != ErrInvalidKey {
		t.Errorf("ImportPublicKeyPEM(garbage) error = %v, want %v", err, ErrInvalidKey)
	}
}

func TestKeyFileRoundTrip(t *testing.T) {
	_, priv, err := GenerateKeyPair()
	if err != nil {
		t.Fatalf("GenerateKeyPair() error = %v", err)
	}
	pemData, err := ExportPrivateKeyPEM(priv)
	if err != nil {
		t.Fatalf("ExportPrivateKeyPEM() error = %v", err)
	}

	path := filepath.Join(t.TempDir(), "id_ed25519.pem")
	if err := SaveKeyToFile(path, pemData); err != nil {
		t.Fatalf("SaveKeyToFile() error = %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat() error = %v", err)
	}
	if info.Mode().Perm() != 0600 {
		t.Errorf("key file mode = %o, want 0600", info.Mode().Perm())
	}

	loaded, err := LoadKeyFromFile(path)
	if err != nil {
		t.Fatalf("LoadKeyFromFile() error = %v", err)
	}
	if !bytes.Equal(loaded, pemData) {
		t.Errorf("loaded key differs from saved")
	}
}
