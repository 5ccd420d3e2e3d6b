package archive

import (
    "bytes"
    "testing"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
    plain := []byte("RAČUN št. 2024-117, Alfa d.o.o.")

    sealed, err := Encrypt(plain, "hunter2")
    if err != nil {
        t.Fatalf("Encrypt: %v", err)
    }
    if len(sealed) != 32+len(plain) {
        t.Fatalf("sealed length = %d, want %d", len(sealed), 32+len(plain))
    }
    if bytes.Contains(sealed, plain) {
        t.Fatal("ciphertext contains the plaintext")
    }

    got, err := Decrypt(sealed, "hunter2")
    if err != nil {
        t.Fatalf("Decrypt: %v", err)
    }
    if !bytes.Equal(got, plain) {
        t.Fatalf("round trip = %q, want %q", got, plain)
    }
}

func TestDecryptWrongPassphrase(t *testing.T) {
    sealed, err := Encrypt([]byte("secret body"), "right")
    if err != nil {
        t.Fatalf("Encrypt: %v", err)
    }
    got, err := Decrypt(sealed, "wrong")
    if err != nil {
        t.Fatalf("Decrypt: %v", err)
    }
    if bytes.Equal(got, []byte("secret body")) {
        t.Fatal("wrong passphrase produced the plaintext")
    }
}

func TestDecryptTooShort(t *testing.T) {
    if _, err := Decrypt(make([]byte, 16), "pw"); err == nil {
        t.Fatal("expected error for truncated payload")
    }
}

func TestEncryptUniqueSaltAndIV(t *testing.T) {
    a, err := Encrypt([]byte("same input"), "pw")
    if err != nil {
        t.Fatalf("Encrypt: %v", err)
    }
    b, err := Encrypt([]byte("same input"), "pw")
    if err != nil {
        t.Fatalf("Encrypt: %v", err)
    }
    if bytes.Equal(a, b) {
        t.Fatal("two encryptions of the same input are identical")
    }
}
