package secret_test

import (
	"testing"

	"github.com/zalando/go-keyring"

	"canvas/internal/secret"
)

func TestKeyringStore(t *testing.T) {
	keyring.MockInit()
	s := secret.NewKeyringStore()

	v, err := s.Get(secret.StorageKey("postgres"))
	if err != nil || v != nil {
		t.Fatalf("missing key = (%q, %v), want (nil, nil)", v, err)
	}

	if err := s.Set(secret.StorageKey("postgres"), []byte("hunter2")); err != nil {
		t.Fatal(err)
	}
	v, err = s.Get(secret.StorageKey("postgres"))
	if err != nil || string(v) != "hunter2" {
		t.Fatalf("Get = (%q, %v)", v, err)
	}

	if err := s.Delete(secret.StorageKey("postgres")); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(secret.StorageKey("postgres")); err != nil {
		t.Errorf("second delete: %v", err)
	}
	v, _ = s.Get(secret.StorageKey("postgres"))
	if v != nil {
		t.Errorf("after delete = %q", v)
	}
}
