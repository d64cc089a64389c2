package repository

import (
	"bytes"
	"context"
	"testing"
)

func TestMemoryStore_GetMissingKey_ReturnsNilNil(t *testing.T) {
	s := NewMemoryStore()

	value, err := s.Get(context.Background(), "interactions:anonymous")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if value != nil {
		t.Errorf("value = %v, want nil", value)
	}
}

func TestMemoryStore_SetThenGet_RoundTrips(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	want := []byte(`{"sources":{"BBC":2}}`)
	if err := s.Set(ctx, "profile:anonymous", want); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	got, err := s.Get(ctx, "profile:anonymous")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("Get = %s, want %s", got, want)
	}
}

func TestMemoryStore_Set_OverwritesExisting(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Set(ctx, "k", []byte("old")); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	if err := s.Set(ctx, "k", []byte("new")); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	got, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if string(got) != "new" {
		t.Errorf("Get = %q, want %q", got, "new")
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}

func TestMemoryStore_Remove_DeletesKey(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Set(ctx, "k", []byte("v")); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}
	if err := s.Remove(ctx, "k"); err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}

	got, err := s.Get(ctx, "k")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got != nil {
		t.Errorf("Get after Remove = %v, want nil", got)
	}
}

func TestMemoryStore_Remove_MissingKey_NoError(t *testing.T) {
	s := NewMemoryStore()

	if err := s.Remove(context.Background(), "missing"); err != nil {
		t.Errorf("Remove of missing key returned error: %v", err)
	}
}

func TestMemoryStore_Get_ReturnsCopy(t *testing.T) {
	s := NewMemoryStore()
	ctx := context.Background()

	if err := s.Set(ctx, "k", []byte("abc")); err != nil {
		t.Fatalf("Set returned error: %v", err)
	}

	first, _ := s.Get(ctx, "k")
	first[0] = 'X'

	second, _ := s.Get(ctx, "k")
	if string(second) != "abc" {
		t.Errorf("internal state mutated via returned slice: got %q", second)
	}
}
