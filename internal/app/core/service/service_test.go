package service

import (
	"errors"
	"fmt"
	"testing"

	"github.com/R3E-Network/vybe_engagement/internal/app/storage"
	apperrors "github.com/R3E-Network/vybe_engagement/internal/errors"
)

func TestClampLimit(t *testing.T) {
	cases := map[int]int{-1: DefaultLimit, 0: DefaultLimit, 10: 10, MaxLimit: MaxLimit, MaxLimit + 1: MaxLimit}
	for in, want := range cases {
		if got := ClampLimit(in); got != want {
			t.Errorf("ClampLimit(%d) = %d, want %d", in, got, want)
		}
	}
}

func TestTranslateStoreError(t *testing.T) {
	tests := []struct {
		name string
		in   error
		want error
	}{
		{"unavailable", fmt.Errorf("x: %w", storage.ErrUnavailable), apperrors.ErrStoreUnavailable},
		{"insufficient", storage.ErrInsufficientFunds, apperrors.ErrInsufficientFunds},
		{"not found", storage.ErrNotFound, apperrors.ErrNotFound},
		{"out of range", fmt.Errorf("wallet a: %w", storage.ErrOutOfRange), apperrors.ErrInvalidAmount},
		{"service error kept", apperrors.ErrSelfTransfer, apperrors.ErrSelfTransfer},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TranslateStoreError(tt.in)
			if !errors.Is(got, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}

	plain := errors.New("plain")
	if got := TranslateStoreError(plain); got != plain {
		t.Fatalf("unexpected rewrite of %v", got)
	}
	if TranslateStoreError(nil) != nil {
		t.Fatal("nil should stay nil")
	}
}

func TestDescriptorWithCapabilities(t *testing.T) {
	d := Descriptor{Name: "graph", Capabilities: []string{"follow"}}
	extended := d.WithCapabilities("like")
	if len(d.Capabilities) != 1 || len(extended.Capabilities) != 2 {
		t.Fatalf("capabilities not copied: %v / %v", d.Capabilities, extended.Capabilities)
	}
}
