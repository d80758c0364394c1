package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestSentinelsSurviveWrapping(t *testing.T) {
	err := fmt.Errorf("debit payer: %w", ErrInsufficientFunds)

	if !stderrors.Is(err, ErrInsufficientFunds) {
		t.Fatal("expected wrapped error to match ErrInsufficientFunds")
	}
	if stderrors.Is(err, ErrInvalidAmount) {
		t.Fatal("wrapped error must not match a different sentinel")
	}
	if got := HTTPStatus(err); got != http.StatusUnprocessableEntity {
		t.Errorf("HTTPStatus = %d, want 422", got)
	}
}

func TestWithDetailsCopies(t *testing.T) {
	detailed := ErrNotFound.WithDetails("resource", "wallet")

	if len(ErrNotFound.Details) != 0 {
		t.Fatalf("sentinel mutated: %v", ErrNotFound.Details)
	}
	if detailed.Details["resource"] != "wallet" {
		t.Fatalf("details = %v", detailed.Details)
	}
	if !stderrors.Is(detailed, ErrNotFound) {
		t.Fatal("detailed copy should still match ErrNotFound")
	}
}

func TestStoreUnavailable(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := fmt.Errorf("adjust balance: %w", StoreUnavailable(cause))

	if !IsRetryable(err) {
		t.Fatal("store unavailable should be retryable")
	}
	if !stderrors.Is(err, cause) {
		t.Fatal("cause should remain reachable")
	}
	if IsRetryable(ErrInsufficientFunds) {
		t.Fatal("business failures are not retryable")
	}
}

func TestGetServiceError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code ErrorCode
	}{
		{"sentinel", ErrEmptyComment, CodeEmptyComment},
		{"wrapped", fmt.Errorf("append: %w", ErrCommentTooLong), CodeCommentTooLong},
		{"constructor", InvalidInput("amount", "not a number"), CodeInvalidInput},
		{"plain", stderrors.New("boom"), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			se := GetServiceError(tt.err)
			if tt.code == "" {
				if se != nil {
					t.Fatalf("expected nil, got %v", se)
				}
				if HTTPStatus(tt.err) != http.StatusInternalServerError {
					t.Fatal("plain errors should map to 500")
				}
				return
			}
			if se == nil || se.Code != tt.code {
				t.Fatalf("code = %v, want %s", se, tt.code)
			}
		})
	}
}
