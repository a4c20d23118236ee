package core

import (
	"fmt"
	"net/http"
	"testing"

	goerrors "github.com/goliatone/go-errors"
)

func TestMapError_DomainSentinels(t *testing.T) {
	cases := []struct {
		err      error
		code     int
		textCode string
	}{
		{ErrOrderNotFound, http.StatusNotFound, OrderErrorNotFound},
		{ErrPaymentNotFound, http.StatusNotFound, PaymentErrorNotFound},
		{ErrCommissionNotFound, http.StatusNotFound, OrderErrorNotFound},
		{ErrInvalidOrderStatusTransition, http.StatusConflict, OrderErrorInvalidTransition},
		{ErrInvalidPaymentStatusTransition, http.StatusConflict, PaymentErrorStateConflict},
		{ErrPaymentConflict, http.StatusConflict, PaymentErrorStateConflict},
		{ErrInvalidMoneyBreakdown, http.StatusBadRequest, OrderErrorBadInput},
	}
	for _, tc := range cases {
		mapped := MapError(tc.err)
		if mapped == nil {
			t.Fatalf("%v: expected envelope", tc.err)
		}
		if mapped.Code != tc.code {
			t.Fatalf("%v: expected status %d, got %d", tc.err, tc.code, mapped.Code)
		}
		if mapped.TextCode != tc.textCode {
			t.Fatalf("%v: expected text code %q, got %q", tc.err, tc.textCode, mapped.TextCode)
		}
	}

	// wrapped sentinels map the same way
	wrapped := MapError(fmt.Errorf("capture path: %w", ErrPaymentConflict))
	if wrapped.TextCode != PaymentErrorStateConflict {
		t.Fatalf("expected wrapped sentinel mapping, got %q", wrapped.TextCode)
	}
}

func TestMapError_MessageSniffing(t *testing.T) {
	signature := MapError(fmt.Errorf("webhooks: signature verification failed"))
	if signature.TextCode != WebhookErrorSignature || signature.Code != http.StatusUnauthorized {
		t.Fatalf("unexpected signature mapping: %d %q", signature.Code, signature.TextCode)
	}

	provider := MapError(fmt.Errorf("core: provider capture failed: boom"))
	if provider.TextCode != ProviderErrorCallFailed || provider.Code != http.StatusBadGateway {
		t.Fatalf("unexpected provider mapping: %d %q", provider.Code, provider.TextCode)
	}

	validation := MapError(fmt.Errorf("core: order id is required"))
	if validation.TextCode != OrderErrorBadInput || validation.Code != http.StatusBadRequest {
		t.Fatalf("unexpected validation mapping: %d %q", validation.Code, validation.TextCode)
	}
}

func TestMapError_PassesThroughEnvelopes(t *testing.T) {
	original := goerrors.New("already mapped", goerrors.CategoryConflict).
		WithCode(http.StatusConflict).
		WithTextCode(PaymentErrorStateConflict)
	mapped := MapError(original)
	if mapped != original {
		t.Fatalf("expected existing envelope passed through")
	}

	if MapError(nil) != nil {
		t.Fatalf("expected nil for nil error")
	}
}
