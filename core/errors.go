package core

import (
	"errors"
	"net/http"
	"strings"

	goerrors "github.com/goliatone/go-errors"
)

const (
	OrderErrorBadInput           = "ORDER_BAD_INPUT"
	OrderErrorNotFound           = "ORDER_NOT_FOUND"
	OrderErrorInvalidTransition  = "ORDER_INVALID_TRANSITION"
	PaymentErrorNotFound         = "PAYMENT_NOT_FOUND"
	PaymentErrorStateConflict    = "PAYMENT_STATE_CONFLICT"
	WebhookErrorSignature        = "WEBHOOK_SIGNATURE_INVALID"
	WebhookErrorProcessingFailed = "WEBHOOK_PROCESSING_FAILED"
	ProviderErrorCallFailed      = "PROVIDER_CALL_FAILED"
	OrderErrorInternal           = "ORDER_INTERNAL_ERROR"
)

// MapError normalizes any error into a go-errors envelope with an HTTP
// status and stable text code. Domain sentinels map ahead of the generic
// message sniffing so callers can rely on the codes.
func MapError(err error) *goerrors.Error {
	if err == nil {
		return nil
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return ensureErrorEnvelope(richErr)
	}

	switch {
	case errors.Is(err, ErrOrderNotFound):
		return newDomainError(err.Error(), goerrors.CategoryNotFound, OrderErrorNotFound)
	case errors.Is(err, ErrPaymentNotFound):
		return newDomainError(err.Error(), goerrors.CategoryNotFound, PaymentErrorNotFound)
	case errors.Is(err, ErrCommissionNotFound):
		return newDomainError(err.Error(), goerrors.CategoryNotFound, OrderErrorNotFound)
	case errors.Is(err, ErrInvalidOrderStatusTransition):
		return newDomainError(err.Error(), goerrors.CategoryConflict, OrderErrorInvalidTransition)
	case errors.Is(err, ErrInvalidPaymentStatusTransition), errors.Is(err, ErrPaymentConflict):
		return newDomainError(err.Error(), goerrors.CategoryConflict, PaymentErrorStateConflict)
	case errors.Is(err, ErrInvalidMoneyBreakdown):
		return newDomainError(err.Error(), goerrors.CategoryValidation, OrderErrorBadInput)
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "signature"):
		return newDomainError(err.Error(), goerrors.CategoryAuth, WebhookErrorSignature)
	case strings.Contains(msg, "provider"), strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline"):
		return newDomainError(err.Error(), goerrors.CategoryExternal, ProviderErrorCallFailed)
	case strings.Contains(msg, "required"), strings.Contains(msg, "invalid"), strings.Contains(msg, "exceed"):
		return newDomainError(err.Error(), goerrors.CategoryBadInput, OrderErrorBadInput)
	}

	mapped := goerrors.MapToError(err, goerrors.DefaultErrorMappers())
	return ensureErrorEnvelope(mapped)
}

func newDomainError(message string, category goerrors.Category, textCode string) *goerrors.Error {
	return ensureErrorEnvelope(
		goerrors.New(message, category).
			WithTextCode(textCode),
	)
}

func ensureErrorEnvelope(err *goerrors.Error) *goerrors.Error {
	if err == nil {
		return nil
	}
	if err.Code == 0 {
		err.Code = domainHTTPStatus(err.Category)
	}
	if strings.TrimSpace(err.TextCode) == "" {
		err.TextCode = defaultDomainTextCode(err.Category)
	}
	if err.Category == goerrors.CategoryInternal && strings.TrimSpace(err.Message) == "" {
		err.Message = "An unexpected error occurred"
	}
	return err
}

func defaultDomainTextCode(category goerrors.Category) string {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return OrderErrorBadInput
	case goerrors.CategoryNotFound:
		return OrderErrorNotFound
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return WebhookErrorSignature
	case goerrors.CategoryConflict:
		return PaymentErrorStateConflict
	case goerrors.CategoryExternal:
		return ProviderErrorCallFailed
	default:
		return OrderErrorInternal
	}
}

func domainHTTPStatus(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryBadInput, goerrors.CategoryValidation:
		return http.StatusBadRequest
	case goerrors.CategoryNotFound:
		return http.StatusNotFound
	case goerrors.CategoryAuth:
		return http.StatusUnauthorized
	case goerrors.CategoryAuthz:
		return http.StatusForbidden
	case goerrors.CategoryConflict:
		return http.StatusConflict
	case goerrors.CategoryExternal:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
