package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-orders/core"
)

const (
	HeaderGenericSignature  = "X-Signature"
	HeaderRazorpaySignature = "X-Razorpay-Signature"
	HeaderStripeSignature   = "Stripe-Signature"
)

type Verifier interface {
	Verify(ctx context.Context, req core.InboundRequest) error
}

// HeaderHMACVerifier checks an HMAC-SHA256 of the raw body against a header
// value that may be hex (case-insensitive) or standard base64 encoded.
type HeaderHMACVerifier struct {
	Header string
	Prefix string
	Secret string
}

func (v HeaderHMACVerifier) Verify(_ context.Context, req core.InboundRequest) error {
	header := strings.TrimSpace(headerValue(req.Headers, v.Header))
	if header == "" {
		return fmt.Errorf("webhooks: %s signature header is required", strings.TrimSpace(v.Header))
	}
	secret := strings.TrimSpace(v.Secret)
	if secret == "" {
		return fmt.Errorf("webhooks: signature secret is required")
	}
	signature := strings.TrimPrefix(header, strings.TrimSpace(v.Prefix))
	signature = strings.TrimSpace(signature)
	if signature == "" {
		return fmt.Errorf("webhooks: signature value is required")
	}

	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write(req.Body)
	expected := mac.Sum(nil)

	if decoded, err := hex.DecodeString(strings.ToLower(signature)); err == nil {
		if subtle.ConstantTimeCompare(decoded, expected) == 1 {
			return nil
		}
	}
	if decoded, err := base64.StdEncoding.DecodeString(signature); err == nil {
		if subtle.ConstantTimeCompare(decoded, expected) == 1 {
			return nil
		}
	}
	return fmt.Errorf("webhooks: signature verification failed")
}

// SignedEnvelopeVerifier checks a Stripe-style signature header: a
// comma-separated list of t=<unix-ts> and v1=<hex> fields, where v1 is
// HMAC-SHA256(secret, "<t>." + body).
type SignedEnvelopeVerifier struct {
	Header    string
	Secret    string
	Tolerance time.Duration
	Now       func() time.Time
}

func (v SignedEnvelopeVerifier) Verify(_ context.Context, req core.InboundRequest) error {
	header := strings.TrimSpace(headerValue(req.Headers, v.Header))
	if header == "" {
		return fmt.Errorf("webhooks: %s signature header is required", strings.TrimSpace(v.Header))
	}
	secret := strings.TrimSpace(v.Secret)
	if secret == "" {
		return fmt.Errorf("webhooks: signature secret is required")
	}

	var timestamp, signature string
	for _, field := range strings.Split(header, ",") {
		key, value, found := strings.Cut(strings.TrimSpace(field), "=")
		if !found {
			continue
		}
		switch strings.TrimSpace(key) {
		case "t":
			timestamp = strings.TrimSpace(value)
		case "v1":
			signature = strings.TrimSpace(value)
		}
	}
	if timestamp == "" || signature == "" {
		return fmt.Errorf("webhooks: signed envelope requires t and v1 fields")
	}

	if v.Tolerance > 0 {
		unix, err := strconv.ParseInt(timestamp, 10, 64)
		if err != nil {
			return fmt.Errorf("webhooks: parse envelope timestamp: %w", err)
		}
		now := time.Now().UTC()
		if v.Now != nil {
			now = v.Now().UTC()
		}
		delta := now.Sub(time.Unix(unix, 0).UTC())
		if delta < 0 {
			delta = -delta
		}
		if delta > v.Tolerance {
			return fmt.Errorf("webhooks: signature timestamp outside tolerance")
		}
	}

	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(timestamp))
	_, _ = mac.Write([]byte("."))
	_, _ = mac.Write(req.Body)
	expected := mac.Sum(nil)

	decoded, err := hex.DecodeString(strings.ToLower(signature))
	if err != nil {
		return fmt.Errorf("webhooks: decode hex signature: %w", err)
	}
	if subtle.ConstantTimeCompare(decoded, expected) != 1 {
		return fmt.Errorf("webhooks: signature verification failed")
	}
	return nil
}

// HeaderSelectVerifier picks the verification strategy from which signature
// header the delivery carries, resolving the shared secret by provider id.
type HeaderSelectVerifier struct {
	Secrets   map[string]string
	Tolerance time.Duration
	Now       func() time.Time
}

func (v HeaderSelectVerifier) Verify(ctx context.Context, req core.InboundRequest) error {
	secret := strings.TrimSpace(v.Secrets[strings.TrimSpace(req.Provider)])
	if secret == "" {
		return fmt.Errorf("webhooks: no secret configured for provider %q", req.Provider)
	}
	switch {
	case headerValue(req.Headers, HeaderStripeSignature) != "":
		return SignedEnvelopeVerifier{
			Header:    HeaderStripeSignature,
			Secret:    secret,
			Tolerance: v.Tolerance,
			Now:       v.Now,
		}.Verify(ctx, req)
	case headerValue(req.Headers, HeaderRazorpaySignature) != "":
		return HeaderHMACVerifier{Header: HeaderRazorpaySignature, Secret: secret}.Verify(ctx, req)
	case headerValue(req.Headers, HeaderGenericSignature) != "":
		return HeaderHMACVerifier{Header: HeaderGenericSignature, Secret: secret}.Verify(ctx, req)
	}
	return fmt.Errorf("webhooks: signature header is required")
}

// ProviderFromHeaders infers the provider id from which signature header a
// delivery carries. The bare webhook endpoint uses it when no provider
// appears in the request path.
func ProviderFromHeaders(headers map[string]string) string {
	switch {
	case headerValue(headers, HeaderStripeSignature) != "":
		return "stripe"
	case headerValue(headers, HeaderRazorpaySignature) != "":
		return "razorpay"
	case headerValue(headers, HeaderGenericSignature) != "":
		return "generic"
	}
	return ""
}

func headerValue(headers map[string]string, key string) string {
	if len(headers) == 0 {
		return ""
	}
	for existing, value := range headers {
		if strings.EqualFold(strings.TrimSpace(existing), strings.TrimSpace(key)) {
			return strings.TrimSpace(value)
		}
	}
	return ""
}
