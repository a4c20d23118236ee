package webhooks

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/goliatone/go-orders/core"
)

func hmacHex(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func hmacBase64(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func stripeSignature(secret string, timestamp int64, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.", timestamp)
	mac.Write(body)
	return fmt.Sprintf("t=%d,v1=%s", timestamp, hex.EncodeToString(mac.Sum(nil)))
}

func TestHeaderHMACVerifier(t *testing.T) {
	body := []byte(`{"id":"evt_1","type":"payment.captured"}`)
	verifier := HeaderHMACVerifier{Header: HeaderGenericSignature, Secret: "whsec_test"}

	req := core.InboundRequest{
		Provider: "generic",
		Headers:  map[string]string{HeaderGenericSignature: hmacHex("whsec_test", body)},
		Body:     body,
	}
	if err := verifier.Verify(context.Background(), req); err != nil {
		t.Fatalf("hex signature rejected: %v", err)
	}

	req.Headers[HeaderGenericSignature] = hmacBase64("whsec_test", body)
	if err := verifier.Verify(context.Background(), req); err != nil {
		t.Fatalf("base64 signature rejected: %v", err)
	}

	// configured prefixes are stripped before decoding
	req.Headers[HeaderGenericSignature] = "sha256=" + hmacHex("whsec_test", body)
	prefixed := HeaderHMACVerifier{Header: HeaderGenericSignature, Prefix: "sha256=", Secret: "whsec_test"}
	if err := prefixed.Verify(context.Background(), req); err != nil {
		t.Fatalf("prefixed signature rejected: %v", err)
	}
}

func TestHeaderHMACVerifier_Rejections(t *testing.T) {
	body := []byte(`{"id":"evt_1"}`)
	verifier := HeaderHMACVerifier{Header: HeaderGenericSignature, Secret: "whsec_test"}

	// tampered body
	signed := hmacHex("whsec_test", body)
	req := core.InboundRequest{
		Provider: "generic",
		Headers:  map[string]string{HeaderGenericSignature: signed},
		Body:     []byte(`{"id":"evt_2"}`),
	}
	if err := verifier.Verify(context.Background(), req); err == nil {
		t.Fatalf("tampered body must be rejected")
	}

	// wrong secret
	req.Body = body
	req.Headers[HeaderGenericSignature] = hmacHex("whsec_other", body)
	if err := verifier.Verify(context.Background(), req); err == nil {
		t.Fatalf("wrong secret must be rejected")
	}

	// missing header
	req.Headers = nil
	if err := verifier.Verify(context.Background(), req); err == nil {
		t.Fatalf("missing header must be rejected")
	}
}

func TestSignedEnvelopeVerifier(t *testing.T) {
	body := []byte(`{"id":"evt_1","type":"payment.captured"}`)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	verifier := SignedEnvelopeVerifier{
		Header:    HeaderStripeSignature,
		Secret:    "whsec_test",
		Tolerance: 5 * time.Minute,
		Now:       func() time.Time { return now },
	}

	req := core.InboundRequest{
		Provider: "stripe",
		Headers:  map[string]string{HeaderStripeSignature: stripeSignature("whsec_test", now.Unix(), body)},
		Body:     body,
	}
	if err := verifier.Verify(context.Background(), req); err != nil {
		t.Fatalf("valid envelope rejected: %v", err)
	}

	// stale timestamp outside the tolerance window
	stale := now.Add(-10 * time.Minute).Unix()
	req.Headers[HeaderStripeSignature] = stripeSignature("whsec_test", stale, body)
	if err := verifier.Verify(context.Background(), req); err == nil {
		t.Fatalf("stale timestamp must be rejected")
	}

	// valid timestamp, wrong secret
	req.Headers[HeaderStripeSignature] = stripeSignature("whsec_other", now.Unix(), body)
	if err := verifier.Verify(context.Background(), req); err == nil {
		t.Fatalf("wrong secret must be rejected")
	}

	// missing v1 field
	req.Headers[HeaderStripeSignature] = fmt.Sprintf("t=%d", now.Unix())
	if err := verifier.Verify(context.Background(), req); err == nil {
		t.Fatalf("missing v1 field must be rejected")
	}
}

func TestHeaderSelectVerifier(t *testing.T) {
	body := []byte(`{"id":"evt_1","type":"payment.captured"}`)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	verifier := HeaderSelectVerifier{
		Secrets: map[string]string{
			"stripe":   "whsec_stripe",
			"razorpay": "whsec_razorpay",
		},
		Tolerance: 5 * time.Minute,
		Now:       func() time.Time { return now },
	}

	stripeReq := core.InboundRequest{
		Provider: "stripe",
		Headers:  map[string]string{HeaderStripeSignature: stripeSignature("whsec_stripe", now.Unix(), body)},
		Body:     body,
	}
	if err := verifier.Verify(context.Background(), stripeReq); err != nil {
		t.Fatalf("stripe envelope rejected: %v", err)
	}

	razorpayReq := core.InboundRequest{
		Provider: "razorpay",
		Headers:  map[string]string{HeaderRazorpaySignature: hmacHex("whsec_razorpay", body)},
		Body:     body,
	}
	if err := verifier.Verify(context.Background(), razorpayReq); err != nil {
		t.Fatalf("razorpay signature rejected: %v", err)
	}

	// header lookup is case-insensitive
	razorpayReq.Headers = map[string]string{"x-razorpay-signature": hmacHex("whsec_razorpay", body)}
	if err := verifier.Verify(context.Background(), razorpayReq); err != nil {
		t.Fatalf("case-insensitive header rejected: %v", err)
	}

	// unknown provider has no secret
	unknown := core.InboundRequest{
		Provider: "square",
		Headers:  map[string]string{HeaderGenericSignature: hmacHex("whsec_stripe", body)},
		Body:     body,
	}
	if err := verifier.Verify(context.Background(), unknown); err == nil {
		t.Fatalf("provider without a configured secret must be rejected")
	}

	// no signature header at all
	bare := core.InboundRequest{Provider: "stripe", Body: body}
	if err := verifier.Verify(context.Background(), bare); err == nil {
		t.Fatalf("missing signature header must be rejected")
	}
}

func TestProviderFromHeaders(t *testing.T) {
	cases := []struct {
		name     string
		headers  map[string]string
		expected string
	}{
		{"stripe", map[string]string{HeaderStripeSignature: "t=1,v1=abc"}, "stripe"},
		{"razorpay", map[string]string{HeaderRazorpaySignature: "abc"}, "razorpay"},
		{"generic", map[string]string{HeaderGenericSignature: "abc"}, "generic"},
		{"case-insensitive", map[string]string{"stripe-signature": "t=1,v1=abc"}, "stripe"},
		{"stripe wins over generic", map[string]string{
			HeaderStripeSignature:  "t=1,v1=abc",
			HeaderGenericSignature: "abc",
		}, "stripe"},
		{"no signature header", map[string]string{"Content-Type": "application/json"}, ""},
		{"nil headers", nil, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ProviderFromHeaders(tc.headers); got != tc.expected {
				t.Fatalf("expected %q, got %q", tc.expected, got)
			}
		})
	}
}
