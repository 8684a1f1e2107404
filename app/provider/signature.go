package provider

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"
)

// VerifySignature checks an X-FEDAPAY-SIGNATURE header of the form
// "t=<unix>,s=<hex>" where s is HMAC-SHA256 over "<t>.<payload>".
func (c *FedaPayClient) VerifySignature(payload []byte, signatureHeader string) error {
	if strings.TrimSpace(c.cfg.WebhookSecret) == "" {
		return ErrWebhookSecretMissing
	}
	if strings.TrimSpace(signatureHeader) == "" {
		return ErrSignatureMissing
	}
	if !verifyFedaPaySignature(payload, signatureHeader, c.cfg.WebhookSecret, c.cfg.SignatureToleranceSeconds, time.Now()) {
		return ErrInvalidSignature
	}
	return nil
}

// SignaturesEnabled reports whether webhook bodies must carry a signature.
func (c *FedaPayClient) SignaturesEnabled() bool {
	return strings.TrimSpace(c.cfg.WebhookSecret) != ""
}

func verifyFedaPaySignature(payload []byte, signatureHeader, secret string, toleranceSeconds int64, now time.Time) bool {
	signatureHeader = strings.TrimSpace(signatureHeader)
	if signatureHeader == "" || strings.TrimSpace(secret) == "" {
		return false
	}

	var ts string
	signatures := make([]string, 0, 1)
	for _, part := range strings.Split(signatureHeader, ",") {
		part = strings.TrimSpace(part)
		switch {
		case strings.HasPrefix(part, "t="):
			ts = strings.TrimSpace(strings.TrimPrefix(part, "t="))
		case strings.HasPrefix(part, "s="):
			signatures = append(signatures, strings.TrimSpace(strings.TrimPrefix(part, "s=")))
		}
	}
	if ts == "" || len(signatures) == 0 {
		return false
	}

	tsInt, err := strconv.ParseInt(ts, 10, 64)
	if err != nil {
		return false
	}
	if toleranceSeconds > 0 {
		delta := now.Unix() - tsInt
		if delta < 0 {
			delta = -delta
		}
		if delta > toleranceSeconds {
			return false
		}
	}

	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(ts + "." + string(payload)))
	expected := mac.Sum(nil)

	for _, candidate := range signatures {
		decoded, err := hex.DecodeString(candidate)
		if err != nil {
			continue
		}
		if hmac.Equal(decoded, expected) {
			return true
		}
	}
	return false
}
