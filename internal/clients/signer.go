package clients

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strconv"
)

const (
	timestampParam  = "timestamp"
	recvWindowParam = "recvWindow"
	signatureParam  = "signature"
)

// Signer computes Binance HMAC-SHA256 request signatures.
type Signer struct {
	secret []byte
}

// NewSigner creates a signer for the given API secret.
func NewSigner(secret string) *Signer {
	return &Signer{secret: []byte(secret)}
}

// Sign returns the hex encoded HMAC-SHA256 of payload.
func (s *Signer) Sign(payload string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

// SignedQuery builds the raw query string sent on the wire.
// The signature covers exactly the encoded parameters that precede it.
func (s *Signer) SignedQuery(params url.Values, timestampMs, recvWindowMs int64) string {
	v := make(url.Values, len(params)+2)
	for key, values := range params {
		v[key] = append([]string(nil), values...)
	}
	if recvWindowMs > 0 {
		v.Set(recvWindowParam, strconv.FormatInt(recvWindowMs, 10))
	}
	v.Set(timestampParam, strconv.FormatInt(timestampMs, 10))

	payload := v.Encode()
	return payload + "&" + signatureParam + "=" + s.Sign(payload)
}
