// Package signature implements the DOKU request signature: an HMAC-SHA256
// over a newline-joined canonical string of client id, request id, request
// timestamp, request target and body digest. The same routine signs outbound
// API calls and verifies inbound notifications.
package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	HeaderClientID         = "Client-Id"
	HeaderRequestID        = "Request-Id"
	HeaderRequestTimestamp = "Request-Timestamp"
	HeaderSignature        = "Signature"
	HeaderDigest           = "Digest"

	signaturePrefix = "HMACSHA256="

	// TimestampLayout is ISO-8601 in UTC, as DOKU expects.
	TimestampLayout = "2006-01-02T15:04:05Z"
)

type Signer struct {
	clientID  string
	secretKey []byte
	newID     func() string
}

func NewSigner(clientID, secretKey string) *Signer {
	return &Signer{
		clientID:  clientID,
		secretKey: []byte(secretKey),
		newID:     uuid.NewString,
	}
}

func (s *Signer) ClientID() string {
	return s.clientID
}

// Headers is a signed header set for one request.
type Headers struct {
	ClientID         string
	RequestID        string
	RequestTimestamp string
	Digest           string
	Signature        string
}

func (h Headers) Map() map[string]string {
	return map[string]string{
		HeaderClientID:         h.ClientID,
		HeaderRequestID:        h.RequestID,
		HeaderRequestTimestamp: h.RequestTimestamp,
		HeaderDigest:           h.Digest,
		HeaderSignature:        h.Signature,
	}
}

// Digest returns base64(SHA-256(body)).
func Digest(body []byte) string {
	sum := sha256.Sum256(body)
	return base64.StdEncoding.EncodeToString(sum[:])
}

func CanonicalString(clientID, requestID, timestamp, target, digest string) string {
	return strings.Join([]string{
		"Client-Id:" + clientID,
		"Request-Id:" + requestID,
		"Request-Timestamp:" + timestamp,
		"Request-Target:" + target,
		"Digest:" + digest,
	}, "\n")
}

// Sign returns the Signature header value for the given request parts.
func (s *Signer) Sign(requestID, timestamp, target string, body []byte) string {
	canonical := CanonicalString(s.clientID, requestID, timestamp, target, Digest(body))
	mac := hmac.New(sha256.New, s.secretKey)
	mac.Write([]byte(canonical))
	return signaturePrefix + base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// SignRequest signs an outbound request with a fresh request id.
func (s *Signer) SignRequest(target string, body []byte, now time.Time) Headers {
	requestID := s.newID()
	timestamp := now.UTC().Format(TimestampLayout)
	return Headers{
		ClientID:         s.clientID,
		RequestID:        requestID,
		RequestTimestamp: timestamp,
		Digest:           Digest(body),
		Signature:        s.Sign(requestID, timestamp, target, body),
	}
}

// Verify reports whether an inbound request was signed by DOKU for this
// merchant. target is the request path plus query string.
func (s *Signer) Verify(headers http.Header, body []byte, target string) bool {
	clientID := strings.TrimSpace(headers.Get(HeaderClientID))
	requestID := strings.TrimSpace(headers.Get(HeaderRequestID))
	timestamp := strings.TrimSpace(headers.Get(HeaderRequestTimestamp))
	got := strings.TrimSpace(headers.Get(HeaderSignature))
	if clientID == "" || requestID == "" || timestamp == "" || got == "" {
		return false
	}
	if len(s.secretKey) == 0 || !equal(clientID, s.clientID) {
		return false
	}

	want := s.Sign(requestID, timestamp, target, body)
	return equal(want, got)
}

// equal is a constant-time comparison; it returns early only on length mismatch.
func equal(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}
