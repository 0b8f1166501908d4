package discord

import (
	"crypto/ed25519"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
)

const (
	HeaderSignature = "X-Signature-Ed25519"
	HeaderTimestamp = "X-Signature-Timestamp"
)

var (
	ErrMissingHeader    = errors.New("missing signature header")
	ErrBadFormat        = errors.New("malformed signature")
	ErrInvalidSignature = errors.New("invalid signature")
)

// SignatureError explains why a webhook request was not accepted.
type SignatureError struct {
	Kind   error
	Header string
	Reason string
}

func (e *SignatureError) Error() string {
	switch {
	case e.Header != "" && e.Reason != "":
		return fmt.Sprintf("%v %s: %s", e.Kind, e.Header, e.Reason)
	case e.Header != "":
		return fmt.Sprintf("%v: %s", e.Kind, e.Header)
	default:
		return e.Kind.Error()
	}
}

func (e *SignatureError) Unwrap() error { return e.Kind }

// ValidatedPayload is a request body whose signature checked out.
type ValidatedPayload []byte

// Verifier checks Discord's Ed25519 signature on interaction webhooks.
type Verifier struct {
	key ed25519.PublicKey
}

// NewVerifier parses the application's hex encoded public key.
func NewVerifier(publicKeyHex string) (*Verifier, error) {
	key, err := hex.DecodeString(publicKeyHex)
	if err != nil {
		return nil, fmt.Errorf("failed to decode discord public key: %w", err)
	}
	if len(key) != ed25519.PublicKeySize {
		return nil, fmt.Errorf("discord public key must be %d bytes, got %d", ed25519.PublicKeySize, len(key))
	}
	return &Verifier{key: ed25519.PublicKey(key)}, nil
}

// Verify checks the signature of timestamp||body against the public key.
func (v *Verifier) Verify(header http.Header, body []byte) (ValidatedPayload, error) {
	sigHex := header.Get(HeaderSignature)
	if sigHex == "" {
		return nil, &SignatureError{Kind: ErrMissingHeader, Header: HeaderSignature}
	}
	timestamp := header.Get(HeaderTimestamp)
	if timestamp == "" {
		return nil, &SignatureError{Kind: ErrMissingHeader, Header: HeaderTimestamp}
	}

	sig, err := hex.DecodeString(sigHex)
	if err != nil {
		return nil, &SignatureError{Kind: ErrBadFormat, Header: HeaderSignature, Reason: "not hex"}
	}
	if len(sig) != ed25519.SignatureSize {
		return nil, &SignatureError{Kind: ErrBadFormat, Header: HeaderSignature, Reason: fmt.Sprintf("want %d bytes, got %d", ed25519.SignatureSize, len(sig))}
	}

	msg := make([]byte, 0, len(timestamp)+len(body))
	msg = append(msg, timestamp...)
	msg = append(msg, body...)
	if !ed25519.Verify(v.key, msg, sig) {
		return nil, &SignatureError{Kind: ErrInvalidSignature}
	}
	return ValidatedPayload(body), nil
}

// Sign produces the header values Discord would send for body. It is used by
// the CLI and tests to exercise the endpoint locally.
func Sign(key ed25519.PrivateKey, timestamp string, body []byte) http.Header {
	msg := append([]byte(timestamp), body...)
	h := http.Header{}
	h.Set(HeaderSignature, hex.EncodeToString(ed25519.Sign(key, msg)))
	h.Set(HeaderTimestamp, timestamp)
	return h
}
