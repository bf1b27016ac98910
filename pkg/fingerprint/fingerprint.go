// Package fingerprint derives the cache identity of a logical ESI request.
//
// A fingerprint is the lowercase hex SHA-256 of a compact JSON document:
//
//	{"URL":"...","Method":"GET","Payload":null,"Authentication":null}
//
// Fields are always emitted in that order and object keys inside the payload
// are sorted, so two requests that only differ in key order share a
// fingerprint. A json.RawMessage payload is decoded first, which gives it the
// same fingerprint as the equivalent map. The credential is part of the digest so
// responses scoped to different characters never collide.
package fingerprint

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Size is the length of a fingerprint string.
const Size = sha256.Size * 2

// document is the canonical form. Field order is part of the format.
type document struct {
	URL            string  `json:"URL"`
	Method         string  `json:"Method"`
	Payload        any     `json:"Payload"`
	Authentication *string `json:"Authentication"`
}

// Canonical returns the bytes that are hashed for the given request fields.
// An empty credential is encoded as null.
func Canonical(url, method string, payload any, credential string) ([]byte, error) {
	if raw, ok := payload.(json.RawMessage); ok {
		decoded, err := DecodePayload(raw)
		if err != nil {
			return nil, fmt.Errorf("encode fingerprint document: %w", err)
		}
		payload = decoded
	}

	doc := document{
		URL:     url,
		Method:  method,
		Payload: payload,
	}
	if credential != "" {
		doc.Authentication = &credential
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode fingerprint document: %w", err)
	}

	// Encoder terminates every value with a newline
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Of returns the fingerprint of a request. It only fails when the payload
// cannot be represented as JSON.
func Of(url, method string, payload any, credential string) (string, error) {
	data, err := Canonical(url, method, payload, credential)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// DecodePayload decodes a single JSON value. Numbers are kept as json.Number
// so large integer IDs survive re-encoding unchanged. Trailing data after the
// value is an error.
func DecodePayload(raw []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, errors.New("decode payload: unexpected data after JSON value")
	}
	return v, nil
}
