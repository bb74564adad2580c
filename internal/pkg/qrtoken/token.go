// Package qrtoken encodes and decodes the identity tokens printed on QR badges.
//
// A badge carries base64 of "<identity>|<display name>". Older badges may carry
// the identity alone.
package qrtoken

import (
	"encoding/base64"
	"errors"
	"strings"
	"unicode/utf8"

	"github.com/skip2/go-qrcode"
)

// Delimiter separates the identity from the rest of the decoded text.
const Delimiter = "|"

var ErrMalformedPayload = errors.New("qr payload is not valid base64 text")

var encodings = []*base64.Encoding{
	base64.StdEncoding,
	base64.RawStdEncoding,
	base64.URLEncoding,
	base64.RawURLEncoding,
}

// Decode turns a scanned payload into text.
func Decode(payload string) (string, error) {
	payload = strings.TrimSpace(payload)
	if payload == "" {
		return "", ErrMalformedPayload
	}
	for _, enc := range encodings {
		raw, err := enc.DecodeString(payload)
		if err != nil {
			continue
		}
		if len(raw) == 0 || !utf8.Valid(raw) {
			return "", ErrMalformedPayload
		}
		return string(raw), nil
	}
	return "", ErrMalformedPayload
}

// Identity returns the text before the first delimiter, or the whole text.
func Identity(text string) string {
	if i := strings.Index(text, Delimiter); i >= 0 {
		text = text[:i]
	}
	return strings.TrimSpace(text)
}

// Encode builds the payload printed on a badge.
func Encode(identity, name string) string {
	text := identity
	if name != "" {
		text += Delimiter + name
	}
	return base64.StdEncoding.EncodeToString([]byte(text))
}

// PNG renders payload as a QR code image of size x size pixels.
func PNG(payload string, size int) ([]byte, error) {
	if size <= 0 {
		size = 256
	}
	return qrcode.Encode(payload, qrcode.Medium, size)
}
