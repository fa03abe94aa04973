package collection

import (
	"context"
	"net/url"
	"strings"

	"github.com/skip2/go-qrcode"

	"gochangi/internal/apperr"
)

const (
	DefaultQRSize = 256
	minQRSize     = 64
	maxQRSize     = 1024
)

// QREncoder matches qrcode.Encode so tests can swap it out.
type QREncoder func(content string, level qrcode.RecoveryLevel, size int) ([]byte, error)

// JoinURL is the link players scan to land on the code entry page prefilled.
func JoinURL(publicURL, code string) string {
	return strings.TrimRight(publicURL, "/") + "/?code=" + url.QueryEscape(code)
}

// QRCode renders a PNG QR code pointing at the collection's join URL.
func (s *Service) QRCode(ctx context.Context, id, publicURL string, size int, encode QREncoder) ([]byte, error) {
	c, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Code == "" {
		return nil, apperr.Invalid("collection has no access code")
	}
	if size <= 0 {
		size = DefaultQRSize
	}
	if size < minQRSize || size > maxQRSize {
		return nil, apperr.Invalid("size must be between %d and %d", minQRSize, maxQRSize)
	}
	if encode == nil {
		encode = qrcode.Encode
	}
	return encode(JoinURL(publicURL, c.Code), qrcode.Medium, size)
}
