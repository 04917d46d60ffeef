// Package upi builds UPI payment intents and renders them as QR codes.
package upi

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/skip2/go-qrcode"
)

const (
	currency        = "INR"
	defaultQRSize   = 256
	maxNoteRunes    = 50
	intentURIPrefix = "upi://pay?"
)

// ErrPayeeNotConfigured is returned when no VPA is set for the shop.
var ErrPayeeNotConfigured = errors.New("upi payee address is not configured")

// Intent is a UPI "pay" request.
type Intent struct {
	VPA    string
	Payee  string
	Amount decimal.Decimal
	Note   string
}

func escape(s string) string {
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// URI renders the intent as upi://pay?pa=..&pn=..&am=..&cu=INR&tn=..
// A non-positive amount is left for the payer to fill in.
func (i Intent) URI() (string, error) {
	if strings.TrimSpace(i.VPA) == "" {
		return "", ErrPayeeNotConfigured
	}
	if !strings.Contains(i.VPA, "@") {
		return "", fmt.Errorf("invalid upi address %q", i.VPA)
	}

	params := []string{"pa=" + escape(i.VPA)}
	if i.Payee != "" {
		params = append(params, "pn="+escape(i.Payee))
	}
	if i.Amount.IsPositive() {
		params = append(params, "am="+i.Amount.StringFixed(2))
	}
	params = append(params, "cu="+currency)
	if note := []rune(strings.TrimSpace(i.Note)); len(note) > 0 {
		if len(note) > maxNoteRunes {
			note = note[:maxNoteRunes]
		}
		params = append(params, "tn="+escape(string(note)))
	}
	return intentURIPrefix + strings.Join(params, "&"), nil
}

// QRCodePNG encodes the intent URI as a PNG QR code of size x size pixels.
func (i Intent) QRCodePNG(size int) ([]byte, error) {
	uri, err := i.URI()
	if err != nil {
		return nil, err
	}
	if size <= 0 {
		size = defaultQRSize
	}
	png, err := qrcode.Encode(uri, qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("failed to encode upi qr code: %w", err)
	}
	return png, nil
}
