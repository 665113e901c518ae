package netsim

import (
	"fmt"
	"strings"

	qrcode "github.com/skip2/go-qrcode"
)

// QR renders text as a compact terminal QR code.
func QR(text string) ([]string, error) {
	q, err := qrcode.New(text, qrcode.Low)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return strings.Split(strings.TrimRight(q.ToSmallString(false), "\n"), "\n"), nil
}
