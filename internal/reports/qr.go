package reports

import (
	"encoding/base64"
	"fmt"

	qrcode "github.com/skip2/go-qrcode"
)

// QRSize is the edge length in pixels of generated codes.
const QRSize = 256

// QRCode encodes text as a PNG.
func QRCode(text string) ([]byte, error) {
	png, err := qrcode.Encode(text, qrcode.Medium, QRSize)
	if err != nil {
		return nil, fmt.Errorf("encode qr: %w", err)
	}
	return png, nil
}

// QRCodeBase64 is QRCode encoded for inline embedding in JSON.
func QRCodeBase64(text string) (string, error) {
	png, err := QRCode(text)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(png), nil
}
