package api

import (
	"fmt"
	"image/color"

	qrcode "github.com/skip2/go-qrcode"
)

const qrSize = 256

// AlertsQRCode encodes the community alerts link as a PNG QR code
func AlertsQRCode(url string) ([]byte, error) {
	qr, err := qrcode.New(url, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("failed to build QR code: %v", err)
	}
	qr.ForegroundColor = color.RGBA{0x12, 0x3B, 0x2A, 0xFF}
	qr.BackgroundColor = color.White
	qr.DisableBorder = false

	png, err := qr.PNG(qrSize)
	if err != nil {
		return nil, fmt.Errorf("failed to encode QR code: %v", err)
	}
	return png, nil
}
