package web

import "github.com/skip2/go-qrcode"

// QRCodeString renders payload as a QR code made of half-block characters
// for printing to a terminal. An empty payload yields "".
func QRCodeString(payload string) (string, error) {
	if payload == "" {
		return "", nil
	}
	qrCode, err := qrcode.New(payload, qrcode.Medium)
	if err != nil {
		return "", err
	}
	return qrCode.ToSmallString(false), nil
}
