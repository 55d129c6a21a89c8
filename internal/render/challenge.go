package render

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/png"

	"golang.org/x/image/bmp"
)

// Challenge is one generated code and the image it was drawn into.
type Challenge struct {
	code string
	img  *image.RGBA
}

// Code returns the answer. Never show it to the party being verified.
func (c *Challenge) Code() string { return c.code }

func (c *Challenge) Image() *image.RGBA { return c.img }

// Verify compares guess with the code, exactly and case-sensitively.
func (c *Challenge) Verify(guess string) bool {
	return VerifyCode(c.code, guess)
}

// VerifyCode reports whether guess equals code. An empty code never matches.
func VerifyCode(code, guess string) bool {
	return code != "" && code == guess
}

func (c *Challenge) EncodePNG() ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, c.img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (c *Challenge) EncodeBMP() ([]byte, error) {
	var buf bytes.Buffer
	if err := bmp.Encode(&buf, c.img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DataURI returns the image as a base64 PNG data URI for browsers.
func (c *Challenge) DataURI() (string, error) {
	b, err := c.EncodePNG()
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(b), nil
}
