package qrcode

import (
	"encoding/base64"
	"errors"
	"strings"

	skipqrcode "github.com/skip2/go-qrcode"
)

var (
	ErrEmptyContent             = errors.New("qrcode: content cannot be empty")
	ErrFailedToGenerateQRCode   = errors.New("qrcode: failed to generate QR code")
	ErrUnsupportedRecoveryLevel = errors.New("qrcode: unsupported recovery level")
)

// DefaultSize is the image width and height in pixels used when size <= 0.
const DefaultSize = 256

const dataURIPrefix = "data:image/png;base64,"

// Level is the error correction level of the rendered code.
type Level = skipqrcode.RecoveryLevel

const (
	Low     Level = skipqrcode.Low
	Medium  Level = skipqrcode.Medium
	High    Level = skipqrcode.High
	Highest Level = skipqrcode.Highest
)

// Generate renders content as a PNG with medium error correction.
func Generate(content string, size int) ([]byte, error) {
	return GenerateWithLevel(content, size, Medium)
}

// GenerateWithLevel renders content as a PNG with the given error correction.
func GenerateWithLevel(content string, size int, level Level) ([]byte, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}
	if level < Low || level > Highest {
		return nil, ErrUnsupportedRecoveryLevel
	}
	if size <= 0 {
		size = DefaultSize
	}

	png, err := skipqrcode.Encode(content, level, size)
	if err != nil {
		return nil, errors.Join(ErrFailedToGenerateQRCode, err)
	}
	return png, nil
}

// GenerateBase64Image returns the PNG as a data URI for an <img src>.
func GenerateBase64Image(content string, size int) (string, error) {
	png, err := Generate(content, size)
	if err != nil {
		return "", err
	}
	return dataURIPrefix + base64.StdEncoding.EncodeToString(png), nil
}
