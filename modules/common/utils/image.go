package utils

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg" // JPEG decoder
	_ "image/png"  // PNG decoder
	"io"
	"strings"

	"github.com/kolesa-team/go-webp/decoder"
	"github.com/kolesa-team/go-webp/webp"
	"github.com/rs/zerolog/log"
)

const defaultMimeType = "application/octet-stream"

// Supported upload formats
const (
	MimeJPEG = "image/jpeg"
	MimePNG  = "image/png"
	MimeWebP = "image/webp"
)

// ErrUnsupportedImage - content is not a decodable JPEG, PNG or WebP image
var ErrUnsupportedImage = errors.New("unsupported image format")

// ReadError - the file could not be turned into an encoded string
type ReadError struct {
	Reason string
	Err    error
}

func (e *ReadError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("read file: %s: %v", e.Reason, e.Err)
	}
	return "read file: " + e.Reason
}

func (e *ReadError) Unwrap() error {
	return e.Err
}

// BinaryFile - a user-supplied file handle
type BinaryFile struct {
	Name     string
	MimeType string
	Size     int64
	Data     []byte
}

// Reader - a fresh reader over the file content
func (f BinaryFile) Reader() io.Reader {
	return bytes.NewReader(f.Data)
}

// FileToDataURL - full "data:<mime>;base64,<payload>" form of the reader content
func FileToDataURL(r io.Reader, mimeType string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", &ReadError{Reason: "failed to read file as a data URL", Err: err}
	}
	if mimeType == "" {
		mimeType = defaultMimeType
	}
	return "data:" + mimeType + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

// FileToBase64 - Base64 payload only, the data URL prefix stripped
func FileToBase64(r io.Reader, mimeType string) (string, error) {
	dataURL, err := FileToDataURL(r, mimeType)
	if err != nil {
		return "", err
	}
	_, payload, found := strings.Cut(dataURL, ",")
	if !found || payload == "" {
		return "", &ReadError{Reason: "could not extract base64 content from file"}
	}
	return payload, nil
}

// ToDataURL - wrap an already encoded payload
func ToDataURL(mimeType, payload string) string {
	return "data:" + mimeType + ";base64," + payload
}

// DetectImageMime - sniff the content and return its MIME type when it is a supported image
func DetectImageMime(data []byte) (string, error) {
	if isWebP(data) {
		if _, err := webp.Decode(bytes.NewReader(data), &decoder.Options{}); err != nil {
			log.Debug().Err(err).Msg("⚠️ [Encoder] WebP header present but decode failed")
			return "", fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
		}
		return MimeWebP, nil
	}

	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnsupportedImage, err)
	}

	switch format {
	case "jpeg":
		return MimeJPEG, nil
	case "png":
		return MimePNG, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedImage, format)
	}
}

// RIFF....WEBP
func isWebP(data []byte) bool {
	return len(data) >= 12 && string(data[0:4]) == "RIFF" && string(data[8:12]) == "WEBP"
}
