//go:build !cgo

package ocr

import "context"

// Tesseract is unavailable in builds without cgo.
type Tesseract struct {
	TessdataPrefix string
}

// Text implements Engine.
func (t *Tesseract) Text(context.Context, []byte, string) (string, error) {
	return "", ErrUnavailable
}

// Version reports that no engine is linked.
func Version() (string, error) {
	return "", ErrUnavailable
}
