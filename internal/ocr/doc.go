// Package ocr reads caption text off diagram backgrounds using Tesseract
// (via gosseract/v2). The editor uses it to suggest a label for the
// selected annotation from the text printed inside its bounds.
//
// # Prerequisites
//
// Tesseract and its language data must be installed on the system:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-eng
//   - macOS: brew install tesseract
//
// Builds without cgo compile a stub engine whose calls fail with
// ErrUnavailable.
//
// # Supported Languages
//
// The default language is English ("eng"). Other languages can be specified
// using their Tesseract language codes, e.g. "deu", "fra" or "chi_sim", and
// combined with '+' ("eng+deu").
//
// # Preprocessing
//
// The annotation bounds are padded, clamped to the image, cropped,
// upscaled and converted to grayscale before recognition. Diagram captions
// are usually small, and Tesseract does poorly below about 20px cap height.
package ocr
