// Package upload builds and checks the spreadsheet + email payload sent to
// the scrape backend.
package upload

import (
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

var (
	// ErrMissingFields is returned when the file or the email is absent.
	ErrMissingFields = eris.New("upload: file and email are required")

	// ErrUnsupportedFile is returned for files outside the accepted
	// spreadsheet extensions.
	ErrUnsupportedFile = eris.New("upload: unsupported file type")
)

// AcceptedExtensions mirrors the file picker filter of the upload form.
var AcceptedExtensions = []string{".xlsx", ".xls"}

// Payload is one submission: a spreadsheet of OEM codes plus the address
// the results are mailed to.
type Payload struct {
	Filename string
	File     io.Reader
	Email    string
}

// Validate checks presence only. Contents and email format, including a
// whitespace-only address, are left to the backend.
func (p Payload) Validate() error {
	if p.File == nil || p.Filename == "" || p.Email == "" {
		return ErrMissingFields
	}
	return nil
}

// Accepted reports whether name carries one of the accepted extensions.
func Accepted(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, a := range AcceptedExtensions {
		if ext == a {
			return true
		}
	}
	return false
}

// Open opens the spreadsheet at path and returns a payload for it. The
// caller closes the returned file once the payload has been submitted.
func Open(path, email string) (Payload, io.Closer, error) {
	if !Accepted(path) {
		return Payload{}, nil, eris.Wrapf(ErrUnsupportedFile, "%s (accepted: %s)", filepath.Base(path), strings.Join(AcceptedExtensions, ", "))
	}

	f, err := os.Open(path)
	if err != nil {
		return Payload{}, nil, eris.Wrap(err, "upload: open file")
	}

	return Payload{
		Filename: filepath.Base(path),
		File:     f,
		Email:    strings.TrimSpace(email),
	}, f, nil
}
