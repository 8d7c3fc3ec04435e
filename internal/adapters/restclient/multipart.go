package restclient

import (
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
)

// Field is a plain multipart form value
type Field struct {
	Name  string
	Value string
}

// Multipart streams fields plus an optional file through an io.Pipe so large
// uploads never sit in memory. The file is reopened on every attempt
func Multipart(fields []Field, fileField, path string) func() (io.Reader, string, error) {
	return func() (io.Reader, string, error) {
		var f *os.File
		if path != "" {
			var err error
			if f, err = os.Open(path); err != nil {
				return nil, "", err
			}
		}
		pr, pw := io.Pipe()
		mw := multipart.NewWriter(pw)
		go func() {
			if f != nil {
				defer func() { _ = f.Close() }()
			}
			pw.CloseWithError(writeParts(mw, fields, fileField, f))
		}()
		return pr, mw.FormDataContentType(), nil
	}
}

func writeParts(mw *multipart.Writer, fields []Field, fileField string, f *os.File) error {
	for _, fd := range fields {
		if err := mw.WriteField(fd.Name, fd.Value); err != nil {
			return err
		}
	}
	if f != nil {
		part, err := mw.CreateFormFile(fileField, filepath.Base(f.Name()))
		if err != nil {
			return err
		}
		if _, err := io.Copy(part, f); err != nil {
			return err
		}
	}
	return mw.Close()
}
