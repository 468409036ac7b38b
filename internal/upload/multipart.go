package upload

import (
	"fmt"
	"io"
	"mime/multipart"
	"path/filepath"
	"sort"
)

// encodeForm streams the form fields followed by every file as multipart/form-data.
// The returned reader must be closed by the caller; closing it early stops the writer.
func encodeForm(form Form, files []File) (*io.PipeReader, string) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		pw.CloseWithError(writeForm(mw, form, files))
	}()

	return pr, mw.FormDataContentType()
}

func writeForm(mw *multipart.Writer, form Form, files []File) error {
	fields := form.Fields()
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		for _, v := range fields[k] {
			if err := mw.WriteField(k, v); err != nil {
				return fmt.Errorf("failed to write field %s: %w", k, err)
			}
		}
	}

	for _, f := range files {
		if err := writeFile(mw, form.FileField(), f); err != nil {
			return err
		}
	}

	return mw.Close()
}

func writeFile(mw *multipart.Writer, field string, f File) error {
	src, err := f.Open()
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", f.Name(), err)
	}
	defer src.Close()

	part, err := mw.CreateFormFile(field, filepath.Base(f.Name()))
	if err != nil {
		return fmt.Errorf("failed to create part for %s: %w", f.Name(), err)
	}

	if _, err := io.Copy(part, src); err != nil {
		return fmt.Errorf("failed to write %s: %w", f.Name(), err)
	}
	return nil
}
