package transport

import (
	"bytes"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/pkg/errors"

	"ecommerce/pkg/domain/model"
)

var imageTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/jpg":  true,
	"image/gif":  true,
	"image/webp": true,
}

type uploadLimits struct {
	maxFileSize int64
	maxFiles    int
}

func newUploadLimits(maxMB int) uploadLimits {
	if maxMB < 1 {
		maxMB = 5
	}
	return uploadLimits{maxFileSize: int64(maxMB) << 20, maxFiles: 6}
}

// parseForm reads a multipart body bounded by the per file limit times the file count.
func (l uploadLimits) parseForm(w http.ResponseWriter, r *http.Request) (*multipart.Form, error) {
	r.Body = http.MaxBytesReader(w, r.Body, l.maxFileSize*int64(l.maxFiles)+1<<20)
	if err := r.ParseMultipartForm(l.maxFileSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, err
		}
		return nil, badRequest("invalid multipart body")
	}
	return r.MultipartForm, nil
}

func (l uploadLimits) files(form *multipart.Form, field string, max int) ([]model.File, error) {
	headers := form.File[field]
	if len(headers) > max {
		return nil, badRequest(fmt.Sprintf("at most %d files allowed for %s", max, field))
	}
	files := make([]model.File, 0, len(headers))
	for _, h := range headers {
		file, err := l.read(h)
		if err != nil {
			return nil, err
		}
		files = append(files, file)
	}
	return files, nil
}

// file returns the single upload of field, or nil when the field is absent.
func (l uploadLimits) file(form *multipart.Form, field string) (*model.File, error) {
	files, err := l.files(form, field, 1)
	if err != nil || len(files) == 0 {
		return nil, err
	}
	return &files[0], nil
}

func (l uploadLimits) requireFile(form *multipart.Form, field string) (model.File, error) {
	file, err := l.file(form, field)
	if err != nil {
		return model.File{}, err
	}
	if file == nil {
		return model.File{}, badRequest(field + " is required")
	}
	return *file, nil
}

func (l uploadLimits) read(h *multipart.FileHeader) (model.File, error) {
	contentType := h.Header.Get("Content-Type")
	if !imageTypes[contentType] {
		return model.File{}, badRequest("Invalid file type")
	}
	if h.Size > l.maxFileSize {
		return model.File{}, badRequest(fmt.Sprintf("%s exceeds %d bytes", h.Filename, l.maxFileSize))
	}
	src, err := h.Open()
	if err != nil {
		return model.File{}, errors.Wrap(err, "open upload")
	}
	defer src.Close()

	body, err := io.ReadAll(src)
	if err != nil {
		return model.File{}, errors.Wrap(err, "read upload")
	}
	return model.File{
		Name:        h.Filename,
		ContentType: contentType,
		Size:        int64(len(body)),
		Body:        bytes.NewReader(body),
	}, nil
}

func formValue(form *multipart.Form, key string) string {
	if values := form.Value[key]; len(values) > 0 {
		return values[0]
	}
	return ""
}

func formValues(form *multipart.Form, key string) []string {
	values := append([]string{}, form.Value[key]...)
	return append(values, form.Value[key+"[]"]...)
}
