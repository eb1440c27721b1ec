package httpclient

import (
	"bytes"
	"io"
	"mime/multipart"
	"net/textproto"
	"os"
	"path/filepath"
	"sort"
)

// MultipartBody represents a multipart/form-data request body.
// Pass it as Request.Body; the Content-Type header is set automatically.
type MultipartBody struct {
	// Fields are simple key-value form fields, written in key order.
	Fields map[string]string
	// Files are file upload fields.
	Files []FileField
}

// FileField represents a file to upload in a multipart request.
type FileField struct {
	// FieldName is the form field name (e.g., "file", "audio").
	FieldName string
	// FileName is the file name sent to the server. Defaults to the base of Path.
	FileName string
	// ContentType is the MIME type (e.g., "audio/wav"). If empty, uses application/octet-stream.
	ContentType string
	// Data is the file content.
	Data []byte
	// Path names a file on disk that is streamed instead of buffered.
	// The file is reopened for every attempt, so retries are safe.
	Path string
}

func (m *MultipartBody) streams() bool {
	for _, f := range m.Files {
		if f.Path != "" {
			return true
		}
	}
	return false
}

// encode returns a fresh reader over the encoded body and its content type.
// Bodies that reference files on disk are produced through a pipe so large
// audio files are never held in memory.
func (m *MultipartBody) encode() (io.Reader, string, error) {
	if !m.streams() {
		var buf bytes.Buffer
		w := multipart.NewWriter(&buf)
		if err := m.write(w); err != nil {
			return nil, "", err
		}
		return &buf, w.FormDataContentType(), nil
	}

	pr, pw := io.Pipe()
	w := multipart.NewWriter(pw)
	go func() {
		pw.CloseWithError(m.write(w))
	}()
	return pr, w.FormDataContentType(), nil
}

func (m *MultipartBody) write(w *multipart.Writer) error {
	keys := make([]string, 0, len(m.Fields))
	for k := range m.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if err := w.WriteField(k, m.Fields[k]); err != nil {
			return err
		}
	}

	for _, f := range m.Files {
		if err := writeFile(w, f); err != nil {
			return err
		}
	}
	return w.Close()
}

func writeFile(w *multipart.Writer, f FileField) error {
	name := f.FileName
	if name == "" && f.Path != "" {
		name = filepath.Base(f.Path)
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition",
		`form-data; name="`+escapeQuotes(f.FieldName)+`"; filename="`+escapeQuotes(name)+`"`)
	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)

	part, err := w.CreatePart(header)
	if err != nil {
		return err
	}

	if f.Path == "" {
		_, err = part.Write(f.Data)
		return err
	}
	file, err := os.Open(f.Path)
	if err != nil {
		return err
	}
	defer file.Close()
	_, err = io.Copy(part, file)
	return err
}

// escapeQuotes backslash-escapes quotes and backslashes in header values.
func escapeQuotes(s string) string {
	var buf bytes.Buffer
	for _, b := range []byte(s) {
		if b == '"' || b == '\\' {
			buf.WriteByte('\\')
		}
		buf.WriteByte(b)
	}
	return buf.String()
}
