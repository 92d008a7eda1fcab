// Package webutils writes HTTP responses for the viewer API.
package webutils

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

// WriteFileHeaders marks the response as a binary download named name.
func WriteFileHeaders(w http.ResponseWriter, name, contentType string) {
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", "attachment; filename=\""+strings.ReplaceAll(name, "\"", "")+"\"")
}

// WriteFile streams in as a download.
func WriteFile(w http.ResponseWriter, in io.Reader, name, contentType string) {
	WriteFileHeaders(w, name, contentType)
	if _, err := io.Copy(w, in); err != nil {
		log.Printf("[Web] Error when writing file %q: %v", name, err)
	}
}

// WriteBinary writes raw bytes with the given content type.
func WriteBinary(w http.ResponseWriter, data []byte, contentType string) {
	w.Header().Set("Content-Type", contentType)
	WriteResult(w, data)
}

// WriteJson marshals data and writes it with status 200.
func WriteJson(w http.ResponseWriter, data any) {
	res, err := json.Marshal(data)
	if err != nil {
		WriteError(w, http.StatusInternalServerError, errors.Wrapf(err, "Failed to marshal"))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	WriteResult(w, res)
}

// WriteResult writes data, logging a failed write.
func WriteResult(w http.ResponseWriter, data []byte) {
	if _, err := w.Write(data); err != nil {
		log.Printf("[Web] Error when writing response: %v", err)
	}
}

// WriteError writes {"error": err} with the given status code.
func WriteError(w http.ResponseWriter, status int, err error) {
	type jError struct {
		Error string `json:"error"`
	}
	data, merr := json.Marshal(&jError{Error: err.Error()})
	if merr != nil {
		log.Printf("[Web] Error marshaling error '%v': %v", err, merr)
		http.Error(w, err.Error(), status)
		return
	}
	log.Printf("[Web] HERR %d: %s", status, data)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	WriteResult(w, data)
}

// ReadFormFile reads the multipart file field key of a POST request, refusing bodies over maxSize bytes.
//
// Parameters:
//   - w: the response, used to enforce the size limit
//   - r: the request
//   - key: the form field
//   - maxSize: the body size limit in bytes
//
// Returns:
//   - []byte: the file contents
//   - string: the uploaded file name
//   - error: error if the request carries no readable file
func ReadFormFile(w http.ResponseWriter, r *http.Request, key string, maxSize int64) ([]byte, string, error) {
	if strings.ToUpper(r.Method) != http.MethodPost {
		return nil, "", errors.Errorf("Invalid http method %q", r.Method)
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxSize)
	f, header, err := r.FormFile(key)
	if err != nil {
		return nil, "", errors.Wrapf(err, "Failed to get file")
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, "", errors.Wrapf(err, "Failed to read")
	}
	return data, header.Filename, nil
}
