package http

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"

	"budgetit/internal/core"
)

// maxBodyBytes caps request bodies; ledger payloads are a few hundred bytes.
const maxBodyBytes = 64 << 10

// decodeJSON reads exactly one JSON value from the request body into dst.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" && !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		return fmt.Errorf("%w: content type must be application/json", core.ErrValidation)
	}

	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return fmt.Errorf("%w: request body is empty", core.ErrValidation)
		case errors.As(err, &maxErr):
			return fmt.Errorf("%w: request body exceeds %d bytes", core.ErrValidation, maxErr.Limit)
		default:
			return fmt.Errorf("%w: malformed request body: %v", core.ErrValidation, err)
		}
	}
	if dec.More() {
		return fmt.Errorf("%w: request body must hold a single JSON object", core.ErrValidation)
	}
	return nil
}

// pathID parses the {id} route variable.
func pathID(r *http.Request) (int64, error) {
	raw := mux.Vars(r)["id"]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid id %q", core.ErrValidation, raw)
	}
	return id, nil
}

// queryFilter reads ?filter=, defaulting to all.
func queryFilter(r *http.Request) (core.Filter, error) {
	return core.ParseFilter(r.URL.Query().Get("filter"))
}

// querySource reads the optional ?source= of a transaction delete. ok is false
// when the parameter is absent.
func querySource(r *http.Request) (source core.Source, ok bool, err error) {
	raw := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("source")))
	if raw == "" {
		return "", false, nil
	}
	source = core.Source(raw)
	if !source.IsValid() {
		return "", false, fmt.Errorf("%w %q", core.ErrInvalidSource, raw)
	}
	return source, true, nil
}
