package routes

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"
	"io"
	"net/http"
	"strings"
	"ui-regression/internal/myhttp"
	"ui-regression/internal/storage"
)

type BaselineResponse struct {
	Location string `json:"location"`
}

func baselineKey(r *http.Request) (string, bool) {
	key := r.PathValue("key")
	if key == "" || !strings.HasSuffix(key, ".png") {
		return "", false
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return "", false
		}
	}
	return key, true
}

// GetBaseline serves a stored baseline image.
func GetBaseline(standards storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		key, ok := baselineKey(r)
		if !ok {
			http.Error(w, "Invalid baseline key", http.StatusBadRequest)
			return
		}

		data, err := standards.Get(r.Context(), key)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				http.NotFound(w, r)
				return
			}
			myhttp.Logger(r.Context()).Error(fmt.Sprintf("failed to get baseline: %s", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}

// PutBaseline accepts a reviewed capture as the new baseline.
func PutBaseline(standards storage.Storage) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		logger := myhttp.Logger(r.Context())

		key, ok := baselineKey(r)
		if !ok {
			http.Error(w, "Invalid baseline key", http.StatusBadRequest)
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadSize))
		if err != nil {
			logger.Info(fmt.Sprintf("failed to read request body: %s", err))
			http.Error(w, "Failed to read request body", http.StatusBadRequest)
			return
		}
		if _, err := png.DecodeConfig(bytes.NewReader(body)); err != nil {
			http.Error(w, "Baseline must be a PNG image", http.StatusBadRequest)
			return
		}

		location, err := standards.Put(r.Context(), key, body)
		if err != nil {
			logger.Error(fmt.Sprintf("failed to put baseline: %s", err))
			http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			return
		}
		logger.Info("baseline updated", "location", location)

		writeJSON(w, http.StatusOK, BaselineResponse{Location: location})
	}
}
