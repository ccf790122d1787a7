package asset

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"voxnote/pkg/apperr"
	"voxnote/pkg/logger"
)

// ServeHTTP serves GET /assets/voice_notes/{key}?token=... for URLs minted by
// SignedRead. No other credentials are checked.
func (s *DiskStore) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	prefix := "/assets/" + Bucket + "/"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		http.NotFound(w, r)
		return
	}
	key := strings.TrimPrefix(r.URL.Path, prefix)
	if err := validateKey(key); err != nil {
		http.Error(w, "Invalid asset path", http.StatusBadRequest)
		return
	}

	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "Unauthorized: missing signature", http.StatusUnauthorized)
		return
	}
	if err := s.verify(key, token); err != nil {
		logger.Sugar.Warnf("Rejected asset read for %s: %v", key, err)
		http.Error(w, "Unauthorized: invalid or expired signature", http.StatusUnauthorized)
		return
	}

	obj, err := s.read(r.Context(), "asset.Serve", key)
	if err != nil {
		if errors.Is(err, apperr.NotFound) {
			http.NotFound(w, r)
			return
		}
		logger.Sugar.Errorf("Failed to read asset %s: %v", key, err)
		http.Error(w, "Failed to read asset", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", obj.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(obj.Data)))
	w.Header().Set("Cache-Control", "private, max-age=60")
	if r.Method == http.MethodHead {
		return
	}
	w.Write(obj.Data)
}
