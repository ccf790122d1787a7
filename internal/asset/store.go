// Package asset stores binary blobs (audio, exported markdown) and hands out
// locators that resolve back to them.
package asset

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"mime"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"voxnote/pkg/apperr"

	"github.com/golang-jwt/jwt/v5"
)

// Bucket is the path segment every locator carries before the object key.
const Bucket = "voice_notes"

// Object is a stored blob.
type Object struct {
	Key         string
	ContentType string
	Data        []byte
}

// Store is the stored-object contract the rest of the system depends on.
type Store interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
	Get(ctx context.Context, locator string) (Object, error)
	SignedRead(ctx context.Context, locator string, ttl time.Duration) (string, error)
}

// DiskStore keeps objects under a root directory and serves them back over
// HTTP through signed URLs.
type DiskStore struct {
	root       string
	baseURL    string
	signingKey []byte
	now        func() time.Time
}

func NewDiskStore(root, baseURL, signingKey string) (*DiskStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create asset directory %s: %w", root, err)
	}
	return &DiskStore{
		root:       root,
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		signingKey: []byte(signingKey),
		now:        time.Now,
	}, nil
}

// OwnerKey namespaces name under the owner so users never collide.
func OwnerKey(owner, name string) string {
	return owner + "/" + name
}

// Put writes data under key and returns its locator. The write lands in a
// temporary file first so readers never see a partial object.
func (s *DiskStore) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	const op = "asset.Put"
	if err := ctx.Err(); err != nil {
		return "", apperr.Wrap(apperr.StorageFailure, op, err)
	}
	if err := validateKey(key); err != nil {
		return "", apperr.Wrap(apperr.Validation, op, err)
	}

	dst := s.filePath(key)
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", apperr.Wrap(apperr.StorageFailure, op, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(dst), ".upload-*")
	if err != nil {
		return "", apperr.Wrap(apperr.StorageFailure, op, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", apperr.Wrap(apperr.StorageFailure, op, err)
	}
	if err := tmp.Close(); err != nil {
		return "", apperr.Wrap(apperr.StorageFailure, op, err)
	}
	if err := os.Rename(tmp.Name(), dst); err != nil {
		return "", apperr.Wrap(apperr.StorageFailure, op, err)
	}
	return s.locatorFor(key), nil
}

// Get resolves a locator to the stored bytes.
func (s *DiskStore) Get(ctx context.Context, locator string) (Object, error) {
	const op = "asset.Get"
	key, err := ParseLocator(locator)
	if err != nil {
		return Object{}, apperr.Wrap(apperr.Validation, op, err)
	}
	return s.read(ctx, op, key)
}

// SignedRead returns a URL that serves the object without other credentials
// until ttl elapses.
func (s *DiskStore) SignedRead(ctx context.Context, locator string, ttl time.Duration) (string, error) {
	const op = "asset.SignedRead"
	key, err := ParseLocator(locator)
	if err != nil {
		return "", apperr.Wrap(apperr.Validation, op, err)
	}
	if ttl <= 0 {
		return "", apperr.New(apperr.Validation, op, "ttl must be positive")
	}
	if _, err := os.Stat(s.filePath(key)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", apperr.Wrap(apperr.NotFound, op, err)
		}
		return "", apperr.Wrap(apperr.StorageFailure, op, err)
	}

	now := s.now()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   key,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}).SignedString(s.signingKey)
	if err != nil {
		return "", apperr.Wrap(apperr.StorageFailure, op, err)
	}
	return s.locatorFor(key) + "?token=" + url.QueryEscape(token), nil
}

func (s *DiskStore) read(ctx context.Context, op, key string) (Object, error) {
	if err := ctx.Err(); err != nil {
		return Object{}, apperr.Wrap(apperr.StorageFailure, op, err)
	}
	data, err := os.ReadFile(s.filePath(key))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Object{}, apperr.Wrap(apperr.NotFound, op, err)
		}
		return Object{}, apperr.Wrap(apperr.StorageFailure, op, err)
	}
	return Object{Key: key, ContentType: ContentTypeOf(key), Data: data}, nil
}

func (s *DiskStore) verify(key, token string) error {
	claims := &jwt.RegisteredClaims{}
	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.signingKey, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil || !parsed.Valid {
		return fmt.Errorf("invalid signature: %w", err)
	}
	if claims.Subject != key {
		return fmt.Errorf("token does not grant %s", key)
	}
	return nil
}

func (s *DiskStore) filePath(key string) string {
	return filepath.Join(s.root, Bucket, filepath.FromSlash(key))
}

func (s *DiskStore) locatorFor(key string) string {
	segments := strings.Split(key, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.baseURL + "/assets/" + Bucket + "/" + strings.Join(segments, "/")
}

// ParseLocator extracts the object key from a locator URL.
func ParseLocator(locator string) (string, error) {
	u, err := url.Parse(locator)
	if err != nil || locator == "" {
		return "", fmt.Errorf("invalid locator format %q", locator)
	}
	marker := "/" + Bucket + "/"
	idx := strings.LastIndex(u.Path, marker)
	if idx < 0 {
		return "", fmt.Errorf("invalid locator format %q", locator)
	}
	key := u.Path[idx+len(marker):]
	if err := validateKey(key); err != nil {
		return "", err
	}
	return key, nil
}

func validateKey(key string) error {
	if key == "" || strings.HasPrefix(key, "/") {
		return fmt.Errorf("invalid object key %q", key)
	}
	if path.Clean(key) != key || strings.Contains(key, "..") {
		return fmt.Errorf("invalid object key %q", key)
	}
	if !strings.Contains(key, "/") {
		return fmt.Errorf("object key %q is not owner scoped", key)
	}
	return nil
}

var contentTypes = map[string]string{
	".webm": "audio/webm",
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".mp4":  "audio/mp4",
	".wav":  "audio/wav",
	".ogg":  "audio/ogg",
	".oga":  "audio/ogg",
	".flac": "audio/flac",
	".md":   "text/markdown; charset=utf-8",
}

// ContentTypeOf guesses a media type from the key's extension.
func ContentTypeOf(key string) string {
	ext := strings.ToLower(path.Ext(key))
	if ct, ok := contentTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

var extensions = map[string]string{
	"audio/webm":    "webm",
	"audio/mpeg":    "mp3",
	"audio/mp3":     "mp3",
	"audio/mp4":     "m4a",
	"audio/x-m4a":   "m4a",
	"audio/wav":     "wav",
	"audio/x-wav":   "wav",
	"audio/ogg":     "ogg",
	"audio/flac":    "flac",
	"text/markdown": "md",
}

// ExtensionFor maps a media type back to a file extension, "webm" when unknown.
func ExtensionFor(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = contentType
	}
	if ext, ok := extensions[strings.ToLower(mediaType)]; ok {
		return ext
	}
	return "webm"
}
