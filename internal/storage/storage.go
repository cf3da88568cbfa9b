// Package storage keeps uploaded lesson recordings in an object store
// backed by MinIO or Google Cloud Storage.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/coursehub/apiserver/config"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// Backend names accepted by NewFromConfig.
const (
	BackendMinio = "minio"
	BackendGCS   = "gcs"
)

// DefaultContentType is stored when nothing identifies the media type.
const DefaultContentType = "application/octet-stream"

// sniffLen is how much of an upload is inspected to detect its media type.
const sniffLen = 3072

// ObjectAttrs are the headers stored alongside an object.
type ObjectAttrs struct {
	ContentType        string
	ContentDisposition string
	Metadata           map[string]string
}

// Backend writes and removes objects in a single bucket and knows the
// public address of what it stores.
type Backend interface {
	EnsureBucket(ctx context.Context) error
	Write(ctx context.Context, key string, body io.Reader, size int64, attrs ObjectAttrs) error
	Remove(ctx context.Context, key string) error
	ObjectURL(key string) string
	Close() error
}

// Upload is a lesson recording received from a client. Size may be zero
// or negative when unknown.
type Upload struct {
	LessonID    int
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// Object is a stored recording.
type Object struct {
	Key         string
	URL         string
	ContentType string
}

// Recordings stores lesson recordings under lessons/{id}/.
type Recordings struct {
	backend Backend
	newID   func() string
}

// NewRecordings constructs a recording store on top of backend.
func NewRecordings(backend Backend) *Recordings {
	return &Recordings{backend: backend, newID: uuid.NewString}
}

// NewFromConfig connects to the configured backend and makes sure its
// bucket exists. It returns a nil *Recordings when no backend is configured.
func NewFromConfig(ctx context.Context, cfg config.StorageConfig) (*Recordings, error) {
	var (
		backend Backend
		err     error
	)
	switch cfg.Backend {
	case "":
		return nil, nil
	case BackendMinio:
		backend, err = NewMinioClient(cfg.Minio, cfg.PublicURL)
	case BackendGCS:
		backend, err = NewGCSClient(ctx, cfg.GCS, cfg.PublicURL)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("connect %s: %w", cfg.Backend, err)
	}

	if err := backend.EnsureBucket(ctx); err != nil {
		_ = backend.Close()
		return nil, fmt.Errorf("ensure bucket: %w", err)
	}
	return NewRecordings(backend), nil
}

// Save writes the upload under a fresh key and reports where it is served.
func (s *Recordings) Save(ctx context.Context, u Upload) (Object, error) {
	if u.Body == nil {
		return Object{}, errors.New("recording body is required")
	}

	header := make([]byte, sniffLen)
	n, err := io.ReadFull(u.Body, header)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) {
		return Object{}, fmt.Errorf("read recording: %w", err)
	}
	header = header[:n]
	sniffed := mimetype.Detect(header)

	ext := recordingExt(u.Filename)
	if ext == "" && isMedia(sniffed.String()) {
		ext = sniffed.Extension()
	}
	key := fmt.Sprintf("lessons/%d/%s%s", u.LessonID, s.newID(), ext)
	contentType := recordingContentType(sniffed, u.ContentType, ext)

	attrs := ObjectAttrs{
		ContentType:        contentType,
		ContentDisposition: inlineDisposition(u.Filename),
		Metadata:           map[string]string{"lesson-id": strconv.Itoa(u.LessonID)},
	}
	body := io.MultiReader(bytes.NewReader(header), u.Body)
	if err := s.backend.Write(ctx, key, body, u.Size, attrs); err != nil {
		return Object{}, fmt.Errorf("write %s: %w", key, err)
	}
	return Object{Key: key, URL: s.backend.ObjectURL(key), ContentType: contentType}, nil
}

// Discard removes a stored recording.
func (s *Recordings) Discard(ctx context.Context, key string) error {
	return s.backend.Remove(ctx, key)
}

// Close releases the backend client. Closing a nil *Recordings is a no-op.
func (s *Recordings) Close() error {
	if s == nil {
		return nil
	}
	return s.backend.Close()
}

var extPattern = regexp.MustCompile(`^\.[a-z0-9]{1,10}$`)

// recordingExt keeps a short alphanumeric extension from the client's
// file name and drops anything else.
func recordingExt(filename string) string {
	name := strings.ReplaceAll(filename, `\`, "/")
	ext := strings.ToLower(path.Ext(path.Base(name)))
	if !extPattern.MatchString(ext) {
		return ""
	}
	return ext
}

var recordingTypes = map[string]string{
	".mp4":  "video/mp4",
	".m4v":  "video/mp4",
	".webm": "video/webm",
	".mov":  "video/quicktime",
	".mkv":  "video/x-matroska",
	".mp3":  "audio/mpeg",
	".m4a":  "audio/mp4",
	".ogg":  "audio/ogg",
	".wav":  "audio/wav",
}

// recordingContentType prefers a detected audio or video type, then the
// type the client declared, then the extension.
func recordingContentType(sniffed *mimetype.MIME, declared, ext string) string {
	if isMedia(sniffed.String()) {
		return sniffed.String()
	}
	if mt, _, err := mime.ParseMediaType(declared); err == nil && mt != DefaultContentType {
		return mt
	}
	if byExt, ok := recordingTypes[ext]; ok {
		return byExt
	}
	return sniffed.String()
}

func isMedia(contentType string) bool {
	return strings.HasPrefix(contentType, "video/") || strings.HasPrefix(contentType, "audio/")
}

func inlineDisposition(filename string) string {
	name := path.Base(strings.ReplaceAll(filename, `\`, "/"))
	if name == "." || name == "/" || name == "" {
		return "inline"
	}
	if disposition := mime.FormatMediaType("inline", map[string]string{"filename": name}); disposition != "" {
		return disposition
	}
	return "inline"
}

// publicBase is the URL objects of bucket are served under. An empty
// publicURL falls back to the backend's own address.
func publicBase(publicURL, fallback, bucket string) string {
	base := strings.TrimRight(strings.TrimSpace(publicURL), "/")
	if base == "" {
		base = fallback
	}
	return base + "/" + url.PathEscape(bucket)
}

func objectURL(base, key string) string {
	parts := strings.Split(key, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return base + "/" + strings.Join(parts, "/")
}
