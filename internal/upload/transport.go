package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/hbomb79/Abode/internal/media"
	"github.com/hbomb79/Abode/pkg/logger"
)

var log = logger.Get("Upload")

// Size ceilings enforced before any network call is issued.
const (
	MaxImageSize int64 = 10 << 20
	MaxVideoSize int64 = 100 << 20
)

type (
	// Config points the transport at the remote storage endpoint. The
	// endpoint is the provider base (e.g. https://api.cloudinary.com/
	// v1_1/<cloud>); the resource type segment and '/upload' are
	// appended per request.
	Config struct {
		Endpoint       string `yaml:"endpoint" env:"UPLOAD_ENDPOINT" env-required:"true"`
		Preset         string `yaml:"preset" env:"UPLOAD_PRESET" env-required:"true"`
		Folder         string `yaml:"folder" env:"UPLOAD_FOLDER" env-default:"abode"`
		TimeoutSeconds int    `yaml:"timeout_seconds" env:"UPLOAD_TIMEOUT_SECONDS" env-default:"120"`
	}

	// uploadResponse is the subset of the provider's success body we
	// consume. Only the canonical secure URL matters downstream.
	uploadResponse struct {
		SecureURL string `json:"secure_url"`
	}

	errorResponse struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}

	// Transport submits classified local files to remote storage. Each
	// submission is independent: one file failing never affects its
	// siblings in a batch.
	Transport struct {
		config Config
		client *http.Client
	}
)

func NewTransport(config Config) *Transport {
	timeout := time.Duration(config.TimeoutSeconds) * time.Second
	if config.TimeoutSeconds <= 0 {
		timeout = 2 * time.Minute
	}

	return &Transport{
		config: config,
		client: &http.Client{Timeout: timeout},
	}
}

// Upload validates and submits one local file, returning the canonical
// HTTPS URL the remote storage assigned, or a typed failure. The
// resource-type hint in the request path matches the classification,
// and HEIC/HEIF images carry a JPEG conversion hint since browsers
// cannot reliably render HEIC.
func (transport *Transport) Upload(ctx context.Context, file media.LocalFile, kind media.Kind) (string, error) {
	if err := validateFileSize(file, kind); err != nil {
		return "", err
	}

	body, contentType, err := transport.buildRequestBody(file, kind)
	if err != nil {
		return "", &RequestFailedError{FileName: file.Name, Reason: err.Error()}
	}

	requestURL := fmt.Sprintf("%s/%s/upload", strings.TrimSuffix(transport.config.Endpoint, "/"), resourceType(kind))
	request, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL, body)
	if err != nil {
		return "", &RequestFailedError{FileName: file.Name, Reason: err.Error()}
	}
	request.Header.Set("Content-Type", contentType)

	response, err := transport.client.Do(request)
	if err != nil {
		return "", &RequestFailedError{FileName: file.Name, Reason: err.Error()}
	}
	defer response.Body.Close()

	responseBody, err := io.ReadAll(response.Body)
	if err != nil {
		return "", &RequestFailedError{FileName: file.Name, Reason: fmt.Sprintf("failed to read response body: %s", err.Error())}
	}

	if response.StatusCode != http.StatusOK {
		return "", transport.errorForStatus(response.StatusCode, responseBody, file, kind)
	}

	var success uploadResponse
	if err := json.Unmarshal(responseBody, &success); err != nil {
		return "", &RequestFailedError{FileName: file.Name, Reason: fmt.Sprintf("response JSON could not be unmarshalled: %s", err.Error())}
	}
	if success.SecureURL == "" {
		return "", &RequestFailedError{FileName: file.Name, Reason: "response contained no secure URL"}
	}

	log.Emit(logger.DEBUG, "Uploaded %s '%s' -> %s\n", kind, file.Name, success.SecureURL)
	return success.SecureURL, nil
}

// buildRequestBody assembles the multipart payload: the binary file
// part, the unsigned preset, the destination folder, and the optional
// format conversion hint.
func (transport *Transport) buildRequestBody(file media.LocalFile, kind media.Kind) (io.Reader, string, error) {
	buffer := &bytes.Buffer{}
	writer := multipart.NewWriter(buffer)

	part, err := writer.CreateFormFile("file", file.Name)
	if err != nil {
		return nil, "", err
	}

	reader, err := file.Open()
	if err != nil {
		return nil, "", err
	}
	defer reader.Close()

	if _, err := io.Copy(part, reader); err != nil {
		return nil, "", err
	}

	writer.WriteField("upload_preset", transport.config.Preset)
	writer.WriteField("folder", transport.config.Folder)
	if kind == media.Image && isHEIC(file) {
		writer.WriteField("format", "jpg")
	}

	if err := writer.Close(); err != nil {
		return nil, "", err
	}

	return buffer, writer.FormDataContentType(), nil
}

// errorForStatus maps the remote's HTTP failure statuses on to the
// transport error taxonomy.
func (transport *Transport) errorForStatus(status int, body []byte, file media.LocalFile, kind media.Kind) error {
	switch status {
	case http.StatusBadRequest:
		var remote errorResponse
		json.Unmarshal(body, &remote)
		return &RequestRejectedError{FileName: file.Name, Detail: remote.Error.Message}
	case http.StatusUnauthorized:
		return &AuthFailedError{FileName: file.Name}
	case http.StatusRequestEntityTooLarge:
		return &FileTooLargeError{FileName: file.Name, Size: file.Size, Limit: sizeLimit(kind)}
	default:
		return &RequestFailedError{FileName: file.Name, Reason: fmt.Sprintf("remote storage returned HTTP %d", status)}
	}
}

func validateFileSize(file media.LocalFile, kind media.Kind) error {
	if file.Size <= 0 {
		return &EmptyFileError{FileName: file.Name}
	}

	if limit := sizeLimit(kind); file.Size > limit {
		return &FileTooLargeError{FileName: file.Name, Size: file.Size, Limit: limit}
	}

	return nil
}

func sizeLimit(kind media.Kind) int64 {
	if kind == media.Video {
		return MaxVideoSize
	}

	return MaxImageSize
}

func resourceType(kind media.Kind) string {
	if kind == media.Video {
		return "video"
	}

	return "image"
}

func isHEIC(file media.LocalFile) bool {
	mime := strings.ToLower(file.MIMEType)
	if mime == "image/heic" || mime == "image/heif" {
		return true
	}

	ext := strings.ToLower(path.Ext(file.Name))
	return ext == ".heic" || ext == ".heif"
}
