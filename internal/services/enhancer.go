package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rahul4469/photo-studio/internal/models"
)

// PhotoField is the multipart field the backend reads the photo from.
const PhotoField = "photo"

// ConnectionErrorMessage is shown for transport failures and unreadable replies.
const ConnectionErrorMessage = "Connection error. Please check your connection and try again."

// ErrConnection wraps every transport-level failure.
var ErrConnection = errors.New("connection error")

// ServerError is a non-2xx reply from the backend. Message holds the
// backend's own error text and is empty when the body carried none.
type ServerError struct {
	Status  int
	Message string
}

func (e *ServerError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("backend returned status %d", e.Status)
	}
	return e.Message
}

// UserMessage returns the text to show in the error panel for err.
func UserMessage(err error) string {
	var srvErr *ServerError
	if errors.As(err, &srvErr) && srvErr.Message != "" {
		return srvErr.Message
	}
	return ConnectionErrorMessage
}

// EnhancerClient talks to the photo enhancement backend.
type EnhancerClient struct {
	BaseURL *url.URL
	Client  *http.Client
}

// NewEnhancerClient creates a client for the backend at baseURL.
func NewEnhancerClient(baseURL string, timeout time.Duration) (*EnhancerClient, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("invalid backend URL %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid backend URL %q: scheme and host are required", baseURL)
	}
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &EnhancerClient{
		BaseURL: u,
		Client: &http.Client{
			Timeout: timeout,
		},
	}, nil
}

// Analyze uploads a photo to POST /analyze.
func (ec *EnhancerClient) Analyze(ctx context.Context, filename string, photo io.Reader) (*models.AnalysisReport, error) {
	var report models.AnalysisReport
	if err := ec.postPhoto(ctx, "analyze", filename, photo, &report); err != nil {
		return nil, err
	}
	report.PreviewURL = ec.Resolve(report.PreviewURL)
	return &report, nil
}

// Enhance asks the backend to enhance a photo it already analyzed.
func (ec *EnhancerClient) Enhance(ctx context.Context, filename string) (*models.EnhancementResult, error) {
	body, err := json.Marshal(map[string]string{"filename": filename})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ec.Resolve("enhance"), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var result models.EnhancementResult
	if err := ec.do(req, &result); err != nil {
		return nil, err
	}
	ec.resolveResult(&result)
	return &result, nil
}

// Upload runs the single-step flow: POST /upload analyzes and enhances at once.
func (ec *EnhancerClient) Upload(ctx context.Context, filename string, photo io.Reader) (*models.EnhancementResult, error) {
	var result models.EnhancementResult
	if err := ec.postPhoto(ctx, "upload", filename, photo, &result); err != nil {
		return nil, err
	}
	ec.resolveResult(&result)
	return &result, nil
}

// Download streams the file at rawURL into w and returns the content type.
func (ec *EnhancerClient) Download(ctx context.Context, rawURL string, w io.Writer) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ec.Resolve(rawURL), nil)
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := ec.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrConnection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", decodeServerError(resp)
	}

	if _, err := io.Copy(w, resp.Body); err != nil {
		return "", fmt.Errorf("%w: download interrupted: %v", ErrConnection, err)
	}
	return resp.Header.Get("Content-Type"), nil
}

// Check confirms the backend answers at all; any HTTP status counts as alive.
func (ec *EnhancerClient) Check(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, ec.BaseURL.String(), nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := ec.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	resp.Body.Close()
	return nil
}

// Resolve turns a backend-relative path into an absolute URL.
// Absolute URLs and empty strings are returned unchanged.
func (ec *EnhancerClient) Resolve(ref string) string {
	if ref == "" {
		return ""
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	if u.IsAbs() {
		return ref
	}
	return ec.BaseURL.ResolveReference(u).String()
}

func (ec *EnhancerClient) resolveResult(r *models.EnhancementResult) {
	r.OriginalPreviewURL = ec.Resolve(r.OriginalPreviewURL)
	r.PreviewURL = ec.Resolve(r.PreviewURL)
	r.DownloadURL = ec.Resolve(r.DownloadURL)
}

// postPhoto sends photo as a multipart form to endpoint and decodes into out.
func (ec *EnhancerClient) postPhoto(ctx context.Context, endpoint, filename string, photo io.Reader, out interface{}) error {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile(PhotoField, filename)
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, photo); err != nil {
		return fmt.Errorf("failed to read photo: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, ec.Resolve(endpoint), &body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	return ec.do(req, out)
}

// do sends req and decodes a JSON body into out.
func (ec *EnhancerClient) do(req *http.Request, out interface{}) error {
	req.Header.Set("Accept", "application/json")

	resp, err := ec.Client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrConnection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeServerError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode response: %v", ErrConnection, err)
	}
	return nil
}

// decodeServerError reads the backend's {"error": "..."} body when present.
func decodeServerError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var payload struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Error != "" {
		return &ServerError{Status: resp.StatusCode, Message: payload.Error}
	}
	return &ServerError{Status: resp.StatusCode}
}
