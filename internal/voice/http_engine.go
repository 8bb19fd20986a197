package voice

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/book-expert/promo-pipeline/internal/core"
)

// API endpoints and paths.
const (
	apiGenerateSpeech = "/v1/generate/speech"
	apiHealth         = "/health"
)

// HTTP headers.
const (
	headerContentType = "Content-Type"
	headerAccept      = "Accept"
	contentTypeJSON   = "application/json"
	contentTypeWAV    = "audio/wav"
)

const (
	defaultTemperature = 0.75
	defaultLanguage    = "en"
)

var (
	// ErrTextEmpty is returned when there is nothing to synthesize.
	ErrTextEmpty = errors.New("text cannot be empty")
	// ErrUnexpectedContentType is returned when the service does not answer with WAV audio.
	ErrUnexpectedContentType = errors.New("unexpected content type")
	// ErrServiceStatus is returned for non-OK answers from the speech service.
	ErrServiceStatus = errors.New("speech service returned non-OK status")
)

// HTTPEngine renders speech through a standalone TTS HTTP service.
type HTTPEngine struct {
	httpClient  *http.Client
	baseURL     string
	language    string
	temperature float64
}

var _ core.SpeechEngine = (*HTTPEngine)(nil)

// SpeechRequest is the JSON payload of a generation request.
type SpeechRequest struct {
	Text           string  `json:"text"`
	SpeakerRefPath string  `json:"speaker_ref_path,omitempty"`
	Language       string  `json:"language"`
	Temperature    float64 `json:"temperature"`
}

// serviceError is the structured error body of the service.
type serviceError struct {
	Detail    string `json:"detail"`
	ErrorCode string `json:"error_code,omitempty"`
}

// NewHTTPEngine creates an engine for the service at baseURL, e.g.
// "http://localhost:8000".
func NewHTTPEngine(baseURL, language string, temperature float64, timeout time.Duration) *HTTPEngine {
	return &HTTPEngine{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:     strings.TrimRight(baseURL, "/"),
		language:    language,
		temperature: temperature,
	}
}

// Render implements core.SpeechEngine.
func (e *HTTPEngine) Render(ctx context.Context, text string) ([]byte, error) {
	return e.GenerateSpeech(ctx, SpeechRequest{
		Text:           text,
		SpeakerRefPath: "",
		Language:       e.language,
		Temperature:    e.temperature,
	})
}

// GenerateSpeech sends one generation request and returns the WAV bytes.
func (e *HTTPEngine) GenerateSpeech(ctx context.Context, req SpeechRequest) ([]byte, error) {
	if req.Text == "" {
		return nil, ErrTextEmpty
	}

	if req.Temperature == 0 {
		req.Temperature = defaultTemperature
	}

	if req.Language == "" {
		req.Language = defaultLanguage
	}

	requestBody, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		e.baseURL+apiGenerateSpeech,
		bytes.NewBuffer(requestBody),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	httpReq.Header.Set(headerContentType, contentTypeJSON)
	httpReq.Header.Set(headerAccept, contentTypeWAV)

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("failed to send request to speech service at %s: %w", e.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, parseErrorResponse(resp)
	}

	contentType := resp.Header.Get(headerContentType)
	if contentType != contentTypeWAV {
		return nil, fmt.Errorf("%w: expected %s, got %s", ErrUnexpectedContentType, contentTypeWAV, contentType)
	}

	audioData, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio data: %w", err)
	}

	if len(audioData) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyAudio, e.baseURL)
	}

	return audioData, nil
}

// HealthCheck fails fast when the service is not ready. Run it before a batch.
func (e *HTTPEngine) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+apiHealth, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed for service at %s: %w", e.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health check: %s", ErrServiceStatus, resp.Status)
	}

	return nil
}

// parseErrorResponse prefers the structured error body and falls back to the
// raw body.
func parseErrorResponse(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var decoded serviceError

	err := json.Unmarshal(body, &decoded)
	if err == nil && decoded.Detail != "" {
		return fmt.Errorf("%w (%s): %s (code: %s)", ErrServiceStatus, resp.Status, decoded.Detail, decoded.ErrorCode)
	}

	return fmt.Errorf("%w: %s, body: %s", ErrServiceStatus, resp.Status, strings.TrimSpace(string(body)))
}
