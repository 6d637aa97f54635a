package sttapi

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	defaultHTTPTimeout    = 60 * time.Second
	defaultRetryMaxDelay  = 10 * time.Second
	defaultRetryBaseDelay = 1 * time.Second
	defaultRetryAttempts  = 3
)

// ErrAuth marks authentication failures from the speech gateway. These are
// never retried: the credential will not fix itself between attempts.
var ErrAuth = errors.New("stt authentication failed")

// Config captures the runtime settings required to talk to the speech gateway.
type Config struct {
	BaseURL        string
	APIKey         string
	TimeoutSeconds int
}

// Client wraps the speech gateway's synchronous recognition endpoint.
type Client struct {
	cfg        Config
	httpClient *http.Client

	retryMaxAttempts int
	retryBaseDelay   time.Duration
	retryMaxDelay    time.Duration
	sleeper          func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryMaxAttempts overrides the default retry count (defaults to 3).
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.retryMaxAttempts = attempts
	}
}

// WithRetryBackoff overrides the retry backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.retryBaseDelay = baseDelay
		c.retryMaxDelay = maxDelay
	}
}

// WithSleeper overrides how retry sleeps are performed (useful for tests).
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// NewClient constructs a speech gateway client using the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	client := &Client{
		cfg: Config{
			BaseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
			APIKey:         strings.TrimSpace(cfg.APIKey),
			TimeoutSeconds: cfg.TimeoutSeconds,
		},
		httpClient:       &http.Client{Timeout: timeout},
		retryMaxAttempts: defaultRetryAttempts,
		retryBaseDelay:   defaultRetryBaseDelay,
		retryMaxDelay:    defaultRetryMaxDelay,
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return client
}

// RecognizeRequest describes one chunk of audio to transcribe.
type RecognizeRequest struct {
	Audio              []byte
	SampleRateHertz    int
	LanguageCode       string
	AlternateLanguages []string
	SpeakerCount       int
}

// Word is one recognized word with timing, confidence, and speaker labels.
type Word struct {
	Word        string  `json:"word"`
	StartTime   string  `json:"startTime"`
	EndTime     string  `json:"endTime"`
	Confidence  float64 `json:"confidence"`
	SpeakerTag  int     `json:"speakerTag"`
	SpeakerName string  `json:"speakerLabel,omitempty"`
}

// Alternative is one recognition hypothesis for a result.
type Alternative struct {
	Transcript string  `json:"transcript"`
	Confidence float64 `json:"confidence"`
	Words      []Word  `json:"words"`
}

// Result is one contiguous recognized region of the audio.
type Result struct {
	Alternatives []Alternative `json:"alternatives"`
	LanguageCode string        `json:"languageCode"`
}

// RecognizeResponse is the gateway's answer for one chunk.
type RecognizeResponse struct {
	Results []Result `json:"results"`
}

// StartOffset parses a word's start time ("3.200s") into a duration.
func (w Word) StartOffset() time.Duration {
	return parseOffset(w.StartTime)
}

// EndOffset parses a word's end time into a duration.
func (w Word) EndOffset() time.Duration {
	return parseOffset(w.EndTime)
}

func parseOffset(value string) time.Duration {
	value = strings.TrimSuffix(strings.TrimSpace(value), "s")
	if value == "" {
		return 0
	}
	seconds, err := strconv.ParseFloat(value, 64)
	if err != nil || seconds < 0 {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}

type recognizeWireRequest struct {
	Config recognizeWireConfig `json:"config"`
	Audio  recognizeWireAudio  `json:"audio"`
}

type recognizeWireConfig struct {
	Encoding                   string             `json:"encoding"`
	SampleRateHertz            int                `json:"sampleRateHertz"`
	LanguageCode               string             `json:"languageCode"`
	AlternativeLanguageCodes   []string           `json:"alternativeLanguageCodes,omitempty"`
	EnableWordTimeOffsets      bool               `json:"enableWordTimeOffsets"`
	EnableWordConfidence       bool               `json:"enableWordConfidence"`
	EnableAutomaticPunctuation bool               `json:"enableAutomaticPunctuation"`
	DiarizationConfig          *diarizationConfig `json:"diarizationConfig,omitempty"`
}

type diarizationConfig struct {
	EnableSpeakerDiarization bool `json:"enableSpeakerDiarization"`
	MinSpeakerCount          int  `json:"minSpeakerCount"`
	MaxSpeakerCount          int  `json:"maxSpeakerCount"`
}

type recognizeWireAudio struct {
	Content string `json:"content"`
}

type httpStatusError struct {
	StatusCode int
	Body       string
	RetryAfter time.Duration
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("stt request: http %d: %s", e.StatusCode, strings.TrimSpace(e.Body))
}

// Recognize submits one chunk of audio for synchronous transcription,
// retrying transient failures with exponential backoff. Authentication
// failures return an error wrapping ErrAuth and are never retried.
func (c *Client) Recognize(ctx context.Context, req RecognizeRequest) (*RecognizeResponse, error) {
	if len(req.Audio) == 0 {
		return nil, errors.New("stt recognize: audio required")
	}
	if strings.TrimSpace(c.cfg.BaseURL) == "" {
		return nil, errors.New("stt recognize: base url required")
	}
	if strings.TrimSpace(req.LanguageCode) == "" {
		return nil, errors.New("stt recognize: language code required")
	}

	payload := recognizeWireRequest{
		Config: recognizeWireConfig{
			Encoding:                   "LINEAR16",
			SampleRateHertz:            req.SampleRateHertz,
			LanguageCode:               req.LanguageCode,
			AlternativeLanguageCodes:   req.AlternateLanguages,
			EnableWordTimeOffsets:      true,
			EnableWordConfidence:       true,
			EnableAutomaticPunctuation: true,
		},
		Audio: recognizeWireAudio{Content: base64.StdEncoding.EncodeToString(req.Audio)},
	}
	if req.SpeakerCount > 1 {
		payload.Config.DiarizationConfig = &diarizationConfig{
			EnableSpeakerDiarization: true,
			MinSpeakerCount:          req.SpeakerCount,
			MaxSpeakerCount:          req.SpeakerCount,
		}
	}

	attempts := c.retryAttempts()
	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		response, err := c.sendRecognizeOnce(ctx, payload)
		if err == nil {
			return response, nil
		}

		delay, retry := c.retryDelay(ctx, err, attempt, attempts)
		if !retry {
			return nil, err
		}
		if sleepErr := c.sleep(ctx, delay); sleepErr != nil {
			return nil, sleepErr
		}
		lastErr = err
	}

	if lastErr == nil {
		lastErr = errors.New("unknown retry failure")
	}
	return nil, fmt.Errorf("stt recognize: failed after %d attempts: %w", attempts, lastErr)
}

// HealthCheck verifies the gateway endpoint is reachable and the credential
// is accepted without submitting audio.
func (c *Client) HealthCheck(ctx context.Context) error {
	if strings.TrimSpace(c.cfg.BaseURL) == "" {
		return errors.New("stt health: base url required")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/v1/health", nil)
	if err != nil {
		return fmt.Errorf("stt health: new request: %w", err)
	}
	c.authorize(req)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("stt health: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("stt health: %w: http %d", ErrAuth, resp.StatusCode)
	}
	if resp.StatusCode >= http.StatusInternalServerError {
		return fmt.Errorf("stt health: gateway returned %d", resp.StatusCode)
	}
	return nil
}

func (c *Client) sendRecognizeOnce(ctx context.Context, payload recognizeWireRequest) (*RecognizeResponse, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("stt request: encode body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/speech:recognize", bytes.NewReader(encoded))
	if err != nil {
		return nil, fmt.Errorf("stt request: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("stt request: http error (timeout=%s): %w", c.timeoutDuration(), err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("stt request: read body: %w", err)
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return nil, fmt.Errorf("stt request: %w: http %d: %s", ErrAuth, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		retryAfter, _ := parseRetryAfter(resp.Header.Get("Retry-After"))
		return nil, &httpStatusError{
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(body)),
			RetryAfter: retryAfter,
		}
	}

	var response RecognizeResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("stt request: decode response: %w", err)
	}
	return &response, nil
}

func (c *Client) authorize(req *http.Request) {
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
}

func (c *Client) timeoutDuration() time.Duration {
	if c == nil || c.httpClient == nil || c.httpClient.Timeout <= 0 {
		return defaultHTTPTimeout
	}
	return c.httpClient.Timeout
}

func (c *Client) retryAttempts() int {
	if c == nil || c.retryMaxAttempts <= 0 {
		return 1
	}
	return c.retryMaxAttempts
}

func (c *Client) retryDelay(ctx context.Context, err error, attempt, maxAttempts int) (time.Duration, bool) {
	if attempt >= maxAttempts {
		return 0, false
	}
	if err == nil || ctx == nil || ctx.Err() != nil {
		return 0, false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 0, false
	}
	if errors.Is(err, ErrAuth) {
		return 0, false
	}

	var statusErr *httpStatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusRequestTimeout,
			statusErr.StatusCode == http.StatusTooManyRequests,
			statusErr.StatusCode >= http.StatusInternalServerError:
			if statusErr.RetryAfter > 0 {
				return c.capDelay(statusErr.RetryAfter), true
			}
			return c.backoffDelay(attempt), true
		default:
			return 0, false
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return c.backoffDelay(attempt), true
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		// Connection resets and refused connections surface as url.Error.
		return c.backoffDelay(attempt), true
	}

	return 0, false
}

func (c *Client) backoffDelay(attempt int) time.Duration {
	base := defaultRetryBaseDelay
	maxDelay := defaultRetryMaxDelay
	if c != nil {
		if c.retryBaseDelay >= 0 {
			base = c.retryBaseDelay
		}
		if c.retryMaxDelay > 0 {
			maxDelay = c.retryMaxDelay
		}
	}
	if base <= 0 {
		return 0
	}

	// attempt 1 -> base, attempt 2 -> base*2, attempt 3 -> base*4, ...
	delay := base
	for i := 1; i < attempt; i++ {
		if delay > maxDelay/2 {
			delay = maxDelay
			break
		}
		delay *= 2
	}
	return c.capDelay(delay)
}

func (c *Client) capDelay(delay time.Duration) time.Duration {
	if delay < 0 {
		return 0
	}
	maxDelay := defaultRetryMaxDelay
	if c != nil && c.retryMaxDelay > 0 {
		maxDelay = c.retryMaxDelay
	}
	if maxDelay > 0 && delay > maxDelay {
		return maxDelay
	}
	return delay
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	if ctx == nil {
		return errors.New("stt retry: nil context")
	}
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if c != nil && c.sleeper != nil {
		c.sleeper(delay)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return nil
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func parseRetryAfter(value string) (time.Duration, bool) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, false
	}
	if seconds, err := strconv.Atoi(value); err == nil {
		if seconds < 0 {
			return 0, false
		}
		return time.Duration(seconds) * time.Second, true
	}
	if when, err := http.ParseTime(value); err == nil {
		delay := time.Until(when)
		if delay < 0 {
			return 0, false
		}
		return delay, true
	}
	return 0, false
}
