package detect

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
)

// ErrEmptyResult means the service answered but returned no annotated image,
// i.e. nothing was detected.
var ErrEmptyResult = errors.New("no detection result")

// Detection is a single detected object with its confidence as a percentage
// in [0,100].
type Detection struct {
	Class      string  `json:"class"`
	Confidence float64 `json:"confidence"`
}

// Summary describes what the model found: the detected class names in
// detection order, how many of each, and the per-detection records.
type Summary struct {
	DetectedClasses []string       `json:"detected_classes"`
	ClassCounts     map[string]int `json:"class_counts"`
	Detailed        []Detection    `json:"detailed"`
}

// TopClass returns the first detected class name, or "" if none.
func (s *Summary) TopClass() string {
	if s == nil || len(s.DetectedClasses) == 0 {
		return ""
	}
	return s.DetectedClasses[0]
}

// predictResponse is the raw JSON body from the prediction service.
type predictResponse struct {
	ResultImage string   `json:"result_image"`
	Summary     *Summary `json:"summary"`
}

// Result is the client-facing prediction outcome. ResultImageURL is absolute,
// resolved against the service origin.
type Result struct {
	ResultImageURL string
	Summary        *Summary
}

// Client talks to the external prediction service.
type Client struct {
	httpClient *resty.Client
	baseURL    string
}

// NewClient creates a client for the prediction service at baseURL
// (scheme://host[:port], no trailing slash required).
func NewClient(baseURL string) *Client {
	c := Client{baseURL: strings.TrimRight(baseURL, "/")}
	c.httpClient = resty.New().
		SetBaseURL(c.baseURL).
		SetHeader("Accept", "application/json")

	return &c
}

// BaseURL returns the service origin the client was created with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Predict uploads the image as the single multipart "file" field to
// POST /predict/{model} and decodes the response. A 2xx response without a
// result image yields ErrEmptyResult.
func (c *Client) Predict(ctx context.Context, model Model, filename string, image []byte) (*Result, error) {
	result := &predictResponse{}

	_, err := handleError(c.httpClient.NewRequest().
		SetContext(ctx).
		SetFileReader("file", filename, bytes.NewReader(image)).
		SetResult(result).
		SetPathParam("model", string(model)).
		Post("/predict/{model}"))
	if err != nil {
		return nil, err
	}

	if result.ResultImage == "" {
		return nil, ErrEmptyResult
	}

	return &Result{
		ResultImageURL: c.resolveImageURL(result.ResultImage),
		Summary:        result.Summary,
	}, nil
}

// CheckHealth pings the service origin. Used at startup to warn early when
// the backend is down; the UI still starts either way.
func (c *Client) CheckHealth(ctx context.Context) error {
	res, err := c.httpClient.NewRequest().SetContext(ctx).Get("/")
	if err != nil {
		return err
	}
	if res.StatusCode() >= 500 {
		return fmt.Errorf("prediction service unhealthy: status %d", res.StatusCode())
	}
	return nil
}

// resolveImageURL prefixes the service-relative result path with the origin.
func (c *Client) resolveImageURL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.baseURL + path
}

// handleError is a generic error handler for failing responses (>399 status
// code). Without this, failing responses would have nil error.
func handleError(res *resty.Response, err error) (*resty.Response, error) {
	if err != nil {
		return res, err
	}
	if res.IsError() {
		return res, fmt.Errorf("request failed: %s %s (status: %d)", res.Request.Method, res.Request.URL, res.StatusCode())
	}

	return res, nil
}
