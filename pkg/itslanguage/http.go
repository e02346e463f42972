package itslanguage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
)

const userAgent = "itslanguage-go/1.0"

const headerRequestID = "X-Request-Id"

// httpClient handles HTTP communication with the ITSLanguage API.
type httpClient struct {
	client *resty.Client
	logger *slog.Logger
}

// newHTTPClient creates a new HTTP client.
func newHTTPClient(cfg *clientConfig) *httpClient {
	var rc *resty.Client
	if cfg.httpClient != nil {
		rc = resty.NewWithClient(cfg.httpClient)
	} else {
		rc = resty.New().SetTimeout(cfg.timeout)
	}

	rc.SetBaseURL(strings.TrimRight(cfg.apiURL, "/")).
		SetHeader("Accept", "application/json").
		SetHeader("User-Agent", userAgent).
		SetLogger(restyLogger{cfg.logger}).
		SetRetryCount(cfg.maxRetries).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(4 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil {
				return true
			}
			return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500
		})

	switch {
	case cfg.oauth2Token != "":
		rc.SetAuthToken(cfg.oauth2Token)
	case cfg.principal != "":
		rc.SetBasicAuth(cfg.principal, cfg.credentials)
	}

	rc.OnBeforeRequest(func(_ *resty.Client, r *resty.Request) error {
		if r.Header.Get(headerRequestID) == "" {
			r.SetHeader(headerRequestID, uuid.NewString())
		}
		return nil
	})

	return &httpClient{client: rc, logger: cfg.logger}
}

// request makes a JSON request to the API. Retries are handled by resty.
func (h *httpClient) request(ctx context.Context, method, path string, body any, result any) error {
	req := h.client.R().SetContext(ctx)
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	return h.execute(req, method, path, result)
}

// requestQuery makes a GET request with query parameters.
func (h *httpClient) requestQuery(ctx context.Context, path string, query map[string][]string, result any) error {
	req := h.client.R().SetContext(ctx)
	if len(query) > 0 {
		req.SetQueryParamsFromValues(query)
	}
	return h.execute(req, http.MethodGet, path, result)
}

// uploadFile posts a multipart form with one file part.
//
// The body is buffered so retries resend the whole form.
func (h *httpClient) uploadFile(ctx context.Context, path, fileField, filename string, file io.Reader, fields map[string]string, result any) error {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	for key, value := range fields {
		if value == "" {
			continue
		}
		if err := writer.WriteField(key, value); err != nil {
			return fmt.Errorf("itslanguage: write field %s: %w", key, err)
		}
	}
	if file != nil {
		part, err := writer.CreateFormFile(fileField, filename)
		if err != nil {
			return fmt.Errorf("itslanguage: create form file: %w", err)
		}
		if _, err := io.Copy(part, file); err != nil {
			return fmt.Errorf("itslanguage: copy file: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("itslanguage: close multipart writer: %w", err)
	}

	req := h.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", writer.FormDataContentType()).
		SetBody(buf.Bytes())
	return h.execute(req, http.MethodPost, path, result)
}

// download fetches url (absolute, or relative to the base URL) as a stream.
// The caller must close the returned body.
func (h *httpClient) download(ctx context.Context, url string) (io.ReadCloser, error) {
	resp, err := h.client.R().
		SetContext(ctx).
		SetHeader("Accept", "*/*").
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("itslanguage: GET %s: %w", url, err)
	}
	body := resp.RawBody()
	if resp.StatusCode() >= 400 {
		defer body.Close()
		data, _ := io.ReadAll(io.LimitReader(body, 64<<10))
		return nil, &APIError{
			StatusCode: resp.StatusCode(),
			Message:    strings.TrimSpace(string(data)),
			RequestID:  resp.Request.Header.Get(headerRequestID),
		}
	}
	return body, nil
}

func (h *httpClient) execute(req *resty.Request, method, path string, result any) error {
	apiErr := &APIError{}
	req.SetError(apiErr)
	if result != nil {
		req.SetResult(result)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("itslanguage: %s %s: %w", method, path, err)
	}

	h.logger.Debug("itslanguage: request",
		"method", method,
		"path", path,
		"status", resp.StatusCode(),
		"request_id", resp.Request.Header.Get(headerRequestID),
		"duration", resp.Time(),
	)

	if resp.IsError() {
		apiErr.StatusCode = resp.StatusCode()
		apiErr.RequestID = resp.Request.Header.Get(headerRequestID)
		if apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(resp.String())
		}
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode())
		}
		return apiErr
	}
	return nil
}

// restyLogger routes resty's logging to slog.
type restyLogger struct {
	logger *slog.Logger
}

func (l restyLogger) Errorf(format string, v ...any) {
	l.logger.Error("itslanguage: http: " + strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l restyLogger) Warnf(format string, v ...any) {
	l.logger.Warn("itslanguage: http: " + strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l restyLogger) Debugf(format string, v ...any) {
	l.logger.Debug("itslanguage: http: " + strings.TrimSpace(fmt.Sprintf(format, v...)))
}
