// Package registration reads and retires email registrations kept as entries
// in the Contentful Content Management API.
package registration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/shaharia-lab/restock-notifier/internal/restock"
)

const (
	defaultBaseURL     = "https://api.contentful.com"
	defaultEnvironment = "master"
	defaultContentType = "emailRegistration"
	defaultPageSize    = 100
	maxPageSize        = 1000
)

// Config holds the content store coordinates and credentials.
type Config struct {
	BaseURL          string
	SpaceID          string
	Environment      string
	AccessToken      string
	ContentType      string
	PageSize         int
	RetryMax         int
	Timeout          time.Duration
	FallbackLanguage string
}

// Client talks to the Content Management API. It is safe for concurrent use.
type Client struct {
	cfg    Config
	http   *retryablehttp.Client
	logger *slog.Logger
}

// New creates a Client. Unset config values get their defaults.
func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Environment == "" {
		cfg.Environment = defaultEnvironment
	}
	if cfg.ContentType == "" {
		cfg.ContentType = defaultContentType
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = defaultPageSize
	}
	if cfg.PageSize > maxPageSize {
		cfg.PageSize = maxPageSize
	}
	if cfg.RetryMax < 0 {
		cfg.RetryMax = 0
	}
	if logger == nil {
		logger = slog.Default()
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = cfg.RetryMax
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.Logger = nil
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler
	rc.HTTPClient.Transport = otelhttp.NewTransport(rc.HTTPClient.Transport)
	if cfg.Timeout > 0 {
		rc.HTTPClient.Timeout = cfg.Timeout
	}

	return &Client{cfg: cfg, http: rc, logger: logger}
}

type entrySys struct {
	ID               string `json:"id"`
	Version          int    `json:"version"`
	PublishedVersion int    `json:"publishedVersion"`
}

type entry struct {
	Sys    entrySys                   `json:"sys"`
	Fields map[string]json.RawMessage `json:"fields"`
}

type entryCollection struct {
	Total int     `json:"total"`
	Skip  int     `json:"skip"`
	Limit int     `json:"limit"`
	Items []entry `json:"items"`
}

// FetchRegistrations returns every registration whose related product is productID.
// Any non-2xx response fails the whole call with a FETCH_ERROR; no partial list
// is returned.
func (c *Client) FetchRegistrations(ctx context.Context, productID string) ([]restock.EmailRegistration, error) {
	const op = "fetch registrations"

	var regs []restock.EmailRegistration
	for skip := 0; ; {
		page, err := c.fetchPage(ctx, productID, skip)
		if err != nil {
			return nil, restock.NewError(restock.CodeFetchError, op, err)
		}
		for _, item := range page.Items {
			reg, ok := c.toRegistration(item, productID)
			if !ok {
				c.logger.Warn("skipping registration without email",
					"entry_id", item.Sys.ID, "product_id", productID)
				continue
			}
			regs = append(regs, reg)
		}

		skip += len(page.Items)
		if len(page.Items) == 0 || skip >= page.Total {
			break
		}
	}

	c.logger.Debug("fetched registrations", "product_id", productID, "count", len(regs))
	return regs, nil
}

func (c *Client) fetchPage(ctx context.Context, productID string, skip int) (*entryCollection, error) {
	q := url.Values{}
	q.Set("content_type", c.cfg.ContentType)
	q.Set("fields.relatedProduct.sys.id", productID)
	q.Set("limit", strconv.Itoa(c.cfg.PageSize))
	q.Set("skip", strconv.Itoa(skip))

	resp, err := c.do(ctx, http.MethodGet, c.entriesURL()+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, statusError(resp)
	}

	var page entryCollection
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		return nil, fmt.Errorf("decoding entries: %w", err)
	}
	return &page, nil
}

func (c *Client) toRegistration(item entry, productID string) (restock.EmailRegistration, bool) {
	email := strings.TrimSpace(fieldString(item.Fields["email"]))
	if email == "" {
		return restock.EmailRegistration{}, false
	}

	lang := restock.NormalizeLanguage(fieldString(item.Fields["language"]))
	if lang == "" {
		lang = c.cfg.FallbackLanguage
	}

	related := productID
	var link struct {
		Sys struct {
			ID string `json:"id"`
		} `json:"sys"`
	}
	if raw, ok := localized(item.Fields["relatedProduct"])[restock.DefaultLocale]; ok {
		if err := json.Unmarshal(raw, &link); err == nil && link.Sys.ID != "" {
			related = link.Sys.ID
		}
	}

	return restock.EmailRegistration{
		Email:            email,
		EntryID:          item.Sys.ID,
		Language:         lang,
		RelatedProductID: related,
	}, true
}

// DeleteRegistration removes the entry. A published entry is unpublished first.
// An entry that no longer exists counts as deleted.
func (c *Client) DeleteRegistration(ctx context.Context, entryID string) error {
	const op = "delete registration"
	if entryID == "" {
		return restock.NewError(restock.CodeDeleteError, op, errors.New("empty entry id"))
	}

	status, err := c.deleteEntry(ctx, entryID)
	if err != nil {
		return restock.NewError(restock.CodeDeleteError, op, err)
	}
	switch {
	case status == http.StatusNotFound:
		c.logger.Debug("registration already gone", "entry_id", entryID)
		return nil
	case status >= 200 && status <= 299:
		return nil
	case status != http.StatusBadRequest && status != http.StatusConflict && status != http.StatusUnprocessableEntity:
		return restock.NewError(restock.CodeDeleteError, op, fmt.Errorf("status %d", status))
	}

	// The API refuses to delete published entries.
	if err := c.unpublish(ctx, entryID); err != nil {
		return restock.NewError(restock.CodeDeleteError, op, err)
	}
	status, err = c.deleteEntry(ctx, entryID)
	if err != nil {
		return restock.NewError(restock.CodeDeleteError, op, err)
	}
	if status != http.StatusNotFound && (status < 200 || status > 299) {
		return restock.NewError(restock.CodeDeleteError, op, fmt.Errorf("status %d after unpublish", status))
	}
	return nil
}

func (c *Client) deleteEntry(ctx context.Context, entryID string) (int, error) {
	resp, err := c.do(ctx, http.MethodDelete, c.entryURL(entryID), nil)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.StatusCode, nil
}

func (c *Client) unpublish(ctx context.Context, entryID string) error {
	resp, err := c.do(ctx, http.MethodGet, c.entryURL(entryID), nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("loading entry before unpublish: %w", statusError(resp))
	}
	var e entry
	if err := json.NewDecoder(resp.Body).Decode(&e); err != nil {
		return fmt.Errorf("decoding entry: %w", err)
	}
	if e.Sys.PublishedVersion == 0 {
		return fmt.Errorf("entry %s cannot be deleted and is not published", entryID)
	}

	headers := http.Header{}
	headers.Set("X-Contentful-Version", strconv.Itoa(e.Sys.Version))
	uresp, err := c.do(ctx, http.MethodDelete, c.entryURL(entryID)+"/published", headers)
	if err != nil {
		return err
	}
	defer uresp.Body.Close()
	if uresp.StatusCode < 200 || uresp.StatusCode > 299 {
		return fmt.Errorf("unpublishing entry: %w", statusError(uresp))
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, rawURL string, headers http.Header) (*http.Response, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, method, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.AccessToken)
	req.Header.Set("Content-Type", "application/vnd.contentful.management.v1+json")
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, req.URL.Path, err)
	}
	return resp, nil
}

func (c *Client) entriesURL() string {
	return fmt.Sprintf("%s/spaces/%s/environments/%s/entries",
		c.cfg.BaseURL, url.PathEscape(c.cfg.SpaceID), url.PathEscape(c.cfg.Environment))
}

func (c *Client) entryURL(entryID string) string {
	return c.entriesURL() + "/" + url.PathEscape(entryID)
}

func statusError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		return fmt.Errorf("status %s", resp.Status)
	}
	return fmt.Errorf("status %s: %s", resp.Status, msg)
}

func localized(raw json.RawMessage) map[string]json.RawMessage {
	if len(raw) == 0 {
		return nil
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}

// fieldString returns the value of a localized string field in the default locale.
func fieldString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(localized(raw)[restock.DefaultLocale], &s); err != nil {
		return ""
	}
	return s
}
