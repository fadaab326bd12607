// Package airtable implements the guest store on top of an Airtable table.
package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gojektech/heimdall/v6/httpclient"
	"github.com/rs/zerolog"

	"guest-checkin/internal/checkin"
	"guest-checkin/internal/models"
)

const (
	DefaultAPIURL  = "https://api.airtable.com/v0"
	defaultTimeout = 15 * time.Second
)

// Config identifies the table and credentials
type Config struct {
	APIURL  string
	BaseID  string
	Table   string
	Token   string
	Timeout time.Duration
	// HTTPClient replaces the underlying client, mostly for tests
	HTTPClient *http.Client
}

// Client is a checkin.Store backed by one Airtable table
type Client struct {
	client   *httpclient.Client
	endpoint string
	token    string
	log      zerolog.Logger
}

var _ checkin.Store = (*Client)(nil)

// NewClient creates a client for cfg. Requests are never retried.
func NewClient(cfg Config, log zerolog.Logger) *Client {
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}

	return &Client{
		client: httpclient.NewClient(
			httpclient.WithHTTPClient(hc),
			httpclient.WithRetryCount(0),
		),
		endpoint: strings.TrimRight(cfg.APIURL, "/") + "/" + url.PathEscape(cfg.BaseID) + "/" + url.PathEscape(cfg.Table),
		token:    cfg.Token,
		log:      log.With().Str("component", "airtable").Logger(),
	}
}

type record struct {
	ID     string         `json:"id,omitempty"`
	Fields map[string]any `json:"fields"`
}

type listResponse struct {
	Records []record `json:"records"`
}

type envelope struct {
	Error json.RawMessage `json:"error"`
}

// Formula renders q as an Airtable filterByFormula expression
func Formula(q models.Query) string {
	if q.Match == models.MatchContains {
		return fmt.Sprintf("SEARCH('%s', {%s})", quote(q.Value), q.Field)
	}
	return fmt.Sprintf("{%s}='%s'", q.Field, quote(q.Value))
}

func quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return strings.ReplaceAll(s, `'`, `\'`)
}

// Search lists the records matching q. Only the first page is read; the
// resolver only ever uses the first match.
func (c *Client) Search(ctx context.Context, q models.Query) ([]models.StoredRecord, error) {
	formula := Formula(q)
	c.log.Debug().Str("formula", formula).Msg("Searching table")

	body, err := c.do(ctx, "search", http.MethodGet, c.endpoint+"?filterByFormula="+url.QueryEscape(formula), nil)
	if err != nil {
		return nil, err
	}

	var resp listResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &checkin.StoreError{Op: "search", Message: "malformed response", Err: err}
	}
	out := make([]models.StoredRecord, 0, len(resp.Records))
	for _, r := range resp.Records {
		out = append(out, r.stored())
	}
	return out, nil
}

// Update patches fields on the record with the given id
func (c *Client) Update(ctx context.Context, id string, fields map[string]any) (models.StoredRecord, error) {
	return c.mutate(ctx, "update", http.MethodPatch, c.endpoint+"/"+url.PathEscape(id), fields)
}

// Create inserts a new record
func (c *Client) Create(ctx context.Context, fields map[string]any) (models.StoredRecord, error) {
	return c.mutate(ctx, "create", http.MethodPost, c.endpoint, fields)
}

func (c *Client) mutate(ctx context.Context, op, method, target string, fields map[string]any) (models.StoredRecord, error) {
	payload, err := json.Marshal(record{Fields: fields})
	if err != nil {
		return models.StoredRecord{}, &checkin.StoreError{Op: op, Message: "encode fields", Err: err}
	}
	body, err := c.do(ctx, op, method, target, payload)
	if err != nil {
		return models.StoredRecord{}, err
	}

	var r record
	if err := json.Unmarshal(body, &r); err != nil {
		return models.StoredRecord{}, &checkin.StoreError{Op: op, Message: "malformed response", Err: err}
	}
	if r.ID == "" {
		return models.StoredRecord{}, &checkin.StoreError{Op: op, Message: "response carries no record id"}
	}
	return r.stored(), nil
}

// do sends one request and returns the body. The body is checked for an
// error member before the status, because Airtable can report failures
// inside an otherwise successful response.
func (c *Client) do(ctx context.Context, op, method, target string, payload []byte) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return nil, &checkin.StoreError{Op: op, Message: "build request", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &checkin.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &checkin.TransportError{Op: op, Err: err}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, &checkin.StoreError{Op: op, Message: fmt.Sprintf("malformed response (status %d)", resp.StatusCode), Err: err}
	}
	if msg := errorMessage(env.Error); msg != "" {
		c.log.Error().Str("op", op).Int("status", resp.StatusCode).Str("error", msg).Msg("Airtable error")
		return nil, &checkin.StoreError{Op: op, Message: msg}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &checkin.StoreError{Op: op, Message: resp.Status}
	}
	return body, nil
}

// errorMessage flattens the two error shapes Airtable uses: a bare string
// such as "NOT_FOUND", or an object with type and message.
func errorMessage(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var code string
	if err := json.Unmarshal(raw, &code); err == nil {
		return code
	}
	var obj struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &obj); err == nil {
		switch {
		case obj.Type != "" && obj.Message != "":
			return obj.Type + ": " + obj.Message
		case obj.Message != "":
			return obj.Message
		case obj.Type != "":
			return obj.Type
		}
	}
	return string(raw)
}

func (r record) stored() models.StoredRecord {
	fields := r.Fields
	if fields == nil {
		fields = map[string]any{}
	}
	return models.StoredRecord{ID: r.ID, Fields: fields}
}
