// Package sap is a small client for the SAP Business One Service Layer.
package sap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/denysvitali/wms-backend/pkg/apperr"
)

const (
	DefaultSerialQuery   = "Invoise_creation"
	DefaultLookupTimeout = 30 * time.Second
	DefaultSubmitTimeout = 60 * time.Second

	basePath = "/b1s/v1"
)

var log = logrus.StandardLogger().WithField("package", "sap")

type Config struct {
	URL       string
	CompanyDB string
	Username  string
	Password  string
	// SerialQuery is the name of the stored SQL query used to look up
	// serial numbers.
	SerialQuery   string
	LookupTimeout time.Duration
	SubmitTimeout time.Duration
}

type Client struct {
	http     *http.Client
	endpoint *url.URL
	config   Config

	mutex         sync.Mutex
	loggedIn      bool
	sessionExpiry time.Time
}

// Response is a raw Service Layer answer.
type Response struct {
	StatusCode int
	Body       []byte
}

func New(config Config) (*Client, error) {
	u, err := url.Parse(config.URL)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("scheme %s is not supported", u.Scheme)
	}
	if config.SerialQuery == "" {
		config.SerialQuery = DefaultSerialQuery
	}
	if config.LookupTimeout == 0 {
		config.LookupTimeout = DefaultLookupTimeout
	}
	if config.SubmitTimeout == 0 {
		config.SubmitTimeout = DefaultSubmitTimeout
	}

	// B1SESSION and ROUTEID are kept in the jar
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	return &Client{
		http:     &http.Client{Jar: jar},
		endpoint: u,
		config:   config,
	}, nil
}

func (c *Client) SetHttpTransport(transport http.RoundTripper) {
	c.http.Transport = transport
}

type loginRequest struct {
	CompanyDB string `json:"CompanyDB"`
	UserName  string `json:"UserName"`
	Password  string `json:"Password"`
}

type loginResponse struct {
	SessionId      string `json:"SessionId"`
	Version        string `json:"Version"`
	SessionTimeout int    `json:"SessionTimeout"`
}

// Login opens a new Service Layer session.
func (c *Client) Login(ctx context.Context) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.login(ctx)
}

func (c *Client) login(ctx context.Context) error {
	body, err := json.Marshal(loginRequest{
		CompanyDB: c.config.CompanyDB,
		UserName:  c.config.Username,
		Password:  c.config.Password,
	})
	if err != nil {
		return fmt.Errorf("unable to encode login request: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.config.LookupTimeout)
	defer cancel()
	res, err := c.send(ctx, http.MethodPost, "/Login", nil, nil, body)
	if err != nil {
		return err
	}
	if res.StatusCode != http.StatusOK {
		c.loggedIn = false
		return apperr.Rejected(res.StatusCode, fmt.Sprintf("SAP login failed: %s", errorMessage(res)))
	}

	var lr loginResponse
	if err := json.Unmarshal(res.Body, &lr); err != nil {
		return apperr.Rejected(res.StatusCode, fmt.Sprintf("invalid SAP login response: %v", err))
	}
	timeout := time.Duration(lr.SessionTimeout) * time.Minute
	if timeout <= 0 {
		timeout = 30 * time.Minute
	}
	c.loggedIn = true
	// renew a minute early
	c.sessionExpiry = time.Now().Add(timeout - time.Minute)
	log.Debugf("logged in to %s (session timeout %s)", c.config.CompanyDB, timeout)
	return nil
}

func (c *Client) ensureLoggedIn(ctx context.Context) error {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	if c.loggedIn && time.Now().Before(c.sessionExpiry) {
		return nil
	}
	return c.login(ctx)
}

func (c *Client) invalidateSession() {
	c.mutex.Lock()
	c.loggedIn = false
	c.mutex.Unlock()
}

// Get performs an authenticated GET on a path relative to /b1s/v1.
func (c *Client) Get(ctx context.Context, path string, query url.Values, header http.Header) (*Response, error) {
	return c.do(ctx, http.MethodGet, path, query, header, nil)
}

// Post performs an authenticated POST of body encoded as JSON.
func (c *Client) Post(ctx context.Context, path string, body any) (*Response, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("unable to encode request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, nil, nil, b)
}

func (c *Client) do(ctx context.Context, method string, path string, query url.Values, header http.Header, body []byte) (*Response, error) {
	if err := c.ensureLoggedIn(ctx); err != nil {
		return nil, err
	}
	res, err := c.send(ctx, method, path, query, header, body)
	if err != nil {
		return nil, err
	}
	if res.StatusCode == http.StatusUnauthorized {
		log.Debugf("session expired, logging in again")
		c.invalidateSession()
		if err := c.ensureLoggedIn(ctx); err != nil {
			return nil, err
		}
		return c.send(ctx, method, path, query, header, body)
	}
	return res, nil
}

func (c *Client) send(ctx context.Context, method string, path string, query url.Values, header http.Header, body []byte) (*Response, error) {
	u, err := c.endpoint.Parse(basePath + path)
	if err != nil {
		return nil, fmt.Errorf("unable to parse URL: %v", err)
	}
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return nil, fmt.Errorf("unable to create request: %v", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return nil, apperr.Unavailable(fmt.Errorf("%s %s: %w", method, path, err))
	}
	defer res.Body.Close()

	b, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, apperr.Unavailable(fmt.Errorf("%s %s: unable to read body: %w", method, path, err))
	}
	log.Debugf("%s %s: %s", method, path, res.Status)
	return &Response{StatusCode: res.StatusCode, Body: b}, nil
}

type serviceLayerError struct {
	Error struct {
		Code    json.RawMessage `json:"code"`
		Message json.RawMessage `json:"message"`
	} `json:"error"`
}

// errorMessage extracts error.message.value (or error.message when it is a
// plain string) from a Service Layer error body, falling back to the raw
// body and finally to the status code.
func errorMessage(res *Response) string {
	var sle serviceLayerError
	if err := json.Unmarshal(res.Body, &sle); err == nil && len(sle.Error.Message) > 0 {
		var msg struct {
			Value string `json:"value"`
		}
		if err := json.Unmarshal(sle.Error.Message, &msg); err == nil && msg.Value != "" {
			return msg.Value
		}
		var s string
		if err := json.Unmarshal(sle.Error.Message, &s); err == nil && s != "" {
			return s
		}
	}
	if text := bytes.TrimSpace(res.Body); len(text) > 0 {
		return string(text)
	}
	return fmt.Sprintf("SAP returned status %d", res.StatusCode)
}
