// Package pcloudapi is the remote API adapter (C1): it issues authenticated
// HTTP requests against the pCloud JSON-over-HTTPS API, decodes tolerant
// responses, and maps remote result codes to typed errors.
package pcloudapi

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/net/http2"

	"github.com/rescale-labs/pcloud-engine/internal/config"
	"github.com/rescale-labs/pcloud-engine/internal/constants"
	"github.com/rescale-labs/pcloud-engine/internal/logging"
)

// retryLogger adapts *logging.Logger to retryablehttp.LeveledLogger, matching
// the teacher's internal/api/client.go retryLogger shape.
type retryLogger struct {
	log *logging.Logger
}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.log.Error().Fields(fieldsFrom(keysAndValues)).Msg(msg)
}
func (l *retryLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(fieldsFrom(keysAndValues)).Msg(msg)
}
func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(fieldsFrom(keysAndValues)).Msg(msg)
}
func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.log.Warn().Fields(fieldsFrom(keysAndValues)).Msg(msg)
}

func fieldsFrom(kv []interface{}) map[string]interface{} {
	m := make(map[string]interface{}, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok {
			m[k] = kv[i+1]
		}
	}
	return m
}

// Client talks to one pCloud region on behalf of one authenticated session.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	limiter    *rateLimiter
	log        *logging.Logger
}

// NewClient builds a Client for the given region and credentials, tuning its
// transport the way the teacher's internal/http/client.go does: HTTP/2
// forced, TLS 1.2 minimum, bounded connection pool, retry transport wrapping
// everything.
func NewClient(region config.Region, token string, workers int, log *logging.Logger) (*Client, error) {
	return NewClientWithBaseURL(region.BaseURL(), token, workers, log)
}

// NewClientWithBaseURL is the same as NewClient but takes an explicit base
// URL instead of a region, for pointing the adapter at a test double or a
// region not in config.Region.
func NewClientWithBaseURL(baseURL, token string, workers int, log *logging.Logger) (*Client, error) {
	if log == nil {
		log = logging.Default()
	}
	if workers <= 0 {
		workers = 8
	}

	transport := &http.Transport{
		MaxIdleConns:          workers * 4,
		MaxIdleConnsPerHost:   workers * 2,
		MaxConnsPerHost:       workers * 2,
		IdleConnTimeout:       constants.HTTPIdleConnTimeout,
		TLSHandshakeTimeout:   constants.HTTPTLSHandshakeTimeout,
		ExpectContinueTimeout: constants.HTTPExpectContinueTimeout,
		ForceAttemptHTTP2:     true,
		TLSClientConfig: &tls.Config{
			MinVersion: tls.VersionTLS12,
		},
	}
	if err := http2.ConfigureTransport(transport); err != nil {
		return nil, fmt.Errorf("pcloudapi: configuring http2 transport: %w", err)
	}

	baseClient := &http.Client{
		Transport: transport,
		Timeout:   0, // operation-level timeouts are applied via context
	}

	// Retry lives one layer up, in transfer.Coordinator's deterministic
	// backoff (§8 scenario 3). retryablehttp is used for its transport
	// plumbing and CheckRetry classification only; RetryMax=0 keeps a single
	// attempt here so the coordinator's {1s, 2s} schedule stays the only
	// retry loop on the call path.
	rc := retryablehttp.NewClient()
	rc.HTTPClient = baseClient
	rc.Logger = &retryLogger{log: log}
	rc.RetryMax = 0
	rc.RetryWaitMin = constants.RetryInitialDelay
	rc.RetryWaitMax = constants.RetryMaxDelay
	rc.CheckRetry = retryPolicy

	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: rc.StandardClient(),
		limiter:    newRateLimiter(10, 20),
		log:        log,
	}, nil
}

// retryPolicy retries on connection errors and 5xx responses only (§4.5, §7):
// application-level errors surface via the decoded result code instead, so
// the transport layer never needs to inspect the body.
func retryPolicy(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if err != nil {
		return true, nil
	}
	if resp != nil && resp.StatusCode >= 500 {
		return true, nil
	}
	return false, nil
}

func (c *Client) call(ctx context.Context, method string, params url.Values, body io.Reader, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	if params == nil {
		params = url.Values{}
	}
	if method != "userinfo" || c.token != "" {
		params.Set("auth", c.token)
	}

	endpoint := fmt.Sprintf("%s/%s?%s", c.baseURL, method, params.Encode())

	var req *http.Request
	var err error
	if body != nil {
		// Streaming upload body: parameters travel on the query string, the
		// body itself is the raw file content (§4.1: "upload bodies are
		// application/octet-stream").
		req, err = http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
		if err == nil {
			req.Header.Set("Content-Type", "application/octet-stream")
		}
	} else {
		req, err = http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	}
	if err != nil {
		return fmt.Errorf("pcloudapi: building request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &networkError{err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 500 {
		return &networkError{err: fmt.Errorf("pcloud: http %d", resp.StatusCode)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &networkError{err: fmt.Errorf("reading response: %w", err)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("pcloudapi: decoding %s response: %w", method, err)
	}
	if b, ok := out.(interface{ captureExtra([]byte) error }); ok {
		if err := b.captureExtra(data); err != nil {
			return fmt.Errorf("pcloudapi: decoding %s response: %w", method, err)
		}
	}
	return nil
}

// networkError marks a failure as §7 "Network" — retryable by the
// coordinator, which owns the only retry loop (the adapter's transport makes
// a single attempt, RetryMax=0).
type networkError struct{ err error }

func (e *networkError) Error() string   { return e.err.Error() }
func (e *networkError) Unwrap() error   { return e.err }
func (e *networkError) Retryable() bool { return true }

// RetryableError is implemented by errors the transport layer has already
// classified as transient, so callers outside this package (the transfer
// coordinator, and tests) can recognize them without depending on the
// unexported concrete type.
type RetryableError interface {
	error
	Retryable() bool
}

// IsNetworkError reports whether err originated in the transport layer
// rather than as a decoded application result.
func IsNetworkError(err error) bool {
	var re RetryableError
	return errors.As(err, &re) && re.Retryable()
}

func checkResult(code int, message string) error {
	if code == ResultSuccess {
		return nil
	}
	return NewAPIError(code, message)
}

// Login exchanges a username/password pair for an auth token. Never logged.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	params := url.Values{"getauth": {"1"}, "username": {username}, "password": {password}}
	var out userInfoResult
	if err := c.call(ctx, "userinfo", params, nil, &out); err != nil {
		return "", err
	}
	if err := checkResult(out.Result, out.Error); err != nil {
		return "", err
	}
	c.token = out.Auth
	return out.Auth, nil
}

// ListFolder lists the contents of a remote folder path.
func (c *Client) ListFolder(ctx context.Context, path string) ([]FileItem, error) {
	params := url.Values{"path": {path}}
	var out listFolderResult
	if err := c.call(ctx, "listfolder", params, nil, &out); err != nil {
		return nil, err
	}
	if err := checkResult(out.Result, out.Error); err != nil {
		return nil, err
	}
	return out.Metadata.Contents, nil
}

// CreateFolder creates a remote folder path, tolerating "already exists".
func (c *Client) CreateFolder(ctx context.Context, path string) error {
	params := url.Values{"path": {path}}
	var out baseResult
	if err := c.call(ctx, "createfolder", params, nil, &out); err != nil {
		return err
	}
	if out.Result == 2004 { // "File or folder already exists."
		return nil
	}
	return checkResult(out.Result, out.Error)
}

// DeleteFile deletes a single remote file by path.
func (c *Client) DeleteFile(ctx context.Context, path string) error {
	params := url.Values{"path": {path}}
	var out baseResult
	if err := c.call(ctx, "deletefile", params, nil, &out); err != nil {
		return err
	}
	return checkResult(out.Result, out.Error)
}

// RenameFile renames/moves a remote file from one path to another.
func (c *Client) RenameFile(ctx context.Context, fromPath, toPath string) error {
	params := url.Values{"path": {fromPath}, "topath": {toPath}}
	var out baseResult
	if err := c.call(ctx, "renamefile", params, nil, &out); err != nil {
		return err
	}
	return checkResult(out.Result, out.Error)
}

// GetFileLink returns a streaming download URL for a remote file path.
func (c *Client) GetFileLink(ctx context.Context, path string) (string, error) {
	params := url.Values{"path": {path}}
	var out getFileLinkResult
	if err := c.call(ctx, "getfilelink", params, nil, &out); err != nil {
		return "", err
	}
	if err := checkResult(out.Result, out.Error); err != nil {
		return "", err
	}
	if len(out.Hosts) == 0 {
		return "", fmt.Errorf("pcloudapi: no hosts returned for download link")
	}
	return fmt.Sprintf("https://%s%s", out.Hosts[0], out.Path), nil
}

// DownloadFile resolves path to a streaming link and opens it, returning the
// response body for the caller to copy and the advertised content length (-1
// if the server did not send one). The caller must close the returned body.
func (c *Client) DownloadFile(ctx context.Context, path string) (io.ReadCloser, int64, error) {
	link, err := c.GetFileLink(ctx, path)
	if err != nil {
		return nil, 0, err
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("pcloudapi: building download request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, &networkError{err: err}
	}
	if resp.StatusCode >= 500 {
		resp.Body.Close()
		return nil, 0, &networkError{err: fmt.Errorf("pcloud: download http %d", resp.StatusCode)}
	}
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, 0, fmt.Errorf("pcloudapi: download http %d", resp.StatusCode)
	}

	return resp.Body, resp.ContentLength, nil
}

// UploadFile performs a single-request upload of body into remoteFolder
// under fileName.
func (c *Client) UploadFile(ctx context.Context, remoteFolder, fileName string, body io.Reader) (*FileItem, error) {
	params := url.Values{"path": {remoteFolder}, "filename": {fileName}}
	var out uploadFileResult
	if err := c.call(ctx, "uploadfile", params, body, &out); err != nil {
		return nil, err
	}
	if err := checkResult(out.Result, out.Error); err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("pcloudapi: upload response carried no file metadata")
	}
	return &out.Items[0], nil
}

// BeginChunkedUpload opens a multi-request upload session for a large file.
func (c *Client) BeginChunkedUpload(ctx context.Context) (int64, error) {
	var out beginUploadResult
	if err := c.call(ctx, "upload_create", nil, nil, &out); err != nil {
		return 0, err
	}
	if err := checkResult(out.Result, out.Error); err != nil {
		return 0, err
	}
	return out.UploadID, nil
}

// WriteChunk writes one chunk of a chunked upload at the given byte offset.
func (c *Client) WriteChunk(ctx context.Context, uploadID, offset int64, chunk io.Reader) error {
	params := url.Values{
		"uploadid": {fmt.Sprintf("%d", uploadID)},
		"uploadoffset": {fmt.Sprintf("%d", offset)},
	}
	var out baseResult
	if err := c.call(ctx, "upload_write", params, chunk, &out); err != nil {
		return err
	}
	return checkResult(out.Result, out.Error)
}

// FinishChunkedUpload assembles previously written chunks into a remote file.
func (c *Client) FinishChunkedUpload(ctx context.Context, uploadID int64, remoteFolder, fileName string) (*FileItem, error) {
	params := url.Values{
		"uploadid": {fmt.Sprintf("%d", uploadID)},
		"path":     {remoteFolder},
		"filename": {fileName},
	}
	var out uploadFileResult
	if err := c.call(ctx, "upload_save", params, nil, &out); err != nil {
		return nil, err
	}
	if err := checkResult(out.Result, out.Error); err != nil {
		return nil, err
	}
	if len(out.Items) == 0 {
		return nil, fmt.Errorf("pcloudapi: upload_save response carried no file metadata")
	}
	return &out.Items[0], nil
}

// AccountInfo returns the authenticated account's quota usage.
type AccountInfo struct {
	Email     string
	UserID    int64
	Quota     int64
	UsedQuota int64
}

// AccountInfo fetches the authenticated account's profile and quota.
func (c *Client) AccountInfo(ctx context.Context) (*AccountInfo, error) {
	var out userInfoResult
	if err := c.call(ctx, "userinfo", nil, nil, &out); err != nil {
		return nil, err
	}
	if err := checkResult(out.Result, out.Error); err != nil {
		return nil, err
	}
	return &AccountInfo{Email: out.Email, UserID: out.UserID, Quota: out.Quota, UsedQuota: out.UsedQuota}, nil
}

// Token returns the session's current auth token.
func (c *Client) Token() string { return c.token }

// HTTPTimeout wraps ctx with the adapter's global per-request ceiling,
// independent of the coordinator's larger per-file timeout (§5).
func (c *Client) HTTPTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, constants.HTTPRequestTimeout)
}
