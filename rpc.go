package transmission

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/jfxdev/go-transmission/request"
)

// ResultSuccess is the result string of a successful call.
const ResultSuccess = "success"

const maxErrorBody = 512

type envelope struct {
	Method    string         `json:"method"`
	Arguments map[string]any `json:"arguments"`
	Tag       int            `json:"tag,omitempty"`
}

// Call sends an RPC request and returns the normalized result: dashed keys
// use underscores, digit-keyed objects become slices and empty values are
// pruned. A result other than "success" is not an error here; check
// Response.Err.
func (c *Client) Call(ctx context.Context, method string, args Args) (*Response, error) {
	decoded, err := c.roundTrip(ctx, method, args)
	if err != nil {
		return nil, err
	}

	resp := &Response{Result: decoded["result"].(string)}
	if tag, ok := decoded["tag"].(float64); ok {
		resp.Tag = int(tag)
	}
	if arguments, ok := NormalizeResult(decoded["arguments"]).(map[string]any); ok {
		resp.Arguments = arguments
	}
	return resp, nil
}

// CallRaw sends an RPC request and returns the decoded body untouched.
func (c *Client) CallRaw(ctx context.Context, method string, args Args) (map[string]any, error) {
	return c.roundTrip(ctx, method, args)
}

func (c *Client) roundTrip(ctx context.Context, method string, args Args) (decoded map[string]any, err error) {
	if strings.TrimSpace(method) == "" {
		return nil, invalidArgument("method name must not be empty")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()
	defer func() {
		c.observe(method, start, err)
	}()

	arguments := SanitizeArguments(args)
	if arguments == nil {
		arguments = map[string]any{}
	}

	payload, err := json.Marshal(envelope{Method: method, Arguments: arguments, Tag: c.nextTag()})
	if err != nil {
		return nil, NewClientError(ErrorCodeInvalidArgument, "cannot encode arguments", err, true)
	}

	if c.SessionID() == "" {
		if _, err := c.acquireSessionID(ctx); err != nil {
			return nil, asSessionError(err)
		}
	}

	status, body, err := c.post(ctx, payload)
	if err != nil {
		return nil, err
	}

	if status == http.StatusConflict {
		config, _, _ := c.snapshot()
		if !config.RetryOnConflict {
			return nil, NewClientError(
				ErrorCodeSessionConflict,
				fmt.Sprintf("session id expired during %s, a new one is cached", method),
				nil,
				false,
			)
		}

		c.log().Debug("retrying after session renewal", "method", method)
		if status, body, err = c.post(ctx, payload); err != nil {
			return nil, err
		}
		if status == http.StatusConflict {
			return nil, sessionError("daemon rejected the renewed session id", nil)
		}
	}

	return decodeBody(status, body)
}

// post sends the payload with the cached session id. A 409 response has
// already renewed the id when post returns.
func (c *Client) post(ctx context.Context, payload []byte) (int, []byte, error) {
	config, client, limiter := c.snapshot()

	resp, err := request.Do(http.MethodPost, config.URL,
		request.WithContext(ctx),
		request.WithClient(client),
		request.WithBody(bytes.NewReader(payload)),
		request.WithHeaders(map[string]string{
			"Content-Type":  "application/json",
			SessionIDHeader: c.SessionID(),
		}),
		request.WithBasicAuth(config.Username, config.Password),
		request.WithPreRequestHook(func() error {
			if limiter == nil {
				return nil
			}
			return limiter.Wait(ctx)
		}),
	)
	if err != nil {
		return 0, nil, ClassifyError(err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return resp.StatusCode, nil, authError(resp.StatusCode)
	case http.StatusConflict:
		if _, err := c.renewSessionID(resp); err != nil {
			return resp.StatusCode, nil, err
		}
		return resp.StatusCode, nil, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, ClassifyError(errors.Wrap(err, "read response body"))
	}
	return resp.StatusCode, body, nil
}

func decodeBody(status int, body []byte) (map[string]any, error) {
	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil || decoded == nil {
		if status < 200 || status > 299 {
			return nil, classifyHTTPStatusCode(status, truncate(body))
		}
		return nil, protocolError(
			fmt.Sprintf("cannot decode response (status %d): %s", status, truncate(body)),
			errors.Wrap(err, "decode json"),
		)
	}

	if _, ok := decoded["result"].(string); !ok {
		return nil, protocolError(fmt.Sprintf("response without result member (status %d)", status), nil)
	}
	return decoded, nil
}

// asSessionError keeps authentication failures recognizable.
func asSessionError(err error) error {
	switch GetErrorCode(err) {
	case ErrorCodeAuthFailure, ErrorCodeSession:
		return err
	}
	return sessionError("Unable to acquire X-Transmission-Session-Id", err)
}

func (c *Client) observe(method string, start time.Time, err error) {
	elapsed := time.Since(start)
	config, _, _ := c.snapshot()
	config.Metrics.observe(method, GetErrorCode(err), elapsed)

	if err != nil {
		c.log().Debug("rpc call failed", "method", method, "duration", elapsed, "error", err)
		return
	}
	c.log().Debug("rpc call", "method", method, "duration", elapsed)
}

func truncate(body []byte) string {
	if len(body) > maxErrorBody {
		return string(body[:maxErrorBody]) + "..."
	}
	return string(body)
}
