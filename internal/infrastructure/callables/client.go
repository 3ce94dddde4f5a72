// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package callables

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/auth0/go-auth0/authentication"
	"github.com/auth0/go-auth0/authentication/oauth"
	"github.com/go-viper/mapstructure/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"

	"github.com/tasknest/tasknest-meeting-service/internal/domain"
	"github.com/tasknest/tasknest-meeting-service/internal/domain/models"
)

const tokenExpiryLeeway = 60 * time.Second

// Remote error statuses that map onto the domain error taxonomy.
const (
	StatusInvalidArgument  = "INVALID_ARGUMENT"
	StatusNotFound         = "NOT_FOUND"
	StatusPermissionDenied = "PERMISSION_DENIED"
)

// Config holds the remote callables configuration
type Config struct {
	BaseURL     string
	ClientID    string
	PrivateKey  string // RSA private key in PEM format
	Auth0Domain string
	Audience    string
	Timeout     time.Duration
}

// Client implements domain.CallableClient over HTTP.
type Client struct {
	httpClient *http.Client
	config     Config
}

var _ domain.CallableClient = (*Client)(nil)

type callRequest struct {
	Data any `json:"data"`
}

type callResponse struct {
	Result json.RawMessage       `json:"result"`
	Error  *models.CallableError `json:"error"`
}

// auth0TokenSource implements oauth2.TokenSource using Auth0 SDK with private key
type auth0TokenSource struct {
	ctx        context.Context
	authConfig *authentication.Authentication
	audience   string
}

// Token implements the oauth2.TokenSource interface
func (a *auth0TokenSource) Token() (*oauth2.Token, error) {
	ctx := a.ctx
	if ctx == nil {
		ctx = context.TODO()
	}

	body := oauth.LoginWithClientCredentialsRequest{
		Audience: a.audience,
	}

	tokenSet, err := a.authConfig.OAuth.LoginWithClientCredentials(ctx, body, oauth.IDTokenValidationOptions{})
	if err != nil {
		return nil, fmt.Errorf("failed to get token from Auth0: %w", err)
	}

	token := &oauth2.Token{
		AccessToken:  tokenSet.AccessToken,
		TokenType:    tokenSet.TokenType,
		RefreshToken: tokenSet.RefreshToken,
		Expiry:       time.Now().Add(time.Duration(tokenSet.ExpiresIn)*time.Second - tokenExpiryLeeway),
	}

	return token.WithExtra(map[string]any{
		"scope": tokenSet.Scope,
	}), nil
}

// NewClient creates a callables client that authenticates with an OAuth2
// client-credentials token minted from a private key assertion.
func NewClient(ctx context.Context, config Config) (*Client, error) {
	if config.PrivateKey == "" {
		return nil, errors.New("CALLABLES_CLIENT_PRIVATE_KEY is required but not set")
	}

	authConfig, err := authentication.New(
		ctx,
		config.Auth0Domain,
		authentication.WithClientID(config.ClientID),
		authentication.WithClientAssertion(config.PrivateKey, "RS256"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Auth0 client: %w (ensure CALLABLES_CLIENT_PRIVATE_KEY contains a valid RSA private key in PEM format)", err)
	}

	tokenSource := oauth2.ReuseTokenSource(nil, &auth0TokenSource{
		ctx:        ctx,
		authConfig: authConfig,
		audience:   config.Audience,
	})

	httpClient := &http.Client{
		Transport: &oauth2.Transport{
			Source: tokenSource,
			Base:   otelhttp.NewTransport(http.DefaultTransport),
		},
		Timeout: config.Timeout,
	}

	return newClient(config, httpClient), nil
}

func newClient(config Config, httpClient *http.Client) *Client {
	config.BaseURL = strings.TrimRight(config.BaseURL, "/")
	return &Client{
		httpClient: httpClient,
		config:     config,
	}
}

// logRequest logs the outgoing HTTP request for debugging
func (c *Client) logRequest(ctx context.Context, url string, body []byte) {
	slog.DebugContext(ctx, "callable request",
		"url", url,
		"body_size", len(body),
	)
}

// logResponse logs the incoming HTTP response for debugging
func (c *Client) logResponse(ctx context.Context, statusCode int, body []byte) {
	if statusCode < 200 || statusCode >= 300 {
		slog.ErrorContext(ctx, "callable response error",
			"status_code", statusCode,
			"body", string(body),
		)
		return
	}
	slog.DebugContext(ctx, "callable response",
		"status_code", statusCode,
		"body_size", len(body),
	)
}

// Invoke posts the input to the named callable and returns the raw result.
// Names outside the known set are rejected without touching the network.
func (c *Client) Invoke(ctx context.Context, name models.CallableName, input any) (json.RawMessage, error) {
	if !name.IsKnown() {
		return nil, domain.NewNotFoundError(fmt.Sprintf("unknown callable %q", name), domain.ErrUnknownCallable)
	}

	body, err := json.Marshal(callRequest{Data: input})
	if err != nil {
		return nil, domain.NewValidationError("failed to marshal callable input", err)
	}

	url := fmt.Sprintf("%s/%s", c.config.BaseURL, name)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, domain.NewInternalError("failed to create request", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	c.logRequest(ctx, url, body)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, domain.NewUnavailableError("callable request failed", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewInternalError("failed to read response", err)
	}

	c.logResponse(ctx, resp.StatusCode, respBody)

	var result callResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return nil, mapHTTPError(resp.StatusCode)
		}
		return nil, domain.NewInternalError("failed to parse response", err)
	}
	if result.Error != nil {
		return nil, mapCallableError(name, result.Error)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, mapHTTPError(resp.StatusCode)
	}
	if len(result.Result) == 0 {
		return json.RawMessage("null"), nil
	}
	return result.Result, nil
}

// InvokeInto invokes the callable and decodes its result into out using the
// json tag names of the target type.
func (c *Client) InvokeInto(ctx context.Context, name models.CallableName, input any, out any) error {
	raw, err := c.Invoke(ctx, name, input)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}

	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return domain.NewInternalError("failed to parse callable result", err)
	}

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return domain.NewInternalError("failed to create result decoder", err)
	}
	if err := decoder.Decode(generic); err != nil {
		return domain.NewInternalError(fmt.Sprintf("failed to decode result of %s", name), err)
	}
	return nil
}

// mapCallableError converts a remote error body into a domain error.
func mapCallableError(name models.CallableName, callErr *models.CallableError) error {
	message := callErr.Message
	if message == "" {
		message = fmt.Sprintf("callable %s failed with %s", name, callErr.Status)
	}

	switch callErr.Status {
	case StatusInvalidArgument:
		return domain.NewValidationError(message)
	case StatusNotFound:
		return domain.NewNotFoundError(message)
	case StatusPermissionDenied:
		return domain.NewPermissionDeniedError(message)
	default:
		return domain.NewInternalError(message)
	}
}

// mapHTTPError covers failures that never reached the callable, such as a
// gateway rejecting the request.
func mapHTTPError(statusCode int) error {
	message := fmt.Sprintf("HTTP %d error", statusCode)
	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.NewPermissionDeniedError(fmt.Sprintf("authentication/authorization failed: %s", message))
	case http.StatusNotFound:
		return domain.NewNotFoundError(message)
	case http.StatusServiceUnavailable, http.StatusBadGateway, http.StatusGatewayTimeout:
		return domain.NewUnavailableError(message)
	default:
		return domain.NewInternalError(message)
	}
}
