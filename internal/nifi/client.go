// Package nifi implements the REST client for the flow-automation
// server: token authentication, one-level flow listing, full exports,
// and the mutating calls teardown and replication are built on.
package nifi

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/medalizaidi/nifi-jar-automation-option2/internal/flow"
	"github.com/medalizaidi/nifi-jar-automation-option2/pkg/logging"
)

const (
	// DefaultRequestTimeout bounds every ordinary API call.
	DefaultRequestTimeout = 30 * time.Second

	// DefaultExportTimeout bounds the flow download, which serializes
	// the entire subtree server-side and can be slow on large flows.
	DefaultExportTimeout = 120 * time.Second
)

// Client is the API surface the reconciliation engine depends on.
type Client interface {
	// Authenticate exchanges credentials for a bearer token used on
	// all subsequent calls.
	Authenticate(ctx context.Context) error

	// RootGroupID resolves the id of the root process group.
	RootGroupID(ctx context.Context) (string, error)

	// ListGroup fetches one level of a process group: direct children
	// with live revisions and run status. Nested groups carry identity
	// only; their contents require further ListGroup calls.
	ListGroup(ctx context.Context, groupID string) (*flow.Group, error)

	// ExportGroup downloads the full serialized subtree of a group.
	ExportGroup(ctx context.Context, groupID string) ([]byte, error)

	// StopProcessor transitions a processor to STOPPED and returns the
	// component with its post-update revision.
	StopProcessor(ctx context.Context, c flow.Component) (flow.Component, error)

	// DeleteComponent removes a component, sending its revision as the
	// optimistic-lock version.
	DeleteComponent(ctx context.Context, c flow.Component) error

	// CreateComponent creates a component under the parent group and
	// returns the server-assigned id.
	CreateComponent(ctx context.Context, parentID string, kind flow.Kind, attrs map[string]any) (string, error)
}

// Options configures an HTTPClient.
type Options struct {
	// BaseURL is the server root, e.g. "https://nifi.example.com:8443".
	BaseURL string

	Username string
	Password string

	// InsecureTLS skips certificate verification, for servers running
	// self-signed certificates.
	InsecureTLS bool

	RequestTimeout time.Duration
	ExportTimeout  time.Duration

	Logger *logging.Logger
}

// HTTPClient talks to a live server. Not safe for concurrent use: the
// engine drives it from a single goroutine and the token is set once by
// Authenticate.
type HTTPClient struct {
	baseURL        string
	username       string
	password       string
	token          string
	requestTimeout time.Duration
	exportTimeout  time.Duration
	httpClient     *http.Client
	logger         *logging.Logger
}

var _ Client = (*HTTPClient)(nil)

// NewHTTPClient creates a client from options. It does not contact the
// server; call Authenticate before anything else.
func NewHTTPClient(opts Options) *HTTPClient {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	if opts.ExportTimeout <= 0 {
		opts.ExportTimeout = DefaultExportTimeout
	}
	if opts.Logger == nil {
		opts.Logger = logging.Default()
	}

	transport := http.DefaultTransport
	if opts.InsecureTLS {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	return &HTTPClient{
		baseURL:        strings.TrimRight(opts.BaseURL, "/"),
		username:       opts.Username,
		password:       opts.Password,
		requestTimeout: opts.RequestTimeout,
		exportTimeout:  opts.ExportTimeout,
		httpClient:     &http.Client{Transport: transport},
		logger:         opts.Logger,
	}
}

// Authenticate implements Client.
func (c *HTTPClient) Authenticate(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	form := url.Values{}
	form.Set("username", c.username)
	form.Set("password", c.password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/nifi-api/access/token", strings.NewReader(form.Encode()))
	if err != nil {
		return &APIError{Kind: KindUnreachable, Op: "authenticate", Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError("authenticate", "", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{Kind: KindBadResponse, Op: "authenticate", Message: err.Error()}
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return &APIError{
			Kind:       KindAuth,
			Op:         "authenticate",
			StatusCode: resp.StatusCode,
			Message:    truncateBody(body),
		}
	}

	token := strings.TrimSpace(string(body))
	if token == "" {
		return &APIError{Kind: KindBadResponse, Op: "authenticate", Message: "empty token"}
	}
	c.token = token
	c.logger.Debug("authenticated", "host", c.baseURL)
	return nil
}

// RootGroupID implements Client.
func (c *HTTPClient) RootGroupID(ctx context.Context) (string, error) {
	var out processGroupFlowDTO
	err := c.getJSON(ctx, "/nifi-api/flow/process-groups/root", "resolve root group", &out)
	if err != nil {
		return "", err
	}
	if out.ProcessGroupFlow.ID == "" {
		return "", &APIError{Kind: KindBadResponse, Op: "resolve root group", Message: "response carries no group id"}
	}
	return out.ProcessGroupFlow.ID, nil
}

// ListGroup implements Client.
func (c *HTTPClient) ListGroup(ctx context.Context, groupID string) (*flow.Group, error) {
	var out processGroupFlowDTO
	err := c.getJSON(ctx, "/nifi-api/flow/process-groups/"+url.PathEscape(groupID), "list group", &out)
	if err != nil {
		return nil, err
	}

	f := out.ProcessGroupFlow.Flow
	g := &flow.Group{
		Component: flow.Component{
			ID:   out.ProcessGroupFlow.ID,
			Kind: flow.KindProcessGroup,
		},
		Processors:  toComponents(f.Processors, flow.KindProcessor),
		Connections: toComponents(f.Connections, flow.KindConnection),
		InputPorts:  toComponents(f.InputPorts, flow.KindInputPort),
		OutputPorts: toComponents(f.OutputPorts, flow.KindOutputPort),
		Funnels:     toComponents(f.Funnels, flow.KindFunnel),
		LabelCount:  len(f.Labels),
	}
	for _, e := range f.ProcessGroups {
		g.Groups = append(g.Groups, &flow.Group{
			Component: e.toComponent(flow.KindProcessGroup),
		})
	}
	return g, nil
}

// ExportGroup implements Client.
func (c *HTTPClient) ExportGroup(ctx context.Context, groupID string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.exportTimeout)
	defer cancel()

	req, err := c.newRequest(ctx, http.MethodGet,
		"/nifi-api/process-groups/"+url.PathEscape(groupID)+"/download", nil)
	if err != nil {
		return nil, &APIError{Kind: KindUnreachable, Op: "export group", Message: err.Error()}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError("export group", groupID, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &APIError{Kind: KindBadResponse, Op: "export group", Message: err.Error()}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError("export group", groupID, resp.StatusCode, body)
	}
	return body, nil
}

// StopProcessor implements Client.
func (c *HTTPClient) StopProcessor(ctx context.Context, component flow.Component) (flow.Component, error) {
	op := "stop processor"
	reqBody := updateRunStatusRequest{Revision: revisionDTO{Version: component.Revision}}
	reqBody.Component.ID = component.ID
	reqBody.Component.State = "STOPPED"

	var out entityDTO
	err := c.doJSON(ctx, http.MethodPut,
		"/nifi-api/processors/"+url.PathEscape(component.ID),
		op, component.DisplayName(), reqBody, &out)
	if err != nil {
		return component, err
	}

	updated := component
	updated.Revision = out.Revision.Version
	updated.RunStatus = "Stopped"
	return updated, nil
}

// DeleteComponent implements Client.
func (c *HTTPClient) DeleteComponent(ctx context.Context, component flow.Component) error {
	op := "delete " + component.Kind.String()
	path := "/nifi-api/" + component.Kind.Plural() + "/" + url.PathEscape(component.ID) +
		"?version=" + strconv.FormatInt(component.Revision, 10)
	return c.doJSON(ctx, http.MethodDelete, path, op, component.DisplayName(), nil, nil)
}

// CreateComponent implements Client.
func (c *HTTPClient) CreateComponent(ctx context.Context, parentID string, kind flow.Kind, attrs map[string]any) (string, error) {
	op := "create " + kind.String()
	reqBody := createComponentRequest{
		Revision:  revisionDTO{Version: 0},
		Component: attrs,
	}

	var out entityDTO
	name, _ := attrs["name"].(string)
	err := c.doJSON(ctx, http.MethodPost,
		"/nifi-api/process-groups/"+url.PathEscape(parentID)+"/"+kind.Plural(),
		op, name, reqBody, &out)
	if err != nil {
		return "", err
	}

	id := out.ID
	if id == "" {
		if cid, ok := out.Component["id"].(string); ok {
			id = cid
		}
	}
	if id == "" {
		return "", &APIError{Kind: KindBadResponse, Op: op, Component: name, Message: "response carries no component id"}
	}
	return id, nil
}

func (c *HTTPClient) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *HTTPClient) getJSON(ctx context.Context, path, op string, out any) error {
	return c.doJSON(ctx, http.MethodGet, path, op, "", nil, out)
}

// doJSON executes one API call with the standard timeout, encoding the
// request body and decoding the response when out is non-nil.
func (c *HTTPClient) doJSON(ctx context.Context, method, path, op, component string, in, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.requestTimeout)
	defer cancel()

	var bodyReader io.Reader
	if in != nil {
		encoded, err := json.Marshal(in)
		if err != nil {
			return &APIError{Kind: KindBadResponse, Op: op, Component: component, Message: err.Error()}
		}
		bodyReader = bytes.NewReader(encoded)
	}

	req, err := c.newRequest(ctx, method, path, bodyReader)
	if err != nil {
		return &APIError{Kind: KindUnreachable, Op: op, Component: component, Message: err.Error()}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportError(op, component, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{Kind: KindBadResponse, Op: op, Component: component, Message: err.Error()}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.statusError(op, component, resp.StatusCode, body)
	}

	if out != nil {
		if err := json.Unmarshal(body, out); err != nil {
			return &APIError{Kind: KindBadResponse, Op: op, Component: component, Message: err.Error()}
		}
	}
	return nil
}

// transportError separates a call that ran out of its own deadline
// from a server that cannot be reached at all.
func transportError(op, component string, err error) *APIError {
	kind := KindUnreachable
	if errors.Is(err, context.DeadlineExceeded) {
		kind = KindTimeout
	}
	return &APIError{Kind: kind, Op: op, Component: component, Message: err.Error()}
}

func (c *HTTPClient) statusError(op, component string, status int, body []byte) *APIError {
	apiErr := &APIError{
		Op:         op,
		Component:  component,
		StatusCode: status,
		Message:    truncateBody(body),
	}
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		apiErr.Kind = KindAuth
	case http.StatusNotFound:
		apiErr.Kind = KindNotFound
	case http.StatusConflict:
		apiErr.Kind = classifyConflict(string(body))
	default:
		apiErr.Kind = KindBadResponse
	}
	return apiErr
}

// truncateBody keeps error messages readable when the server returns a
// full HTML error page.
func truncateBody(body []byte) string {
	const limit = 300
	s := strings.TrimSpace(string(body))
	if len(s) > limit {
		return s[:limit] + fmt.Sprintf("... (%d bytes)", len(s))
	}
	return s
}
