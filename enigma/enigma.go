// Copyright 2026 GoEnigma Authors

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package enigma

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/fetch"
	"github.com/stockparfait/logging"
)

type contextKey int

const (
	clientContextKey contextKey = iota
)

// URL is the default base URL of the server. It may be overwritten in tests
// before creating a new client.
var URL = "https://api.enigma.io"

// Version of the API, appended to the base URL as the first path segment.
const Version = "v2"

// Resource is one of the fixed API endpoint categories.
type Resource string

// Values for Resource. Note, that the metadata endpoint's wire name is
// "meta".
const (
	Data     = Resource("data")
	Metadata = Resource("meta")
	Stats    = Resource("stats")
	Export   = Resource("export")
	Limits   = Resource("limits")
)

// queryParams lists, per resource, the query parameter names recognized by
// the server. It is effectively immutable: initialized here and never
// modified.
var queryParams = map[Resource][]string{
	Data:     {"limit", "select", "search", "where", "conjunction", "sort", "page"},
	Metadata: {"page"},
	Stats:    {"select", "operation", "by", "of", "limit", "search", "where", "conjunction", "sort", "page"},
	Export:   {"select", "search", "where", "conjunction", "sort"},
	Limits:   {},
}

// Params are the query parameters supplied with a single API call. The keys
// must be a subset of the resource's recognized parameter names; an empty or
// nil Params is always valid.
type Params map[string]string

// Response is a decoded JSON response. It is returned as received from the
// server, except for the metadata column annotation.
type Response map[string]any

// Client for querying the API resources. A Client records the URL of its most
// recent request attempt, therefore a single instance is not safe for
// concurrent use; create one client per goroutine instead.
type Client struct {
	baseURL    string // the base URL of the server
	version    string // the API version path segment
	apiKey     string // your very own secret key
	lenient    bool   // degrade unexpected HTTP statuses to a warning
	requestURL string // the most recently attempted request URL
}

// newClient creates a new client.
func newClient(baseURL, apiKey string, lenient bool) *Client {
	return &Client{
		baseURL: baseURL,
		version: Version,
		apiKey:  apiKey,
		lenient: lenient,
	}
}

// GetClient extracts the Client from the context, if any.
func GetClient(ctx context.Context) *Client {
	c, ok := ctx.Value(clientContextKey).(*Client)
	if !ok {
		return nil
	}
	return c
}

// UseClient creates a new client based on the API key and injects it into the
// context. A response status outside of 2xx surfaces as *StatusError.
func UseClient(ctx context.Context, apiKey string) context.Context {
	return context.WithValue(ctx, clientContextKey, newClient(URL, apiKey, false))
}

// UseLenientClient is like UseClient, but an unexpected response status only
// logs a warning, and the decoded body is returned as usual.
func UseLenientClient(ctx context.Context, apiKey string) context.Context {
	return context.WithValue(ctx, clientContextKey, newClient(URL, apiKey, true))
}

// RequestURL returns the URL of the client's most recent request attempt,
// including attempts that failed in transit. Calls rejected by parameter
// validation do not count as attempts and leave this value unchanged. An
// empty string means no request was ever attempted.
func (c *Client) RequestURL() string { return c.requestURL }

// checkParams verifies that all supplied parameter names are recognized by
// the resource. It performs no I/O.
func checkParams(resource Resource, params Params) error {
	allowed := make(map[string]struct{})
	for _, p := range queryParams[resource] {
		allowed[p] = struct{}{}
	}
	var invalid []string
	for k := range params {
		if _, ok := allowed[k]; !ok {
			invalid = append(invalid, k)
		}
	}
	if len(invalid) > 0 {
		sort.Strings(invalid)
		return errors.Reason("invalid parameters for the %s endpoint: %s",
			resource, strings.Join(invalid, ", "))
	}
	return nil
}

// BuildURL constructs the request URL for a resource as a pure function of
// its arguments. Parameter values are inserted verbatim, not percent-encoded;
// the server expects them that way. Pairs appear in sorted key order, making
// the result deterministic. Without a datapath the URL is just the base path,
// with no query string.
func BuildURL(endpoint, version string, resource Resource, apiKey, datapath string, params Params) string {
	base := strings.Join([]string{endpoint, version, string(resource), apiKey}, "/")
	if datapath == "" {
		return base
	}
	keys := make([]string, 0, len(params))
	for k := range params {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]string, len(keys))
	for i, k := range keys {
		pairs[i] = k + "=" + params[k]
	}
	return strings.Join([]string{base, datapath, "?" + strings.Join(pairs, "&")}, "/")
}

// StatusError is returned by a strict client when the server responds with a
// status code outside of 2xx. Body holds the decoded response body, when one
// could be decoded at all.
type StatusError struct {
	StatusCode int
	Body       Response
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("request returned status code %d", e.StatusCode)
}

// request validates the parameters, builds and records the request URL, and
// performs the GET. All resource methods funnel through here.
//
// The GET goes out directly through the context's http.Client rather than
// fetch's helpers, which treat any non-2xx status as an error and retry on
// 5xx; the status branching below needs the raw response for any status
// code, exactly once.
func (c *Client) request(ctx context.Context, resource Resource, datapath string, params Params) (Response, error) {
	if err := checkParams(resource, params); err != nil {
		return nil, err
	}
	c.requestURL = BuildURL(c.baseURL, c.version, resource, c.apiKey, datapath, params)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.requestURL, nil)
	if err != nil {
		return nil, errors.Annotate(err, "failed to create the %s request", resource)
	}
	httpClient := fetch.GetClient(ctx)
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, errors.Annotate(err, "failed to fetch the %s endpoint", resource)
	}
	defer resp.Body.Close()
	var res Response
	decodeErr := json.NewDecoder(resp.Body).Decode(&res)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if !c.lenient {
			return nil, &StatusError{StatusCode: resp.StatusCode, Body: res}
		}
		logging.Warningf(ctx, "%s request returned status code %d",
			resource, resp.StatusCode)
	}
	if decodeErr != nil {
		return nil, errors.Annotate(decodeErr, "failed to decode the %s response",
			resource)
	}
	return res, nil
}

// GetData requests rows of the table identified by datapath from the data
// endpoint.
func (c *Client) GetData(ctx context.Context, datapath string, params Params) (Response, error) {
	if datapath == "" {
		return nil, errors.Reason("datapath is required for the %s endpoint", Data)
	}
	return c.request(ctx, Data, datapath, params)
}

// GetMetadata requests the table metadata for datapath. Every entry of
// result.columns in the response is annotated with the inferred semantic type
// under the "go_type" key; the rest of the response is returned as received.
func (c *Client) GetMetadata(ctx context.Context, datapath string, params Params) (Response, error) {
	if datapath == "" {
		return nil, errors.Reason("datapath is required for the %s endpoint", Metadata)
	}
	res, err := c.request(ctx, Metadata, datapath, params)
	if err != nil {
		return nil, err
	}
	annotateColumns(res)
	return res, nil
}

// GetStats requests column statistics for datapath from the stats endpoint.
func (c *Client) GetStats(ctx context.Context, datapath string, params Params) (Response, error) {
	if datapath == "" {
		return nil, errors.Reason("datapath is required for the %s endpoint", Stats)
	}
	return c.request(ctx, Stats, datapath, params)
}

// GetExport requests the export file links for datapath. See DownloadCSV for
// retrieving the actual file contents.
func (c *Client) GetExport(ctx context.Context, datapath string, params Params) (Response, error) {
	if datapath == "" {
		return nil, errors.Reason("datapath is required for the %s endpoint", Export)
	}
	return c.request(ctx, Export, datapath, params)
}

// GetLimits requests the current API usage limits for the client's key. The
// limits endpoint has no datapath and accepts no query parameters.
func (c *Client) GetLimits(ctx context.Context) (Response, error) {
	return c.request(ctx, Limits, "", nil)
}
