package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/grewanderer/datapact/frame"
)

type apiOptions struct {
	URL          string            `yaml:"url"`
	Format       string            `yaml:"format"`
	Headers      map[string]string `yaml:"headers"`
	Token        string            `yaml:"token"`
	ClientID     string            `yaml:"client_id"`
	ClientSecret string            `yaml:"client_secret"`
	TokenURL     string            `yaml:"token_url"`
	Scopes       []string          `yaml:"scopes"`
}

// apiDataset fetches tabular data from an HTTP endpoint. It is read only:
// remote APIs are upstream sources, not sinks.
type apiDataset struct {
	name    string
	url     string
	format  string
	headers map[string]string
	client  *http.Client
}

func newAPIDataset(name string, params map[string]any, deps Deps) (*apiDataset, error) {
	var o apiOptions
	if err := decodeParams(params, &o); err != nil {
		return nil, err
	}

	rawURL := strings.TrimSpace(o.URL)
	if rawURL == "" {
		return nil, errors.New("url is required")
	}
	if !strings.HasPrefix(rawURL, "http://") && !strings.HasPrefix(rawURL, "https://") {
		return nil, fmt.Errorf("url %q must be http or https", rawURL)
	}

	format := strings.ToLower(strings.TrimSpace(o.Format))
	if format == "" {
		format = "json"
	}
	switch format {
	case "csv", "json":
	default:
		return nil, fmt.Errorf("format %q is not supported, use csv or json", format)
	}

	base := deps.HTTPClient
	if base == nil {
		base = &http.Client{Timeout: 30 * time.Second}
	}

	client, err := authClient(o, base)
	if err != nil {
		return nil, err
	}

	return &apiDataset{name: name, url: rawURL, format: format, headers: o.Headers, client: client}, nil
}

// authClient wraps the base client with a token source when credentials are
// configured. A static token and client credentials are mutually exclusive.
func authClient(o apiOptions, base *http.Client) (*http.Client, error) {
	hasToken := strings.TrimSpace(o.Token) != ""
	hasClientCredentials := o.ClientID != "" || o.ClientSecret != "" || o.TokenURL != ""

	if hasToken && hasClientCredentials {
		return nil, errors.New("token and client credentials are mutually exclusive")
	}

	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	switch {
	case hasToken:
		return oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: strings.TrimSpace(o.Token)})), nil
	case hasClientCredentials:
		if o.ClientID == "" || o.ClientSecret == "" || o.TokenURL == "" {
			return nil, errors.New("client credentials need client_id, client_secret and token_url")
		}
		cfg := clientcredentials.Config{
			ClientID:     o.ClientID,
			ClientSecret: o.ClientSecret,
			TokenURL:     o.TokenURL,
			Scopes:       o.Scopes,
		}
		return cfg.Client(ctx), nil
	default:
		return base, nil
	}
}

func (d *apiDataset) Load(ctx context.Context) (any, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, v := range d.headers {
		req.Header.Set(k, v)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", d.url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<20))
	if err != nil {
		return nil, fmt.Errorf("read response from %s: %w", d.url, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("get %s: unexpected status %d", d.url, resp.StatusCode)
	}

	var f *frame.Frame
	switch d.format {
	case "csv":
		f, err = frame.ReadCSV(bytes.NewReader(body), frame.CSVOptions{})
	case "json":
		f, err = frame.ReadJSON(bytes.NewReader(body))
	}
	if err != nil {
		return nil, fmt.Errorf("parse response from %s: %w", d.url, err)
	}
	return f, nil
}

func (d *apiDataset) Save(ctx context.Context, value any) error {
	return fmt.Errorf("dataset %q is read only", d.name)
}

func (d *apiDataset) Describe() string {
	return fmt.Sprintf("%s api %s", d.format, d.url)
}
