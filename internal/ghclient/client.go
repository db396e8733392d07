// Package ghclient talks to the GitHub (Enterprise) REST API and turns its answers into
// pull request records.
package ghclient

import (
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/google/go-github/v62/github"
	"github.com/joho/godotenv"
)

// PublicAPIURL is the API root of github.com.
const PublicAPIURL = "https://api.github.com"

var (
	// ErrInvalidBaseURL is returned for base URLs that cannot address an API.
	ErrInvalidBaseURL = errors.New("invalid base_url")

	// ErrTokenNotSet is returned when neither a direct token nor the token variable is available.
	ErrTokenNotSet = errors.New("GitHub token not set")
)

// ClientOptions configures NewClient.
type ClientOptions struct {
	BaseURL    string
	Token      string
	VerifySSL  bool
	RequestLog io.Writer // optional JSON-lines request log
	Timeout    time.Duration
}

// ValidateBaseURL rejects URLs that can never reach an API, most notably the web host of
// public GitHub with an Enterprise API path.
func ValidateBaseURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("%w %q. Expected an absolute http(s) URL such as https://github.example.com/api/v3", ErrInvalidBaseURL, raw)
	}
	if strings.EqualFold(u.Hostname(), "github.com") {
		return fmt.Errorf("%w %q. For public GitHub use %s", ErrInvalidBaseURL, raw, PublicAPIURL)
	}
	return nil
}

// ResolveToken returns the direct token when set, else the value of envName (GITHUB_TOKEN when
// empty). Variables from a .env file in the working directory are considered too.
func ResolveToken(direct, envName string) (string, error) {
	if t := strings.TrimSpace(direct); t != "" {
		return t, nil
	}
	if envName == "" {
		envName = "GITHUB_TOKEN"
	}
	// godotenv.Load never overrides variables that are already set.
	_ = godotenv.Load()
	if t := strings.TrimSpace(os.Getenv(envName)); t != "" {
		return t, nil
	}
	return "", fmt.Errorf("%w: environment variable %s is not set. Export it or set github.api_token", ErrTokenNotSet, envName)
}

// NewClient builds a go-github client for opts.
func NewClient(opts ClientOptions) (*github.Client, error) {
	if err := ValidateBaseURL(opts.BaseURL); err != nil {
		return nil, err
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !opts.VerifySSL {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	var rt http.RoundTripper = transport
	if opts.RequestLog != nil {
		rt = newLoggingTransport(rt, opts.RequestLog)
	}

	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	client := github.NewClient(&http.Client{Transport: rt, Timeout: timeout})
	if opts.Token != "" {
		client = client.WithAuthToken(opts.Token)
	}

	base := strings.TrimRight(opts.BaseURL, "/")
	if strings.EqualFold(base, PublicAPIURL) {
		return client, nil
	}
	client, err := client.WithEnterpriseURLs(base+"/", uploadURL(base))
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidBaseURL, opts.BaseURL, err)
	}
	return client, nil
}

// uploadURL maps .../api/v3 to .../api/uploads, the Enterprise upload root.
func uploadURL(base string) string {
	if strings.HasSuffix(base, "/api/v3") {
		return strings.TrimSuffix(base, "/api/v3") + "/api/uploads/"
	}
	return base + "/"
}
