// Package fetcher downloads a restaurant wine-list page and reduces it to
// readable text that can be handed to the sommelier model.
package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"syscall"
	"time"
	"unicode/utf8"

	"golang.org/x/net/html"
)

const (
	defaultTimeout  = 30 * time.Second
	defaultMaxBody  = 5 * 1024 * 1024
	defaultMaxText  = 16 * 1024
	userAgent       = "divino/1.0 (wine-list reader)"
	truncatedSuffix = "..."
)

// ErrPrivateHost is returned for pages on loopback, private or link-local
// addresses.
var ErrPrivateHost = errors.New("host is not publicly routable")

// Fetcher retrieves pages over HTTP
type Fetcher struct {
	client       *http.Client
	maxBody      int64
	maxText      int
	allowPrivate bool
}

// Option configures a Fetcher
type Option func(*Fetcher)

// WithHTTPClient replaces the default client
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) { f.client = c }
}

// WithPrivateHosts lets the fetcher read pages on local and private
// networks, which are refused by default.
func WithPrivateHosts() Option {
	return func(f *Fetcher) { f.allowPrivate = true }
}

// WithMaxText caps the extracted text, in bytes
func WithMaxText(n int) Option {
	return func(f *Fetcher) { f.maxText = n }
}

// New creates a Fetcher with a 30s timeout. Unless WithPrivateHosts is
// given, the default client refuses to connect to non-public addresses,
// whatever the host name resolves to.
func New(opts ...Option) *Fetcher {
	f := &Fetcher{
		maxBody: defaultMaxBody,
		maxText: defaultMaxText,
	}
	for _, opt := range opts {
		opt(f)
	}
	if f.client == nil {
		f.client = defaultClient(f.allowPrivate)
	}
	return f
}

func defaultClient(allowPrivate bool) *http.Client {
	dialer := &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}
	if !allowPrivate {
		dialer.Control = refusePrivate
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = dialer.DialContext
	return &http.Client{Timeout: defaultTimeout, Transport: transport}
}

// refusePrivate runs before every connection, after name resolution.
func refusePrivate(_, address string, _ syscall.RawConn) error {
	host, _, err := net.SplitHostPort(address)
	if err != nil {
		return err
	}
	ip, err := netip.ParseAddr(host)
	if err != nil || !isPublic(ip) {
		return fmt.Errorf("%w: %s", ErrPrivateHost, host)
	}
	return nil
}

func isPublic(ip netip.Addr) bool {
	ip = ip.Unmap()
	return ip.IsGlobalUnicast() && !ip.IsPrivate()
}

// checkHost rejects URLs naming a local host directly.
func checkHost(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return fmt.Errorf("%w: %s", ErrPrivateHost, host)
	}
	if ip, err := netip.ParseAddr(host); err == nil && !isPublic(ip) {
		return fmt.Errorf("%w: %s", ErrPrivateHost, host)
	}
	return nil
}

// Fetch retrieves the page at rawURL and extracts its readable text,
// one block element per line.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	u, err := NormalizeURL(rawURL)
	if err != nil {
		return "", err
	}
	if !f.allowPrivate {
		if err := checkHost(u); err != nil {
			return "", err
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,text/plain;q=0.9")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("HTTP %d: %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}

	var text string
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "text/plain") {
		text = cleanLines(string(body))
	} else {
		text = extractText(string(body))
	}
	if text == "" {
		return "", fmt.Errorf("no text content found")
	}

	return truncate(text, f.maxText), nil
}

// NormalizeURL validates rawURL and defaults a missing scheme to https
func NormalizeURL(rawURL string) (string, error) {
	rawURL = strings.TrimSpace(rawURL)
	if !strings.Contains(rawURL, "://") {
		rawURL = "https://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported scheme: %s", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid URL: missing host")
	}
	return u.String(), nil
}

// IsURL reports whether a search box entry is a web address rather than
// a wine name: a single token with an http(s) scheme or a www. prefix.
func IsURL(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" || strings.ContainsAny(s, " \t") {
		return false
	}
	for _, prefix := range []string{"http://", "https://", "www."} {
		if strings.HasPrefix(s, prefix) && len(s) > len(prefix) {
			return true
		}
	}
	return false
}

// Tags to skip (non-content)
var skipTags = map[string]bool{
	"script": true, "style": true, "nav": true,
	"header": true, "footer": true, "aside": true,
	"noscript": true, "iframe": true, "svg": true,
}

// Wine lists are often tables: each row is a wine with its price.
var blockTags = map[string]bool{
	"p": true, "div": true, "li": true, "br": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"dt": true, "dd": true, "section": true, "article": true,
}

// extractText parses HTML and returns readable text content
func extractText(htmlContent string) string {
	doc, err := html.Parse(strings.NewReader(htmlContent))
	if err != nil {
		return ""
	}

	var sb strings.Builder
	var extract func(*html.Node)
	extract = func(n *html.Node) {
		if n.Type == html.ElementNode && skipTags[n.Data] {
			return
		}

		if n.Type == html.TextNode {
			if text := strings.TrimSpace(n.Data); text != "" {
				sb.WriteString(text)
				sb.WriteString(" ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			extract(c)
		}

		if n.Type == html.ElementNode && blockTags[n.Data] {
			sb.WriteString("\n")
		}
	}
	extract(doc)

	return cleanLines(sb.String())
}

// cleanLines collapses whitespace within lines and drops empty ones
func cleanLines(s string) string {
	var lines []string
	for _, line := range strings.Split(s, "\n") {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}

func truncate(s string, max int) string {
	if max <= 0 || len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + truncatedSuffix
}
