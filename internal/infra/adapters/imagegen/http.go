package imagegen

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"

	"reelforge/internal/config"
	"reelforge/internal/domain"
)

var tracer = otel.Tracer("imagegen")

const (
	DefaultRequestTimeout = 60 * time.Second
	maxErrorBody          = 2048
)

// NewHTTPClient returns the client shared by the HTTP-backed providers.
// The timeout bounds every single outbound call.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &http.Client{Timeout: timeout}
}

// httpProvider carries what every HTTP-backed provider needs.
// It holds no per-request state and is safe for concurrent use.
type httpProvider struct {
	name       string
	label      string
	credential string
	hc         *http.Client
}

func newHTTPProvider(p config.ProviderConfig, label string, hc *http.Client) httpProvider {
	if hc == nil {
		hc = NewHTTPClient(0)
	}
	return httpProvider{name: p.Name, label: label, credential: p.Credential, hc: hc}
}

func (h *httpProvider) Name() string     { return h.name }
func (h *httpProvider) Model() string    { return h.label }
func (h *httpProvider) Configured() bool { return strings.TrimSpace(h.credential) != "" }

func (h *httpProvider) fail(kind, err error) *domain.ProviderError {
	return domain.NewProviderError(h.name, kind, err)
}

func (h *httpProvider) unconfigured() *domain.ProviderError {
	return h.fail(domain.ErrUnconfigured, nil)
}

// doJSON sends body as JSON (GET when body is nil) and decodes a 2xx response into out.
// Non-2xx responses become ErrUnauthorized or ErrRemote with the status attached.
func (h *httpProvider) doJSON(ctx context.Context, method, url string, header http.Header, body, out any) error {
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return h.fail(domain.ErrRemote, fmt.Errorf("marshal request: %w", err))
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, rdr)
	if err != nil {
		return h.fail(domain.ErrRemote, fmt.Errorf("build request: %w", err))
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := h.hc.Do(req)
	if err != nil {
		return h.transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return h.statusError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return h.fail(domain.ErrNoOutput, fmt.Errorf("decode response: %w", err))
	}
	return nil
}

// download fetches an image URL returned by a provider.
func (h *httpProvider) download(ctx context.Context, url string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, h.name+"_download")
	defer span.End()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		span.RecordError(err)
		return nil, h.fail(domain.ErrNoOutput, fmt.Errorf("bad output url: %w", err))
	}
	resp, err := h.hc.Do(req)
	if err != nil {
		span.RecordError(err)
		return nil, h.transportError(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, h.statusError(resp)
	}
	img, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		return nil, h.transportError(err)
	}
	if len(img) == 0 {
		return nil, h.fail(domain.ErrNoOutput, errors.New("empty image download"))
	}
	return img, nil
}

func (h *httpProvider) decodeBase64(s string) ([]byte, error) {
	if _, after, ok := strings.Cut(s, ";base64,"); ok {
		s = after
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, h.fail(domain.ErrNoOutput, errors.New("empty image payload"))
	}
	img, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, h.fail(domain.ErrNoOutput, fmt.Errorf("decode image payload: %w", err))
	}
	if len(img) == 0 {
		return nil, h.fail(domain.ErrNoOutput, errors.New("empty image payload"))
	}
	return img, nil
}

func (h *httpProvider) statusError(resp *http.Response) *domain.ProviderError {
	return statusError(h.name, resp.StatusCode, resp.Header, resp.Body)
}

func (h *httpProvider) transportError(err error) *domain.ProviderError {
	return transportError(h.name, err)
}

func statusError(provider string, status int, header http.Header, body io.Reader) *domain.ProviderError {
	kind := domain.ErrRemote
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		kind = domain.ErrUnauthorized
	}
	var cause error
	if body != nil {
		b, _ := io.ReadAll(io.LimitReader(body, maxErrorBody))
		if msg := strings.TrimSpace(string(b)); msg != "" {
			cause = errors.New(msg)
		}
	}
	pe := domain.NewProviderError(provider, kind, cause)
	pe.Status = status
	if status == http.StatusTooManyRequests && header != nil {
		pe.RetryAfter = parseRetryAfter(header.Get("Retry-After"), time.Now())
	}
	return pe
}

func transportError(provider string, err error) *domain.ProviderError {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return domain.NewProviderError(provider, domain.ErrTimeout, err)
	}
	return domain.NewProviderError(provider, domain.ErrRemote, err)
}

// parseRetryAfter accepts both the delta-seconds and HTTP-date forms.
func parseRetryAfter(v string, now time.Time) time.Duration {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(v); err == nil {
		if d := t.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}

func bearer(token string) http.Header {
	return http.Header{"Authorization": {"Bearer " + token}}
}

func endpointOr(p config.ProviderConfig, def string) string {
	if p.Endpoint != "" {
		return strings.TrimRight(p.Endpoint, "/")
	}
	return def
}

func modelOr(p config.ProviderConfig, def string) string {
	if p.Model != "" {
		return p.Model
	}
	return def
}
