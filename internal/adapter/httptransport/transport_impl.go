// Package httptransport fetches resources over plain HTTP.
package httptransport

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/user/site-mirror/internal/entity"
	"github.com/user/site-mirror/internal/repository"
)

// Transport implements repository.Transport with net/http.
type Transport struct {
	client *http.Client
	agents *agentRotator
}

// New creates a Transport. A zero timeout leaves requests bounded only by ctx.
func New(timeout time.Duration, userAgent string) *Transport {
	return &Transport{
		client: &http.Client{
			Timeout:   timeout,
			Transport: http.DefaultTransport,
		},
		agents: newAgentRotator(userAgent),
	}
}

// Get performs a GET and reads the whole body. Any status code counts as a response.
func (t *Transport) Get(ctx context.Context, url string) (*entity.FetchResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, escapeURL(url), nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", repository.ErrInvalidURL, err)
	}
	req.Header.Set("User-Agent", t.agents.Next())

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return &entity.FetchResponse{
		URL:         resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        body,
	}, nil
}

const hexDigits = "0123456789ABCDEF"

// escapeURL percent-encodes what net/url refuses to parse: a "%" not starting
// a valid escape, spaces and control characters. Valid escapes are kept.
func escapeURL(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch {
		case c == '%' && (i+2 >= len(raw) || !isHex(raw[i+1]) || !isHex(raw[i+2])):
			b.WriteString("%25")
		case c <= ' ' || c == 0x7f:
			b.WriteByte('%')
			b.WriteByte(hexDigits[c>>4])
			b.WriteByte(hexDigits[c&0x0f])
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}

func isHex(c byte) bool {
	return '0' <= c && c <= '9' || 'a' <= c && c <= 'f' || 'A' <= c && c <= 'F'
}
