package probe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/hamed0406/uptimeworker/internal/domain"
)

const maxDrain = 4 << 10

type HTTPExecutor struct {
	Client    *http.Client
	UserAgent string
	// Annotate, when set, is asked for extra detail on network errors
	// (e.g. a DNS classification of the host).
	Annotate func(ctx context.Context, host string) string
}

func NewHTTPExecutor(userAgent string) *HTTPExecutor {
	tr := http.DefaultTransport.(*http.Transport).Clone()
	tr.DisableKeepAlives = true
	return &HTTPExecutor{
		Client: &http.Client{
			Transport: tr,
			// A redirect is an answer like any other; report its code.
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		UserAgent: userAgent,
	}
}

// Execute issues one request for c. A successful response, a transport error
// and the deadline timer race to resolve the same Cell.
func (h *HTTPExecutor) Execute(ctx context.Context, c domain.Check) domain.Outcome {
	cell := NewCell()

	target, err := url.Parse(c.Target())
	if err != nil || target.Hostname() == "" {
		cell.Resolve(domain.Failed(domain.ErrorKindNetwork, fmt.Sprintf("invalid target %q", c.Target())))
		return cell.Outcome()
	}

	timeout := c.Timeout()
	rctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	timer := time.AfterFunc(timeout, func() {
		cell.Resolve(domain.Failed(domain.ErrorKindTimeout, "timeout"))
	})
	defer timer.Stop()

	go h.do(rctx, cell, c.Method, target)

	select {
	case <-cell.Done():
	case <-ctx.Done():
		cell.Resolve(domain.Failed(domain.ErrorKindNetwork, ctx.Err().Error()))
	}

	out := cell.Outcome()
	if out.Error != nil && out.Error.Kind == domain.ErrorKindNetwork && h.Annotate != nil {
		if note := h.Annotate(ctx, target.Hostname()); note != "" {
			out.Error = &domain.OutcomeError{Kind: out.Error.Kind, Detail: out.Error.Detail + " " + note}
		}
	}
	return out
}

func (h *HTTPExecutor) do(ctx context.Context, cell *Cell, method string, target *url.URL) {
	req, err := http.NewRequestWithContext(ctx, method, target.String(), nil)
	if err != nil {
		cell.Resolve(domain.Failed(domain.ErrorKindNetwork, err.Error()))
		return
	}
	if h.UserAgent != "" {
		req.Header.Set("User-Agent", h.UserAgent)
	}

	resp, err := h.Client.Do(req)
	if err != nil {
		cell.Resolve(classify(err))
		return
	}
	cell.Resolve(domain.Responded(resp.StatusCode))
	_, _ = io.CopyN(io.Discard, resp.Body, maxDrain)
	_ = resp.Body.Close()
}

func classify(err error) domain.Outcome {
	var ne net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &ne) && ne.Timeout()) {
		return domain.Failed(domain.ErrorKindTimeout, "timeout")
	}
	return domain.Failed(domain.ErrorKindNetwork, err.Error())
}
