package domain

import "time"

type Protocol string

const (
	ProtocolHTTP  Protocol = "http"
	ProtocolHTTPS Protocol = "https"
)

type State string

const (
	StateUp   State = "up"
	StateDown State = "down"
)

// Check is a monitored endpoint as stored by the check store. The worker only
// ever rewrites State and LastChecked; everything else is owned by whoever
// created the record.
type Check struct {
	ID             string   `json:"id"`
	UserPhone      string   `json:"userPhone"`
	Protocol       Protocol `json:"protocol"`
	URL            string   `json:"url"`
	Method         string   `json:"method"`
	SuccessCodes   []int    `json:"successCodes"`
	TimeoutSeconds int      `json:"timeoutSeconds"`
	State          State    `json:"state"`
	// LastChecked is epoch milliseconds; 0 means the check never ran.
	LastChecked int64 `json:"lastChecked,omitempty"`
}

// Target is the URL the check points at, e.g. "https://example.com/health?x=1".
func (c *Check) Target() string {
	return string(c.Protocol) + "://" + c.URL
}

func (c *Check) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

func (c *Check) NeverChecked() bool { return c.LastChecked <= 0 }

// Accepts reports whether code is one of the check's success codes.
func (c *Check) Accepts(code int) bool {
	for _, sc := range c.SuccessCodes {
		if sc == code {
			return true
		}
	}
	return false
}

// EpochMillis converts t to the timestamp format used by LastChecked.
func EpochMillis(t time.Time) int64 { return t.UnixMilli() }
