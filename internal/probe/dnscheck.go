package probe

import (
	"context"
	"errors"
	"net"
	"strings"
	"time"
)

// DNS classes reported for a host whose check failed at the transport level.
const (
	DNSResolves     = "RESOLVES"
	DNSNoARecord    = "NO_A_RECORD"
	DNSNXDomain     = "NXDOMAIN"
	DNSServfail     = "SERVFAIL_or_TIMEOUT"
	DNSInvalidName  = "INVALID_NAME"
	defaultDNSLimit = 3 * time.Second
)

type DNSStatus struct {
	Host          string
	IPs           []net.IP
	HasNS         bool
	Class         string
	ResolverError string
}

// Resolver is the subset of *net.Resolver the DNS classifier needs.
type Resolver interface {
	LookupIP(ctx context.Context, network, host string) ([]net.IP, error)
	LookupNS(ctx context.Context, name string) ([]*net.NS, error)
}

type DNSClassifier struct {
	Resolver Resolver
	Timeout  time.Duration
}

func NewDNSClassifier() *DNSClassifier {
	return &DNSClassifier{Resolver: net.DefaultResolver, Timeout: defaultDNSLimit}
}

func (d *DNSClassifier) Classify(ctx context.Context, host string) DNSStatus {
	s := DNSStatus{Host: strings.TrimSpace(host)}
	if s.Host == "" || strings.Contains(s.Host, "://") {
		s.Class = DNSInvalidName
		return s
	}
	if ip := net.ParseIP(s.Host); ip != nil {
		s.IPs = []net.IP{ip}
		s.Class = DNSResolves
		return s
	}

	limit := d.Timeout
	if limit <= 0 {
		limit = defaultDNSLimit
	}
	ctx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	ips, err := d.Resolver.LookupIP(ctx, "ip", s.Host)
	switch {
	case err == nil && len(ips) > 0:
		s.IPs = ips
		s.Class = DNSResolves
		return s
	case err != nil:
		s.ResolverError = err.Error()
		var de *net.DNSError
		if errors.As(err, &de) {
			if de.IsNotFound {
				s.Class = DNSNXDomain
			} else if de.IsTemporary || de.Timeout() {
				s.Class = DNSServfail
			}
		}
	}

	if ns, err := d.Resolver.LookupNS(ctx, s.Host); err == nil && len(ns) > 0 {
		s.HasNS = true
		if s.Class == "" || s.Class == DNSNXDomain {
			s.Class = DNSNoARecord
		}
	}

	if s.Class == "" {
		if s.ResolverError != "" {
			s.Class = DNSServfail
		} else {
			s.Class = DNSNXDomain
		}
	}
	return s
}

// Annotate is shaped to plug into HTTPExecutor.Annotate.
func (d *DNSClassifier) Annotate(ctx context.Context, host string) string {
	return "dns=" + d.Classify(ctx, host).Class
}
