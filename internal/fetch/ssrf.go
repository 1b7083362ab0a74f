package fetch

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	amerrors "github.com/Aman-CERP/amansearch/internal/errors"
)

// privateRanges lists the reserved blocks a fetched page may not resolve to.
var privateRanges = mustParseCIDRs(
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"127.0.0.0/8",
	"169.254.0.0/16",
	"100.64.0.0/10",
	"0.0.0.0/8",
	"::1/128",
	"fc00::/7",
	"fe80::/10",
)

func mustParseCIDRs(cidrs ...string) []*net.IPNet {
	out := make([]*net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		_, ipnet, err := net.ParseCIDR(cidr)
		if err != nil {
			panic(fmt.Sprintf("invalid CIDR %q: %v", cidr, err))
		}
		out = append(out, ipnet)
	}
	return out
}

// IsPrivateIP reports whether ip falls within a private or reserved range.
func IsPrivateIP(ip net.IP) bool {
	if v4 := ip.To4(); v4 != nil {
		ip = v4
	}
	for _, ipnet := range privateRanges {
		if ipnet.Contains(ip) {
			return true
		}
	}
	return ip.IsUnspecified()
}

// validateURL checks scheme and host. Literal private IPs are rejected
// here; hostnames are checked again at dial time.
func validateURL(rawURL string, allowPrivate bool) (*url.URL, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, notAllowed(rawURL, "invalid url", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return nil, notAllowed(rawURL, fmt.Sprintf("scheme %q not allowed", u.Scheme), nil)
	}
	host := u.Hostname()
	if host == "" {
		return nil, notAllowed(rawURL, "empty hostname", nil)
	}
	if allowPrivate {
		return u, nil
	}
	if strings.EqualFold(host, "localhost") {
		return nil, notAllowed(rawURL, "localhost is not allowed", nil)
	}
	if ip := net.ParseIP(host); ip != nil && IsPrivateIP(ip) {
		return nil, notAllowed(rawURL, fmt.Sprintf("ip %s is private", ip), nil)
	}
	return u, nil
}

func notAllowed(rawURL, msg string, cause error) error {
	return amerrors.New(amerrors.ErrCodeURLNotAllowed, msg, cause).
		WithDetail(amerrors.DetailURL, rawURL)
}

// newSafeTransport resolves once per dial and refuses private targets,
// closing the gap between validation and connection.
func newSafeTransport(allowPrivate bool) *http.Transport {
	dialer := &net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSHandshakeTimeout = 10 * time.Second
	transport.ResponseHeaderTimeout = 15 * time.Second
	if allowPrivate {
		transport.DialContext = dialer.DialContext
		return transport
	}
	transport.DialContext = func(ctx context.Context, network, addr string) (net.Conn, error) {
		host, port, err := net.SplitHostPort(addr)
		if err != nil {
			return nil, fmt.Errorf("invalid address: %w", err)
		}
		ips, err := net.DefaultResolver.LookupIPAddr(ctx, host)
		if err != nil {
			return nil, fmt.Errorf("lookup %s: %w", host, err)
		}
		if len(ips) == 0 {
			return nil, fmt.Errorf("lookup %s: no addresses", host)
		}
		for _, ip := range ips {
			if IsPrivateIP(ip.IP) {
				return nil, notAllowed(host, fmt.Sprintf("%s resolves to private ip %s", host, ip.IP), nil)
			}
		}
		return dialer.DialContext(ctx, network, net.JoinHostPort(ips[0].IP.String(), port))
	}
	return transport
}
