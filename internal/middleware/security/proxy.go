package security

import (
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
)

// ProxyMetrics counts requests that tried to assert an identity without
// coming through a trusted proxy.
type ProxyMetrics struct {
	UntrustedIdentityAttempts int64
}

// ProxyTrust decides which peers may set forwarding and identity headers.
// The identity header is only honoured when the direct peer is a trusted
// proxy, otherwise any client could impersonate any user.
type ProxyTrust struct {
	mu             sync.RWMutex
	trustedProxies []*net.IPNet
	identityHeader string
	untrusted      int64
}

// NewProxyTrust trusts loopback and private networks by default.
func NewProxyTrust(identityHeader string) *ProxyTrust {
	return &ProxyTrust{
		identityHeader: identityHeader,
		trustedProxies: []*net.IPNet{
			parseCIDR("127.0.0.0/8"),
			parseCIDR("::1/128"),
			parseCIDR("10.0.0.0/8"),
			parseCIDR("172.16.0.0/12"),
			parseCIDR("192.168.0.0/16"),
		},
	}
}

// parseCIDR is a helper to parse CIDR during initialization
func parseCIDR(cidr string) *net.IPNet {
	_, network, err := net.ParseCIDR(cidr)
	if err != nil {
		panic(fmt.Sprintf("failed to parse trusted proxy CIDR %s: %v", cidr, err))
	}
	return network
}

// SetTrustedProxies replaces the trusted networks. An empty list trusts no
// peer.
func (p *ProxyTrust) SetTrustedProxies(cidrs []string) error {
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, cidr := range cidrs {
		_, network, err := net.ParseCIDR(strings.TrimSpace(cidr))
		if err != nil {
			return fmt.Errorf("invalid CIDR %s: %w", cidr, err)
		}
		nets = append(nets, network)
	}
	p.mu.Lock()
	p.trustedProxies = nets
	p.mu.Unlock()
	return nil
}

// ExtractClientIP extracts the real client IP, validating forwarded headers
func (p *ProxyTrust) ExtractClientIP(r *http.Request) string {
	directIP := directPeer(r)
	parsedDirectIP := net.ParseIP(directIP)
	if parsedDirectIP == nil {
		return directIP
	}

	if p.isTrustedProxy(parsedDirectIP) {
		if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
			clientIP := strings.TrimSpace(strings.Split(xff, ",")[0])
			if net.ParseIP(clientIP) != nil {
				return clientIP
			}
		}
		if xri := r.Header.Get("X-Real-IP"); xri != "" {
			if net.ParseIP(xri) != nil {
				return xri
			}
		}
	}

	return directIP
}

// Identity returns the identity asserted by a trusted proxy, or "" when the
// header is absent or the peer is not trusted.
func (p *ProxyTrust) Identity(r *http.Request) string {
	if p.identityHeader == "" {
		return ""
	}
	id := strings.TrimSpace(r.Header.Get(p.identityHeader))
	if id == "" {
		return ""
	}
	ip := net.ParseIP(directPeer(r))
	if ip == nil || !p.isTrustedProxy(ip) {
		atomic.AddInt64(&p.untrusted, 1)
		return ""
	}
	return id
}

func directPeer(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// isTrustedProxy checks if an IP is from a trusted proxy
func (p *ProxyTrust) isTrustedProxy(ip net.IP) bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, network := range p.trustedProxies {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// GetMetrics returns current security metrics
func (p *ProxyTrust) GetMetrics() ProxyMetrics {
	return ProxyMetrics{
		UntrustedIdentityAttempts: atomic.LoadInt64(&p.untrusted),
	}
}
