// Package middleware contains HTTP middleware functions for request processing
package middleware

import (
	"fmt"
	"net"

	"github.com/AronSwan/onlinestore-sub023/app/dto"
	"github.com/gofiber/fiber/v3"
)

// internalNetworks are always trusted: loopback plus the RFC 1918 and
// RFC 4193 private ranges the chain watcher and admin tooling deploy into.
var internalNetworks = []string{
	"127.0.0.0/8",
	"::1/128",
	"10.0.0.0/8",
	"172.16.0.0/12",
	"192.168.0.0/16",
	"fc00::/7",
}

// InternalOnlyMiddleware restricts a route group to callers inside the
// deployment perimeter. Observation feeds and admin endpoints must never be
// reachable from the public internet even when the service itself is.
type InternalOnlyMiddleware struct {
	allowed []*net.IPNet
}

// NewInternalOnlyMiddleware creates the guard. extraSources may list
// additional trusted CIDRs or bare IPs on top of the built-in loopback and
// private ranges.
func NewInternalOnlyMiddleware(extraSources []string) (*InternalOnlyMiddleware, error) {
	m := &InternalOnlyMiddleware{}

	for _, cidr := range internalNetworks {
		_, network, err := net.ParseCIDR(cidr)
		if err != nil {
			return nil, fmt.Errorf("failed to parse built-in network %s: %w", cidr, err)
		}
		m.allowed = append(m.allowed, network)
	}

	for _, source := range extraSources {
		if source == "" {
			continue
		}
		if _, network, err := net.ParseCIDR(source); err == nil {
			m.allowed = append(m.allowed, network)
			continue
		}
		ip := net.ParseIP(source)
		if ip == nil {
			return nil, fmt.Errorf("trusted source %q is neither a CIDR nor an IP", source)
		}
		bits := 32
		if ip.To4() == nil {
			bits = 128
		}
		m.allowed = append(m.allowed, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
	}

	return m, nil
}

// Restrict is the middleware function that rejects requests from outside the
// trusted networks
func (m *InternalOnlyMiddleware) Restrict() fiber.Handler {
	return func(c fiber.Ctx) error {
		ip := net.ParseIP(c.IP())
		if ip == nil || !m.isAllowed(ip) {
			return c.Status(fiber.StatusForbidden).JSON(dto.APIResponse{
				Success: false,
				Message: "This endpoint is only reachable from the internal network",
				Error: dto.ErrorDetail{
					Code: "INTERNAL_ONLY",
				},
			})
		}
		return c.Next()
	}
}

func (m *InternalOnlyMiddleware) isAllowed(ip net.IP) bool {
	for _, network := range m.allowed {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}
