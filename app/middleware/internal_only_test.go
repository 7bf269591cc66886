package middleware

import (
	"encoding/json"
	"net"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewInternalOnlyMiddleware(t *testing.T) {
	t.Run("BuiltInRangesTrusted", func(t *testing.T) {
		m, err := NewInternalOnlyMiddleware(nil)
		require.NoError(t, err)

		for _, addr := range []string{"127.0.0.1", "10.1.2.3", "172.16.0.9", "172.31.255.1", "192.168.0.10", "::1", "fc00::1"} {
			assert.True(t, m.isAllowed(net.ParseIP(addr)), "%s should be trusted", addr)
		}
	})

	t.Run("PublicAddressesRejected", func(t *testing.T) {
		m, err := NewInternalOnlyMiddleware(nil)
		require.NoError(t, err)

		for _, addr := range []string{"8.8.8.8", "172.32.0.1", "203.0.113.9", "2001:4860:4860::8888"} {
			assert.False(t, m.isAllowed(net.ParseIP(addr)), "%s should be rejected", addr)
		}
	})

	t.Run("ExtraSourcesAcceptCIDRsAndBareIPs", func(t *testing.T) {
		m, err := NewInternalOnlyMiddleware([]string{"100.64.0.0/10", "198.51.100.7", "2001:db8::5"})
		require.NoError(t, err)

		assert.True(t, m.isAllowed(net.ParseIP("100.64.1.1")))
		assert.True(t, m.isAllowed(net.ParseIP("198.51.100.7")))
		assert.False(t, m.isAllowed(net.ParseIP("198.51.100.8")))
		assert.True(t, m.isAllowed(net.ParseIP("2001:db8::5")))
	})

	t.Run("EmptyEntriesSkipped", func(t *testing.T) {
		m, err := NewInternalOnlyMiddleware([]string{"", "203.0.113.0/24"})
		require.NoError(t, err)
		assert.True(t, m.isAllowed(net.ParseIP("203.0.113.9")))
	})

	t.Run("InvalidExtraSourceRejected", func(t *testing.T) {
		_, err := NewInternalOnlyMiddleware([]string{"not-an-address"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "neither a CIDR nor an IP")
	})
}

func TestInternalOnlyRestrict(t *testing.T) {
	newApp := func(m *InternalOnlyMiddleware) *fiber.App {
		app := fiber.New()
		app.Get("/internal/ping", m.Restrict(), func(c fiber.Ctx) error {
			return c.SendString("pong")
		})
		return app
	}

	t.Run("OutsideCallerGets403", func(t *testing.T) {
		// The test transport reports 0.0.0.0 as the peer, which no built-in
		// range covers.
		m, err := NewInternalOnlyMiddleware(nil)
		require.NoError(t, err)
		app := newApp(m)

		resp, err := app.Test(httptest.NewRequest("GET", "/internal/ping", nil))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, fiber.StatusForbidden, resp.StatusCode)

		var body struct {
			Success bool   `json:"success"`
			Message string `json:"message"`
			Error   struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.False(t, body.Success)
		assert.Equal(t, "This endpoint is only reachable from the internal network", body.Message)
		assert.Equal(t, "INTERNAL_ONLY", body.Error.Code)
	})

	t.Run("TrustedExtraSourceAdmitted", func(t *testing.T) {
		m, err := NewInternalOnlyMiddleware([]string{"0.0.0.0"})
		require.NoError(t, err)
		app := newApp(m)

		resp, err := app.Test(httptest.NewRequest("GET", "/internal/ping", nil))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	})
}
