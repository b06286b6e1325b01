package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestClientAddressHonoursTrustedHops(t *testing.T) {
	cases := []struct {
		name      string
		hops      int
		forwarded []string
		realIP    string
		want      string
	}{
		{name: "no proxies ignores headers", hops: 0, forwarded: []string{"1.1.1.1"}, realIP: "2.2.2.2", want: "192.0.2.1"},
		{name: "one proxy takes right-most", hops: 1, forwarded: []string{"1.1.1.1, 203.0.113.4"}, want: "203.0.113.4"},
		{name: "two proxies skip the inner hop", hops: 2, forwarded: []string{"1.1.1.1, 203.0.113.4, 10.0.0.2"}, want: "203.0.113.4"},
		{name: "repeated headers are one list", hops: 1, forwarded: []string{"1.1.1.1", "203.0.113.4"}, want: "203.0.113.4"},
		{name: "short chain falls back to peer", hops: 2, forwarded: []string{"1.1.1.1"}, want: "192.0.2.1"},
		{name: "malformed hop falls back to peer", hops: 1, forwarded: []string{"not-an-ip"}, want: "192.0.2.1"},
		{name: "real ip header behind one proxy", hops: 1, realIP: "203.0.113.9", want: "203.0.113.9"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var got string
			handler := ClientAddress(tc.hops)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = ClientIP(r)
			}))
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for _, v := range tc.forwarded {
				req.Header.Add("X-Forwarded-For", v)
			}
			if tc.realIP != "" {
				req.Header.Set("X-Real-IP", tc.realIP)
			}
			handler.ServeHTTP(httptest.NewRecorder(), req)
			require.Equal(t, tc.want, got)
		})
	}
}

func TestClientIPWithoutMiddlewareUsesPeer(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.3:4433"
	req.Header.Set("X-Forwarded-For", "1.1.1.1")
	require.Equal(t, "198.51.100.3", ClientIP(req))
}
