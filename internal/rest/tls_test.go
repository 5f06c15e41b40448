package rest

import (
	"context"
	"crypto/tls"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/danmuck/petctl/internal/testutil/testlog"
	"github.com/danmuck/petctl/internal/testutil/tlstest"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, h *harness) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	errc := make(chan error, 1)
	go func() { errc <- h.srv.Serve(ln) }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		require.NoError(t, h.srv.Shutdown(ctx))
		require.NoError(t, <-errc)
	})
	return ln.Addr().String()
}

func TestTLSConfigValidate(t *testing.T) {
	testlog.Start(t)
	require.NoError(t, TLSConfig{}.Validate())
	require.ErrorIs(t, TLSConfig{Mutual: true}.Validate(), ErrTLSRequired)
	require.ErrorIs(t, TLSConfig{Enabled: true, KeyFile: "k"}.Validate(), ErrTLSCertFileRequired)
	require.ErrorIs(t, TLSConfig{Enabled: true, CertFile: "c"}.Validate(), ErrTLSKeyFileRequired)
	require.ErrorIs(t, TLSConfig{Enabled: true, Mutual: true, CertFile: "c", KeyFile: "k"}.Validate(), ErrTLSCAFileRequired)
}

func TestServeTLS(t *testing.T) {
	testlog.Start(t)
	ca := tlstest.NewAuthority(t, "petctl-test-ca")
	certFile, keyFile := ca.IssueServerCert(t, "petctl-api")

	cfg := DefaultConfig()
	cfg.TLS = TLSConfig{Enabled: true, CertFile: certFile, KeyFile: keyFile}
	addr := serve(t, newHarness(t, cfg))

	client := &http.Client{
		Timeout:   2 * time.Second,
		Transport: &http.Transport{TLSClientConfig: &tls.Config{RootCAs: ca.Pool()}},
	}
	resp, err := client.Get("https://" + addr + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServeMutualTLSRequiresClientCert(t *testing.T) {
	testlog.Start(t)
	ca := tlstest.NewAuthority(t, "petctl-test-ca")
	certFile, keyFile := ca.IssueServerCert(t, "petctl-api")

	cfg := DefaultConfig()
	cfg.TLS = TLSConfig{Enabled: true, Mutual: true, CertFile: certFile, KeyFile: keyFile, CAFile: ca.CAFile()}
	addr := serve(t, newHarness(t, cfg))

	anonymous := &http.Client{
		Timeout:   2 * time.Second,
		Transport: &http.Transport{TLSClientConfig: &tls.Config{RootCAs: ca.Pool()}},
	}
	if resp, err := anonymous.Get("https://" + addr + "/health"); err == nil {
		resp.Body.Close()
		t.Fatalf("expected handshake failure without client cert, got %d", resp.StatusCode)
	}

	clientCert := ca.IssueClientCert(t, "participant")
	client := &http.Client{
		Timeout: 2 * time.Second,
		Transport: &http.Transport{TLSClientConfig: &tls.Config{
			RootCAs:      ca.Pool(),
			Certificates: []tls.Certificate{clientCert},
		}},
	}
	resp, err := client.Get("https://" + addr + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServeRejectsBadTLSFiles(t *testing.T) {
	testlog.Start(t)
	cfg := DefaultConfig()
	cfg.TLS = TLSConfig{Enabled: true, CertFile: "/nonexistent.crt", KeyFile: "/nonexistent.key"}
	h := newHarness(t, cfg)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	require.Error(t, h.srv.Serve(ln))
}

func TestAdminTokenGuardsOperatorRoutes(t *testing.T) {
	testlog.Start(t)
	cfg := DefaultConfig()
	cfg.AdminToken = "s3cret"
	h := newHarness(t, cfg)

	require.Equal(t, http.StatusUnauthorized, h.do(t, http.MethodGet, "/metrics", nil, nil).Code)
	require.Equal(t, http.StatusUnauthorized, h.do(t, http.MethodGet, "/rounds/1", nil, nil).Code)
	bearer := map[string]string{"Authorization": "Bearer s3cret"}
	require.Equal(t, http.StatusOK, h.do(t, http.MethodGet, "/metrics", nil, bearer).Code)
	require.Equal(t, http.StatusNotFound, h.do(t, http.MethodGet, "/rounds/1", nil, bearer).Code)
	require.Equal(t, http.StatusOK, h.do(t, http.MethodGet, "/params", nil, nil).Code)
}
