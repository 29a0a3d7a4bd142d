package imagegen_test

import (
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"reelforge/internal/config"
)

// pngStub is enough for content sniffing to report image/png.
var pngStub = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDRstub")

var pngStubB64 = base64.StdEncoding.EncodeToString(pngStub)

type countingServer struct {
	*httptest.Server
	hits atomic.Int32
}

func newServer(t *testing.T, h http.HandlerFunc) *countingServer {
	t.Helper()
	cs := &countingServer{}
	cs.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cs.hits.Add(1)
		h(w, r)
	}))
	t.Cleanup(cs.Close)
	return cs
}

func providerCfg(name, credential, endpoint string) config.ProviderConfig {
	return config.ProviderConfig{Name: name, Credential: credential, Endpoint: endpoint}
}

func writePNG(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "image/png")
	_, _ = w.Write(pngStub)
}
