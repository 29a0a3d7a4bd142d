//go:build !integration

package imagegen_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"reelforge/internal/domain"
	"reelforge/internal/domain/ports/adapter"
	"reelforge/internal/infra/adapters/imagegen"
)

func TestSyncProviders_Success(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name     string
		path     string
		auth     string
		respond  func(w http.ResponseWriter, r *http.Request)
		build    func(endpoint string) adapter.ImageProvider
		wantName string
	}{
		{
			name: "together inline base64",
			path: "/images/generations",
			auth: "Bearer tg",
			respond: func(w http.ResponseWriter, r *http.Request) {
				var body map[string]any
				_ = json.NewDecoder(r.Body).Decode(&body)
				if body["response_format"] != "b64_json" || body["model"] != "black-forest-labs/FLUX.1-schnell" {
					w.WriteHeader(http.StatusBadRequest)
					return
				}
				fmt.Fprintf(w, `{"data":[{"b64_json":%q}]}`, pngStubB64)
			},
			build: func(ep string) adapter.ImageProvider {
				return imagegen.NewTogetherProvider(providerCfg("together", "tg", ep), nil)
			},
			wantName: "together",
		},
		{
			name: "fal url refetch",
			path: "/fal-ai/flux/dev",
			auth: "Key fk",
			respond: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprintf(w, `{"images":[{"url":"http://%s/img.png"}]}`, r.Host)
			},
			build: func(ep string) adapter.ImageProvider {
				return imagegen.NewFALProvider(providerCfg("fal", "fk", ep), nil)
			},
			wantName: "fal",
		},
		{
			name: "stability artifacts",
			path: "/generation/stable-diffusion-xl-1024-v1-0/text-to-image",
			auth: "Bearer sk",
			respond: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprintf(w, `{"artifacts":[{"base64":%q,"finishReason":"SUCCESS"}]}`, pngStubB64)
			},
			build: func(ep string) adapter.ImageProvider {
				return imagegen.NewStabilityProvider(providerCfg("stability", "sk", ep), nil)
			},
			wantName: "stability",
		},
		{
			name: "webui txt2img",
			path: "/sdapi/v1/txt2img",
			respond: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprintf(w, `{"images":[%q]}`, pngStubB64)
			},
			build: func(ep string) adapter.ImageProvider {
				return imagegen.NewWebUIProvider(providerCfg("webui", ep, ep), nil)
			},
			wantName: "webui",
		},
		{
			name: "openai sdk url",
			path: "/images/generations",
			auth: "Bearer oa",
			respond: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprintf(w, `{"created":1,"data":[{"url":"http://%s/img.png"}]}`, r.Host)
			},
			build: func(ep string) adapter.ImageProvider {
				return imagegen.NewOpenAIProvider(providerCfg("openai", "oa", ep), nil)
			},
			wantName: "openai",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
				switch r.URL.Path {
				case "/img.png":
					writePNG(w)
				case tc.path:
					if tc.auth != "" && r.Header.Get("Authorization") != tc.auth {
						w.WriteHeader(http.StatusUnauthorized)
						return
					}
					w.Header().Set("Content-Type", "application/json")
					tc.respond(w, r)
				default:
					http.NotFound(w, r)
				}
			})

			p := tc.build(srv.URL)
			res, err := p.Generate(context.Background(), "a red fox")
			if err != nil {
				t.Fatalf("Generate: %v", err)
			}
			if res.Provider != tc.wantName || res.MediaType != "image/png" || string(res.Image) != string(pngStub) {
				t.Fatalf("unexpected result provider=%s type=%s len=%d", res.Provider, res.MediaType, len(res.Image))
			}
			if res.Model == "" {
				t.Fatal("model label must be set")
			}
		})
	}
}

func TestSyncProviders_FailureKinds(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		handler http.HandlerFunc
		want    error
		check   func(t *testing.T, pe *domain.ProviderError)
	}{
		{
			name: "server error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				fmt.Fprint(w, "boom")
			},
			want: domain.ErrRemote,
			check: func(t *testing.T, pe *domain.ProviderError) {
				if pe.Status != http.StatusInternalServerError {
					t.Fatalf("expected status 500, got %d", pe.Status)
				}
			},
		},
		{
			name: "rate limited",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Header().Set("Retry-After", "7")
				w.WriteHeader(http.StatusTooManyRequests)
			},
			want: domain.ErrRemote,
			check: func(t *testing.T, pe *domain.ProviderError) {
				if pe.RetryAfter != 7*time.Second {
					t.Fatalf("expected retry-after 7s, got %v", pe.RetryAfter)
				}
			},
		},
		{
			name: "forbidden",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusForbidden)
			},
			want: domain.ErrUnauthorized,
		},
		{
			name: "empty data",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"data":[]}`)
			},
			want: domain.ErrNoOutput,
		},
		{
			name: "empty payload",
			handler: func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, `{"data":[{"b64_json":""}]}`)
			},
			want: domain.ErrNoOutput,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			srv := newServer(t, tc.handler)
			p := imagegen.NewTogetherProvider(providerCfg("together", "tg", srv.URL), nil)

			_, err := p.Generate(context.Background(), "x")
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
			var pe *domain.ProviderError
			if !errors.As(err, &pe) || pe.Provider != "together" {
				t.Fatalf("expected *domain.ProviderError for together, got %T", err)
			}
			if tc.check != nil {
				tc.check(t, pe)
			}
		})
	}
}

func TestSyncProvider_ClientTimeout(t *testing.T) {
	t.Parallel()
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	})

	p := imagegen.NewStabilityProvider(providerCfg("stability", "sk", srv.URL), imagegen.NewHTTPClient(50*time.Millisecond))
	_, err := p.Generate(context.Background(), "x")
	if !errors.Is(err, domain.ErrTimeout) {
		t.Fatalf("expected ErrTimeout, got %v", err)
	}
}

func TestWebUI_Probe(t *testing.T) {
	t.Parallel()
	srv := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sdapi/v1/memory" {
			http.NotFound(w, r)
			return
		}
		fmt.Fprint(w, `{"ram":{}}`)
	})

	p := imagegen.NewWebUIProvider(providerCfg("webui", srv.URL, srv.URL), nil)
	if err := p.Probe(context.Background()); err != nil {
		t.Fatalf("Probe: %v", err)
	}

	down := imagegen.NewWebUIProvider(providerCfg("webui", "", ""), nil)
	if err := down.Probe(context.Background()); !errors.Is(err, domain.ErrUnconfigured) {
		t.Fatalf("expected ErrUnconfigured, got %v", err)
	}
}

func TestImagen_UnconfiguredMakesNoClient(t *testing.T) {
	t.Parallel()
	p := imagegen.NewImagenProvider(providerCfg("imagen", "", ""), nil)
	if _, err := p.Generate(context.Background(), "x"); !errors.Is(err, domain.ErrUnconfigured) {
		t.Fatalf("expected ErrUnconfigured, got %v", err)
	}
}

func TestPlaceholder_ProducesPNG(t *testing.T) {
	t.Parallel()
	res, err := imagegen.NewPlaceholderProvider().Generate(context.Background(), "demo")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.MediaType != "image/png" || res.Provider != imagegen.PlaceholderName {
		t.Fatalf("unexpected result %+v", res.MediaType)
	}
}
