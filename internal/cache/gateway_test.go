package cache

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestGateway(t *testing.T, manifest *Manifest, appOrigin string) (*Gateway, *Diskstore) {
	t.Helper()
	store := newTestDiskstore(t)
	gateway, err := NewGateway(store, manifest, appOrigin, nil)
	if err != nil {
		t.Fatalf("NewGateway failed: %v", err)
	}
	return gateway, store
}

func TestCacheFirstServesOffline(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte("<html>shell</html>"))
	}))

	manifest := &Manifest{
		AppShell:   []string{"./index.html"},
		CDNOrigins: []string{"cdn.example"},
	}
	gateway, _ := newTestGateway(t, manifest, server.URL)

	target := server.URL + "/index.html"
	ctx := context.Background()

	first, err := gateway.Fetch(ctx, target)
	if err != nil {
		t.Fatalf("first Fetch failed: %v", err)
	}
	if first.CacheState != "MISS" || first.Strategy != StrategyCacheFirst {
		t.Errorf("first fetch = %s/%s, want MISS/cache-first", first.CacheState, first.Strategy)
	}
	gateway.Flush()

	// The origin is gone; the cached copy still serves.
	server.Close()

	second, err := gateway.Fetch(ctx, target)
	if err != nil {
		t.Fatalf("second Fetch failed: %v", err)
	}
	if second.CacheState != "HIT" {
		t.Errorf("second fetch state = %s, want HIT", second.CacheState)
	}
	if string(second.Body) != "<html>shell</html>" {
		t.Errorf("cached body = %q", second.Body)
	}
	if hits != 1 {
		t.Errorf("origin was hit %d times, want 1", hits)
	}
}

func TestCacheFirstDoesNotCacheErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer server.Close()

	manifest := &Manifest{AppShell: []string{"./index.html"}, CDNOrigins: []string{"cdn.example"}}
	gateway, store := newTestGateway(t, manifest, server.URL)

	target := server.URL + "/missing.js"
	result, err := gateway.Fetch(context.Background(), target)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if result.Status != http.StatusNotFound {
		t.Errorf("status = %d, want 404", result.Status)
	}
	gateway.Flush()

	if entry, _ := store.Match(AppShellCache, target); entry != nil {
		t.Error("expected the 404 response not to be cached")
	}
}

func TestNetworkFirstPrefersLiveResponse(t *testing.T) {
	body := "v2"
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(body))
	}))
	defer server.Close()

	manifest := &Manifest{AppShell: []string{"./index.html"}, CDNOrigins: []string{"127.0.0.1"}}
	gateway, store := newTestGateway(t, manifest, "http://app.invalid")

	target := server.URL + "/lib.js"
	ctx := context.Background()

	first, err := gateway.Fetch(ctx, target)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if first.Strategy != StrategyNetworkFirst || first.CacheState != "MISS" {
		t.Errorf("first fetch = %s/%s, want network-first/MISS", first.Strategy, first.CacheState)
	}
	gateway.Flush()

	// The cache updated in the background, but live responses still win.
	body = "v3"
	second, err := gateway.Fetch(ctx, target)
	if err != nil {
		t.Fatalf("second Fetch failed: %v", err)
	}
	if string(second.Body) != "v3" || second.CacheState != "MISS" {
		t.Errorf("second fetch = %q/%s, want the live v3", second.Body, second.CacheState)
	}
	gateway.Flush()

	if entry, _ := store.Match(CDNCache, target); entry == nil {
		t.Error("expected the CDN response to be cached")
	}
}

func TestNetworkFirstFallsBackToCache(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("lib"))
	}))

	manifest := &Manifest{AppShell: []string{"./index.html"}, CDNOrigins: []string{"127.0.0.1"}}
	gateway, _ := newTestGateway(t, manifest, "http://app.invalid")

	target := server.URL + "/lib.js"
	ctx := context.Background()

	if _, err := gateway.Fetch(ctx, target); err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	gateway.Flush()

	server.Close()

	fallback, err := gateway.Fetch(ctx, target)
	if err != nil {
		t.Fatalf("fallback Fetch failed: %v", err)
	}
	if fallback.CacheState != "HIT" {
		t.Errorf("fallback state = %s, want HIT", fallback.CacheState)
	}
	if string(fallback.Body) != "lib" {
		t.Errorf("fallback body = %q", fallback.Body)
	}
}

func TestNetworkFirstFailsWithoutCacheOrNetwork(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	target := server.URL + "/never-fetched.js"
	server.Close()

	manifest := &Manifest{AppShell: []string{"./index.html"}, CDNOrigins: []string{"127.0.0.1"}}
	gateway, _ := newTestGateway(t, manifest, "http://app.invalid")

	if _, err := gateway.Fetch(context.Background(), target); err == nil {
		t.Fatal("expected an error with no network and no cached copy")
	}
}

func TestPassthroughBypassesCache(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("external"))
	}))
	defer server.Close()

	manifest := &Manifest{AppShell: []string{"./index.html"}, CDNOrigins: []string{"cdn.example"}}
	gateway, store := newTestGateway(t, manifest, "http://app.invalid")

	target := server.URL + "/thing"
	result, err := gateway.Fetch(context.Background(), target)
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if result.Strategy != StrategyPassthrough || result.CacheState != "BYPASS" {
		t.Errorf("result = %s/%s, want passthrough/BYPASS", result.Strategy, result.CacheState)
	}
	gateway.Flush()

	if entry, _ := store.Match(AppShellCache, target); entry != nil {
		t.Error("passthrough response ended up in the shell cache")
	}
	if entry, _ := store.Match(CDNCache, target); entry != nil {
		t.Error("passthrough response ended up in the CDN cache")
	}
}

func TestInstallAllOrNothing(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.HasSuffix(r.URL.Path, "missing.js") {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	manifest := &Manifest{
		AppShell:   []string{"./index.html", "./missing.js"},
		CDNOrigins: []string{"cdn.example"},
	}
	gateway, store := newTestGateway(t, manifest, server.URL)

	if err := gateway.Install(context.Background()); err == nil {
		t.Fatal("expected install to abort on a failed resource")
	}

	// Nothing was committed.
	if entry, _ := store.Match(AppShellCache, server.URL+"/index.html"); entry != nil {
		t.Error("expected no partial shell cache after a failed install")
	}
	names, err := store.Namespaces()
	if err != nil {
		t.Fatalf("Namespaces failed: %v", err)
	}
	if len(names) != 0 {
		t.Errorf("namespaces = %v, want none", names)
	}
}

func TestInstallPrecachesShell(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("asset:" + r.URL.Path))
	}))

	manifest := &Manifest{
		AppShell:   []string{"./index.html", "./js/app.js"},
		CDNOrigins: []string{"cdn.example"},
	}
	gateway, _ := newTestGateway(t, manifest, server.URL)

	if err := gateway.Install(context.Background()); err != nil {
		t.Fatalf("Install failed: %v", err)
	}
	server.Close()

	result, err := gateway.Fetch(context.Background(), server.URL+"/js/app.js")
	if err != nil {
		t.Fatalf("Fetch failed: %v", err)
	}
	if result.CacheState != "HIT" {
		t.Errorf("state = %s, want HIT from the installed shell", result.CacheState)
	}
	if string(result.Body) != "asset:/js/app.js" {
		t.Errorf("body = %q", result.Body)
	}
}

func TestActivateDeletesStaleNamespaces(t *testing.T) {
	manifest := &Manifest{AppShell: []string{"./index.html"}, CDNOrigins: []string{"cdn.example"}}
	gateway, store := newTestGateway(t, manifest, "http://app.invalid")

	seed := []string{"aether-old-v0", "soltura-app-v3", AppShellCache, CDNCache, "unrelated-cache"}
	for _, ns := range seed {
		if err := store.Put(ns, entryFor("https://app.test/a.js", "a")); err != nil {
			t.Fatalf("Put into %s failed: %v", ns, err)
		}
	}

	// Activation is idempotent: a second run changes nothing.
	for i := 0; i < 2; i++ {
		if err := gateway.Activate(); err != nil {
			t.Fatalf("Activate run %d failed: %v", i+1, err)
		}
	}

	names, err := store.Namespaces()
	if err != nil {
		t.Fatalf("Namespaces failed: %v", err)
	}

	got := strings.Join(names, ",")
	want := strings.Join([]string{CDNCache, AppShellCache, "unrelated-cache"}, ",")
	if got != want {
		t.Errorf("surviving namespaces = %s, want %s", got, want)
	}
}
