package cache

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"aetherscribe/internal/services"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"
)

// Current cache namespace names. Bumping a version constant orphans the old
// namespace, which activation then deletes.
const (
	AppShellCache = "aether-scribe-v1"
	CDNCache      = "aether-scribe-cdn-v1"
)

// Namespace prefixes this application has ever used. Activation only ever
// touches namespaces matching one of these.
var stalePrefixes = []string{"aether-", "soltura-"}

// Strategy labels, also used as metric label values.
const (
	StrategyNetworkFirst = "network-first"
	StrategyCacheFirst   = "cache-first"
	StrategyPassthrough  = "passthrough"
)

// Result is a replayable response from the asset gateway.
type Result struct {
	Status      int
	ContentType string
	Body        []byte
	CacheState  string // HIT, MISS or BYPASS
	Strategy    string
}

// Gateway serves assets through an offline-first strategy engine: app-shell
// resources cache-first, allow-listed CDN hosts network-first with the disk
// cache as fallback, everything else passed straight through. Cache writes
// happen off the response path and their failures never surface to callers.
type Gateway struct {
	store      *Diskstore
	hot        *gocache.Cache
	client     *http.Client
	cdnLimiter *rate.Limiter
	metrics    *services.Metrics

	appOrigin *url.URL

	// mu guards the manifest-derived fields, which hot-reload replaces.
	mu         sync.RWMutex
	shellPaths []string
	cdnOrigins []string

	wg sync.WaitGroup
}

// NewGateway wires the gateway. metrics may be nil.
func NewGateway(store *Diskstore, manifest *Manifest, appOriginURL string, metrics *services.Metrics) (*Gateway, error) {
	origin, err := url.Parse(appOriginURL)
	if err != nil {
		return nil, fmt.Errorf("invalid app origin URL: %w", err)
	}

	return &Gateway{
		store:      store,
		hot:        gocache.New(30*time.Minute, 10*time.Minute),
		client:     &http.Client{Timeout: 30 * time.Second},
		cdnLimiter: rate.NewLimiter(rate.Limit(20), 40),
		metrics:    metrics,
		appOrigin:  origin,
		shellPaths: manifest.AppShell,
		cdnOrigins: manifest.CDNOrigins,
	}, nil
}

// Install fetches every app-shell resource from the app origin and commits
// them to the shell namespace all-or-nothing. Any single fetch failure aborts
// the install and leaves the previous shell cache untouched.
func (g *Gateway) Install(ctx context.Context) error {
	g.mu.RLock()
	shellPaths := g.shellPaths
	g.mu.RUnlock()

	log.Printf("📦 [GATEWAY] Installing app shell (%d resources)", len(shellPaths))

	entries := make([]Entry, 0, len(shellPaths))
	for _, path := range shellPaths {
		target := g.resolveShellPath(path)

		entry, err := g.fetchRemote(ctx, target)
		if err != nil {
			return fmt.Errorf("app shell install aborted at %s: %w", target, err)
		}
		if entry.Status != http.StatusOK {
			return fmt.Errorf("app shell install aborted at %s: status %d", target, entry.Status)
		}
		entries = append(entries, entry.Entry)
	}

	if err := g.store.AddAll(AppShellCache, entries); err != nil {
		return fmt.Errorf("app shell install failed: %w", err)
	}

	g.hot.Flush()
	log.Printf("✅ [GATEWAY] App shell installed into %s", AppShellCache)
	return nil
}

// Reinstall swaps in a new manifest and reruns the shell install. Used by
// manifest hot-reload.
func (g *Gateway) Reinstall(ctx context.Context, manifest *Manifest) error {
	g.mu.Lock()
	g.shellPaths = manifest.AppShell
	g.cdnOrigins = manifest.CDNOrigins
	g.mu.Unlock()
	return g.Install(ctx)
}

// Activate deletes every namespace carrying one of this application's
// prefixes that is not a current version. Running it twice in a row is safe
// and leaves exactly the current namespaces.
func (g *Gateway) Activate() error {
	names, err := g.store.Namespaces()
	if err != nil {
		return err
	}

	for _, name := range names {
		if name == AppShellCache || name == CDNCache {
			continue
		}
		if !hasStalePrefix(name) {
			continue
		}
		if err := g.store.Delete(name); err != nil {
			return err
		}
		log.Printf("🗑️  [GATEWAY] Deleted stale cache namespace: %s", name)
	}

	g.hot.Flush()
	return nil
}

// Fetch resolves one asset request through the strategy engine. The URL is
// matched exactly, query string included.
func (g *Gateway) Fetch(ctx context.Context, target string) (*Result, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("invalid asset URL: %w", err)
	}

	switch {
	case g.isCDNHost(u.Hostname()):
		return g.networkFirst(ctx, target)
	case u.Host == g.appOrigin.Host:
		return g.cacheFirst(ctx, target)
	default:
		return g.passthrough(ctx, target)
	}
}

// Flush waits for in-flight background cache writes to settle.
func (g *Gateway) Flush() {
	g.wg.Wait()
}

// networkFirst tries the live CDN, caching fresh 200s in the background, and
// falls back to the disk cache only when the network itself fails.
func (g *Gateway) networkFirst(ctx context.Context, target string) (*Result, error) {
	if err := g.cdnLimiter.Wait(ctx); err != nil {
		return nil, err
	}

	fetched, err := g.fetchRemote(ctx, target)
	if err == nil {
		if fetched.Status == http.StatusOK {
			g.storeAsync(CDNCache, fetched.Entry)
		}
		g.countCache(StrategyNetworkFirst, "network")
		return fetched.result(StrategyNetworkFirst, "MISS"), nil
	}

	cached, matchErr := g.match(CDNCache, target)
	if matchErr == nil && cached != nil {
		g.countCache(StrategyNetworkFirst, "fallback_hit")
		return cachedResult(cached, StrategyNetworkFirst), nil
	}

	g.countCache(StrategyNetworkFirst, "error")
	return nil, fmt.Errorf("CDN unreachable and no cached copy for %s: %w", target, err)
}

// cacheFirst serves the disk copy when present and only then goes to the
// network, caching successful responses in the background.
func (g *Gateway) cacheFirst(ctx context.Context, target string) (*Result, error) {
	cached, err := g.match(AppShellCache, target)
	if err == nil && cached != nil {
		g.countCache(StrategyCacheFirst, "hit")
		return cachedResult(cached, StrategyCacheFirst), nil
	}

	fetched, err := g.fetchRemote(ctx, target)
	if err != nil {
		g.countCache(StrategyCacheFirst, "error")
		return nil, fmt.Errorf("asset unavailable offline and online: %w", err)
	}

	if fetched.Status == http.StatusOK {
		g.storeAsync(AppShellCache, fetched.Entry)
	}
	g.countCache(StrategyCacheFirst, "miss")
	return fetched.result(StrategyCacheFirst, "MISS"), nil
}

// passthrough forwards the request untouched. Nothing is cached.
func (g *Gateway) passthrough(ctx context.Context, target string) (*Result, error) {
	fetched, err := g.fetchRemote(ctx, target)
	if err != nil {
		g.countCache(StrategyPassthrough, "error")
		return nil, err
	}
	g.countCache(StrategyPassthrough, "network")
	return fetched.result(StrategyPassthrough, "BYPASS"), nil
}

// fetchedEntry carries a live response plus its non-200 status, which is
// replayed to the caller but never cached.
type fetchedEntry struct {
	Entry
	Status int
}

func (f *fetchedEntry) result(strategy, state string) *Result {
	return &Result{
		Status:      f.Status,
		ContentType: f.ContentType,
		Body:        f.Body,
		CacheState:  state,
		Strategy:    strategy,
	}
}

func cachedResult(entry *Entry, strategy string) *Result {
	return &Result{
		Status:      http.StatusOK,
		ContentType: entry.ContentType,
		Body:        entry.Body,
		CacheState:  "HIT",
		Strategy:    strategy,
	}
}

func (g *Gateway) fetchRemote(ctx context.Context, target string) (*fetchedEntry, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}

	return &fetchedEntry{
		Entry: Entry{
			URL:         target,
			ContentType: resp.Header.Get("Content-Type"),
			Body:        body,
			StoredAt:    time.Now().UnixMilli(),
		},
		Status: resp.StatusCode,
	}, nil
}

// match consults the in-memory hot layer before touching disk.
func (g *Gateway) match(namespace, target string) (*Entry, error) {
	hotKey := namespace + "|" + target
	if v, ok := g.hot.Get(hotKey); ok {
		return v.(*Entry), nil
	}

	entry, err := g.store.Match(namespace, target)
	if err != nil || entry == nil {
		return entry, err
	}
	g.hot.Set(hotKey, entry, gocache.DefaultExpiration)
	return entry, nil
}

// storeAsync writes the entry off the response path. Failures are logged and
// dropped; a broken cache write must never break asset delivery.
func (g *Gateway) storeAsync(namespace string, entry Entry) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		if err := g.store.Put(namespace, entry); err != nil {
			log.Printf("⚠️  [GATEWAY] Cache write failed for %s: %v", entry.URL, err)
			return
		}
		g.hot.Set(namespace+"|"+entry.URL, &entry, gocache.DefaultExpiration)
	}()
}

func (g *Gateway) countCache(strategy, result string) {
	if g.metrics != nil {
		g.metrics.CacheRequests.WithLabelValues(strategy, result).Inc()
	}
}

func (g *Gateway) isCDNHost(hostname string) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	for _, origin := range g.cdnOrigins {
		if strings.Contains(hostname, origin) {
			return true
		}
	}
	return false
}

// resolveShellPath turns a manifest path like "./index.html" into an absolute
// URL on the app origin.
func (g *Gateway) resolveShellPath(path string) string {
	trimmed := strings.TrimPrefix(path, "./")
	trimmed = strings.TrimPrefix(trimmed, "/")
	return strings.TrimSuffix(g.appOrigin.String(), "/") + "/" + trimmed
}

func hasStalePrefix(name string) bool {
	for _, prefix := range stalePrefixes {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}
