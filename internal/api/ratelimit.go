package api

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimiter counts hits per key in fixed windows.
type RateLimiter interface {
	// Hit records one request for key and reports whether it is within the
	// limit.
	Hit(ctx context.Context, key string) (bool, error)
}

// RedisRateLimiter is a fixed-window limiter shared by every API instance.
type RedisRateLimiter struct {
	rdb    *redis.Client
	limit  int
	window time.Duration
	prefix string
}

var fixedWindowScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return current
`)

func NewRedisRateLimiter(rdb *redis.Client, limit int, window time.Duration, prefix string) *RedisRateLimiter {
	limit, window = rateDefaults(limit, window)
	if prefix = strings.TrimSpace(prefix); prefix == "" {
		prefix = "rl"
	}
	return &RedisRateLimiter{rdb: rdb, limit: limit, window: window, prefix: prefix}
}

func (rl *RedisRateLimiter) Hit(ctx context.Context, key string) (bool, error) {
	res, err := fixedWindowScript.Run(ctx, rl.rdb, []string{rl.prefix + ":" + key}, rl.window.Milliseconds()).Result()
	if err != nil {
		return false, err
	}

	var count int64
	switch v := res.(type) {
	case int64:
		count = v
	case string:
		count, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			return false, err
		}
	default:
		return false, fmt.Errorf("unexpected redis script result type %T", res)
	}
	return count <= int64(rl.limit), nil
}

// LocalRateLimiter keeps windows in memory. Used with the local lock
// backend, where no Redis is configured.
type LocalRateLimiter struct {
	mu        sync.Mutex
	limit     int
	window    time.Duration
	now       func() time.Time
	windows   map[string]localWindow
	lastSweep time.Time
}

type localWindow struct {
	start time.Time
	count int
}

func NewLocalRateLimiter(limit int, window time.Duration) *LocalRateLimiter {
	limit, window = rateDefaults(limit, window)
	return &LocalRateLimiter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		windows: make(map[string]localWindow),
	}
}

func (rl *LocalRateLimiter) Hit(_ context.Context, key string) (bool, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	if now.Sub(rl.lastSweep) >= rl.window {
		rl.sweep(now)
	}

	w := rl.windows[key]
	if now.Sub(w.start) >= rl.window {
		w = localWindow{start: now}
	}
	w.count++
	rl.windows[key] = w
	return w.count <= rl.limit, nil
}

// sweep drops expired windows so idle keys do not accumulate.
func (rl *LocalRateLimiter) sweep(now time.Time) {
	for key, w := range rl.windows {
		if now.Sub(w.start) >= rl.window {
			delete(rl.windows, key)
		}
	}
	rl.lastSweep = now
}

func rateDefaults(limit int, window time.Duration) (int, time.Duration) {
	if limit <= 0 {
		limit = 10
	}
	if window <= 0 {
		window = time.Minute
	}
	return limit, window
}

// TrustedProxies lists the networks allowed to report the client address
// through X-Forwarded-For. With none configured the header is ignored.
type TrustedProxies []netip.Prefix

// ParseTrustedProxies accepts CIDR ranges and bare IP addresses.
func ParseTrustedProxies(entries []string) (TrustedProxies, error) {
	var out TrustedProxies
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		if strings.Contains(e, "/") {
			p, err := netip.ParsePrefix(e)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", e, err)
			}
			out = append(out, p.Masked())
			continue
		}
		addr, err := netip.ParseAddr(e)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", e, err)
		}
		addr = addr.Unmap()
		out = append(out, netip.PrefixFrom(addr, addr.BitLen()))
	}
	return out, nil
}

func (tp TrustedProxies) trusts(addr netip.Addr) bool {
	addr = addr.Unmap()
	for _, p := range tp {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// ClientKey returns the address a request is rate limited under. Forwarded
// hops are walked right to left only while the sender is a trusted proxy, so
// a client cannot pick its own key.
func (tp TrustedProxies) ClientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	addr, err := netip.ParseAddr(host)
	if err != nil || !tp.trusts(addr) {
		return host
	}

	fwd := r.Header.Get("X-Forwarded-For")
	if fwd == "" {
		return host
	}
	hops := strings.Split(fwd, ",")
	for i := len(hops) - 1; i >= 0; i-- {
		hop, err := netip.ParseAddr(strings.TrimSpace(hops[i]))
		if err != nil {
			break
		}
		if !tp.trusts(hop) {
			return hop.Unmap().String()
		}
	}
	return host
}

// RateLimitMiddleware rejects clients over the limit with 429. Limiter
// failures let the request through.
func RateLimitMiddleware(rl RateLimiter, proxies TrustedProxies, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, err := rl.Hit(r.Context(), proxies.ClientKey(r))
			if err != nil {
				logger.Warn("rate limiter error", zap.Error(err))
			} else if !ok {
				writeError(w, http.StatusTooManyRequests, CodeRateLimited, "too many attempts, try again later")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
