package mw

import (
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// Token bucket parameters for one key class
type RateBucket struct {
	RefillPerSec int
	Burst        int
	TTL          time.Duration
}

type RateLimitMiddleware struct {
	rdb    *redis.Client
	bucket RateBucket
}

// NewRateLimit limits requests per client IP with a Redis-backed token
// bucket, so the budget holds across service instances.
func NewRateLimit(rdb *redis.Client, bucket RateBucket) *RateLimitMiddleware {
	if bucket.TTL == 0 {
		bucket.TTL = 2 * time.Minute
	}
	if bucket.Burst <= 0 {
		bucket.Burst = 10
	}
	if bucket.RefillPerSec <= 0 {
		bucket.RefillPerSec = 5
	}
	return &RateLimitMiddleware{rdb: rdb, bucket: bucket}
}

// Lua token bucket: refill by elapsed time, then try to take one token.
var tokenBucketScript = redis.NewScript(`
local tokens_key = KEYS[1]
local ts_key = KEYS[2]
local refill = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local tokens = tonumber(redis.call("GET", tokens_key)) or burst
local last = tonumber(redis.call("GET", ts_key)) or now

tokens = math.min(burst, tokens + (now - last) * refill)

local allowed = 0
if tokens >= 1 then
  tokens = tokens - 1
  allowed = 1
end

redis.call("SET", tokens_key, tokens, "EX", ttl)
redis.call("SET", ts_key, now, "EX", ttl)
return allowed
`)

func (m *RateLimitMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := clientIP(r)
		if ip == "" {
			ip = "unknown"
		}

		keys := []string{"rl:ip:" + ip + ":tokens", "rl:ip:" + ip + ":ts"}
		argv := []interface{}{
			m.bucket.RefillPerSec,
			m.bucket.Burst,
			time.Now().Unix(),
			int(m.bucket.TTL.Seconds()),
		}

		allowed, err := tokenBucketScript.Run(r.Context(), m.rdb, keys, argv...).Int()
		if err != nil {
			// Redis down must not take the read API with it
			next.ServeHTTP(w, r)
			return
		}

		if allowed != 1 {
			w.Header().Set("Retry-After", strconv.Itoa(1))
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
