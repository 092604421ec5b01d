package server

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// perIPRateLimit throttles requests per client IP. Limiters for idle
// clients are dropped after an hour.
func perIPRateLimit(perMinute int) func(http.Handler) http.Handler {
	type client struct {
		limiter  *rate.Limiter
		lastSeen time.Time
	}

	var (
		mu      sync.Mutex
		clients = make(map[string]*client)
	)

	limit := rate.Limit(float64(perMinute) / 60.0)
	burst := perMinute
	if burst < 1 {
		burst = 1
	}

	limiterFor := func(ip string) *rate.Limiter {
		mu.Lock()
		defer mu.Unlock()

		now := time.Now()
		for addr, c := range clients {
			if now.Sub(c.lastSeen) > time.Hour {
				delete(clients, addr)
			}
		}

		c, ok := clients[ip]
		if !ok {
			c = &client{limiter: rate.NewLimiter(limit, burst)}
			clients[ip] = c
		}
		c.lastSeen = now
		return c.limiter
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip, _, err := net.SplitHostPort(r.RemoteAddr)
			if err != nil {
				ip = r.RemoteAddr
			}
			if !limiterFor(ip).Allow() {
				writeJSON(w, http.StatusTooManyRequests, errResp{Error: "rate limit exceeded, slow down"})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
