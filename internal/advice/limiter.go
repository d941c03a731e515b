package advice

import (
	"sync"
	"time"

	"golang.org/x/time/rate"
)

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// userLimiter throttles advice requests per user
type userLimiter struct {
	mu       sync.Mutex
	perMin   int
	visitors map[int64]*visitor
}

// newUserLimiter allows perMin requests per user per minute; zero disables throttling
func newUserLimiter(perMin int) *userLimiter {
	return &userLimiter{
		perMin:   perMin,
		visitors: make(map[int64]*visitor),
	}
}

func (l *userLimiter) Allow(userID int64) bool {
	if l.perMin <= 0 {
		return true
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	l.sweep(now)

	v, ok := l.visitors[userID]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(l.perMin)), l.perMin)}
		l.visitors[userID] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// sweep drops users idle long enough for their bucket to have refilled
func (l *userLimiter) sweep(now time.Time) {
	for id, v := range l.visitors {
		if now.Sub(v.lastSeen) > 3*time.Minute {
			delete(l.visitors, id)
		}
	}
}
