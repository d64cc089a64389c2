package middleware

import (
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// RateLimiterConfig はレート制限の設定を保持する。
type RateLimiterConfig struct {
	GeneralPerMinute  int           // API全般のレート（req/min/user）
	TrackingPerMinute int           // トラッキング書き込みのレート（req/min/user）
	CleanupInterval   time.Duration // 期限切れエントリのクリーンアップ間隔
}

// DefaultRateLimiterConfig はデフォルトのレート制限設定を返す。
// トラッキングはimpressionのバッチ記録で呼び出し頻度が高いため、
// API全般より高いレートを許容する。
func DefaultRateLimiterConfig() RateLimiterConfig {
	return RateLimiterConfig{
		GeneralPerMinute:  120,
		TrackingPerMinute: 300,
		CleanupInterval:   5 * time.Minute,
	}
}

// userLimiter はユーザーごとのレートリミッターとアクセス時刻を保持する。
type userLimiter struct {
	limiter    *rate.Limiter
	lastAccess time.Time
}

// limiterClass は1種類のレート制限クラス（ユーザーID → リミッターのマップ）。
type limiterClass struct {
	name  string
	rate  rate.Limit
	burst int

	mu       sync.RWMutex
	limiters map[string]*userLimiter
}

func newLimiterClass(name string, perMinute int) *limiterClass {
	return &limiterClass{
		name:     name,
		rate:     rate.Limit(float64(perMinute) / 60.0),
		burst:    perMinute,
		limiters: make(map[string]*userLimiter),
	}
}

// get はユーザーのリミッターを取得または作成する。
func (lc *limiterClass) get(userID string) *rate.Limiter {
	lc.mu.RLock()
	ul, exists := lc.limiters[userID]
	lc.mu.RUnlock()

	if exists {
		lc.mu.Lock()
		ul.lastAccess = time.Now()
		lc.mu.Unlock()
		return ul.limiter
	}

	lc.mu.Lock()
	defer lc.mu.Unlock()

	// ダブルチェック
	if ul, exists := lc.limiters[userID]; exists {
		ul.lastAccess = time.Now()
		return ul.limiter
	}

	limiter := rate.NewLimiter(lc.rate, lc.burst)
	lc.limiters[userID] = &userLimiter{
		limiter:    limiter,
		lastAccess: time.Now(),
	}
	return limiter
}

func (lc *limiterClass) count() int {
	lc.mu.RLock()
	defer lc.mu.RUnlock()
	return len(lc.limiters)
}

func (lc *limiterClass) cleanup(ttl time.Duration) {
	now := time.Now()
	lc.mu.Lock()
	for userID, ul := range lc.limiters {
		if now.Sub(ul.lastAccess) > ttl {
			delete(lc.limiters, userID)
		}
	}
	lc.mu.Unlock()
}

// RateLimiter はユーザーごとのレート制限を管理する。
// API全般とトラッキング書き込みの2クラスを独立に提供する。
// ユーザーIDはX-User-IDヘッダー由来のため詐称可能だが、このリミッターの
// 目的は申告単位ごとの公平性であり、悪意あるクライアントの完全な排除ではない。
type RateLimiter struct {
	general  *limiterClass
	tracking *limiterClass

	cleanupInterval time.Duration
	stopCh          chan struct{}
}

// NewRateLimiter は新しいRateLimiterを生成する。
// バックグラウンドで期限切れエントリのクリーンアップを開始する。
func NewRateLimiter(config RateLimiterConfig) *RateLimiter {
	rl := &RateLimiter{
		general:         newLimiterClass("general", config.GeneralPerMinute),
		tracking:        newLimiterClass("tracking", config.TrackingPerMinute),
		cleanupInterval: config.CleanupInterval,
		stopCh:          make(chan struct{}),
	}

	go rl.cleanupLoop()

	return rl
}

// Stop はクリーンアップのバックグラウンドゴルーチンを停止する。
func (rl *RateLimiter) Stop() {
	close(rl.stopCh)
}

// GeneralMiddleware はAPI全般のレート制限ミドルウェアを返す。
// ユーザーIDミドルウェアの後に配置する。
func (rl *RateLimiter) GeneralMiddleware() func(next http.Handler) http.Handler {
	return rl.middleware(rl.general)
}

// TrackingMiddleware はトラッキング書き込み専用のレート制限ミドルウェアを返す。
// API全般のレート制限とは独立に動作する。
func (rl *RateLimiter) TrackingMiddleware() func(next http.Handler) http.Handler {
	return rl.middleware(rl.tracking)
}

func (rl *RateLimiter) middleware(lc *limiterClass) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID := UserIDFromContext(r.Context())

			if !lc.get(userID).Allow() {
				writeRateLimitResponse(w, lc.rate)
				slog.Warn("rate limit exceeded",
					slog.String("user_id", userID),
					slog.String("limit_type", lc.name),
				)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// GeneralLimiterCount は現在管理されているAPI全般リミッターのエントリ数を返す。
// テストおよびメトリクス用。
func (rl *RateLimiter) GeneralLimiterCount() int {
	return rl.general.count()
}

// TrackingLimiterCount は現在管理されているトラッキングリミッターのエントリ数を返す。
// テストおよびメトリクス用。
func (rl *RateLimiter) TrackingLimiterCount() int {
	return rl.tracking.count()
}

// cleanupLoop はバックグラウンドで期限切れエントリを定期的にクリーンアップする。
func (rl *RateLimiter) cleanupLoop() {
	ticker := time.NewTicker(rl.cleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			ttl := rl.cleanupInterval * 2
			rl.general.cleanup(ttl)
			rl.tracking.cleanup(ttl)
		case <-rl.stopCh:
			return
		}
	}
}

// writeRateLimitResponse は429 Too Many Requestsレスポンスを書き込む。
// Retry-Afterヘッダーにはトークンが補充されるまでの推定秒数を設定する。
func writeRateLimitResponse(w http.ResponseWriter, r rate.Limit) {
	retryAfterSec := int(math.Ceil(1.0 / float64(r)))
	if retryAfterSec < 1 {
		retryAfterSec = 1
	}

	w.Header().Set("Retry-After", strconv.Itoa(retryAfterSec))
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusTooManyRequests)

	json.NewEncoder(w).Encode(map[string]string{
		"code":     "rate_limit_exceeded",
		"message":  "Too many requests. Please try again later.",
		"category": "system",
		"action":   "Please wait and retry after the specified time.",
	})
}
