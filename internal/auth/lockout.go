package auth

import (
	"sync"
	"time"
)

type attemptState struct {
	count        int
	firstAttempt time.Time
	lockedUntil  time.Time
}

// LoginLimiter は接続元ごとのログイン失敗回数を数え、上限を超えたら一定時間ロックします。
type LoginLimiter struct {
	lock        sync.Mutex
	attempts    map[string]*attemptState
	maxAttempts int
	window      time.Duration
	lockFor     time.Duration
	lastSweep   time.Time
	now         func() time.Time
}

// NewLoginLimiter は LoginLimiter を作成します。maxAttempts が 0 以下なら制限しません。
func NewLoginLimiter(maxAttempts int, window, lockFor time.Duration) *LoginLimiter {
	return &LoginLimiter{
		attempts:    make(map[string]*attemptState),
		maxAttempts: maxAttempts,
		window:      window,
		lockFor:     lockFor,
		now:         time.Now,
	}
}

// RetryAfter はロック中であれば解除までの残り時間を返します。ロックされていなければ 0 です。
func (l *LoginLimiter) RetryAfter(key string) time.Duration {
	if l == nil || l.maxAttempts <= 0 {
		return 0
	}
	l.lock.Lock()
	defer l.lock.Unlock()

	state, ok := l.attempts[key]
	if !ok {
		return 0
	}
	now := l.now()
	if now.After(state.lockedUntil) {
		if l.expired(state, now) {
			delete(l.attempts, key)
		}
		return 0
	}
	return state.lockedUntil.Sub(now)
}

// RecordFailure は失敗を記録し、ロックまでの残り回数を返します。
func (l *LoginLimiter) RecordFailure(key string) int {
	if l == nil || l.maxAttempts <= 0 {
		return 0
	}
	l.lock.Lock()
	defer l.lock.Unlock()

	now := l.now()
	l.sweep(now)

	state, ok := l.attempts[key]
	if !ok || now.Sub(state.firstAttempt) > l.window {
		state = &attemptState{firstAttempt: now}
		l.attempts[key] = state
	}

	state.count++
	if state.count >= l.maxAttempts {
		state.lockedUntil = now.Add(l.lockFor)
		state.count = l.maxAttempts
	}

	remaining := l.maxAttempts - state.count
	if remaining < 0 {
		remaining = 0
	}
	return remaining
}

// Reset は記録を消去します。
func (l *LoginLimiter) Reset(key string) {
	if l == nil {
		return
	}
	l.lock.Lock()
	defer l.lock.Unlock()
	delete(l.attempts, key)
}

// Len は保持している接続元の数を返します。
func (l *LoginLimiter) Len() int {
	if l == nil {
		return 0
	}
	l.lock.Lock()
	defer l.lock.Unlock()
	return len(l.attempts)
}

// expired はロックが明けたか、ロックされないまま集計期間を過ぎた記録かを返します。
func (l *LoginLimiter) expired(state *attemptState, now time.Time) bool {
	if !state.lockedUntil.IsZero() {
		return now.After(state.lockedUntil)
	}
	return now.Sub(state.firstAttempt) > l.window
}

// sweep は期限切れの記録を削除します。走査は集計期間に 1 回までです。呼び出し側でロックを保持してください。
func (l *LoginLimiter) sweep(now time.Time) {
	if now.Sub(l.lastSweep) < l.window {
		return
	}
	l.lastSweep = now
	for key, state := range l.attempts {
		if l.expired(state, now) {
			delete(l.attempts, key)
		}
	}
}
