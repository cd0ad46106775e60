// Package clock lets services read the current time through an interface so tests can pin it.
package clock

import "time"

type Clock interface{ Now() time.Time }

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

// Real は呼び出しのたびに現在時刻を返す（キャッシュしない）
func Real() Clock { return realClock{} }

// Fixed always returns t.
type Fixed time.Time

func (f Fixed) Now() time.Time { return time.Time(f) }
