// Package host provides the single-threaded main context that engine
// callbacks are delivered on.
//
// Engine threads never call host code directly. They post functions to a
// Loop, and whoever owns the loop runs them one at a time, in order.
package host

import "github.com/tliron/commonlog"

var log = commonlog.GetLogger("cstui.host")

// Loop schedules functions to run later on the host's main context.
type Loop interface {
	// Post queues fn. It must never block the caller and may be called
	// from any goroutine.
	Post(fn func())
}

// Func is a host callable. Arguments follow the invocation contract of the
// callback kind it is bound to.
type Func func(args ...any)

// PostFunc schedules fn(args...) on l.
func PostFunc(l Loop, fn Func, args ...any) {
	l.Post(func() { fn(args...) })
}
