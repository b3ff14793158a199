// Package connectivity tracks whether the catalog is reachable.
//
// Monitor holds the state and broadcasts edge transitions: repeated
// samples of the same state produce nothing. Each Subscription gets every
// later transition exactly once and in order, through its own unbounded
// mailbox, so Observe never blocks on a slow subscriber.
//
//	sub := monitor.Subscribe()
//	defer sub.Unsubscribe()
//	for tr := range sub.Events() {
//	    if tr.Reconnected() { ... }
//	}
//
// Prober drives a Monitor from a periodic CheckFunc, by default a TCP dial
// to the catalog host.
package connectivity
