// Package component defines the lifecycle contract shared by the
// long-lived parts of the application and a Registry that starts them in
// order and stops them in reverse.
//
// Background wraps a blocking loop (the offline queue worker, the
// connectivity prober, the reconnect drainer) as a Component.
package component
