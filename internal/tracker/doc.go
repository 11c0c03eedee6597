// Package tracker defines the core types shared across the container status
// poller: watches, scrape results, the normalized lifecycle enum, persisted
// status rows, and the capability interfaces (providers, stores, notifiers)
// that the polling engine depends on.
package tracker
