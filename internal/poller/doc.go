// Package poller runs polling passes over all active watches: expand each
// watch into container work items, scrape them under a concurrency ceiling,
// persist changed statuses, and notify subscribers of milestone transitions
// at most once per transition.
package poller
