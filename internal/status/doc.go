// Package status reduces heterogeneous provider fields to a single
// tracker.NormalizedStatus and computes the status hash used to detect
// changes between polls.
package status
