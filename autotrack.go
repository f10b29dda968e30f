// Package autotrack tracks vehicle listings on a classifieds site.
// It periodically fetches listing pages, extracts structured records, and
// reconciles them against a persisted catalog to detect additions, changes,
// and removals, keeping an append-only history of every change.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., sqlite/, rod/, goquery/).
package autotrack
