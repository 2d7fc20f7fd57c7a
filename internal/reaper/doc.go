// Package reaper reclaims stale job workspaces.
//
// A workspace is stale once its directory modification time is older than the
// TTL. The reaper knows nothing about in-flight jobs: a job that
// runs longer than the TTL can lose its workspace mid-flight and later reports
// its artifacts as not found.
package reaper
