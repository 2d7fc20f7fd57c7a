// Package daemon runs the long-lived adscribe HTTP service.
//
// It wires configuration, the workflow manager, the quota gate, and the
// workspace reaper into a single lifecycle guarded by a flock on the
// workspace root so two daemons never share one workspace tree. The HTTP
// surface is a gorilla/mux router: pipeline entry points under /api pass the
// daily quota before any work starts, artifact downloads stream straight from
// the job workspace, and /health reports quota and dependency state.
//
// Keep pipeline logic in the workflow package; handlers here only translate
// between HTTP and workflow calls.
package daemon
