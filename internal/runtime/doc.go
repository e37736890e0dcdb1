// Package runtime drives game sessions end to end. A Runtime owns one
// session's canonical state and composes the provider registry, the event
// bus, the journal and an optional proving backend into the turn pipeline:
// select actor, resolve provider, await action, validate, commit, publish.
//
// Files:
//   - runtime.go: Runtime construction, bindings, input submission, restore,
//     status and lifecycle
//   - turn.go: RunTurn (one full turn) and Loop (run until stopped)
//   - errors.go: sentinel errors returned across the runtime boundary
//   - metrics.go: Prometheus collectors for turns, rejects and proving
package runtime
