// Package provider hosts the process-local side of the action-provider
// protocol. It is structured into small files by concern:
//
//   - provider.go: the Provider interface, Environment, and Func adapter.
//   - registry.go: kind→callable and entity→kind tables, per-turn leases.
//   - interactive.go: channel-backed InputQueue for external input sources.
//   - ai.go: built-in deterministic AI providers (wait, utility) and Scorer.
//   - replay.go: recorded-log provider used for replays and challenges.
//   - errors.go: sentinel errors shared by the package and its callers.
//
// The provider KIND bound to an entity lives in canonical state (pkg/types);
// this package only holds what cannot be serialized: the live callables and
// the one-lease-per-entity discipline around invoking them.
package provider
