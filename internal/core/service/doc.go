// Package service provides the state mediator for instance-state.
//
// This package contains:
//
//   - StateStore: the restore and save key spaces and the Get/Set/Remove
//     semantics applied to them
//   - Dispatcher: decode, handle and reply encoding for one inbound buffer
//   - Lifecycle: restore at startup and persist at teardown through a
//     host-supplied Persister
//
// StateStore serializes every call behind a single mutex, so any number of
// transport goroutines may share one Dispatcher.
package service
