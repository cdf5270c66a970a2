// Package domain defines the core domain models for instance-state.
//
// Domain models are pure value objects without any IO dependencies or
// framework coupling. This package contains:
//
//   - Operation: a get/set/remove request or reply with optional data
//   - Kind: the closed set of operation kinds and their wire values
//   - Errors: domain-specific error definitions with stable codes
package domain
