// Package badgerstore persists the save store in a Badger database.
//
// Entries live under the "save/" key prefix. Each Save replaces the
// previous contents in one transaction, so a crash leaves either the old or
// the new state, never a mix.
package badgerstore
