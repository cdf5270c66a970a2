// Package bundle persists the save store as checksummed files.
//
// Each Save writes a new bundle atomically (temp file, fsync, rename) and
// prunes old ones. Load reads the newest bundle whose checksum verifies, so a
// torn or corrupted latest file falls back to the previous instance's state.
// Entries are protobuf wire records, keeping empty values distinct from
// absent ones.
package bundle
