// Package ir provides the trigger data model shared by every blocktrigger package.
//
// This package contains type definitions and their wire codecs only. All
// other internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Events, actions and values are sealed interfaces; only the types in
//     this package implement them
//   - All JSON fields use camelCase to match the persisted rule document
//     {"rules": [...]} stored by host applications
//   - Rule documents are plain data: no functions, no cycles
//   - Content hashes use RFC 8785 canonical JSON (see canonical.go)
package ir
