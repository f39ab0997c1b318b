// Package location manages the rooms users file their devices under.
//
// Every room belongs to exactly one user and every operation is scoped
// to that owner: a room owned by someone else behaves as if it did not
// exist. Devices reference rooms by ID without a foreign key, so deleting
// a room leaves its devices in place.
//
// # Thread Safety
//
// SQLiteRepository and Service are safe for concurrent use.
package location
