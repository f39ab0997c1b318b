// Package database provides SQLite connectivity for SmartHome Core.
//
// It opens the store with foreign keys, a busy timeout and optional WAL
// journaling, and runs the embedded schema migrations from the top-level
// migrations package. All queries elsewhere use parameterised statements.
package database
