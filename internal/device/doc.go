// Package device owns the devices users register and control.
//
// Two kinds exist: light bulbs, which can be switched on and off, and
// temperature sensors, which carry the last reading reported for them.
// Every user-facing operation is scoped to the device owner; a device that
// belongs to someone else is indistinguishable from one that does not
// exist.
//
// # Architecture
//
//	┌─────────────┐   ┌─────────────┐   ┌─────────────┐
//	│ remote (TCP)│   │  api (HTTP) │   │  telemetry  │
//	└──────┬──────┘   └──────┬──────┘   └──────┬──────┘
//	       └────────────┬────┴─────────────────┘
//	                    ▼
//	             ┌─────────────┐      ┌──────────────┐
//	             │   Service   │─────▶│   Notifier   │
//	             └──────┬──────┘      └──────────────┘
//	                    ▼
//	             ┌─────────────┐
//	             │ Repository  │  SQLite
//	             └─────────────┘
//
// The service triggers the Notifier after every mutation that reached the
// database, and never after a failed one.
//
// # Thread Safety
//
// Service and SQLiteRepository are safe for concurrent use. Toggling a
// bulb is a read followed by a write and is not atomic across callers.
package device
