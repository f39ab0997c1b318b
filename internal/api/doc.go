// Package api implements the HTTP REST API and WebSocket push channel for
// SmartHome Core.
//
// This package provides:
//   - REST endpoints for accounts, rooms, devices and maintenance logs
//   - A WebSocket hub that pushes RefreshDevices events to browsers
//   - Cookie sessions carrying a signed JWT
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// # Architecture
//
// Handlers are thin: they decode the request, take the caller's user ID
// from the session and call one service method. Services enforce
// ownership, so a device or room owned by someone else is reported as not
// found rather than forbidden.
//
//	browser ──HTTP──▶ router ──▶ handlers ──▶ services ──▶ SQLite
//	   ▲                                         │
//	   └────────WebSocket◀── Hub ◀── notifier ◀──┘
//
// # Security
//
// POST /api/users/login sets an HttpOnly "session" cookie. Protected
// routes accept that cookie or an "Authorization: Bearer" header carrying
// the same token. The WebSocket upgrade is authenticated by the cookie the
// browser sends with it.
package api
