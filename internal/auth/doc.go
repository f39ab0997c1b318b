// Package auth manages SmartHome user accounts.
//
// Users log in by email. Passwords are hashed with Argon2id and stored in
// PHC string format. The REST API keeps sessions in a signed HS256 JWT
// whose subject is the user id; the TCP command interface authenticates
// once per connection through Service.Authenticate.
package auth
