// Package remote serves the raw TCP command interface.
//
// A terminal client (telnet, nc, PuTTY) connects, logs in with its
// account email and password, and then lists and toggles its devices
// using newline-terminated text commands:
//
//	Welcome to SmartHome Raw TCP Interface!
//	Please LOGIN first.
//	Commands: LOGIN <email> <pass>, LIST, TOGGLE <GUID>, EXIT
//	> [Guest] LOGIN alice@example.com secret123
//	Welcome alice! You are now logged in.
//	> [User] LIST
//	--- Devices for User 3fa8... ---
//	9c1e... | Kitchen Lamp (Kitchen) [ON] 💡
//	> [User] TOGGLE 9c1e...
//	Device state toggled.
//	> [User] EXIT
//	Goodbye.
//
// Each connection runs in its own goroutine with its own Session. Sessions
// share nothing except the device and user services they call.
//
// A blank line, end of stream, an over-long line, an idle read deadline or
// server shutdown end a session without a reply. Passwords are a single
// whitespace-free token; accounts whose password contains spaces cannot
// log in here.
package remote
