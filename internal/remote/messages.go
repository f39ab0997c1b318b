package remote

// Fixed protocol text. Every reply is followed by a newline; prompts are not.
const (
	bannerWelcome  = "Welcome to SmartHome Raw TCP Interface!"
	bannerLogin    = "Please LOGIN first."
	bannerCommands = "Commands: LOGIN <email> <pass>, LIST, TOGGLE <GUID>, EXIT"

	promptGuest = "> [Guest] "
	promptUser  = "> [User] "

	msgLoginUsage       = "Usage: LOGIN <email> <password>"
	msgInvalidCreds     = "Invalid credentials."
	msgLoggedInFormat   = "Welcome %s! You are now logged in."
	msgAlreadyLoggedIn  = "Already logged in."
	msgAccessDenied     = "Access Denied. Please LOGIN first."
	msgListHeaderFormat = "--- Devices for User %s ---"
	msgNoDevices        = "No devices found."
	msgProvideID        = "Error: Provide ID"
	msgInvalidGUID      = "Error: Invalid GUID"
	msgDeviceNotFound   = "Device not found."
	msgNotLightbulb     = "Device is not a lightbulb."
	msgToggled          = "Device state toggled."
	msgGoodbye          = "Goodbye."
	msgUnknownCommand   = "Unknown command."
	msgInternalError    = "Error: internal error"
	msgServerBusy       = "Server busy, try again later."
)
