package defaults

// Exit codes for the CLI.
const (
	ExitSuccess       = 0   // Clean exit, no secrets found
	ExitSecretsFound  = 1   // At least one finding reported
	ExitUserError     = 2   // Invalid arguments or configuration
	ExitNetworkError  = 3   // Network/connection failure
	ExitInternalError = 4   // Unexpected internal error
	ExitInterrupted   = 130 // 128 + SIGINT, shell convention
)
