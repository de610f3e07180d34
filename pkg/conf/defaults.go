package conf

import "time"

const (
	// Timeout acts as the general wait default value for a console command
	Timeout = 30 * time.Second

	// HandshakeTimeout bounds every wait performed while the console is synchronizing
	HandshakeTimeout = 5 * time.Second

	// PayloadTimeout is the wait default for artifact generation
	PayloadTimeout = 5 * time.Minute

	// RetryDelay is the fixed pause between reconnection attempts
	RetryDelay = 30 * time.Second

	// PollInterval is the default pause between invocations of a poller
	PollInterval = 30 * time.Second

	// Settle durations. The console gives no completion signal for these
	// operations, so the next command must wait for them.

	// SettleLoadScript is the wait after including an aggressor script
	SettleLoadScript = 3 * time.Second

	// SettleLog is the wait after writing to the event or beacon logs
	SettleLog = 1 * time.Second

	// SettleHostFile is the wait for the headless client to upload a hosted file
	SettleHostFile = 2 * time.Second

	// Console defaults

	DefaultPort       = 50050
	DefaultLauncher   = "agscript"
	DefaultArtifact   = "cobaltstrike.jar"
	DefaultPrefix     = "e"
	DefaultPromptName = "aggressor"
	DefaultUserSuffix = "_striker"

	// ReadyCommand prints ReadyMarker once the team server has fully synchronized
	// the session. The concatenation keeps the echoed command from matching.
	ReadyCommand = `on ready { println("Successfully" . " connected to teamserver!"); }`
	ReadyMarker  = "Successfully connected to teamserver!"

	// PreviewLength bounds raw console text quoted in errors
	PreviewLength = 50

	// MaxBufferSize bounds unread console output kept for matching (256MB)
	MaxBufferSize = 256 * 1024 * 1024

	// ReadBufferSize is the chunk size used when draining the pty
	ReadBufferSize = 32 * 1024

	// MaxDecodeDepth bounds nesting while decoding serialized objects
	MaxDecodeDepth = 512

	// Terminal size

	DefaultTerminalWidth  = 200
	DefaultTerminalHeight = 50
)
