package conf

const (
	// agbridge environment variables

	// HomeEnvVar overrides the directory holding the agbridge profile file
	HomeEnvVar = "AGBRIDGE_HOME"
	// PasswordEnvVar provides the team server password without prompting
	PasswordEnvVar = "AGBRIDGE_PASSWORD"
	// NoColorEnvVar disables colors by convention: https://no-color.org/
	NoColorEnvVar = "NO_COLOR"
)
