package config

// ExecutionConfig configures the shell runner.
type ExecutionConfig struct {
	// Wall-clock bound for a learner command
	DefaultTimeout string `yaml:"default_timeout" json:"default_timeout,omitempty"`

	// Directory learner commands run in; filesystem checks resolve against it
	WorkingDirectory string `yaml:"working_directory" json:"working_directory,omitempty"`

	// Cap on captured stdout and stderr, each
	MaxOutputBytes int64 `yaml:"max_output_bytes" json:"max_output_bytes,omitempty"`

	// Shell binary invoked as <shell> -c <line>
	Shell string `yaml:"shell" json:"shell,omitempty"`
}
