package internal

import "io"

// Option is a functional option for configuring the application.
type Option func(*application)

type application struct {
	config  *Config
	version string
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
}

// WithConfig sets the application configuration.
func WithConfig(cfg *Config) Option {
	return func(a *application) {
		a.config = cfg
	}
}

// WithVersion sets the version reported by the MCP server.
func WithVersion(v string) Option {
	return func(a *application) {
		a.version = v
	}
}

// WithIO replaces the process standard streams, mainly for tests.
func WithIO(stdin io.Reader, stdout, stderr io.Writer) Option {
	return func(a *application) {
		a.stdin = stdin
		a.stdout = stdout
		a.stderr = stderr
	}
}
