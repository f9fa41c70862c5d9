// Package config defines the application's configuration structure and
// loading logic. Configuration is read from environment variables with
// the TASKBOSS_ prefix, layered over an optional config.yaml file, and
// validated before use.
package config
