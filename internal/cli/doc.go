// Package cli provides command-line interface setup and configuration
// for the transdata application. It handles flag parsing, command
// creation, logger setup and configuration management using cobra and
// viper.
package cli
