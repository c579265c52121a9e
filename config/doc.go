// Package config handles loading and parsing of configuration from YAML files
// and environment variables. It defines the application configuration structure
// including server settings, registry capacity and probe interval, balancer
// tuning and the providers registered at startup.
package config
