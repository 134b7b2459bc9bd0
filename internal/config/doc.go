// Package config loads server configuration from environment variables and
// an optional .env file using viper.
package config
