// Package config loads service configuration from a YAML file, an optional
// .env file and prefixed environment variables using viper and godotenv.
//
// # Usage
//
//	var cfg app.Config
//	if err := config.LoadConfig("yttext", &cfg); err != nil { ... }
//
// Environment variables override file values using the upper-cased service
// name as prefix and underscores as separators, e.g. YTTEXT_JOBS_MAX_CONCURRENT.
package config
