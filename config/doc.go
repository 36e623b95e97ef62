// Package config loads scopecache configuration.
//
// It uses Viper to read a YAML file, loads .env files through godotenv, and
// lets environment variables override any key using the SCOPECACHE_ prefix
// with underscore-separated paths (e.g., SCOPECACHE_CACHE_PRUNE_INTERVAL=5s).
// Struct tags are checked with go-playground/validator after defaults apply.
//
// # Usage
//
//	var cfg config.Config
//	if err := config.LoadConfig("resolver", &cfg); err != nil {
//	    return err
//	}
package config
