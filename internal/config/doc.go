// Package config provides centralized configuration management for Sponsorama.
//
// # Configuration Sources
//
// Configuration is built in layers, each overriding the previous one:
//
//	1. Default values
//	2. The first config file found (config.yaml, configs/config.yaml)
//	3. Environment variables (highest priority)
//
// # Environment Variables
//
// All environment variables follow the pattern SPONSORAMA_<SECTION>_<KEY>:
//
//	SPONSORAMA_SERVER_PORT=8080
//	SPONSORAMA_LOGGING_LEVEL=debug
//	SPONSORAMA_INGESTION_MAX_FILES=20
//	SPONSORAMA_TELEMETRY_TRACE_EXPORTER=stdout
//
// # Validation
//
// The merged configuration is validated with struct tags at load time. Logs are
// always JSON regardless of the configured format.
//
// # Usage
//
//	cfg, err := config.Load()
//	if err != nil {
//	    log.Fatal(err)
//	}
package config
