// Package config handles loading and validating SmartHome Core configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with SMARTHOME_* environment variables
//   - Validation of required fields
//
// Secrets (MQTT password, InfluxDB token, JWT secret) should be supplied
// through the environment rather than committed to the config file.
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Remote.Addr())
package config
