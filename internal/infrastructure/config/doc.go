// Package config handles loading and validating Lock Bridge configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Sensitive values (vendor tokens, JWT secrets) should be set via
//     environment variables, not committed to the config file
//   - The config file should have restricted permissions (0600)
//   - The account-linking stubs served by the API are for development only;
//     security.jwt does not turn them into a real auth system
//
// Performance Characteristics:
//   - Configuration is loaded once at startup
//   - No runtime overhead after initial load
//
// Usage:
//
//	cfg, err := config.Load("configs/config.yaml")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Agent.UserID)
package config
