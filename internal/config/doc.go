// Package config loads the agent configuration from defaults, an optional
// YAML file, and environment variables, in that order of precedence. It also
// fetches the optional remote routing bootstrap at startup.
package config
