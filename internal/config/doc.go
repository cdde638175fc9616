// Package config loads, normalizes, and validates revoice configuration data.
//
// Settings come from a TOML file, an optional .env file, and REVOICE_*
// environment variables, in increasing order of precedence. The Config type
// carries every credential and endpoint the capability collaborators need so
// they can be constructed once at startup instead of reading ambient process
// state per call.
package config
