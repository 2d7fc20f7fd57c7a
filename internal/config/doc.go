// Package config loads, normalizes, and validates adscribe configuration data.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours the deployment environment
// (ELEVENLABS_API_KEY, PORT, RAILWAY_VOLUME_MOUNT_PATH, ADSCRIBE_API_TOKEN).
// The Config type centralizes every knob the daemon and CLI need.
package config
