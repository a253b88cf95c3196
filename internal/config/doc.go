// Package config provides the scan configuration, its defaults and
// validation, and the optional .nmapclone YAML profile file.
package config
