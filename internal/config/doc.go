// Package config loads the streamer's YAML configuration.
//
// Values of the form ${VAR} are expanded from the environment before
// parsing. An optional .env file is loaded into the environment first,
// without overriding variables that are already set.
package config
