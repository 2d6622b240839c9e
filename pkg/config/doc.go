// Package config provides PulseDB's layered configuration surface,
// loaded with spf13/viper the way the teacher project loads its own
// config: YAML file (optional) overlaid on top of built-in defaults,
// unmarshaled into typed structs via mapstructure tags.
package config
