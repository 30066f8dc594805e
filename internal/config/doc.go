// Package config defines the monitor settings and loads them from the
// environment, optionally layered over a YAML file.
//
// Environment variable names follow the deployment convention of the
// container image (MQTT_HOST, REGION, NOTIFIERS and so on).
package config
