// Package common holds helpers shared by several services.
//
// It provides a lightweight gRPC client for the monitor status service and a
// process scan that keeps two monitors from sharing one broker client id.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
