// Package tables registers the Darwin Core table kinds with the core registry.
// Import this package to ensure all kinds are registered.
package tables

// This file exists to provide a single import point.
// dwc.go uses init() to register the kinds.
