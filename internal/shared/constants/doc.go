// Package constants centralizes the fixed timeouts, limits and endpoints
// shared across the scanner.
package constants
