// Package version provides version information for the price-attest application.
package version

// Version is the current version of the price-attest application.
const Version = "0.3.0"

// AgentString returns the full agent string with versioning.
// Format: price-attest/v{version}
func AgentString() string {
	return "price-attest/v" + Version
}
