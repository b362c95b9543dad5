// Package version holds build-time identification printed in NIP-11
// documents and startup logs.
package version

// V is the relay's version string.
var V = "0.1.0"

// URL points at the relay's software identity for the NIP-11 "software"
// field.
var URL = "https://github.com/nestrelay/nestrelay"

// Description is the default NIP-11 "description" field.
var Description = "nestrelay: a Nostr relay"
