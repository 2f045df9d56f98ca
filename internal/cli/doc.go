// Package cli implements nexusctl, an interactive shell over the daemon's
// local HTTP API.
package cli
