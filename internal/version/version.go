// Package version holds the release number stamped into logs and the CLI.
package version

// Current is the released version, without a leading "v".
const Current = "0.3.1"
