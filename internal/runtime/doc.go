// Package runtime executes compiled turn graphs.
package runtime
