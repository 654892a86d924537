// Package cli parses command-line arguments into the application's
// configuration and owns process-level concerns like exit codes. Flag
// defaults can come from NODEGRAPH_* environment variables, which may in
// turn be loaded from a .env file.
package cli
