// Package logging configures structured slog output for AmanSearch.
//
// The CLI logs to stderr. The MCP server logs only to a rotating file
// under ~/.amansearch/logs/, because stdout carries the JSON-RPC stream
// and some clients treat stderr output as a failure. The same files are
// read back by `amansearch logs`.
package logging
