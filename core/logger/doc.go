// Package logger is a standardized event logging framework for the shell.
//
// Events are written as newline delimited JSON objects, one per line, each
// tagged with the session that produced it. The log can be read back with
// ReadJSONLinesLog and summarized with Report.
package logger
