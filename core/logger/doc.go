// Package logger records interpreter events in newline delimited JSON so
// sessions can be summarized later.
package logger
