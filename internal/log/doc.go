// Package log provides simple leveled logging for cdnx.
//
// All output is written to stderr with ANSI-colored level prefixes, because
// stdout is reserved for the classification result stream. Debug messages are
// only emitted in verbose mode, and quiet mode suppresses everything below
// error level.
package log
