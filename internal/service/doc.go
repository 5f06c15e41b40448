// Package service runs the single driver loop that owns the protocol state
// machine and the published round snapshot. Producers reach it only through
// a Handle: messages and queries are channel sends, answers come back on
// one-shot reply channels.
package service
