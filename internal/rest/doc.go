// Package rest exposes the coordinator service over HTTP: participants post
// encoded messages and poll round state.
package rest
