// Package store persists completed round summaries in LevelDB.
package store
