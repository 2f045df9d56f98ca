// Package accounts persists the connected social account of each platform.
// The table carries a unique index on platform, so at most one row exists
// per platform; Replace swaps it atomically.
package accounts
