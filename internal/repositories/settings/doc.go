// Package settings is the generic key/value table used for application
// level configuration such as encrypted platform credential blobs.
package settings
