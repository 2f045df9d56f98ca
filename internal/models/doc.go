// Package models defines the records persisted by the publishing core
// (posts, social accounts, articles) and the value types exchanged with
// platform clients (publish results, comments).
package models
