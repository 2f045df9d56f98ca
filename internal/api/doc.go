// Package api is the daemon's local HTTP interface, used by nexusctl and
// any desktop front end.
//
// Every response uses the same envelope:
//
//	{"success": true, "data": ...}
//	{"success": false, "error": "..."}
//
// Publishing a post answers success with the updated post even when the
// platform rejected it; the post's status and error carry the outcome.
package api
