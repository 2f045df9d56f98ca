// Package publisher drives posts through their lifecycle.
//
// Service.Publish is the on-demand path ("publish now" and retry) and
// Service.PublishDue is the body of one scheduler tick. Both share attempt,
// so state transitions and failure handling are identical:
//
//	draft|failed|scheduled --Claim--> publishing --> published | failed
//
// Claim is a conditional update; a post already in publishing is never
// claimed twice within one process.
package publisher
