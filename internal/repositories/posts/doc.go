// Package posts is the durable record of every post and its lifecycle.
//
// Callers never name columns: updates go through PostPatch, whose fields are
// exactly the mutable columns. Status transitions that matter for delivery
// (claiming a post for publishing, recording the outcome) have dedicated
// conditional statements so two actors cannot publish the same post.
package posts
