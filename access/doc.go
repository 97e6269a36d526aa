// Package access evaluates numeric authorization levels.
//
// Lower levels carry more privilege: a user at level 0 satisfies every requirement, a
// user at level 5 satisfies RequireLevel(5) and above. Decisions are reported to an
// EventSink so hosts can audit grants and denials.
package access
