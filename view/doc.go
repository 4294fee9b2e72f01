// Package view maintains derived collections over change streams.
//
// A change stream describes a list by its edits (see package change).
// OrderBy keeps a sorted projection of that list and GroupBy partitions it
// by key; both consume and produce change streams, so the result of one can
// feed the other, a materialising change.Mirror, or an SSE feed.
//
// Each incoming edit is translated into the minimal set of edits on the
// derived collection: a value whose sort position is unchanged yields a
// single Replace, and only the items between the old and new position of a
// moved value are renumbered.
package view
