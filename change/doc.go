// Package change defines the vocabulary of incremental list edits shared by
// every list-shaped component in rxkit.
//
// An Event is one of Add, Remove, Replace or Reset. Applying the ordered
// sequence of events received since subscription to an empty list
// reproduces the producer's list exactly:
//
//	list, err := change.Replay(events)
//
// Remove indices refer to the list before the removal, Add indices to the
// list after the insertion. Reset discards all prior state; the producer
// resends its full contents as Add events afterwards.
package change
