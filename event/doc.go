// Package event defines the decoded queue item and the pure functions the
// sink applies to it.
//
// Decode turns a raw queue payload into an Event, Transform fills in the
// derived Total from the weekday discount table, and Fingerprint produces a
// stable MD5 digest of the event's JSON encoding.
//
// None of these functions share state; they are safe for concurrent use.
package event
