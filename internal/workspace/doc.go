// Package workspace lays out session directories and reclaims abandoned
// scratch space.
//
// A session directory holds the durable artifacts (transcript.json,
// transcript.txt, chunks.json, chunks.meta.json). Intermediate audio lives in
// the private .work subdirectory, which a successful run removes. Runs that
// die midway leave .work behind; CleanStale deletes those once they are old
// enough.
package workspace
