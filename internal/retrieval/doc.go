// Package retrieval turns transcript segments into overlapping text chunks
// and ranks them against a question by lexical term overlap.
//
// BuildChunks is deterministic: the same segments and sizes always produce
// byte-identical chunks. EnsureChunks treats chunks.json as a cache derived
// from transcript.json and rebuilds it whenever the transcript or the chunk
// sizes change. Rank scores chunks by query/chunk term frequency products,
// optionally normalized by chunk length, and never errors on a query with no
// matches.
package retrieval
