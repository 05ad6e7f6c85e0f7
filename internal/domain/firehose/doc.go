/*
Package firehose decodes frames of the com.atproto.sync.subscribeRepos event
stream and projects supported records into subscriber-facing values.

A frame travels through these stages:
  - DecodeFrame: two back-to-back CBOR values (header, body), no envelope.
  - ClassifyHeader: commit, account, error or unknown.
  - FilterCommit: only the first op of a commit is considered.
  - ExtractBlock: single-CID lookup in the commit's CAR slice.
  - RecordRegistry: $type dispatch to a projector (app.bsky.feed.post).

Only a framing failure (ErrFrameDecode) is fatal for a connection. Every other
failure is reported as a *SkipError and means "no output for this frame".
*/
package firehose
