package firehose

// Reason explains what happened to a frame. It doubles as a metrics label.
type Reason string

const (
	ReasonNone         Reason = ""
	ReasonRelayed      Reason = "relayed"
	ReasonErrorFrame   Reason = "error_frame"
	ReasonUnknownFrame Reason = "unknown_frame"
	ReasonNotCommit    Reason = "not_commit"
	ReasonNoOps        Reason = "no_ops"
	ReasonTooBig       Reason = "too_big"
	ReasonDeleteOp     Reason = "delete_op"
	ReasonNoCID        Reason = "no_cid"
	ReasonEmptyText    Reason = "empty_text"

	ReasonFrameDecode       Reason = "frame_decode"
	ReasonCommitDecode      Reason = "commit_decode"
	ReasonArchiveDecode     Reason = "archive_decode"
	ReasonBlockNotFound     Reason = "block_not_found"
	ReasonRecordDecode      Reason = "record_decode"
	ReasonUnsupportedRecord Reason = "unsupported_record"
)
