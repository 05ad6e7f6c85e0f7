package firehose

import "github.com/webitel/hose-relay/internal/domain/model"

// FilterCommit decides whether a commit is worth decoding further. Only the
// first op is looked at; the rest of the batch is ignored.
// It returns the op to follow and ReasonNone, or the reason for rejection.
func FilterCommit(body *model.CommitEventBody) (model.RepoOp, Reason) {
	if body == nil || len(body.Ops) == 0 {
		return model.RepoOp{}, ReasonNoOps
	}
	if body.TooBig {
		return model.RepoOp{}, ReasonTooBig
	}

	op := body.Ops[0]
	if op.Action == model.ActionDelete {
		return model.RepoOp{}, ReasonDeleteOp
	}
	if op.CID == nil || !op.CID.Defined() {
		return model.RepoOp{}, ReasonNoCID
	}
	return op, ReasonNone
}
