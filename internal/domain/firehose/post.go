package firehose

import "github.com/webitel/hose-relay/internal/domain/model"

// ExtractFacets collects hashtag and mention references in facet order,
// then feature order. Duplicates are kept. Both slices are non-nil.
func ExtractFacets(facets []model.Facet) (tags, mentions []string) {
	tags, mentions = []string{}, []string{}
	for _, facet := range facets {
		for _, feature := range facet.Features {
			switch {
			case feature.IsTag():
				tags = append(tags, feature.Tag)
			case feature.IsMention():
				mentions = append(mentions, feature.DID)
			}
		}
	}
	return tags, mentions
}

// BuildRelayedPost projects a post. Posts without text are suppressed and
// yield nil.
func BuildRelayedPost(post *model.PostRecord, commit *model.CommitEventBody) *model.RelayedPost {
	if post == nil || post.Text == "" {
		return nil
	}

	tags, mentions := ExtractFacets(post.Facets)
	out := &model.RelayedPost{
		Text:      post.Text,
		DID:       commit.Repo,
		Rev:       commit.Rev,
		CreatedAt: post.CreatedAt,
		Tags:      tags,
		Mentions:  mentions,
	}

	if post.Reply != nil && post.Reply.Parent != nil {
		out.Reply = &model.RelayedReply{
			Parent: model.RelayedRef{URI: post.Reply.Parent.URI},
		}
	}
	return out
}
