package tui

import "github.com/plumecli/plume/internal/domain"

// SplitTranscript partitions the message list into a settled prefix and a
// volatile streaming tail. While a reply is streaming, the last assistant
// message is the tail and everything before it is settled; otherwise the
// whole list is settled. The settled prefix is formatted once and cached by
// the view; only the tail is repainted per incoming delta, keeping the cost
// of a token O(tail) instead of O(transcript).
func SplitTranscript(msgs []domain.TranscriptMessage, streaming bool) (settled, tail []domain.TranscriptMessage) {
	if streaming && len(msgs) > 0 && msgs[len(msgs)-1].Role == "assistant" {
		return msgs[:len(msgs)-1], msgs[len(msgs)-1:]
	}
	return msgs, nil
}
