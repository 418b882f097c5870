package llm

import (
	"context"
	"io"
	"strings"

	"github.com/pkg/errors"
)

type streamResult struct {
	event *StreamEvent
	err   error
}

// pipeStream forwards the events of a stream on a channel until it errors.
func pipeStream(stream Stream) <-chan streamResult {
	results := make(chan streamResult)
	go func() {
		defer close(results)
		for {
			event, err := stream.Recv()
			results <- streamResult{event: event, err: err}
			if err != nil {
				return
			}
		}
	}()
	return results
}

// Collect drains a stream and returns the concatenated tokens. onToken, if set, receives every token
// along with the text accumulated so far. The stream is closed before returning.
func Collect(ctx context.Context, stream Stream, onToken func(token, text string)) (string, error) {
	var sb strings.Builder
	results := pipeStream(stream)
	defer func() {
		stream.Close()
		// Unblock the pipe if we returned early.
		go func() {
			for range results {
			}
		}()
	}()
	for {
		select {
		case <-ctx.Done():
			return "", errors.Wrap(ctx.Err(), "waiting for tokens")
		case result := <-results:
			if result.err != nil {
				if errors.Is(result.err, io.EOF) {
					return sb.String(), nil
				}
				return "", errors.Wrap(result.err, "receiving from stream")
			}
			if result.event == nil {
				continue
			}
			sb.WriteString(result.event.Token)
			if onToken != nil {
				onToken(result.event.Token, sb.String())
			}
		}
	}
}
