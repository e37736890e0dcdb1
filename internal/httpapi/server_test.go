package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"dungeond/internal/provider"
	"dungeond/internal/runtime"
	"dungeond/pkg/types"
)

func TestSubmitStatus(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("queue: %w", provider.ErrQueueFull), http.StatusTooManyRequests},
		{fmt.Errorf("entity 2: %w", runtime.ErrNotInteractive), http.StatusConflict},
		{fmt.Errorf("drained: %w", provider.ErrProviderClosed), http.StatusConflict},
		{fmt.Errorf("entity 99: %w", provider.ErrUnboundEntity), http.StatusNotFound},
		{fmt.Errorf("kind: %w", provider.ErrUnknownProviderKind), http.StatusNotFound},
		{runtime.ErrClosed, http.StatusServiceUnavailable},
		{errors.New("anything else"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		if got := submitStatus(tc.err); got != tc.want {
			t.Errorf("submitStatus(%v) = %d, want %d", tc.err, got, tc.want)
		}
	}
}

func TestParseTopics(t *testing.T) {
	topics, err := parseTopics("")
	if err != nil {
		t.Fatalf("empty: %v", err)
	}
	if len(topics) != len(types.Topics()) {
		t.Fatalf("empty list should select all topics, got %v", topics)
	}

	topics, err = parseTopics("game_state, proof")
	if err != nil {
		t.Fatalf("two topics: %v", err)
	}
	if len(topics) != 2 || topics[0] != types.TopicGameState || topics[1] != types.TopicProof {
		t.Fatalf("got %v", topics)
	}

	if _, err := parseTopics("game_state,weather"); err == nil {
		t.Fatal("unknown topic should be rejected")
	}
}
