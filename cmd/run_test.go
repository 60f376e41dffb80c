package cmd

import (
	"context"
	"testing"

	"wirebot/pkg/command"
	"wirebot/pkg/protocol"
)

func TestRegisterBuiltinsInstallsPing(t *testing.T) {
	router := command.NewRouter(nil)
	registerBuiltins(router)

	replied := ""
	err := router.Dispatch(context.Background(),
		protocol.CommandMessage{Command: "ping"},
		func(_ context.Context, text string) error {
			replied = text
			return nil
		})
	if err != nil {
		t.Fatalf("Dispatch error: %v", err)
	}
	if replied != "pong" {
		t.Fatalf("reply = %q, want %q", replied, "pong")
	}
}

func TestSecondsToDuration(t *testing.T) {
	if got := secondsToDuration(30).Seconds(); got != 30 {
		t.Fatalf("seconds = %v, want 30", got)
	}
}
