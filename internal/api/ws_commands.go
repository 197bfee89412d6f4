package api

import (
	"context"
	"fmt"
	"time"

	"github.com/yegors/co-translate/internal/websocket"
)

// Session commands accepted over the websocket
const (
	CommandStart     = "start"
	CommandStop      = "stop"
	CommandReprocess = "reprocess"
	CommandSetTarget = "set_target"
	CommandSession   = "get_session"
)

// HandleMessage runs a session command sent by a websocket client and
// replies with the resulting session state
func (h *Handler) HandleMessage(client *websocket.Client, messageType string, data map[string]any) error {
	var err error

	switch messageType {
	case CommandStart:
		err = h.session.Start()
	case CommandStop:
		err = h.session.Stop()
	case CommandReprocess:
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		err = h.session.ReprocessLast(ctx)
		cancel()
	case CommandSetTarget:
		code, _ := data["language"].(string)
		err = h.session.SetTargetLanguage(code)
	case CommandSession:
	default:
		return fmt.Errorf("unknown command: %s", messageType)
	}
	if err != nil {
		return err
	}

	client.SendMessage(&websocket.Message{
		Type: websocket.MessageTypeSession,
		Data: h.sessionResponse(),
	})
	return nil
}
