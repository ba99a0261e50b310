package remote

import (
	"context"
	"strings"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	log "github.com/sirupsen/logrus"

	"github.com/sidkik/devmirror/pkg/errors"
)

const eventsPath = "/events/ws"

// wsURL converts the http(s) API URL into the matching websocket URL.
func wsURL(baseURL string) string {
	switch {
	case strings.HasPrefix(baseURL, "https://"):
		return "wss://" + strings.TrimPrefix(baseURL, "https://")
	case strings.HasPrefix(baseURL, "http://"):
		return "ws://" + strings.TrimPrefix(baseURL, "http://")
	default:
		return baseURL
	}
}

func (c httpClient) ProjectStateChanges(ctx context.Context) (<-chan StateChange, error) {
	conn, _, err := websocket.Dial(ctx, wsURL(c.baseURL)+eventsPath, nil)
	if err != nil {
		return nil, errors.WithContext(err, "dial events")
	}

	changes := make(chan StateChange)
	go func() {
		defer close(changes)
		defer conn.Close(websocket.StatusNormalClosure, "")

		for {
			var change StateChange
			if err := wsjson.Read(ctx, conn, &change); err != nil {
				if ctx.Err() == nil && websocket.CloseStatus(err) != websocket.StatusNormalClosure {
					log.WithError(err).Debug("Project events stream ended")
				}
				return
			}
			if change.ID == "" {
				continue
			}

			select {
			case changes <- change:
			case <-ctx.Done():
				return
			}
		}
	}()
	return changes, nil
}
