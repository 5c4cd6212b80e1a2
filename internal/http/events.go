package http

import (
	"context"
	"log"
	"net/http"

	"UnjobCore/internal/notify"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// EventFeed streams notification events to a websocket client. It bridges the
// Redis notification channel to ops dashboards; it is read-only and drops the
// connection on the first write failure.
type EventFeed struct {
	Dispatcher *notify.Dispatcher
}

func (f *EventFeed) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("event feed upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sub := f.Dispatcher.Subscribe(ctx)
	defer sub.Close()

	// Drain client reads so control frames keep flowing and a closed peer is
	// noticed.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg.Payload)); err != nil {
				return
			}
		}
	}
}
