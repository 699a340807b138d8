// lookout
// (C) 2025, Deutsche Telekom IT GmbH
//
// Deutsche Telekom IT GmbH and all other contributors /
// copyright owners license this file to you under the Apache
// License, Version 2.0 (the "License"); you may not use this
// file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package lookout

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/caas-team/lookout/internal/logger"
	"github.com/caas-team/lookout/pkg/db"
)

const (
	streamWriteTimeout = 5 * time.Second
	streamLagInterval  = time.Second
	// KindLagged is the kind of the message sent when a stream missed events
	KindLagged = "lagged"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// LagNotice tells a stream client that events were dropped.
// Clients should refetch the target list.
type LagNotice struct {
	Kind   string `json:"kind"`
	Missed uint64 `json:"missed"`
}

// handleEvents streams all store events over a websocket until the
// client disconnects or the api shuts down
func (l *Lookout) handleEvents(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	if l.streams.Err() != nil {
		writeStatus(w, log, http.StatusServiceUnavailable)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.DebugContext(r.Context(), "Failed to upgrade connection", "error", err)
		return
	}
	l.streamsWg.Add(1)
	defer l.streamsWg.Done()
	defer func() {
		if err := conn.Close(); err != nil {
			log.DebugContext(r.Context(), "Failed to close event stream", "error", err)
		}
	}()

	sub := l.db.Subscribe()
	defer sub.Close()
	log.DebugContext(r.Context(), "Event stream opened", "remote", r.RemoteAddr)

	// the client never sends, reading only detects the disconnect
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	lag := time.NewTicker(streamLagInterval)
	defer lag.Stop()
	for {
		select {
		case ev, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := write(conn, ev); err != nil {
				log.DebugContext(r.Context(), "Failed to write event", "error", err)
				return
			}
		case <-lag.C:
			if missed := sub.Lagged(); missed > 0 {
				if err := write(conn, LagNotice{Kind: KindLagged, Missed: missed}); err != nil {
					log.DebugContext(r.Context(), "Failed to write lag notice", "error", err)
					return
				}
			}
		case <-gone:
			log.DebugContext(r.Context(), "Event stream closed by client")
			return
		case <-l.streams.Done():
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
				time.Now().Add(streamWriteTimeout))
			return
		}
	}
}

func write(conn *websocket.Conn, v any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
	return conn.WriteJSON(v)
}

// eventKinds are the kinds of messages sent on the event stream
var eventKinds = []string{string(db.EventUpdated), string(db.EventDeleted), KindLagged}
