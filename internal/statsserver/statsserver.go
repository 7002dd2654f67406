// Package statsserver republishes a running analysis's stats snapshots to a
// single connected browser over a websocket, adapted from the teacher's
// realtime training-progress server: same ping/pong/publish-loop shape,
// wired to raceloom's stats.Collector instead of RL state grids.
package statsserver

import (
	"context"
	"fmt"
	"html/template"
	"log"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	channerics "github.com/niceyeti/channerics/channels"

	"raceloom/internal/stats"
)

var upgrader = websocket.Upgrader{}

const (
	writeWait        = 1 * time.Second
	pongWait         = 60 * time.Second
	pingPeriod       = (pongWait * 9) / 10
	closeGracePeriod = 10 * time.Second
	pubResolution    = 100 * time.Millisecond
)

const indexTemplate = `<!DOCTYPE html>
<html><head><title>raceloom</title></head>
<body>
<pre id="stats">connecting...</pre>
<script>
  var ws = new WebSocket("ws://" + location.host + "/ws");
  ws.onmessage = function(ev) { document.getElementById("stats").textContent = ev.data; };
</script>
</body></html>`

// Server serves a single stats page to a single client over a single
// websocket, same intentionally narrow scope as the teacher's prototype
// server: no multi-client fan-out, just enough to watch one run progress.
type Server struct {
	addr    string
	updates <-chan *stats.Collector
}

// NewServer returns a Server that republishes snapshots arriving on
// updates; the caller owns sending to updates and closing it when the run
// completes.
func NewServer(addr string, updates <-chan *stats.Collector) *Server {
	return &Server{addr: addr, updates: updates}
}

// Serve blocks, serving the index page and websocket endpoint.
func (s *Server) Serve() error {
	r := mux.NewRouter()
	r.HandleFunc("/", s.serveIndex).Methods(http.MethodGet)
	r.HandleFunc("/ws", s.serveWebsocket)

	if err := http.ListenAndServe(s.addr, r); err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	return nil
}

func (s *Server) serveIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	t := template.Must(template.New("index").Parse(indexTemplate))
	_ = t.Execute(w, nil)
}

func (s *Server) serveWebsocket(w http.ResponseWriter, r *http.Request) {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		log.Println("upgrade:", err)
		return
	}
	defer closeWebsocket(ws)
	s.publishUpdates(r.Context(), ws)
}

// publishUpdates pumps stats.Collector snapshots to ws as they arrive,
// grounded on the teacher's publishEleUpdates ping/pong/read-pump
// choreography: a background goroutine drives ReadMessage so control
// frames (pong) are processed, while the main loop pings, watches for
// pong timeout, and writes updates no faster than pubResolution.
func (s *Server) publishUpdates(ctx context.Context, ws *websocket.Conn) {
	last := time.Now()
	pubCtx, cancelPub := context.WithCancel(ctx)
	defer cancelPub()
	pinger := channerics.NewTicker(pubCtx.Done(), pingPeriod)
	lastPong := time.Now()

	pong := make(chan struct{})
	defer close(pong)
	ws.SetPongHandler(func(string) error {
		pong <- struct{}{}
		return nil
	})

	go func() {
		for {
			select {
			case <-pubCtx.Done():
				return
			default:
				if _, _, err := ws.ReadMessage(); err != nil {
					cancelPub()
					return
				}
			}
		}
	}()

	for {
		select {
		case <-pubCtx.Done():
			return
		case <-pinger:
			if time.Since(lastPong) > pingPeriod*2 {
				return
			}
			if err := ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		case <-pong:
			lastPong = time.Now()
		case snapshot, ok := <-s.updates:
			if !ok {
				return
			}
			if time.Since(last) < pubResolution {
				continue
			}
			last = time.Now()
			if err := ws.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				return
			}
			if err := ws.WriteMessage(websocket.TextMessage, []byte(snapshot.Pretty())); err != nil {
				return
			}
		}
	}
}

func closeWebsocket(ws *websocket.Conn) {
	_ = ws.SetWriteDeadline(time.Now().Add(writeWait))
	_ = ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	time.Sleep(closeGracePeriod)
	_ = ws.Close()
}
