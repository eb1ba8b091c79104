package cmd

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/mironalin/carsense/pkg/obd"
	"github.com/mironalin/carsense/pkg/poller"
	"github.com/mironalin/carsense/pkg/support"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "poll sensors and broadcast readings over websocket",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		c, cfg, err := initClient(ctx, cmd)
		if err != nil {
			return err
		}
		defer c.Close()

		p := poller.New(c, support.New(c), poller.Config{
			High:      cfg.Polling.High,
			Medium:    cfg.Polling.Medium,
			Low:       cfg.Polling.Low,
			Period:    cfg.Period(),
			Protocol:  cfg.Adapter.Protocol,
			CacheTTL:  cfg.CacheTTL(),
			OnMessage: func(msg string) { log.Println(msg) },
		})
		if err := p.Start(ctx); err != nil {
			return err
		}
		defer p.Stop()

		bc := newBroadcaster()
		go bc.run(ctx, p)

		mux := http.NewServeMux()
		mux.HandleFunc("/ws", bc.handleWS)
		mux.HandleFunc("/readings", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(p.Snapshot())
		})

		srv := &http.Server{Addr: cfg.Server.Listen, Handler: mux}
		go func() {
			<-ctx.Done()
			shutCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			srv.Shutdown(shutCtx)
		}()

		log.Println("listening on", cfg.Server.Listen)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	},
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

type broadcaster struct {
	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

func newBroadcaster() *broadcaster {
	return &broadcaster{conns: make(map[*websocket.Conn]struct{})}
}

func (b *broadcaster) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("websocket upgrade:", err)
		return
	}
	b.mu.Lock()
	b.conns[conn] = struct{}{}
	b.mu.Unlock()

	// drain control frames and drop the conn when the peer goes away
	go func() {
		defer b.drop(conn)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

func (b *broadcaster) drop(conn *websocket.Conn) {
	b.mu.Lock()
	delete(b.conns, conn)
	b.mu.Unlock()
	conn.Close()
}

func (b *broadcaster) run(ctx context.Context, p *poller.Poller) {
	sub := p.Subscribe()
	defer sub.Close()
	for {
		select {
		case <-ctx.Done():
			return
		case r, ok := <-sub.Chan():
			if !ok {
				return
			}
			b.send(r)
		}
	}
}

func (b *broadcaster) send(r obd.Reading) {
	payload, err := json.Marshal(r)
	if err != nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for conn := range b.conns {
		conn.SetWriteDeadline(time.Now().Add(2 * time.Second))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			delete(b.conns, conn)
			conn.Close()
		}
	}
}
