package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"go-chat-memory/internal/logger"
)

var log = logger.New("loadtest")

func main() {
	base := flag.String("base", "http://localhost:8080", "chat server base URL")
	users := flag.Int("users", 100, "concurrent websocket users")
	msgs := flag.Int("msgs", 20, "messages per user")
	flag.Parse()

	wsURL, err := url.Parse(*base)
	if err != nil {
		log.Fatal().Err(err).Msg("bad base URL")
	}
	if wsURL.Scheme == "https" {
		wsURL.Scheme = "wss"
	} else {
		wsURL.Scheme = "ws"
	}
	wsURL.Path = "/ws"

	before := totalMessages(*base)
	log.Info().Int("users", *users).Int("msgs", *msgs).Msg("🔥 STARTING STRESS TEST")

	var (
		wg       sync.WaitGroup
		received atomic.Int64
		sent     atomic.Int64
	)
	start := time.Now()
	for i := 0; i < *users; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			spamChat(*wsURL, fmt.Sprintf("u_%d", n), *msgs, &sent, &received)
		}(i)
	}
	wg.Wait()

	after := totalMessages(*base)
	log.Info().
		Int64("sent", sent.Load()).
		Int64("frames_received", received.Load()).
		Int("log_growth", after-before).
		Dur("elapsed", time.Since(start)).
		Msg("✅ LOAD TEST COMPLETE")
}

func spamChat(wsURL url.URL, user string, count int, sent, received *atomic.Int64) {
	q := wsURL.Query()
	q.Set("username", user)
	wsURL.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.Dial(wsURL.String(), nil)
	if err != nil {
		log.Error().Err(err).Str("user", user).Msg("❌ WS connect failed")
		return
	}
	defer conn.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
			received.Add(1)
		}
	}()

	for i := 0; i < count; i++ {
		msg := map[string]string{"message": fmt.Sprintf("LoadTest Msg %d from %s", i, user)}
		if err := conn.WriteJSON(msg); err != nil {
			log.Error().Err(err).Str("user", user).Msg("❌ send failed")
			break
		}
		sent.Add(1)
		// Small sleep to prevent instant localhost bottleneck (simulate real network)
		time.Sleep(10 * time.Millisecond)
	}

	// Let in-flight broadcasts drain before hanging up.
	time.Sleep(500 * time.Millisecond)
	_ = conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()
	<-done
}

func totalMessages(base string) int {
	resp, err := http.Get(base + "/api/messages")
	if err != nil {
		log.Warn().Err(err).Msg("could not read message log")
		return 0
	}
	defer resp.Body.Close()

	var body struct {
		TotalCount int `json:"total_count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return 0
	}
	return body.TotalCount
}
