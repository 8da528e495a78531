// hostcheck checks the host API and action feed without running a node.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/anikeaty08/linera-game/internal/hostlink"
	"github.com/anikeaty08/linera-game/pkg/gamedto"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env loaded: %v", err)
	}
	baseURL := strings.TrimSpace(os.Getenv("HOST_BASE_URL"))
	wsURL := strings.TrimSpace(os.Getenv("HOST_WS_URL"))
	headers := hostlink.BearerToken(os.Getenv("HOST_TOKEN"))

	if baseURL == "" {
		log.Fatal("HOST_BASE_URL is required")
	}

	client := hostlink.NewClient(baseURL,
		hostlink.WithHeaderProvider(headers),
		hostlink.WithTimeout(8*time.Second),
	)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	h, err := client.Health(ctx)
	if err != nil {
		log.Printf("/health error: %v", err)
	} else {
		log.Printf("/health ok=%v version=%s", h.OK, h.Version)
	}

	if wsURL == "" {
		log.Println("HOST_WS_URL not set; skipping feed check")
		return
	}
	feed := hostlink.NewFeed(wsURL,
		func(_ context.Context, env gamedto.Envelope) {
			fmt.Printf("envelope request=%s game=%s actor=%s type=%s\n", env.RequestID, env.GameID, env.Actor, env.Action.Type)
		},
		hostlink.WithFeedHeaders(headers),
		hostlink.WithReconnect(3),
		hostlink.WithStateListener(func(s hostlink.State) { log.Printf("feed state: %s", s) }),
	)
	cctx, ccancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer ccancel()
	if err := feed.Connect(cctx); err != nil {
		log.Printf("feed connect error: %v", err)
		return
	}

	// observe for a short window
	time.Sleep(10 * time.Second)
	_ = feed.Close(context.Background())
}
