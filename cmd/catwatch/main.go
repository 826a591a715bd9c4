// catwatch - tails a catcam dashboard from the terminal
//
// Connects to /ws/status and prints page, effect and cue changes as they
// happen. With -start it triggers detection first.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/websocket"

	"github.com/teslashibe/go-catcam/internal/httpc"
	"github.com/teslashibe/go-catcam/internal/log"
	"github.com/teslashibe/go-catcam/pkg/web"
)

func main() {
	addr := flag.String("addr", "localhost:8080", "catcam host:port")
	start := flag.Bool("start", false, "Trigger detection before watching")
	preset := flag.String("preset", "", "Viewport preset used with -start")
	level := flag.String("log-level", "warn", "Log level: debug, info, warn, error")
	flag.Parse()

	log.Init(*level)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if *start {
		if err := trigger(ctx, *addr, *preset); err != nil {
			fmt.Fprintf(os.Stderr, "❌ start: %v\n", err)
			os.Exit(1)
		}
		fmt.Println("▶️  detection started")
	}

	if err := watch(ctx, *addr, os.Stdout); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

// trigger posts to /api/start.
func trigger(ctx context.Context, addr, preset string) error {
	body, err := json.Marshal(web.StartRequest{Preset: preset})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, "http://"+addr+"/api/start", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		msg, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s: %s", resp.Status, strings.TrimSpace(string(msg)))
	}
	return nil
}

// watch prints status events until ctx is done or the connection drops.
func watch(ctx context.Context, addr string, out io.Writer) error {
	u := url.URL{Scheme: "ws", Host: addr, Path: "/ws/status"}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", u.String(), err)
	}
	defer conn.Close()
	log.Info("connected", "url", u.String())

	go func() {
		<-ctx.Done()
		conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
		conn.Close()
	}()

	var last string
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		line, err := render(data)
		if err != nil {
			log.Warn("bad message", "error", err)
			continue
		}
		if line == "" || line == last {
			continue
		}
		last = line
		fmt.Fprintf(out, "%s %s\n", time.Now().Format("15:04:05"), line)
	}
}

// render turns a status message into one line, or "" to skip it.
func render(data []byte) (string, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return "", err
	}
	log.Debug("status message", "type", head.Type, "bytes", len(data))

	switch head.Type {
	case "cue":
		var ev web.CueEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return "", err
		}
		return fmt.Sprintf("🔊 cue %d %s", ev.Index, ev.Name), nil

	case "state":
		var st web.State
		if err := json.Unmarshal(data, &st); err != nil {
			return "", err
		}
		return renderState(st), nil
	}
	return "", nil
}

func renderState(st web.State) string {
	visible := "-"
	for name, on := range st.Pages {
		if on {
			visible = name
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "page=%s", visible)

	switch {
	case st.Effects.Cat:
		b.WriteString(" 🐱 cat")
	case st.Effects.Badger:
		b.WriteString(" 🦡 badger")
	}
	if st.Effects.Detecting {
		b.WriteString(" detecting")
	}
	if !st.Banner.Supported && visible != "-" {
		b.WriteString(" unsupported")
	}
	if st.Session != nil {
		fmt.Fprintf(&b, " session=%s cycles=%d", st.Session.State, st.Session.Stats.Cycles)
		if st.Session.Stats.LastLabel != "" {
			fmt.Fprintf(&b, " last=%q %.0f%%", st.Session.Stats.LastLabel, st.Session.Stats.LastProbability*100)
		}
	}
	if st.Error != "" {
		fmt.Fprintf(&b, " error=%q", st.Error)
	}
	return b.String()
}
