// Command ws_chat is an interactive client for manual testing.
//
// Lines typed on stdin are sent to -to. Prefix a line with "/to name" to switch peers.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"

	"github.com/safetalk/safetalk-server/internal/proto"
)

func main() {
	if err := run(); err != nil {
		log.Printf("ws_chat: %v", err)
		os.Exit(1)
	}
}

func run() error {
	addr := flag.String("addr", "ws://localhost:8080/ws", "WebSocket address")
	user := flag.String("user", "cli-user", "username")
	token := flag.String("token", "", "JWT from /api/login, required when the server enforces tokens")
	peer := flag.String("to", "", "initial receiver")
	flag.Parse()

	baseCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithCancel(baseCtx)
	defer cancel()

	conn, _, err := websocket.Dial(ctx, *addr, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye")

	if err := send(ctx, conn, proto.InboundTypeConnect, proto.ConnectData{Username: *user, Token: *token}); err != nil {
		return err
	}

	fmt.Printf("Connected to %s as %s\n", *addr, *user)
	fmt.Println("Type messages and press Enter to send. Use /to <name> to switch peers. Ctrl+C to exit.")

	go func() {
		defer cancel()
		readLoop(ctx, conn)
	}()

	writeLoop(ctx, conn, *user, *peer)

	stop()
	cancel()
	_ = conn.Close(websocket.StatusNormalClosure, "bye")
	return nil
}

func send(ctx context.Context, conn *websocket.Conn, typ string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", typ, err)
	}
	if err := wsjson.Write(ctx, conn, proto.Inbound{Type: typ, Data: payload}); err != nil {
		return fmt.Errorf("send %s: %w", typ, err)
	}
	return nil
}

// wireOutbound keeps event data undecoded until the event name is known.
type wireOutbound struct {
	Type  string          `json:"type"`
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	Error *proto.Error    `json:"error"`
}

func readLoop(ctx context.Context, conn *websocket.Conn) {
	for {
		var out wireOutbound
		if err := wsjson.Read(ctx, conn, &out); err != nil {
			if errors.Is(err, context.Canceled) {
				return
			}
			switch status := websocket.CloseStatus(err); status {
			case websocket.StatusNormalClosure, websocket.StatusGoingAway:
				return
			case -1:
				log.Printf("read error: %v", err)
			default:
				log.Printf("connection closed: %s", status)
			}
			return
		}

		if out.Type == proto.OutboundTypeError && out.Error != nil {
			fmt.Printf("! %s: %s\n", out.Error.Code, out.Error.Msg)
			continue
		}
		printEvent(out)
	}
}

func printEvent(out wireOutbound) {
	switch out.Event {
	case proto.EventReceiveMessage:
		var msg proto.Message
		if json.Unmarshal(out.Data, &msg) == nil {
			flag := ""
			if msg.IsBullying {
				flag = fmt.Sprintf(" [flagged %.2f]", msg.BullyingProbability)
			}
			fmt.Printf("%s: %s%s\n", msg.Sender, msg.Message, flag)
			return
		}
	case proto.EventMessageSent:
		var ack proto.EventMessageSentData
		if json.Unmarshal(out.Data, &ack) == nil {
			fmt.Printf("  #%d %s\n", ack.ID, ack.Status)
			return
		}
	case proto.EventOnlineUsers:
		var evt proto.EventOnlineUsersData
		if json.Unmarshal(out.Data, &evt) == nil {
			fmt.Printf("online: %s\n", strings.Join(evt.Users, ", "))
			return
		}
	case proto.EventUserJoined:
		var evt proto.EventUserJoinedData
		if json.Unmarshal(out.Data, &evt) == nil {
			fmt.Printf("%s joined\n", evt.Username)
			return
		}
	case proto.EventUserTyping:
		var evt proto.EventUserTypingData
		if json.Unmarshal(out.Data, &evt) == nil && evt.IsTyping {
			fmt.Printf("%s is typing...\n", evt.Sender)
			return
		}
		return
	}
	fmt.Printf("event=%s data=%s\n", out.Event, out.Data)
}

func writeLoop(ctx context.Context, conn *websocket.Conn, user, peer string) {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		case line, ok := <-lines:
			if !ok {
				return
			}
			text := strings.TrimSpace(line)
			if text == "" {
				continue
			}
			if name, found := strings.CutPrefix(text, "/to "); found {
				peer = strings.TrimSpace(name)
				fmt.Printf("now talking to %s\n", peer)
				continue
			}
			if peer == "" {
				fmt.Println("no receiver, use /to <name> first")
				continue
			}

			data := proto.SendMessageData{
				Sender:    user,
				Receiver:  peer,
				Message:   text,
				Timestamp: time.Now().UTC().Format(time.RFC3339Nano),
			}
			if err := send(ctx, conn, proto.InboundTypeSend, data); err != nil {
				log.Printf("%v", err)
				return
			}
		}
	}
}
