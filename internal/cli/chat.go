package cli

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

// errSessionClosed reports a server-initiated close record.
var errSessionClosed = errors.New("session closed by server")

func newChatCmd() *cobra.Command {
	var socketPath string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Connect to a running ezra daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			if socketPath == "" {
				socketPath = paths.Socket
			}

			conn, err := net.Dial("unix", socketPath)
			if err != nil {
				return fmt.Errorf("connecting to %s: %w", socketPath, err)
			}
			defer conn.Close()

			return runChat(conn)
		},
	}

	cmd.Flags().StringVar(&socketPath, "socket", "", "daemon socket path")

	return cmd
}

// runChat alternates between reading one line of input and draining the
// server's replies for that request. Requests are strictly sequential,
// so a simple prompt loop is enough.
func runChat(conn net.Conn) error {
	stdin := bufio.NewScanner(os.Stdin)
	replies := bufio.NewReader(conn)

	for {
		fmt.Print("<user> ")
		if !stdin.Scan() {
			_ = send(conn, map[string]any{"type": "close"})
			return stdin.Err()
		}
		line := strings.TrimSpace(stdin.Text())
		if line == "" {
			continue
		}

		var req map[string]any
		switch {
		case line == "/quit" || line == "/exit":
			return send(conn, map[string]any{"type": "close"})
		case line == "/list":
			req = map[string]any{"type": "list"}
		case strings.HasPrefix(line, "/connect "):
			id, err := strconv.ParseInt(strings.TrimSpace(strings.TrimPrefix(line, "/connect ")), 10, 64)
			if err != nil {
				fmt.Println("usage: /connect <id>")
				continue
			}
			req = map[string]any{"type": "connect", "convo": id}
		case strings.HasPrefix(line, "/"):
			fmt.Println("commands: /list, /connect <id>, /quit")
			continue
		default:
			req = map[string]any{"type": "text", "message": line}
		}

		if err := send(conn, req); err != nil {
			return err
		}
		if err := drain(replies); err != nil {
			if errors.Is(err, errSessionClosed) {
				fmt.Println("connection closed")
				return nil
			}
			return err
		}
	}
}

func send(conn net.Conn, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = conn.Write(append(data, '\n'))
	return err
}

// drain prints server records until the current request is answered.
// Streamed chunks are printed as they arrive; a done record or any
// single-record reply ends the exchange.
func drain(r *bufio.Reader) error {
	speaking := false
	for {
		line, err := r.ReadBytes('\n')
		if err != nil {
			return fmt.Errorf("connection lost: %w", err)
		}

		var msg map[string]any
		if err := json.Unmarshal(line, &msg); err != nil {
			return err
		}

		switch msg["type"] {
		case "chunk":
			if !speaking {
				fmt.Print("<ezra> ")
				speaking = true
			}
			fmt.Print(msg["content"])
		case "tool":
			if speaking {
				fmt.Println()
				speaking = false
			}
			fmt.Printf("[tool %v %v]\n", msg["name"], compact(msg["args"]))
		case "result":
			fmt.Printf("[result %v]\n", compact(msg["result"]))
		case "done":
			if speaking {
				fmt.Println()
			}
			return nil
		case "replay":
			printReplay(msg)
			return nil
		case "conversations":
			printConversations(msg)
			return nil
		case "close":
			return errSessionClosed
		case "error":
			fmt.Printf("error: %v\n", msg["message"])
			return nil
		case "uncaught":
			fmt.Printf("server error:\n%v\n", msg["traceback"])
			return fmt.Errorf("server connection torn down")
		default:
			fmt.Println(string(line))
		}
	}
}

func printReplay(msg map[string]any) {
	msgs, _ := msg["messages"].([]any)
	for _, m := range msgs {
		entry, ok := m.(map[string]any)
		if !ok {
			continue
		}
		speaker := "user"
		if entry["role"] == "self" {
			speaker = "ezra"
		}
		fmt.Printf("<%s> %v\n", speaker, entry["content"])
	}
	fmt.Printf("connected, %d messages\n", len(msgs))
}

func printConversations(msg map[string]any) {
	convos, _ := msg["conversations"].([]any)
	if len(convos) == 0 {
		fmt.Println("no conversations")
		return
	}
	for _, c := range convos {
		entry, ok := c.(map[string]any)
		if !ok {
			continue
		}
		system, _ := entry["system"].(string)
		if len(system) > 60 {
			system = system[:60] + "…"
		}
		fmt.Printf("%v  %v  %s\n", entry["id"], entry["created"], system)
	}
}

func compact(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(data)
}
