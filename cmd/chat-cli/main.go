// Command chat-cli provides CLI tools for interacting with a running chat
// server.
//
// # Commands
//
// keygen: Generate an X25519 key pair for end-to-end encryption.
//
//	chat-cli keygen
//
// join: Join the room and print the assigned user id.
//
//	chat-cli join --server=http://localhost:3001 --name=alice
//
// send: Submit a group or private message through the cascade.
//
//	chat-cli send -s http://localhost:3001 -u <id> -m "Hello"
//	chat-cli send -s http://localhost:3001 -u <id> --to=<peer-id> --to-key=<hex> --key=<hex> -m "psst"
//
// watch: Stream live deliveries over the websocket.
//
//	chat-cli watch -s http://localhost:3001 -u <id>
//
// status: Display room membership and server health.
//
//	chat-cli status -s http://localhost:3001
package main

import (
	"bytes"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/websocket"
	"github.com/ruteri/go-mixcascade/chat"
	"github.com/ruteri/go-mixcascade/crypto"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	var err error
	switch cmd {
	case "keygen":
		err = runKeygen()
	case "join":
		err = runJoin(args)
	case "send":
		err = runSend(args)
	case "watch":
		err = runWatch(args)
	case "status":
		err = runStatus(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", cmd)
		printUsage()
		os.Exit(1)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`chat-cli - CLI tools for the mix cascade chat

Usage:
  chat-cli <command> [options]

Commands:
  keygen    Generate an X25519 key pair
  join      Join the room
  send      Send a message through the cascade
  watch     Stream live deliveries
  status    Display room status

Run 'chat-cli <command> --help' for command-specific options.`)
}

// --- Keygen Command ---

func runKeygen() error {
	kp, err := crypto.GenerateKeyPair()
	if err != nil {
		return err
	}

	fmt.Printf("public key:  %s\n", kp.PublicKeyString())
	fmt.Printf("private key: %s\n", hex.EncodeToString(kp.Private[:]))
	return nil
}

// --- Join Command ---

func runJoin(args []string) error {
	var (
		serverURL string
		name      string
		publicKey string
	)

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--server", "-s":
			i++
			if i < len(args) {
				serverURL = args[i]
			}
		case "--name", "-n":
			i++
			if i < len(args) {
				name = args[i]
			}
		case "--public-key", "-k":
			i++
			if i < len(args) {
				publicKey = args[i]
			}
		case "--help", "-h":
			printJoinHelp()
			return nil
		}
	}

	if serverURL == "" {
		serverURL = "http://localhost:3001"
	}
	if name == "" {
		return fmt.Errorf("--name is required")
	}

	resp, err := postJSON(serverURL+"/api/join", &chat.JoinRequest{Name: name})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("join failed (%d): %s", resp.StatusCode, string(body))
	}

	var joinResp chat.JoinResponse
	if err := json.NewDecoder(resp.Body).Decode(&joinResp); err != nil {
		return err
	}

	fmt.Printf("Joined as %s (id %s)\n", joinResp.Self.Name, joinResp.Self.ID)
	fmt.Printf("Users in room: %d\n", len(joinResp.Users))
	for _, u := range joinResp.Users {
		fmt.Printf("  %s (%s)\n", u.Name, u.ID)
	}

	if publicKey != "" {
		keyResp, err := postJSON(serverURL+"/api/keys", &chat.KeyUpdateRequest{
			UserID:    joinResp.Self.ID,
			PublicKey: publicKey,
		})
		if err != nil {
			return err
		}
		defer keyResp.Body.Close()
		if keyResp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(keyResp.Body)
			return fmt.Errorf("key publish failed (%d): %s", keyResp.StatusCode, string(body))
		}
		fmt.Println("Public key published.")
	}

	return nil
}

func printJoinHelp() {
	fmt.Println(`chat-cli join - Join the room

Usage:
  chat-cli join --server=<url> --name=<name> [--public-key=<hex>]

Options:
  --server, -s       Server URL (default: http://localhost:3001)
  --name, -n         Display name (required)
  --public-key, -k   X25519 public key (hex) to publish on join`)
}

// --- Send Command ---

func runSend(args []string) error {
	var (
		serverURL  string
		userID     string
		message    string
		toUserID   string
		toKeyHex   string
		privKeyHex string
	)

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--server", "-s":
			i++
			if i < len(args) {
				serverURL = args[i]
			}
		case "--user", "-u":
			i++
			if i < len(args) {
				userID = args[i]
			}
		case "--message", "-m":
			i++
			if i < len(args) {
				message = args[i]
			}
		case "--to", "-t":
			i++
			if i < len(args) {
				toUserID = args[i]
			}
		case "--to-key":
			i++
			if i < len(args) {
				toKeyHex = args[i]
			}
		case "--key":
			i++
			if i < len(args) {
				privKeyHex = args[i]
			}
		case "--help", "-h":
			printSendHelp()
			return nil
		}
	}

	if serverURL == "" {
		serverURL = "http://localhost:3001"
	}
	if userID == "" {
		return fmt.Errorf("--user is required")
	}
	if message == "" {
		return fmt.Errorf("--message is required")
	}

	payload := []byte(message)

	// Seal the payload when the recipient's key and our private key are
	// both available. The server never sees the difference.
	if toKeyHex != "" && privKeyHex != "" {
		recipientKey, err := crypto.ParsePublicKey(toKeyHex)
		if err != nil {
			return fmt.Errorf("recipient key: %w", err)
		}
		privRaw, err := hex.DecodeString(privKeyHex)
		if err != nil || len(privRaw) != crypto.PrivateKeySize {
			return fmt.Errorf("invalid private key")
		}
		var priv [crypto.PrivateKeySize]byte
		copy(priv[:], privRaw)

		payload, err = crypto.Seal(payload, recipientKey, &priv)
		if err != nil {
			return fmt.Errorf("seal: %w", err)
		}
	}

	var (
		resp *http.Response
		err  error
	)
	if toUserID != "" {
		resp, err = postJSON(serverURL+"/api/messages/private", &chat.PrivateMessageRequest{
			SenderID:   userID,
			To:         toUserID,
			Ciphertext: payload,
		})
	} else {
		resp, err = postJSON(serverURL+"/api/messages", &chat.GroupMessageRequest{
			SenderID:   userID,
			Ciphertext: payload,
		})
	}
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("send failed (%d): %s", resp.StatusCode, string(body))
	}

	var submitResp chat.SubmitResponse
	if err := json.NewDecoder(resp.Body).Decode(&submitResp); err != nil {
		return err
	}

	fmt.Printf("Message accepted (id %s). It will surface after mixing.\n", submitResp.MessageID)
	return nil
}

func printSendHelp() {
	fmt.Println(`chat-cli send - Send a message through the cascade

Usage:
  chat-cli send --server=<url> --user=<id> --message=<text>
  chat-cli send --server=<url> --user=<id> --to=<peer-id> --to-key=<hex> --key=<hex> --message=<text>

Options:
  --server, -s    Server URL (default: http://localhost:3001)
  --user, -u      Your user id from join (required)
  --message, -m   Message text (required)
  --to, -t        Recipient user id for a private message
  --to-key        Recipient's X25519 public key (hex) for sealing
  --key           Your X25519 private key (hex) for sealing`)
}

// --- Watch Command ---

func runWatch(args []string) error {
	var (
		serverURL string
		userID    string
	)

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--server", "-s":
			i++
			if i < len(args) {
				serverURL = args[i]
			}
		case "--user", "-u":
			i++
			if i < len(args) {
				userID = args[i]
			}
		case "--help", "-h":
			printWatchHelp()
			return nil
		}
	}

	if serverURL == "" {
		serverURL = "http://localhost:3001"
	}
	if userID == "" {
		return fmt.Errorf("--user is required")
	}

	wsURL := "ws" + serverURL[len("http"):] + "/api/ws?user=" + userID
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan
		conn.Close()
	}()

	fmt.Fprintln(os.Stderr, "Watching deliveries (Ctrl+C to stop)...")

	for {
		var event chat.Event
		if err := conn.ReadJSON(&event); err != nil {
			return nil
		}
		printEvent(&event)
	}
}

func printEvent(event *chat.Event) {
	ts := time.Now().Format(time.RFC3339)
	raw, _ := json.Marshal(event.Data)
	fmt.Printf("[%s] %s %s\n", ts, event.Event, string(raw))
}

func printWatchHelp() {
	fmt.Println(`chat-cli watch - Stream live deliveries

Usage:
  chat-cli watch --server=<url> --user=<id>

Options:
  --server, -s    Server URL (default: http://localhost:3001)
  --user, -u      Your user id from join (required)`)
}

// --- Status Command ---

func runStatus(args []string) error {
	var serverURL string

	for i := 0; i < len(args); i++ {
		switch args[i] {
		case "--server", "-s":
			i++
			if i < len(args) {
				serverURL = args[i]
			}
		case "--help", "-h":
			printStatusHelp()
			return nil
		}
	}

	if serverURL == "" {
		serverURL = "http://localhost:3001"
	}

	httpClient := &http.Client{Timeout: 10 * time.Second}

	alive := false
	if resp, err := httpClient.Get(serverURL + "/livez"); err == nil {
		resp.Body.Close()
		alive = resp.StatusCode == http.StatusOK
	}

	resp, err := httpClient.Get(serverURL + "/api/users")
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var users []*chat.User
	if err := json.NewDecoder(resp.Body).Decode(&users); err != nil {
		return err
	}

	fmt.Printf("Server: %s (alive=%v)\n", serverURL, alive)
	fmt.Printf("Users: %d/%d\n", len(users), chat.MaxUsers)
	for _, u := range users {
		keyInfo := "no key"
		if u.PublicKey != "" {
			keyInfo = "key published"
		}
		fmt.Printf("  %s (%s, %s)\n", u.Name, u.ID, keyInfo)
	}

	return nil
}

func printStatusHelp() {
	fmt.Println(`chat-cli status - Display room status

Usage:
  chat-cli status --server=<url>

Options:
  --server, -s    Server URL (default: http://localhost:3001)`)
}

// --- Shared Utilities ---

func postJSON(url string, body any) (*http.Response, error) {
	buf, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	return http.Post(url, "application/json", bytes.NewReader(buf))
}
