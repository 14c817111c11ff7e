// Package cmd provides CLI commands for the mix cascade chat service.
//
// # Commands
//
// chatd: Runs the chat server with its mixing cascade, HTTP API, websocket
// hub and delivery journal.
//
//	go run ./cmd/chatd --addr=:3001
//	go run ./cmd/chatd --config=chatd.yaml
//
// chat-cli: CLI for interacting with a running chat server.
//
//	go run ./cmd/chat-cli join -s http://localhost:3001 -n alice
//	go run ./cmd/chat-cli send -s http://localhost:3001 -u <id> -m "Hello"
//	go run ./cmd/chat-cli watch -s http://localhost:3001 -u <id>
//
// # Configuration
//
// chatd supports a YAML configuration file via the --config flag.
// Command-line flags override config file values.
//
// Example config:
//
//	http_addr: ":3001"
//	cascade:
//	  tick_interval: 100ms
//	  stages:
//	    - name: entry
//	      batch_threshold: 3
//	      max_delay_ms: 500
//	    - name: core
//	      batch_threshold: 3
//	      max_delay_ms: 500
//	    - name: exit
//	      batch_threshold: 3
//	      max_delay_ms: 500
//	postgres:
//	  host: localhost
//	  port: 5432
//	  user: chat
//	  password: secret
//	  database: chat
//
// When the postgres section is omitted the delivery journal is kept in
// memory.
package cmd
