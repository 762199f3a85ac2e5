// Command podbox creates, runs commands in, and tears down sandbox
// containers on a Docker- or Podman-compatible engine.
//
// Usage:
//
//	podbox run "echo hello"
//	podbox list
//	podbox shell my-sandbox
//	podbox serve --port 8080
package main

import "github.com/akshayaggarwal99/podbox/internal/cli"

func main() {
	cli.Execute()
}
