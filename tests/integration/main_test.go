// Package integration exercises podbox end to end against a real
// Docker/Podman-compatible engine. Every test is skipped (via
// TestMain's early os.Exit(0)) when no engine socket is reachable,
// matching the teacher's own "skip rather than fail" convention for
// tests that depend on infrastructure outside the test binary.
package integration

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/akshayaggarwal99/podbox/internal/api"
	"github.com/akshayaggarwal99/podbox/internal/engine"
)

const (
	serverPort = "8099"
	baseURL    = "http://localhost:" + serverPort + "/v1"
)

// socket is the detected engine socket path, shared by every test in this
// package.
var socket string

func TestMain(m *testing.M) {
	path, err := engine.DetectSocket("")
	if err != nil {
		fmt.Println("podbox: no engine socket found, skipping integration tests")
		os.Exit(0)
	}
	if err := engine.NewClient(path).Ping(context.Background()); err != nil {
		fmt.Printf("podbox: engine unreachable, skipping integration tests: %v\n", err)
		os.Exit(0)
	}
	socket = path

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	api.NewHandler(socket).RegisterRoutes(e)

	go func() {
		if err := e.Start(":" + serverPort); err != nil && err != http.ErrServerClosed {
			fmt.Printf("podbox: test server failed: %v\n", err)
			os.Exit(1)
		}
	}()
	waitForServer()

	code := m.Run()
	_ = e.Shutdown(context.Background())
	os.Exit(code)
}

func waitForServer() {
	for i := 0; i < 10; i++ {
		resp, err := http.Get(baseURL + "/containers")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return
			}
		}
		time.Sleep(300 * time.Millisecond)
	}
	fmt.Println("podbox: timeout waiting for test server")
	os.Exit(1)
}
