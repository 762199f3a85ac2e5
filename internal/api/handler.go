// Package api exposes podbox over HTTP and WebSocket for remote or
// multi-process callers — an optional interface, not part of the core
// transport/exec/session design, reusing the same echo+websocket stack
// the rest of this codebase's ancestry uses for its own control plane.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"

	"github.com/akshayaggarwal99/podbox"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handler wires podbox's package-level persistence queries and
// Container operations onto an echo router.
type Handler struct {
	socket string
}

func NewHandler(socket string) *Handler {
	return &Handler{socket: socket}
}

func (h *Handler) RegisterRoutes(e *echo.Echo) {
	v1 := e.Group("/v1")
	v1.GET("/containers", h.listContainers)
	v1.POST("/containers/:name/run", h.runCommand)
	v1.DELETE("/containers/:name", h.destroyContainer)
	v1.GET("/containers/:name/stream", h.streamCommand)
}

func (h *Handler) listContainers(c echo.Context) error {
	items, err := podbox.List(c.Request().Context(), h.socket, c.QueryParam("project"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"containers": items})
}

type runRequest struct {
	Command string `json:"command"`
	Lang    string `json:"lang"`
	Timeout int    `json:"timeout"`
}

func (h *Handler) runCommand(c echo.Context) error {
	var req runRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request")
	}
	ctx := c.Request().Context()
	container, err := podbox.Resume(ctx, h.socket, c.Param("name"))
	if err != nil {
		return mapHTTPError(err)
	}
	result, err := container.Run(ctx, req.Command, podbox.WithLang(req.Lang), podbox.WithTimeout(req.Timeout))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{
		"stdout":    result.StdoutText(),
		"stderr":    result.StderrText(),
		"exit_code": result.ExitCode,
		"truncated": result.Truncated,
		"timed_out": result.TimedOut,
	})
}

func (h *Handler) destroyContainer(c echo.Context) error {
	if err := podbox.Destroy(c.Request().Context(), h.socket, c.Param("name")); err != nil {
		return mapHTTPError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

// streamCommand upgrades to a WebSocket and relays an ExecStream's
// chunks as JSON frames, for a remote dashboard following live output.
func (h *Handler) streamCommand(c echo.Context) error {
	ws, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return err
	}
	defer ws.Close()

	ctx, cancel := context.WithTimeout(c.Request().Context(), 10*time.Minute)
	defer cancel()

	container, err := podbox.Resume(ctx, h.socket, c.Param("name"))
	if err != nil {
		return writeWSError(ws, err)
	}
	command := c.QueryParam("command")
	stream, err := container.RunStream(ctx, command, podbox.WithLang(c.QueryParam("lang")))
	if err != nil {
		return writeWSError(ws, err)
	}

	for {
		chunk, ok, err := stream.Next(ctx)
		if !ok {
			if err != nil {
				return writeWSError(ws, err)
			}
			result := stream.Result()
			return ws.WriteJSON(map[string]any{"event": "exit", "exit_code": result.ExitCode})
		}
		if err := ws.WriteJSON(map[string]any{"event": chunk.Stream, "data": string(chunk.Data)}); err != nil {
			log.Debug().Err(err).Msg("podbox: websocket write failed, client likely disconnected")
			_ = stream.Close()
			return nil
		}
	}
}

func writeWSError(ws *websocket.Conn, err error) error {
	_ = ws.WriteJSON(map[string]any{"event": "error", "message": err.Error()})
	return err
}

func mapHTTPError(err error) error {
	var notFound *podbox.ContainerNotFoundError
	if errors.As(err, &notFound) {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
