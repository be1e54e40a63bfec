package api

import (
	"context"

	"github.com/fasthttp/websocket"
	"github.com/gofiber/fiber/v3"
	"github.com/valyala/fasthttp"
)

var upgrader = websocket.FastHTTPUpgrader{
	CheckOrigin: func(ctx *fasthttp.RequestCtx) bool { return true },
}

// HandleWatchDeployment upgrades the connection and streams live
// status until the client disconnects. Ownership is verified once
// here, before the upgrade; after that the streamer talks to the
// cluster directly.
func (s *Server) HandleWatchDeployment(c fiber.Ctx) error {
	owner := ownerFromCtx(c)

	id, err := parseID(c, "id")

	if err != nil {
		return s.respondError(c, err)
	}

	deployment, err := s.svc.Get(c.Context(), owner, id)

	if err != nil {
		return s.respondError(c, err)
	}

	namespace := deployment.ClusterNamespace
	resourceName := deployment.ClusterResourceName

	err = upgrader.Upgrade(c.RequestCtx(), func(conn *websocket.Conn) {
		// The request context dies with the upgrade, so the stream
		// runs on its own; disconnect is its only stop signal.
		s.stream.Run(context.Background(), conn, namespace, resourceName)
	})

	if err != nil {
		s.log.Warn("websocket upgrade failed", "deployment", id, "error", err)
		return nil
	}

	return nil
}
