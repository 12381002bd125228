package api

import (
	"io"

	"github.com/gin-gonic/gin"
)

const streamBuffer = 4

// StreamState pushes a "state" server-sent event with the current snapshot and
// again after every change, until the client disconnects.
func (h *Handler) StreamState(c *gin.Context) {
	updates, cancel := h.state.Subscribe(streamBuffer)
	defer cancel()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("state", h.stateResponse(h.state.Snapshot()))
	c.Writer.Flush()

	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case s, ok := <-updates:
			if !ok {
				return false
			}
			c.SSEvent("state", h.stateResponse(s))
			return true
		}
	})
}
