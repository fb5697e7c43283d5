package handlers

import (
	"io"

	"github.com/gin-gonic/gin"
)

const streamBuffer = 16

// streamEvents relays values pushed through send to the client as
// Server-Sent Events until the client disconnects or the source closes done.
// When the client falls behind, the oldest undelivered value is dropped;
// every value is a full snapshot, so only the latest matters.
func streamEvents[T any](c *gin.Context, event string, register func(send func(T)) (stop func(), done <-chan struct{}, err error)) {
	ch := make(chan T, streamBuffer)
	send := func(v T) {
		for {
			select {
			case ch <- v:
				return
			default:
			}
			select {
			case <-ch:
			default:
			}
		}
	}

	stop, done, err := register(send)
	if err != nil {
		respondError(c, "Failed to open stream", err)
		return
	}
	defer stop()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	ctx := c.Request.Context()
	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case <-done:
			return false
		case v := <-ch:
			c.SSEvent(event, v)
			return true
		}
	})
}
