package transport

import (
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"go.uber.org/zap"

	"odin-broker/internal/dispatch"
	"odin-broker/internal/metrics"
	"odin-broker/internal/protocol"
	"odin-broker/internal/topic"
)

// connection owns one accepted socket for its lifetime. It splits into
// three cooperating goroutine categories sharing the socket: a reader
// loop, a single writer pump, and one subscription drain per active
// Subscribe. All three only ever touch the socket's read half or, via the
// single outbound queue, its write half — enforcing the single-writer
// invariant spec.md §5 requires.
type connection struct {
	conn        net.Conn
	reg         dispatch.Registry
	logger      *zap.Logger
	metrics     *metrics.Registry
	idleTimeout time.Duration

	outbound chan protocol.Response
	drainWG  sync.WaitGroup

	subsMu sync.Mutex
	subs   map[subKey]chan struct{} // topic/client -> drain-stop signal
}

type subKey struct {
	topic    protocol.TopicName
	clientID protocol.ClientID
}

func newConnection(conn net.Conn, reg dispatch.Registry, logger *zap.Logger, m *metrics.Registry, idleTimeout time.Duration) *connection {
	return &connection{
		conn:        conn,
		reg:         reg,
		logger:      logger,
		metrics:     m,
		idleTimeout: idleTimeout,
		outbound:    make(chan protocol.Response, 256),
		subs:        make(map[subKey]chan struct{}),
	}
}

// serve runs the connection to completion: reader loop in this goroutine,
// writer pump in a spawned goroutine, torn down together on exit.
func (c *connection) serve() {
	defer c.conn.Close()

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		c.writerPump()
	}()

	c.readerLoop()

	c.teardownSubscriptions()
	c.drainWG.Wait()
	close(c.outbound)
	<-writerDone
}

// readerLoop reads bytes, feeds the decoder, and dispatches each decoded
// request. It terminates on clean EOF, a read error, a decode error, or an
// idle timeout measured since the last successfully decoded request (or
// connection start). Outbound traffic, such as subscription Messages, and
// partial frames do not reset the idle timer.
func (c *connection) readerLoop() {
	buf := make([]byte, 0, 4096)
	chunk := make([]byte, 4096)
	deadline := time.Now().Add(c.idleTimeout)

	for {
		if c.idleTimeout > 0 {
			if err := c.conn.SetReadDeadline(deadline); err != nil {
				c.logger.Debug("set read deadline", zap.Error(err))
			}
		}

		for {
			req, consumed, err := protocol.DecodeRequest(buf)
			if err != nil {
				c.logger.Warn("protocol decode error, closing connection", zap.Error(err))
				if c.metrics != nil {
					c.metrics.Messages.DecodeErrors.Inc()
				}
				return
			}
			if consumed == 0 {
				break // need more bytes
			}
			buf = buf[consumed:]
			deadline = time.Now().Add(c.idleTimeout)
			c.dispatchRequest(req)
		}

		n, err := c.conn.Read(chunk)
		if n > 0 {
			buf = append(buf, chunk[:n]...)
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				c.logger.Debug("connection closed by peer")
				return
			}
			if ne, ok := err.(net.Error); ok && ne.Timeout() {
				c.logger.Warn("connection idle timeout")
				return
			}
			c.logger.Debug("read error", zap.Error(err))
			return
		}
	}
}

func (c *connection) dispatchRequest(req protocol.Request) {
	result := dispatch.Dispatch(c.reg, req)

	c.send(result.Response)

	if result.Subscription != nil {
		c.startDrain(result.Subscription)
	}

	if unsub, ok := req.(protocol.UnsubscribeRequest); ok {
		c.stopDrain(subKey{topic: unsub.Topic, clientID: unsub.ClientID})
	}
}

// send enqueues resp onto the single outbound queue. The writer pump is the
// only reader, so all responses on this connection — dispatch replies and
// subscription fan-out alike — are serialized in enqueue order. Callers
// must not still be sending once the connection is tearing down; serve
// waits for every drain goroutine (drainWG) before closing the queue, and
// the reader loop has already returned by that point, so this is safe.
func (c *connection) send(resp protocol.Response) {
	c.outbound <- resp
}

func (c *connection) writerPump() {
	buf := make([]byte, 0, 4096)
	for resp := range c.outbound {
		buf = buf[:0]
		buf = protocol.EncodeResponse(buf, resp)
		if _, err := c.conn.Write(buf); err != nil {
			c.logger.Debug("write error", zap.Error(err))
			return
		}
	}
}

// startDrain spawns the goroutine that forwards one subscription's queue
// as Message responses onto the outbound queue. A duplicate Subscribe for
// the same topic/client replaces the prior queue (topic.Topic.Subscribe's
// contract); the old drain goroutine observes its channel closing and
// exits on its own, so no explicit stop signal is needed for that case —
// stopDrain exists for the explicit Unsubscribe path.
func (c *connection) startDrain(sub *dispatch.SubscriptionStarted) {
	key := subKey{topic: sub.Topic, clientID: sub.ClientID}
	stop := make(chan struct{})

	c.subsMu.Lock()
	c.subs[key] = stop
	c.subsMu.Unlock()

	c.drainWG.Add(1)
	go func() {
		defer c.drainWG.Done()
		for {
			select {
			case record, ok := <-sub.Queue:
				if !ok {
					return
				}
				c.send(protocol.MessageResponse{
					Topic:   sub.Topic,
					Payload: record.Payload,
					Offset:  record.Offset,
				})
				if c.metrics != nil {
					c.metrics.Messages.Delivered.Inc()
				}
			case <-stop:
				return
			}
		}
	}()
}

func (c *connection) stopDrain(key subKey) {
	c.subsMu.Lock()
	stop, ok := c.subs[key]
	if ok {
		delete(c.subs, key)
	}
	c.subsMu.Unlock()
	if ok {
		close(stop)
	}
}

// teardownSubscriptions unsubscribes every topic/client pair this
// connection ever registered, per SPEC_FULL.md's supplement to the
// original design's deferred cleanup. This prunes the topic's subscriber
// map immediately on disconnect instead of waiting for the next publish
// to notice a full/dead queue.
func (c *connection) teardownSubscriptions() {
	c.subsMu.Lock()
	keys := make([]subKey, 0, len(c.subs))
	for k, stop := range c.subs {
		keys = append(keys, k)
		close(stop)
	}
	c.subs = make(map[subKey]chan struct{})
	c.subsMu.Unlock()

	for _, k := range keys {
		_ = c.reg.UnsubscribeFrom(k.topic, k.clientID)
	}
}
