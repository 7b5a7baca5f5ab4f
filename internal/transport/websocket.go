package transport

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait    = 10 * time.Second
	pongWait     = 60 * time.Second
	pingInterval = 30 * time.Second
	dialTimeout  = 10 * time.Second
	readLimit    = 4096
	sendQueue    = 100
)

// WSFactory opens gorilla/websocket connections. Socket events are handed
// to post so that they run on the event loop.
type WSFactory struct {
	post   func(func())
	dialer *websocket.Dialer
	logger *log.Logger
}

// NewWSFactory creates a factory delivering events through post
func NewWSFactory(post func(func()), logger *log.Logger) *WSFactory {
	if logger == nil {
		logger = log.Default()
	}
	return &WSFactory{
		post: post,
		dialer: &websocket.Dialer{
			HandshakeTimeout: dialTimeout,
		},
		logger: logger,
	}
}

// Open starts dialing url in the background and returns immediately
func (f *WSFactory) Open(url string, ev SocketEvents) (Socket, error) {
	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	s := &wsSocket{
		factory: f,
		ev:      ev,
		send:    make(chan []byte, sendQueue),
		done:    make(chan struct{}),
		cancel:  cancel,
	}
	go s.run(ctx, url)
	return s, nil
}

type wsSocket struct {
	factory *WSFactory
	ev      SocketEvents
	send    chan []byte
	done    chan struct{}
	cancel  context.CancelFunc
	once    sync.Once
}

func (s *wsSocket) Send(data []byte) error {
	select {
	case <-s.done:
		return ErrSocketClosed
	default:
	}
	select {
	case s.send <- data:
		return nil
	default:
		return ErrQueueFull
	}
}

func (s *wsSocket) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.cancel()
	})
	return nil
}

func (s *wsSocket) post(fn func()) {
	s.factory.post(fn)
}

func (s *wsSocket) run(ctx context.Context, url string) {
	conn, _, err := s.factory.dialer.DialContext(ctx, url, nil)
	s.cancel()
	if err != nil {
		s.post(func() {
			s.ev.OnError(err)
			s.ev.OnClose()
		})
		return
	}

	select {
	case <-s.done:
		conn.Close()
		return
	default:
	}

	s.post(s.ev.OnOpen)

	stop := make(chan struct{})
	writeDone := make(chan struct{})
	go func() {
		defer close(writeDone)
		s.writePump(conn, stop)
	}()

	err = s.readPump(conn)
	close(stop)
	conn.Close()
	<-writeDone

	select {
	case <-s.done:
		// closed by us, the channel already forgot this socket
		return
	default:
	}
	s.post(func() {
		if err != nil {
			s.ev.OnError(err)
		}
		s.ev.OnClose()
	})
}

// readPump drains incoming frames so that control frames are processed. It
// returns the error that ended the connection, or nil for a normal close.
func (s *wsSocket) readPump(conn *websocket.Conn) error {
	conn.SetReadLimit(readLimit)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error { conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}
	}
}

func (s *wsSocket) writePump(conn *websocket.Conn, stop <-chan struct{}) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case data := <-s.send:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
				s.factory.logger.Printf("Transport: write error: %v", err)
				conn.Close()
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				conn.Close()
				return
			}

		case <-stop:
			return

		case <-s.done:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			conn.Close()
			return
		}
	}
}
