package websocket

import (
	"errors"
	"sync"
	"time"
)

var errMockClosed = errors.New("connection closed")

// MockConnection is an in-memory Connection. Reads block until a message is
// queued with AddReadMessage or the connection is closed.
type MockConnection struct {
	mu       sync.Mutex
	written  []MockMessage
	incoming chan MockMessage
	closed   chan struct{}
	once     sync.Once

	RemoteAddress string
	ReadLimit     int64
	PongHandler   func(string) error
}

// MockMessage represents a message for mocking
type MockMessage struct {
	Type int
	Data []byte
}

// NewMockConnection creates a new mock connection
func NewMockConnection() *MockConnection {
	return &MockConnection{
		incoming:      make(chan MockMessage, 16),
		closed:        make(chan struct{}),
		RemoteAddress: "127.0.0.1:50000",
	}
}

func (m *MockConnection) WriteMessage(messageType int, data []byte) error {
	select {
	case <-m.closed:
		return errMockClosed
	default:
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.written = append(m.written, MockMessage{Type: messageType, Data: append([]byte(nil), data...)})
	return nil
}

func (m *MockConnection) ReadMessage() (int, []byte, error) {
	select {
	case msg := <-m.incoming:
		return msg.Type, msg.Data, nil
	case <-m.closed:
		return 0, nil, errMockClosed
	}
}

func (m *MockConnection) Close() error {
	m.once.Do(func() { close(m.closed) })
	return nil
}

func (m *MockConnection) SetReadDeadline(time.Time) error  { return nil }
func (m *MockConnection) SetWriteDeadline(time.Time) error { return nil }

func (m *MockConnection) SetReadLimit(limit int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ReadLimit = limit
}

func (m *MockConnection) SetPongHandler(h func(string) error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.PongHandler = h
}

func (m *MockConnection) RemoteAddr() string {
	return m.RemoteAddress
}

// AddReadMessage queues a message for ReadMessage.
func (m *MockConnection) AddReadMessage(messageType int, data []byte) {
	m.incoming <- MockMessage{Type: messageType, Data: data}
}

// GetWrittenMessages returns all messages written to the connection
func (m *MockConnection) GetWrittenMessages() []MockMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	result := make([]MockMessage, len(m.written))
	copy(result, m.written)
	return result
}

// IsClosed reports whether Close was called.
func (m *MockConnection) IsClosed() bool {
	select {
	case <-m.closed:
		return true
	default:
		return false
	}
}
