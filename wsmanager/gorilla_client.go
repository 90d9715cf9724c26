package wsmanager

import (
	"context"
	"sync"

	"github.com/gorilla/websocket"
)

// DefaultPolymarketWsURL is the production Polymarket market-data socket,
// grounded on the teacher's feeds/polymarket_ws.go PolymarketWSURL.
const DefaultPolymarketWsURL = "wss://ws-subscriptions-clob.polymarket.com/ws/market"

// GorillaClient is the concrete WsClient, grounded on the teacher's
// feeds/polymarket_ws.go PolymarketFeed.connect/readLoop, generalized from
// a single hardcoded URL and a fixed channel-based tick distribution into
// the onMessage/onClose/onError hook shape Manager drives.
type GorillaClient struct {
	url string

	mu    sync.Mutex
	conn  *websocket.Conn
	state ClientState

	onMessage func(raw string)
	onClose   func()
	onError   func(err error)
}

func NewGorillaClient(url string) *GorillaClient {
	return &GorillaClient{url: url, state: Closed}
}

func (c *GorillaClient) Connect(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.url, nil)
	if err != nil {
		c.mu.Lock()
		c.state = Closed
		c.mu.Unlock()
		return err
	}

	c.mu.Lock()
	c.conn = conn
	c.state = Open
	c.mu.Unlock()

	go c.readLoop(conn)
	return nil
}

func (c *GorillaClient) readLoop(conn *websocket.Conn) {
	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			c.state = Closed
			onClose := c.onClose
			onErr := c.onError
			c.mu.Unlock()
			if onClose != nil {
				onClose()
			}
			if onErr != nil {
				onErr(err)
			}
			return
		}
		c.mu.Lock()
		onMsg := c.onMessage
		c.mu.Unlock()
		if onMsg != nil {
			onMsg(string(msg))
		}
	}
}

func (c *GorillaClient) Send(frame []byte) error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()
	if conn == nil {
		return websocket.ErrCloseSent
	}
	return conn.WriteMessage(websocket.TextMessage, frame)
}

func (c *GorillaClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = Closing
	if c.conn == nil {
		c.state = Closed
		return nil
	}
	err := c.conn.Close()
	c.state = Closed
	return err
}

func (c *GorillaClient) GetState() ClientState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *GorillaClient) OnMessage(fn func(raw string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onMessage = fn
}

func (c *GorillaClient) OnClose(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onClose = fn
}

func (c *GorillaClient) OnError(fn func(err error)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onError = fn
}

var _ WsClient = (*GorillaClient)(nil)
