package stream

import (
	"errors"

	"golang.org/x/net/websocket"
)

// Conn is the minimal connection surface the session needs. The real
// implementation wraps *websocket.Conn; tests substitute fakes.
type Conn interface {
	SendText(s string) error
	SendBinary(b []byte) error
	Receive() (Message, error)
	Close() error
}

// Dialer establishes a Conn. The default dials the websocket endpoint with
// the HTTP base address as origin.
type Dialer func(url, origin string) (Conn, error)

func dialWebsocket(url, origin string) (Conn, error) {
	ws, err := websocket.Dial(url, "", origin)
	if err != nil {
		return nil, err
	}
	return &wsConn{ws: ws}, nil
}

type wsConn struct {
	ws *websocket.Conn
}

func (c *wsConn) SendText(s string) error {
	return websocket.Message.Send(c.ws, s)
}

func (c *wsConn) SendBinary(b []byte) error {
	return websocket.Message.Send(c.ws, b)
}

// rawFrame captures one frame together with its payload type, which the
// standard Message codec discards.
type rawFrame struct {
	payloadType byte
	data        []byte
}

// envelopeCodec receives frames preserving the text/binary distinction so
// inbound messages can be decoded into a tagged Message.
var envelopeCodec = websocket.Codec{
	Marshal: func(v any) ([]byte, byte, error) {
		return nil, 0, errors.New("envelopeCodec is receive-only")
	},
	Unmarshal: func(data []byte, payloadType byte, v any) error {
		f, ok := v.(*rawFrame)
		if !ok {
			return errors.New("envelopeCodec: unsupported destination")
		}
		f.payloadType = payloadType
		f.data = data
		return nil
	},
}

func (c *wsConn) Receive() (Message, error) {
	var f rawFrame
	if err := envelopeCodec.Receive(c.ws, &f); err != nil {
		return Message{}, err
	}
	return decodeMessage(f.payloadType, f.data), nil
}

func (c *wsConn) Close() error {
	return c.ws.Close()
}
