package stream

import (
	"strings"

	"golang.org/x/net/websocket"
)

// Kind tags an inbound message with its meaning, replacing ad-hoc string
// prefix sniffing at the call sites.
type Kind int

const (
	// KindFrame is a binary message carrying a compressed annotated frame.
	KindFrame Kind = iota
	// KindAck is a text acknowledgment of a control message.
	KindAck
	// KindError is a text error report from the service.
	KindError
	// KindUnknown is any text message the client does not understand.
	KindUnknown
)

// Message is the decoded envelope of one inbound websocket message. Frame is
// set for KindFrame; Text carries the payload of the textual kinds (with the
// ERR:/ACK: prefix stripped).
type Message struct {
	Kind  Kind
	Text  string
	Frame []byte
}

// decodeMessage classifies a raw websocket frame by payload type and, for
// text, by the service's control prefixes.
func decodeMessage(payloadType byte, data []byte) Message {
	if payloadType == websocket.BinaryFrame {
		return Message{Kind: KindFrame, Frame: data}
	}

	text := string(data)
	switch {
	case strings.HasPrefix(text, "ERR:"):
		return Message{Kind: KindError, Text: strings.TrimPrefix(text, "ERR:")}
	case strings.HasPrefix(text, "ACK:"):
		return Message{Kind: KindAck, Text: strings.TrimPrefix(text, "ACK:")}
	case text == "ACK":
		return Message{Kind: KindAck}
	default:
		return Message{Kind: KindUnknown, Text: text}
	}
}
