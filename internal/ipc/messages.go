// Package ipc implements the line-delimited JSON transport (C8) between the
// daemon's scheduler and the enqueue/subscribe/wait CLI subcommands.
package ipc

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"

	"github.com/kpcyrd/brchd/internal/status"
	"github.com/kpcyrd/brchd/internal/task"
)

// MessageType tags the single sum type carried over the socket.
type MessageType string

const (
	MsgPing       MessageType = "Ping"       // server -> client keepalive
	MsgSubscribe  MessageType = "Subscribe"  // client -> server
	MsgStatusResp MessageType = "StatusResp" // server -> subscribed client
	MsgQueueReq   MessageType = "QueueReq"   // client -> server
	MsgQueueResp  MessageType = "QueueResp"  // server -> client
	MsgPushQueue  MessageType = "PushQueue"  // client -> server
	MsgShutdown   MessageType = "Shutdown"   // client -> server
)

// Envelope is the one JSON object written per line. Exactly the fields
// relevant to Type are populated.
type Envelope struct {
	Type   MessageType    `json:"type"`
	Status *status.Status `json:"status,omitempty"`
	Queue  []task.Task    `json:"queue,omitempty"`
	Task   *task.Task     `json:"task,omitempty"`
}

func Ping() Envelope                       { return Envelope{Type: MsgPing} }
func Subscribe() Envelope                  { return Envelope{Type: MsgSubscribe} }
func StatusResp(s status.Status) Envelope  { return Envelope{Type: MsgStatusResp, Status: &s} }
func QueueReq() Envelope                   { return Envelope{Type: MsgQueueReq} }
func QueueResp(tasks []task.Task) Envelope { return Envelope{Type: MsgQueueResp, Queue: tasks} }
func PushQueue(t task.Task) Envelope       { return Envelope{Type: MsgPushQueue, Task: &t} }
func Shutdown() Envelope                   { return Envelope{Type: MsgShutdown} }

// WriteMessage serializes msg as one line of JSON terminated by '\n'.
func WriteMessage(w io.Writer, msg Envelope) error {
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding ipc message: %w", err)
	}
	data = append(data, '\n')
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("writing ipc message: %w", err)
	}
	return nil
}

// ReadMessage reads and decodes one line of JSON. Returns io.EOF when the
// peer has closed the connection cleanly.
func ReadMessage(r *bufio.Reader) (Envelope, error) {
	line, err := r.ReadBytes('\n')
	if err != nil {
		if err == io.EOF && len(line) == 0 {
			return Envelope{}, io.EOF
		}
		if err != io.EOF {
			return Envelope{}, fmt.Errorf("reading ipc message: %w", err)
		}
	}

	var msg Envelope
	if jsonErr := json.Unmarshal(line, &msg); jsonErr != nil {
		return Envelope{}, fmt.Errorf("decoding ipc message: %w", jsonErr)
	}
	return msg, nil
}
