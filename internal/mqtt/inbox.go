package mqtt

import (
	"errors"
	"log"
	"sync/atomic"

	"github.com/sweeney/co2-sensor/internal/logic"
)

// DefaultInboxSize bounds the commands waiting for the control loop.
const DefaultInboxSize = 16

// Inbox hands commands from client goroutines to the control loop.
// Handle is safe for concurrent use; Drain must only be called by the loop.
type Inbox struct {
	topics   Topics
	deviceID string
	ch       chan logic.Command

	ignored atomic.Int64
	dropped atomic.Int64
}

// NewInbox returns an inbox accepting commands for deviceID.
func NewInbox(topics Topics, deviceID string, size int) *Inbox {
	if size <= 0 {
		size = DefaultInboxSize
	}
	return &Inbox{
		topics:   topics,
		deviceID: deviceID,
		ch:       make(chan logic.Command, size),
	}
}

// Handle filters and parses m and queues the command. Messages for other
// devices and payloads with no usable field are ignored. Fields of the wrong
// type are skipped and the rest of the command is kept. When the queue is
// full the command is dropped.
func (in *Inbox) Handle(m Message) {
	if !in.topics.MatchCommand(m.Topic, in.deviceID) {
		in.ignored.Add(1)
		return
	}
	cmd, err := ParseCommand(m.Payload)
	if cmd.Empty() {
		in.ignored.Add(1)
		if err == nil {
			err = errors.New("no known fields")
		}
		log.Printf("mqtt: ignoring command on %s: %v", m.Topic, err)
		return
	}
	if err != nil {
		log.Printf("mqtt: partial command on %s: %v", m.Topic, err)
	}

	select {
	case in.ch <- cmd:
	default:
		in.dropped.Add(1)
		log.Printf("mqtt: command queue full, dropping command on %s", m.Topic)
	}
}

// Drain returns every queued command in arrival order without blocking.
func (in *Inbox) Drain() []logic.Command {
	var cmds []logic.Command
	for {
		select {
		case cmd := <-in.ch:
			cmds = append(cmds, cmd)
		default:
			return cmds
		}
	}
}

// Ignored returns how many messages were not for this device or not valid.
func (in *Inbox) Ignored() int64 {
	return in.ignored.Load()
}

// Dropped returns how many valid commands were lost to a full queue.
func (in *Inbox) Dropped() int64 {
	return in.dropped.Load()
}
