package app

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"reminder_service/internal/domain/reminder"

	"github.com/sirupsen/logrus"
)

type fixedClock struct{ now time.Time }

func (c fixedClock) Now() time.Time { return c.now }

type sentMessage struct {
	Address string
	Msg     reminder.Message
}

type fakeChannel struct {
	mu       sync.Mutex
	sent     []sentMessage
	failFor  map[string]error
	panicFor map[string]bool
}

func (c *fakeChannel) Send(_ context.Context, address string, msg reminder.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.panicFor[address] {
		panic("channel exploded")
	}
	if err := c.failFor[address]; err != nil {
		return err
	}
	c.sent = append(c.sent, sentMessage{Address: address, Msg: msg})
	return nil
}

func (c *fakeChannel) sentTo(address string) []reminder.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []reminder.Message
	for _, s := range c.sent {
		if s.Address == address {
			out = append(out, s.Msg)
		}
	}
	return out
}

// fakeRenderer renders "<key>:<title>:<threshold>" unless the key is disabled.
type fakeRenderer struct {
	disabled map[string]bool
	err      error
}

func (r fakeRenderer) Render(_ context.Context, key string, vars map[string]string) (reminder.Message, bool, error) {
	if r.err != nil {
		return reminder.Message{}, false, r.err
	}
	if r.disabled[key] {
		return reminder.Message{}, false, nil
	}
	return reminder.Message{
		Subject: key + ":" + vars["title"],
		Body:    vars["threshold"],
	}, true, nil
}

var errTransport = errors.New("smtp: connection refused")

func testLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}
