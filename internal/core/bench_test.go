package core

import (
	"fmt"
	"testing"
)

func benchmarkDirectMessage(b *testing.B, online int) {
	h, _ := startHub(b, Options{})

	// Keep bystanders draining so presence broadcasts never back up.
	for i := 0; i < online; i++ {
		c := connect(b, h, fmt.Sprintf("c%d", i), fmt.Sprintf("user-%d", i))
		go func(cl *Client) {
			for {
				select {
				case <-cl.Events:
				case <-cl.Done():
					return
				}
			}
		}(c)
	}
	sender := connect(b, h, "sender", "sender")
	target := connect(b, h, "target", "target")

	drain := func(c *Client, kind EventKind) {
		for ev := range c.Events {
			if ev.Kind == kind {
				return
			}
		}
	}

	b.ReportAllocs()
	b.ResetTimer()

	for i := 0; i < b.N; i++ {
		sender.Commands <- &Command{Kind: CommandSendMessage, Sender: "sender", Receiver: "target", Text: "payload"}
		drain(target, EventReceiveMessage)
		drain(sender, EventMessageSent)
	}
}

func BenchmarkDirectMessage_10(b *testing.B)  { benchmarkDirectMessage(b, 10) }
func BenchmarkDirectMessage_100(b *testing.B) { benchmarkDirectMessage(b, 100) }
