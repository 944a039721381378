package hub

import (
	"fmt"
	"strings"
)

// FormatSSE frames a notification as a Server-Sent Events message with a
// named event. Multiline payloads are prefixed with "data:" per line, and a
// blank line terminates the message.
func FormatSSE(n Notification) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "event: %s\n", n.Topic)
	for _, line := range strings.Split(n.Data, "\n") {
		fmt.Fprintf(&sb, "data: %s\n", line)
	}
	sb.WriteString("\n")

	return sb.String()
}

// Heartbeat is an SSE comment that keeps the connection alive through
// proxies with idle timeouts. Lines starting with ":" are ignored by SSE
// clients.
const Heartbeat = ": heartbeat\n\n"
