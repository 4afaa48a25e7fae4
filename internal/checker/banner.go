package checker

import (
	"bytes"
	"net"
	"strings"
	"sync"
)

const maxBannerBytes = 4096

// bannerRecorder keeps the first bytes a server sends on a connection.
type bannerRecorder struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *bannerRecorder) record(p []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if room := maxBannerBytes - b.buf.Len(); room > 0 {
		if len(p) > room {
			p = p[:room]
		}
		b.buf.Write(p)
	}
}

func (b *bannerRecorder) lines() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	raw := strings.Split(b.buf.String(), "\n")
	out := make([]string, 0, len(raw))
	for _, line := range raw {
		out = append(out, strings.TrimRight(line, "\r"))
	}
	return out
}

// recordingConn copies everything read from the wrapped connection into rec.
type recordingConn struct {
	net.Conn
	rec *bannerRecorder
}

func (c *recordingConn) Read(p []byte) (int, error) {
	n, err := c.Conn.Read(p)
	if n > 0 {
		c.rec.record(p[:n])
	}
	return n, err
}

// ftpWelcome extracts the text of the first 220 reply, joining multi-line
// replies with newlines. Returns nil when the server sent no greeting.
func ftpWelcome(lines []string) *string {
	var parts []string
	for _, line := range lines {
		if len(line) < 3 || line[:3] != "220" {
			if len(parts) == 0 {
				return nil
			}
			// Continuation lines of a multi-line reply may omit the code.
			parts = append(parts, strings.TrimSpace(line))
			continue
		}
		text := ""
		if len(line) > 4 {
			text = strings.TrimSpace(line[4:])
		}
		parts = append(parts, text)
		if len(line) == 3 || line[3] == ' ' {
			break
		}
	}
	msg := strings.TrimSpace(strings.Join(parts, "\n"))
	if msg == "" {
		return nil
	}
	return &msg
}

// sshIdentification returns the server's "SSH-" identification line.
func sshIdentification(lines []string) *string {
	for _, line := range lines {
		if strings.HasPrefix(line, "SSH-") {
			id := strings.TrimSpace(line)
			return &id
		}
	}
	return nil
}
