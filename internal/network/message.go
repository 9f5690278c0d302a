package network

import (
	"strconv"
	"strings"
)

// ClientMessage is the JSON frame pushed to a single client.
type ClientMessage struct {
	Kind string `json:"kind"` // "message" or "event"
	Tag  string `json:"tag"`
	Text string `json:"text,omitempty"`
}

// FormatMessage substitutes %1 through %9 in format with args. Missing
// arguments become empty strings; other % sequences are kept.
func FormatMessage(format string, args ...string) string {
	var b strings.Builder
	for i := 0; i < len(format); i++ {
		c := format[i]
		if c == '%' && i+1 < len(format) && format[i+1] >= '1' && format[i+1] <= '9' {
			n, _ := strconv.Atoi(format[i+1 : i+2])
			if n <= len(args) {
				b.WriteString(args[n-1])
			}
			i++
			continue
		}
		b.WriteByte(c)
	}
	return b.String()
}
