package dashboard

import (
	"fmt"
	"net/http"
	"strings"
	"time"
)

// addServerTiming appends one Server-Timing entry per named duration.
func addServerTiming(w http.ResponseWriter, kv ...timing) {
	if len(kv) == 0 {
		return
	}
	parts := make([]string, len(kv))
	for i, p := range kv {
		parts[i] = fmt.Sprintf("%s;dur=%.1f", p.name, float64(p.d.Microseconds())/1000)
	}
	w.Header().Add("Server-Timing", strings.Join(parts, ", "))
}

type timing struct {
	name string
	d    time.Duration
}
