package handler

import (
	"fmt"
	"sync/atomic"
	"time"
)

var (
	startTime = time.Now()

	totalMessagesProcessed int64
	totalCommandsProcessed int64
	totalCallbackQueries   int64
	totalErrors            int64
)

func incrementCounter(counter *int64) {
	atomic.AddInt64(counter, 1)
}

// formatStats renders runtime statistics for /stats and the stats button
func (h *Handler) formatStats() string {
	uptime := time.Since(startTime).Round(time.Second)

	return fmt.Sprintf(`📊 <b>Bot statistics</b>

<b>Uptime:</b> %v
<b>Protected chats:</b> %d
<b>Pending deletions:</b> %d

<b>Messages processed:</b> %d
<b>Commands processed:</b> %d
<b>Callback queries:</b> %d
<b>Errors:</b> %d`,
		uptime,
		h.store.CachedCount(),
		h.scheduler.PendingCount(),
		atomic.LoadInt64(&totalMessagesProcessed),
		atomic.LoadInt64(&totalCommandsProcessed),
		atomic.LoadInt64(&totalCallbackQueries),
		atomic.LoadInt64(&totalErrors))
}
