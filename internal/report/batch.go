package report

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/whatsapp-digest/internal/models"
)

// MaxBatchMessages caps how many messages are sent to the generator.
// Around 3500 chat lines fit a 128k token context.
const MaxBatchMessages = 3500

const batchTimeLayout = "2006-01-02 15:04:05"

// filterMessages keeps in-window messages that carry renderable content
func filterMessages(messages []models.RawMessage, w Window) []models.RawMessage {
	kept := make([]models.RawMessage, 0, len(messages))
	for i := range messages {
		msg := &messages[i]
		if !msg.HasRenderableContent() {
			continue
		}
		if !w.Contains(msg.MessageTimestamp.Time()) {
			continue
		}
		kept = append(kept, *msg)
	}
	return kept
}

// orderAndCap turns the newest-first gateway order into chronological order
// and keeps the newest MaxBatchMessages. It returns how many were dropped.
func orderAndCap(messages []models.RawMessage) ([]models.RawMessage, int) {
	ordered := make([]models.RawMessage, len(messages))
	for i, msg := range messages {
		ordered[len(messages)-1-i] = msg
	}

	// Pages are newest first, but nothing guarantees it across pages
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].MessageTimestamp < ordered[j].MessageTimestamp
	})

	if len(ordered) <= MaxBatchMessages {
		return ordered, 0
	}

	dropped := len(ordered) - MaxBatchMessages
	return ordered[dropped:], dropped
}

// normalize maps messages to the batch entries given to the generator
func normalize(messages []models.RawMessage, loc *time.Location) []models.BatchMessage {
	batch := make([]models.BatchMessage, 0, len(messages))
	for i := range messages {
		msg := &messages[i]
		batch = append(batch, models.BatchMessage{
			User: msg.PushName,
			Text: msg.RenderText(),
			Time: msg.MessageTimestamp.Time().In(loc).Format(batchTimeLayout),
		})
	}
	return batch
}

// encodeBatch serializes the batch exactly as it is stored in processed_data
func encodeBatch(batch []models.BatchMessage) (string, error) {
	if batch == nil {
		batch = []models.BatchMessage{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(batch); err != nil {
		return "", fmt.Errorf("failed to encode message batch: %w", err)
	}

	return string(bytes.TrimRight(buf.Bytes(), "\n")), nil
}
