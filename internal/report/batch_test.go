package report

import (
	"testing"
	"time"

	"github.com/whatsapp-digest/internal/models"
)

func TestNormalizeRendering(t *testing.T) {
	at := time.Date(2025, 1, 1, 15, 4, 5, 0, time.UTC)
	ts := models.Timestamp(at.Unix())

	messages := []models.RawMessage{
		{PushName: "Ana", MessageTimestamp: ts, Message: &models.MessageContent{Conversation: "oi <equipe> & cia"}},
		{PushName: "Bia", MessageTimestamp: ts, Message: &models.MessageContent{
			ExtendedTextMessage: &models.ExtendedTextMessage{Text: "respondendo"},
		}},
		{PushName: "Caio", MessageTimestamp: ts, Message: &models.MessageContent{
			ImageMessage: &models.MediaMessage{Caption: "foto da obra"},
		}},
		{PushName: "Davi", MessageTimestamp: ts, Message: &models.MessageContent{
			LocationMessage: &models.LocationMessage{
				DegreesLatitude:  -30.0346,
				DegreesLongitude: -51.2177,
				Name:             "Canteiro",
				Address:          "Av. Central, 100",
			},
		}},
		{PushName: "Eva", MessageTimestamp: ts, Message: &models.MessageContent{
			LocationMessage: &models.LocationMessage{DegreesLatitude: -23.5, DegreesLongitude: -46.6},
		}},
		{PushName: "Fabi", MessageTimestamp: ts, Message: &models.MessageContent{
			ReactionMessage: &models.ReactionMessage{Text: "👍"},
		}},
	}

	batch := normalize(messages, brt)

	want := []string{
		"oi <equipe> & cia",
		"respondendo",
		"foto da obra",
		"📍 Localização: -30.0346, -51.2177 (Canteiro) - Av. Central, 100",
		"📍 Localização: -23.5, -46.6",
		"[Reação: 👍]",
	}
	for i, w := range want {
		if batch[i].Text != w {
			t.Errorf("batch[%d].Text = %q, want %q", i, batch[i].Text, w)
		}
		if batch[i].Time != "2025-01-01 12:04:05" {
			t.Errorf("batch[%d].Time = %q", i, batch[i].Time)
		}
	}
	if batch[0].User != "Ana" {
		t.Errorf("batch[0].User = %q", batch[0].User)
	}

	encoded, err := encodeBatch(batch[:1])
	if err != nil {
		t.Fatalf("encodeBatch() error = %v", err)
	}
	if encoded != `[{"user":"Ana","text":"oi <equipe> & cia","time":"2025-01-01 12:04:05"}]` {
		t.Errorf("encodeBatch() = %s", encoded)
	}
}

func TestEncodeEmptyBatch(t *testing.T) {
	for _, batch := range [][]models.BatchMessage{nil, {}} {
		got, err := encodeBatch(batch)
		if err != nil {
			t.Fatalf("encodeBatch() error = %v", err)
		}
		if got != "[]" {
			t.Errorf("encodeBatch(%v) = %q, want []", batch, got)
		}
	}
}

func TestOrderAndCap(t *testing.T) {
	t.Run("reverses newest-first input", func(t *testing.T) {
		in := []models.RawMessage{
			{MessageTimestamp: 30, PushName: "c"},
			{MessageTimestamp: 20, PushName: "b"},
			{MessageTimestamp: 10, PushName: "a"},
		}
		out, dropped := orderAndCap(in)
		if dropped != 0 {
			t.Errorf("dropped = %d", dropped)
		}
		if out[0].PushName != "a" || out[2].PushName != "c" {
			t.Errorf("order = %s %s %s", out[0].PushName, out[1].PushName, out[2].PushName)
		}
	})

	t.Run("equal timestamps keep arrival order reversed", func(t *testing.T) {
		in := []models.RawMessage{
			{MessageTimestamp: 10, PushName: "second"},
			{MessageTimestamp: 10, PushName: "first"},
		}
		out, _ := orderAndCap(in)
		if out[0].PushName != "first" {
			t.Errorf("out[0] = %s, want first", out[0].PushName)
		}
	})

	t.Run("caps to the newest", func(t *testing.T) {
		in := make([]models.RawMessage, MaxBatchMessages+2)
		for i := range in {
			in[i].MessageTimestamp = models.Timestamp(len(in) - i)
		}
		out, dropped := orderAndCap(in)
		if dropped != 2 || len(out) != MaxBatchMessages {
			t.Fatalf("dropped=%d len=%d", dropped, len(out))
		}
		if out[len(out)-1].MessageTimestamp != models.Timestamp(len(in)) {
			t.Errorf("newest message was dropped")
		}
	})
}

func TestFilterMessages(t *testing.T) {
	w, err := NewWindow("2025-01-01", "2025-01-01", time.Now())
	if err != nil {
		t.Fatalf("NewWindow() error = %v", err)
	}

	in := []models.RawMessage{
		textMessage(time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC), "a", "ok"),
		textMessage(time.Date(2024, 12, 31, 10, 0, 0, 0, time.UTC), "b", "antes"),
		{MessageTimestamp: models.Timestamp(time.Date(2025, 1, 1, 11, 0, 0, 0, time.UTC).Unix())},
		{
			MessageTimestamp: models.Timestamp(time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC).Unix()),
			Message:          &models.MessageContent{ImageMessage: &models.MediaMessage{}},
		},
	}

	out := filterMessages(in, w)
	if len(out) != 1 || out[0].PushName != "a" {
		t.Errorf("filterMessages() kept %+v", out)
	}
}
