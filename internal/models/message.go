package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// RawMessage is a message record as returned by the Evolution API
type RawMessage struct {
	Key              MessageKey      `json:"key"`
	PushName         string          `json:"pushName,omitempty"`
	Message          *MessageContent `json:"message,omitempty"`
	MessageTimestamp Timestamp       `json:"messageTimestamp"`
}

// MessageKey identifies a message inside a chat
type MessageKey struct {
	RemoteJID   string `json:"remoteJid"`
	ID          string `json:"id"`
	Participant string `json:"participant,omitempty"`
}

// MessageContent holds the payload variants the digest understands
type MessageContent struct {
	Conversation        string               `json:"conversation,omitempty"`
	ExtendedTextMessage *ExtendedTextMessage `json:"extendedTextMessage,omitempty"`
	ImageMessage        *MediaMessage        `json:"imageMessage,omitempty"`
	VideoMessage        *MediaMessage        `json:"videoMessage,omitempty"`
	LocationMessage     *LocationMessage     `json:"locationMessage,omitempty"`
	ReactionMessage     *ReactionMessage     `json:"reactionMessage,omitempty"`
}

type ExtendedTextMessage struct {
	Text string `json:"text,omitempty"`
}

type MediaMessage struct {
	Caption string `json:"caption,omitempty"`
}

type LocationMessage struct {
	DegreesLatitude  float64 `json:"degreesLatitude"`
	DegreesLongitude float64 `json:"degreesLongitude"`
	Name             string  `json:"name,omitempty"`
	Address          string  `json:"address,omitempty"`
}

type ReactionMessage struct {
	Text string `json:"text"`
}

// Timestamp is an epoch-seconds value the API encodes either as a number or a string
type Timestamp int64

// UnmarshalJSON accepts 1735700000 and "1735700000"
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(string(data), `"`)
	if raw == "" || raw == "null" {
		*t = 0
		return nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		// Some gateways send float seconds
		f, ferr := strconv.ParseFloat(raw, 64)
		if ferr != nil {
			return fmt.Errorf("invalid message timestamp %q: %w", raw, err)
		}
		v = int64(f)
	}
	*t = Timestamp(v)
	return nil
}

// MarshalJSON always writes a number
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(int64(t))
}

// Time converts the epoch seconds to a UTC time
func (t Timestamp) Time() time.Time {
	return time.Unix(int64(t), 0).UTC()
}

// HasRenderableContent reports whether the message carries text, a caption, a location or a reaction
func (m *RawMessage) HasRenderableContent() bool {
	c := m.Message
	if c == nil {
		return false
	}
	return c.Conversation != "" ||
		(c.ExtendedTextMessage != nil && c.ExtendedTextMessage.Text != "") ||
		(c.ImageMessage != nil && c.ImageMessage.Caption != "") ||
		(c.VideoMessage != nil && c.VideoMessage.Caption != "") ||
		c.LocationMessage != nil ||
		c.ReactionMessage != nil
}

// RenderText returns the text fed to the generator for this message.
// Reactions win over locations, which win over plain text and captions.
func (m *RawMessage) RenderText() string {
	c := m.Message
	if c == nil {
		return ""
	}

	var text string
	switch {
	case c.Conversation != "":
		text = c.Conversation
	case c.ExtendedTextMessage != nil && c.ExtendedTextMessage.Text != "":
		text = c.ExtendedTextMessage.Text
	case c.ImageMessage != nil && c.ImageMessage.Caption != "":
		text = c.ImageMessage.Caption
	case c.VideoMessage != nil && c.VideoMessage.Caption != "":
		text = c.VideoMessage.Caption
	}

	if loc := c.LocationMessage; loc != nil {
		text = fmt.Sprintf("📍 Localização: %s, %s",
			strconv.FormatFloat(loc.DegreesLatitude, 'f', -1, 64),
			strconv.FormatFloat(loc.DegreesLongitude, 'f', -1, 64))
		if loc.Name != "" {
			text += " (" + loc.Name + ")"
		}
		if loc.Address != "" {
			text += " - " + loc.Address
		}
	}

	if c.ReactionMessage != nil {
		text = fmt.Sprintf("[Reação: %s]", c.ReactionMessage.Text)
	}

	return text
}

// BatchMessage is the normalized form of a message handed to the generator
type BatchMessage struct {
	User string `json:"user"`
	Text string `json:"text"`
	Time string `json:"time"`
}

// ReportSections holds the typed parts of a generated report
type ReportSections struct {
	Summary      string `json:"summary"`
	Timeline     string `json:"timeline"`
	Decisions    string `json:"decisions"`
	Requests     string `json:"requests"`
	Problems     string `json:"problems"`
	Actions      string `json:"actions"`
	OpenLoops    string `json:"open_loops"`
	Engagement   string `json:"engagement"`
	Risks        string `json:"risks"`
	WhatsappText string `json:"whatsapp_text"`
}
