package event

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// Signal is a bare named event, e.g. "refresh" sent on page reload.
type Signal struct {
	Name string
}

// SignalRefresh is sent by browser when page is reloaded.
const SignalRefresh = "refresh"

// Message is a single element of the event stream. Exactly one of Change
// and Signal is set.
type Message struct {
	Change *Change
	Signal *Signal
}

func (m Message) String() string {
	switch {
	case m.Change != nil:
		return "change " + m.Change.String()
	case m.Signal != nil:
		return "signal " + m.Signal.Name
	}
	return "empty"
}

// wire is a document of the stream as it is written by producers.
type wire struct {
	Type      string `yaml:"type"`
	Name      string `yaml:"name,omitempty"`
	Media     string `yaml:"media,omitempty"`
	Href      string `yaml:"href,omitempty"`
	Selector  string `yaml:"selector,omitempty"`
	Property  string `yaml:"property,omitempty"`
	Value     string `yaml:"value,omitempty"`
	Deleted   bool   `yaml:"deleted,omitempty"`
	Important bool   `yaml:"important,omitempty"`
}

// Decode reads YAML (or JSON, which is valid YAML) document stream calling fn
// for every message. Documents which decode but do not describe a valid
// event are logged and skipped. Reading stops at the end of the stream, on
// the first malformed document or when fn returns an error.
func Decode(r io.Reader, log *zap.Logger, fn func(Message) error) error {
	if log == nil {
		log = zap.NewNop()
	}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	for n := 1; ; n++ {
		var w wire
		if err := dec.Decode(&w); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("unable to decode event %d: %w", n, err)
		}
		msg, err := w.message()
		if err != nil {
			log.Warn("Skipping bad event", zap.Int("event", n), zap.Error(err))
			continue
		}
		if err := fn(msg); err != nil {
			return err
		}
	}
}

func (w *wire) message() (Message, error) {
	switch strings.ToLower(w.Type) {
	case "change", "":
		c := NewChange(w.Media, w.Href, w.Selector, w.Property, w.Value, w.Deleted, w.Important)
		if err := c.Validate(); err != nil {
			return Message{}, err
		}
		return Message{Change: &c}, nil
	case "signal":
		if w.Name == "" {
			return Message{}, errors.New("signal has no name")
		}
		return Message{Signal: &Signal{Name: w.Name}}, nil
	}
	return Message{}, fmt.Errorf("unknown event type '%s'", w.Type)
}
