// Package display models the text fields and chart surfaces of the
// dashboard page, as declared by the page markup.
package display

import (
	"errors"
	"fmt"
	"io"
	"maps"
	"strings"
	"sync"

	"golang.org/x/net/html"
)

// Text element ids written on every tick.
const (
	TemperatureField       = "temperatureDisplay"
	HumidityField          = "humidityDisplay"
	RunningTimeField       = "runningTimeDisplay"
	TargetTemperatureField = "targetTemperature"
)

// Markup attributes that declare elements.
const (
	FieldAttr = "data-field"
	GaugeAttr = "data-gauge"
)

var ErrElementNotFound = errors.New("element not found")

// Document holds the current text of every field element and the set of
// chart surfaces. It is safe for concurrent use.
type Document struct {
	mu       sync.RWMutex
	text     map[string]string
	surfaces map[string]struct{}
}

// NewDocument builds a document from explicit field texts and surface ids.
func NewDocument(fields map[string]string, surfaceIDs ...string) *Document {
	d := &Document{
		text:     make(map[string]string, len(fields)),
		surfaces: make(map[string]struct{}, len(surfaceIDs)),
	}
	maps.Copy(d.text, fields)
	for _, id := range surfaceIDs {
		d.surfaces[id] = struct{}{}
	}
	return d
}

// Parse reads page markup and collects every element with an id that
// carries FieldAttr (a text field, initialised with its text content) or
// GaugeAttr (a chart surface).
func Parse(r io.Reader) (*Document, error) {
	root, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse markup: %w", err)
	}

	d := NewDocument(nil)
	var walk func(n *html.Node) error
	walk = func(n *html.Node) error {
		if n.Type == html.ElementNode {
			id, field, gauge := attrs(n)
			switch {
			case id == "" && (field || gauge):
				return fmt.Errorf("<%s> declares %s/%s without an id", n.Data, FieldAttr, GaugeAttr)
			case field:
				if _, dup := d.text[id]; dup {
					return fmt.Errorf("duplicate field id %q", id)
				}
				d.text[id] = strings.TrimSpace(textContent(n))
			case gauge:
				d.surfaces[id] = struct{}{}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			if err := walk(c); err != nil {
				return err
			}
		}
		return nil
	}
	if err := walk(root); err != nil {
		return nil, err
	}
	return d, nil
}

func attrs(n *html.Node) (id string, field, gauge bool) {
	for _, a := range n.Attr {
		switch a.Key {
		case "id":
			id = a.Val
		case FieldAttr:
			field = true
		case GaugeAttr:
			gauge = true
		}
	}
	return id, field, gauge
}

func textContent(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

// Surface reports whether a chart surface with the given id exists.
func (d *Document) Surface(id string) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if _, ok := d.surfaces[id]; !ok {
		return fmt.Errorf("%w: %q", ErrElementNotFound, id)
	}
	return nil
}

func (d *Document) Text(id string) (string, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	v, ok := d.text[id]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrElementNotFound, id)
	}
	return v, nil
}

func (d *Document) SetText(id, text string) error {
	return d.SetTexts(map[string]string{id: text})
}

// SetTexts writes all fields or none: an unknown id leaves every field as it was.
func (d *Document) SetTexts(values map[string]string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	for id := range values {
		if _, ok := d.text[id]; !ok {
			return fmt.Errorf("%w: %q", ErrElementNotFound, id)
		}
	}
	maps.Copy(d.text, values)
	return nil
}

// Fields returns a copy of every field's text.
func (d *Document) Fields() map[string]string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return maps.Clone(d.text)
}
