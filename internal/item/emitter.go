package item

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Emitter writes items as compact JSON, one object per line.
type Emitter struct {
	enc   *json.Encoder
	count int
}

// NewEmitter creates an Emitter writing to w.
func NewEmitter(w io.Writer) *Emitter {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return &Emitter{enc: enc}
}

// Emit writes it as a single line.
func (e *Emitter) Emit(it Item) error {
	if it.ID == "" {
		return errors.New("emit: item id is required")
	}
	if err := e.enc.Encode(it); err != nil {
		return fmt.Errorf("emit %s: %w", it.ID, err)
	}
	e.count++
	return nil
}

// Count returns the number of items written so far.
func (e *Emitter) Count() int {
	return e.count
}
