package source

import (
	"context"
	"iter"

	"github.com/Jaculabilis/intake-sources/internal/config"
	"github.com/Jaculabilis/intake-sources/internal/item"
)

const echoSourceName = "echo"

// EchoSource emits a single item built from configuration.
type EchoSource struct {
	cfg config.EchoConfig
}

// NewEcho creates an echo source.
func NewEcho(cfg config.EchoConfig) *EchoSource {
	return &EchoSource{cfg: cfg}
}

func (e *EchoSource) Name() string {
	return echoSourceName
}

func (e *EchoSource) Items(_ context.Context) iter.Seq2[item.Item, error] {
	return func(yield func(item.Item, error) bool) {
		it := item.Item{
			Title: e.cfg.Title,
			Body:  e.cfg.Body,
		}
		if e.cfg.Unique {
			it.ID = item.HashID(e.cfg.Title)
		} else {
			it.ID = item.RandomID()
		}
		yield(it, nil)
	}
}
