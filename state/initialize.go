package state

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"stylist/css"
	"stylist/misc"
	"stylist/sink"
	"stylist/style"
)

// PrepareStyles builds style registry according to configuration: parse
// cache, html document the styles are mounted to and, when sqlite path is
// configured, persistent store mirroring the document.
func (e *LocalEnv) PrepareStyles() error {
	if e.Cfg == nil {
		return errors.New("configuration is not loaded")
	}
	log := e.Log
	if log == nil {
		log = zap.NewNop()
	}

	options := []style.Option{style.WithLogger(log)}

	parser := css.NewParser(log)
	if size := e.Cfg.Styles.ParseCacheSize; size > 0 {
		cache, err := css.NewCache(parser, size, log)
		if err != nil {
			return err
		}
		options = append(options, style.WithParser(cache.Parse))
	} else {
		options = append(options, style.WithParser(parser.Parse))
	}

	title := e.Cfg.Output.Title
	if title == "" {
		title = misc.GetAppName()
	}
	e.Document = sink.NewDocument(title, log)

	var target style.Sink = e.Document
	if path := e.Cfg.Output.SQLitePath; path != "" {
		store, err := sink.OpenStore(path, log)
		if err != nil {
			return err
		}
		e.Store = store
		target = sink.Fanout{e.Document, store}
	}
	options = append(options, style.WithSink(target))

	e.Registry = style.NewRegistry(options...)
	return nil
}

// Close releases resources acquired by PrepareStyles.
func (e *LocalEnv) Close() error {
	if e.Store == nil {
		return nil
	}
	err := e.Store.Close()
	e.Store = nil
	if err != nil {
		return fmt.Errorf("unable to close style store: %w", err)
	}
	return nil
}
