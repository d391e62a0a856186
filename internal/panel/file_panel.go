package panel

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"Meadow3D/internal/asset"
	"Meadow3D/internal/logger"
	"Meadow3D/internal/params"

	"github.com/fsnotify/fsnotify"
	"github.com/pelletier/go-toml/v2"
	"go.uber.org/zap"
)

type binding struct {
	ref     params.Ref
	opts    Options
	color   bool
	onFloat func(float32)
	onColor func(params.Color)
}

// FilePanel is a tweak panel backed by a TOML file. Each material is a
// table and each bound parameter a key:
//
//	[veil]
//	uVanish = 0.2
//	uColorA = "#042c71"
//
// Saving the file applies the new values on the render thread.
type FilePanel struct {
	path  string
	store *params.Store
	queue *asset.Queue

	mu       sync.Mutex
	bindings map[string]map[string]*binding

	watcher *fsnotify.Watcher
	done    chan struct{}
}

var _ Panel = (*FilePanel)(nil)

func NewFilePanel(path string, store *params.Store, queue *asset.Queue) *FilePanel {
	return &FilePanel{
		path:     path,
		store:    store,
		queue:    queue,
		bindings: make(map[string]map[string]*binding),
	}
}

func (p *FilePanel) Path() string {
	return p.path
}

func (p *FilePanel) BindFloat(material, name string, opts Options, onChange func(float32)) error {
	ref, err := p.store.Ref(material, name)
	if err != nil {
		return err
	}
	if _, ok := p.store.Float(material, name); !ok {
		return fmt.Errorf("%s: %w", ref, params.ErrKindMismatch)
	}
	return p.bind(&binding{ref: ref, opts: opts, onFloat: onChange})
}

func (p *FilePanel) BindColor(material, name, label string, onChange func(params.Color)) error {
	ref, err := p.store.Ref(material, name)
	if err != nil {
		return err
	}
	if v, _ := ref.Get(); !isColor(v) {
		return fmt.Errorf("%s: %w", ref, params.ErrKindMismatch)
	}
	return p.bind(&binding{ref: ref, opts: Options{Label: label}, color: true, onColor: onChange})
}

func isColor(v params.Value) bool {
	_, ok := v.(params.Color)
	return ok
}

func (p *FilePanel) bind(b *binding) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	table, ok := p.bindings[b.ref.Material]
	if !ok {
		table = make(map[string]*binding)
		p.bindings[b.ref.Material] = table
	}
	if _, exists := table[b.ref.Name]; exists {
		return fmt.Errorf("%s: %w", b.ref, ErrAlreadyBound)
	}
	table[b.ref.Name] = b
	return nil
}

// Snapshot renders the current values of all bound parameters as TOML.
// Must run on the render thread.
func (p *FilePanel) Snapshot() ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	doc := make(map[string]map[string]any, len(p.bindings))
	for material, table := range p.bindings {
		row := make(map[string]any, len(table))
		for name, b := range table {
			v, ok := b.ref.Get()
			if !ok {
				continue
			}
			switch t := v.(type) {
			case params.Float:
				row[name] = float64(t)
			case params.Color:
				row[name] = t.HexString()
			}
		}
		doc[material] = row
	}
	return toml.Marshal(doc)
}

// WriteDefaults creates the tweak file from current values unless it
// already exists.
func (p *FilePanel) WriteDefaults() error {
	if _, err := os.Stat(p.path); err == nil {
		return nil
	}
	data, err := p.Snapshot()
	if err != nil {
		return err
	}
	return os.WriteFile(p.path, data, 0o644)
}

// Apply parses a tweak document and posts the resulting writes to the
// render queue. Unknown tables and keys are ignored; values of the wrong
// type are skipped with a warning.
func (p *FilePanel) Apply(data []byte) error {
	var doc map[string]map[string]any
	if err := toml.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("parse %s: %w", p.path, err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	materials := make([]string, 0, len(doc))
	for material := range doc {
		materials = append(materials, material)
	}
	sort.Strings(materials)
	for _, material := range materials {
		table := p.bindings[material]
		if table == nil {
			continue
		}
		names := make([]string, 0, len(doc[material]))
		for name := range doc[material] {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			b := table[name]
			if b == nil {
				continue
			}
			if err := p.post(b, doc[material][name]); err != nil {
				logger.Log.Warn("Ignoring tweak", zap.Stringer("param", b.ref), zap.Error(err))
			}
		}
	}
	return nil
}

func (p *FilePanel) post(b *binding, raw any) error {
	if b.color {
		s, ok := raw.(string)
		if !ok {
			return fmt.Errorf("want hex string, got %T", raw)
		}
		c, err := params.Hex(s)
		if err != nil {
			return err
		}
		p.queue.Post(func() { p.write(b, c) })
		return nil
	}

	var f float32
	switch t := raw.(type) {
	case float64:
		f = float32(t)
	case int64:
		f = float32(t)
	default:
		return fmt.Errorf("want number, got %T", raw)
	}
	f = b.opts.Clamp(f)
	p.queue.Post(func() { p.write(b, params.Float(f)) })
	return nil
}

// write runs on the render thread.
func (p *FilePanel) write(b *binding, v params.Value) {
	if cur, ok := b.ref.Get(); ok && cur == v {
		return
	}
	if err := b.ref.Set(v); err != nil {
		logger.Log.Warn("Tweak rejected", zap.Stringer("param", b.ref), zap.Error(err))
		return
	}
	logger.Log.Debug("Tweak applied", zap.Stringer("param", b.ref), zap.Any("value", v))
	switch t := v.(type) {
	case params.Float:
		if b.onFloat != nil {
			b.onFloat(float32(t))
		}
	case params.Color:
		if b.onColor != nil {
			b.onColor(t)
		}
	}
}

// Reload reads the tweak file and applies it.
func (p *FilePanel) Reload() error {
	data, err := os.ReadFile(p.path)
	if err != nil {
		return err
	}
	return p.Apply(data)
}

// Watch applies the file now and again each time it changes, until ctx is
// done or Close is called. The directory is watched so editors that replace
// the file on save are picked up.
func (p *FilePanel) Watch(ctx context.Context) error {
	if p.watcher != nil {
		return errors.New("panel already watching")
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch %s: %w", p.path, err)
	}
	dir := filepath.Dir(p.path)
	if err := w.Add(dir); err != nil {
		w.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	p.watcher = w
	p.done = make(chan struct{})

	if err := p.Reload(); err != nil && !os.IsNotExist(err) {
		logger.Log.Warn("Tweak file unreadable", zap.String("path", p.path), zap.Error(err))
	}

	target := filepath.Clean(p.path)
	go func() {
		defer close(p.done)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-w.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if err := p.Reload(); err != nil {
					logger.Log.Warn("Tweak file reload failed", zap.String("path", p.path), zap.Error(err))
				}
			case err, ok := <-w.Errors:
				if !ok {
					return
				}
				logger.Log.Warn("Tweak file watcher error", zap.Error(err))
			}
		}
	}()
	logger.Log.Info("Watching tweak file", zap.String("path", p.path))
	return nil
}

func (p *FilePanel) Close() error {
	if p.watcher == nil {
		return nil
	}
	err := p.watcher.Close()
	<-p.done
	p.watcher = nil
	return err
}
