// Package stream turns a directory scan into a sequence of events consumed by renderers.
package stream

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/tyemirov/ctree/internal/scan"
	"github.com/tyemirov/ctree/internal/tokenizer"
	"github.com/tyemirov/ctree/internal/types"
)

const (
	errorEmptyRoot        = "stream: scan root path is empty"
	errorNilChannel       = "stream: event channel is nil"
	warningNotDirectory   = "%s is not a directory"
	warningStatFormat     = "unable to stat %s: %v"
	warningTokenFormat    = "failed to count tokens for %s: %v"
	warningLevel          = "warning"
	debugScanStartMessage = "scanning"
)

// ScanOptions configures one scan of a root directory.
type ScanOptions struct {
	Root         string
	MaxDepth     int
	ShowHidden   bool
	TokenCounter tokenizer.Counter
	TokenModel   string
	Logger       *zap.Logger
}

type emitter struct {
	ctx  context.Context
	out  chan<- Event
	root string
}

func newEmitter(ctx context.Context, out chan<- Event, root string) *emitter {
	if ctx == nil {
		ctx = context.Background()
	}
	return &emitter{ctx: ctx, out: out, root: root}
}

func (e *emitter) send(event Event) error {
	if e.out == nil {
		return errors.New(errorNilChannel)
	}
	event.Version = SchemaVersion
	if event.Root == "" {
		event.Root = e.root
	}
	if event.EmittedAt.IsZero() {
		event.EmittedAt = time.Now().UTC()
	}
	select {
	case <-e.ctx.Done():
		return e.ctx.Err()
	case e.out <- event:
		return nil
	}
}

func (e *emitter) warn(path, message string) error {
	return e.send(Event{
		Kind:    EventKindWarning,
		Path:    path,
		Message: &LogEvent{Level: warningLevel, Message: message},
	})
}

type summaryTracker struct {
	files  int
	errors int
	bytes  int64
	tokens int
	model  string
}

func (tracker *summaryTracker) addItem(item *ItemEvent) {
	tracker.files++
	tracker.bytes += item.SizeBytes
	tracker.tokens += item.Tokens
	if tracker.model == "" && item.Model != "" && item.Tokens > 0 {
		tracker.model = item.Model
	}
}

func (tracker *summaryTracker) summary() *SummaryEvent {
	return &SummaryEvent{
		Files:  tracker.files,
		Errors: tracker.errors,
		Bytes:  tracker.bytes,
		Tokens: tracker.tokens,
		Model:  tracker.model,
	}
}

// StreamScan scans opts.Root and sends start, item, error, warning, summary
// and done events to out, in scan order. It returns early only when ctx is
// done or the channel cannot be used.
func StreamScan(ctx context.Context, opts ScanOptions, out chan<- Event) error {
	if opts.Root == "" {
		return errors.New(errorEmptyRoot)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	emitter := newEmitter(ctx, out, opts.Root)
	if err := emitter.send(Event{Kind: EventKindStart, Path: opts.Root}); err != nil {
		return err
	}

	if info, statErr := os.Stat(opts.Root); statErr == nil && !info.IsDir() {
		if err := emitter.warn(opts.Root, fmt.Sprintf(warningNotDirectory, opts.Root)); err != nil {
			return err
		}
	}

	logger.Debug(debugScanStartMessage,
		zap.String("root", opts.Root),
		zap.Int("maxDepth", opts.MaxDepth),
		zap.Bool("showHidden", opts.ShowHidden),
	)
	treeBuilder := scan.NewTreeBuilder(opts.MaxDepth, opts.Root, opts.ShowHidden, scan.WithLogger(logger))
	tracker := &summaryTracker{}

	walkErr := treeBuilder.Walk(ctx, opts.Root, func(entry types.ScanEntry) error {
		if entry.IsError() {
			tracker.errors++
			return emitter.send(Event{
				Kind: EventKindError,
				Path: entryErrorPath(entry.Err),
				Err:  &ErrorEvent{Path: entryErrorPath(entry.Err), Message: entry.Err.Error()},
			})
		}
		item := describeItem(treeBuilder, opts, entry.Item, emitter)
		tracker.addItem(item)
		return emitter.send(Event{Kind: EventKindItem, Path: item.Path, Item: item})
	})
	if walkErr != nil {
		return walkErr
	}

	if err := emitter.send(Event{Kind: EventKindSummary, Path: opts.Root, Summary: tracker.summary()}); err != nil {
		return err
	}
	return emitter.send(Event{Kind: EventKindDone, Path: opts.Root})
}

func describeItem(treeBuilder *scan.TreeBuilder, opts ScanOptions, treeItem *types.TreeItem, emitter *emitter) *ItemEvent {
	item := &ItemEvent{
		Path:         treeItem.Path,
		RelativePath: relativeItemPath(opts.Root, treeItem.Path),
		Name:         scan.PathName(treeItem.Path),
		Depth:        treeBuilder.Depth(treeItem.Path),
	}

	info, statErr := os.Lstat(treeItem.Path)
	if statErr != nil {
		_ = emitter.warn(treeItem.Path, fmt.Sprintf(warningStatFormat, treeItem.Path, statErr))
		return item
	}
	item.SizeBytes = info.Size()

	if opts.TokenCounter == nil {
		return item
	}
	result, countErr := tokenizer.CountFile(opts.TokenCounter, treeItem.Path)
	if countErr != nil {
		_ = emitter.warn(treeItem.Path, fmt.Sprintf(warningTokenFormat, treeItem.Path, countErr))
		return item
	}
	if result.Counted {
		item.Tokens = result.Tokens
		item.Model = opts.TokenModel
	}
	return item
}

func relativeItemPath(root, path string) string {
	relativePath, relErr := filepath.Rel(root, path)
	if relErr != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(relativePath)
}

func entryErrorPath(err error) string {
	var entryError *types.EntryError
	if errors.As(err, &entryError) {
		return entryError.Path
	}
	return ""
}
