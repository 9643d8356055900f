// Package cli provides the command line interface.
package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tyemirov/ctree/internal/config"
	"github.com/tyemirov/ctree/internal/output"
	"github.com/tyemirov/ctree/internal/scan"
	"github.com/tyemirov/ctree/internal/services/clipboard"
	"github.com/tyemirov/ctree/internal/services/stream"
	"github.com/tyemirov/ctree/internal/tokenizer"
	"github.com/tyemirov/ctree/internal/types"
	"github.com/tyemirov/ctree/internal/utils"
)

const (
	depthFlagName         = "depth"
	depthFlagShorthand    = "L"
	allFlagName           = "all"
	allFlagShorthand      = "a"
	formatFlagName        = "format"
	summaryFlagName       = "summary"
	tokensFlagName        = "tokens"
	modelFlagName         = "model"
	copyFlagName          = "copy"
	configFlagName        = "config"
	verboseFlagName       = "verbose"
	versionFlagName       = "version"
	globalFlagName        = "global"
	forceFlagName         = "force"
	versionTemplate       = "ctree version: %s\n"
	configWrittenTemplate = "Configuration written to %s\n"
	defaultPath           = "."

	rootUse              = "ctree [paths...]"
	rootShortDescription = "list directory trees"
	rootLongDescription  = `ctree lists the files below one or more directories.
Use -L to bound the recursion depth, -a to include hidden entries and --format
to select raw, json, xml or yaml output. Defaults are read from ~/.ctree/config.yaml,
./.ctree.yaml and CTREE_* environment variables; explicit flags always win.`
	rootUsageExample = `  # Show files up to one directory level below the current directory
  ctree -L 1

  # Include hidden entries and emit YAML for two roots
  ctree --all --format yaml ./cmd ./internal

  # Count tokens and copy the listing to the clipboard
  ctree --tokens --copy .`
	configUse                  = "config"
	configShortDescription     = "manage ctree configuration"
	configInitUse              = "init"
	configInitShortDescription = "write the default configuration file"

	depthFlagDescription   = "maximum recursion depth, negative for unlimited"
	allFlagDescription     = "include hidden entries"
	formatFlagDescription  = "output format: raw, json, xml or yaml"
	summaryFlagDescription = "include summary of listed files"
	tokensFlagDescription  = "include token counts"
	modelFlagDescription   = "tokenizer model to use for token counting"
	copyFlagDescription    = "copy the rendered output to the clipboard"
	configFlagDescription  = "path to a configuration file"
	verboseFlagDescription = "log scan diagnostics"
	versionFlagDescription = "display application version"
	globalFlagDescription  = "write the configuration under the home directory"
	forceFlagDescription   = "overwrite an existing configuration file"

	workingDirectoryErrorFormat = "unable to determine working directory: %w"
	loadConfigurationFormat     = "load configuration: %w"
	invalidFormatMessage        = "invalid format value '%s'"
	tokenCounterErrorFormat     = "initialize token counter: %w"
	copyErrorFormat             = "copy output: %w"
	// errorAbsolutePathFormat reports failure to resolve an absolute path.
	errorAbsolutePathFormat = "abs failed for '%s': %w"
	// errorPathMissingFormat reports a missing path.
	errorPathMissingFormat = "path '%s' does not exist"
	// errorStatFormat reports failure to retrieve file statistics.
	errorStatFormat = "stat failed for '%s': %w"
	// errorNoValidPaths indicates that all paths are invalid.
	errorNoValidPaths = "no valid paths"
)

// dependencies are the collaborators the commands need from main.
type dependencies struct {
	logger *zap.Logger
	level  zap.AtomicLevel
	copier clipboard.Copier
}

// treeOptions holds the resolved flag and configuration values of one invocation.
type treeOptions struct {
	maxDepth       int
	showHidden     bool
	format         string
	summaryEnabled bool
	tokensEnabled  bool
	tokenModel     string
	copyEnabled    bool
	configPath     string
	verbose        bool
	showVersion    bool
}

func defaultTreeOptions() treeOptions {
	return treeOptions{
		maxDepth:       scan.UnlimitedDepth,
		format:         types.FormatRaw,
		summaryEnabled: true,
		tokenModel:     tokenizer.DefaultModel,
	}
}

// Execute runs the ctree application with os.Args.
func Execute(logger *zap.Logger, level zap.AtomicLevel) error {
	rootCommand := newRootCommand(dependencies{
		logger: logger,
		level:  level,
		copier: clipboard.NewService(),
	})
	rootCommand.SetArgs(normalizeBooleanFlagArguments(rootCommand, os.Args[1:]))
	return rootCommand.Execute()
}

// newRootCommand builds the root Cobra command.
func newRootCommand(deps dependencies) *cobra.Command {
	if deps.logger == nil {
		deps.logger = zap.NewNop()
	}
	options := defaultTreeOptions()

	rootCommand := &cobra.Command{
		Use:          rootUse,
		Short:        rootShortDescription,
		Long:         rootLongDescription,
		Example:      rootUsageExample,
		Args:         cobra.ArbitraryArgs,
		SilenceUsage: true,
		RunE: func(command *cobra.Command, arguments []string) error {
			if options.showVersion {
				_, err := fmt.Fprintf(command.OutOrStdout(), versionTemplate, utils.GetApplicationVersion())
				return err
			}
			if options.verbose {
				deps.level.SetLevel(zap.DebugLevel)
			}
			resolved, resolveErr := applyConfiguration(command.Flags(), options)
			if resolveErr != nil {
				return resolveErr
			}
			return runTree(command.Context(), command.OutOrStdout(), command.ErrOrStderr(), arguments, resolved, deps)
		},
	}

	flagSet := rootCommand.Flags()
	flagSet.IntVarP(&options.maxDepth, depthFlagName, depthFlagShorthand, scan.UnlimitedDepth, depthFlagDescription)
	registerBooleanFlag(flagSet, &options.showHidden, allFlagName, allFlagShorthand, false, allFlagDescription)
	flagSet.StringVar(&options.format, formatFlagName, types.FormatRaw, formatFlagDescription)
	registerBooleanFlag(flagSet, &options.summaryEnabled, summaryFlagName, "", true, summaryFlagDescription)
	registerBooleanFlag(flagSet, &options.tokensEnabled, tokensFlagName, "", false, tokensFlagDescription)
	flagSet.StringVar(&options.tokenModel, modelFlagName, tokenizer.DefaultModel, modelFlagDescription)
	registerBooleanFlag(flagSet, &options.copyEnabled, copyFlagName, "", false, copyFlagDescription)
	persistentFlags := rootCommand.PersistentFlags()
	persistentFlags.StringVar(&options.configPath, configFlagName, "", configFlagDescription)
	registerBooleanFlag(persistentFlags, &options.verbose, verboseFlagName, "", false, verboseFlagDescription)
	persistentFlags.BoolVar(&options.showVersion, versionFlagName, false, versionFlagDescription)

	rootCommand.AddCommand(newConfigCommand(), newServeCommand(deps, &options))
	rootCommand.InitDefaultHelpCmd()
	rootCommand.InitDefaultCompletionCmd()
	return rootCommand
}

func newConfigCommand() *cobra.Command {
	configCommand := &cobra.Command{
		Use:   configUse,
		Short: configShortDescription,
		Args:  cobra.NoArgs,
	}

	var global bool
	var force bool
	initCommand := &cobra.Command{
		Use:   configInitUse,
		Short: configInitShortDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			target := config.InitTargetLocal
			if global {
				target = config.InitTargetGlobal
			}
			path, err := config.InitializeConfiguration(config.InitOptions{Target: target, Force: force})
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(command.OutOrStdout(), configWrittenTemplate, path)
			return err
		},
	}
	registerBooleanFlag(initCommand.Flags(), &global, globalFlagName, "", false, globalFlagDescription)
	registerBooleanFlag(initCommand.Flags(), &force, forceFlagName, "", false, forceFlagDescription)

	configCommand.AddCommand(initCommand)
	return configCommand
}

// applyConfiguration fills every option the user did not set explicitly from
// the merged configuration files and environment.
func applyConfiguration(flags *pflag.FlagSet, options treeOptions) (treeOptions, error) {
	workingDirectory, workingDirectoryError := os.Getwd()
	if workingDirectoryError != nil {
		return options, fmt.Errorf(workingDirectoryErrorFormat, workingDirectoryError)
	}
	loaded, loadErr := config.LoadApplicationConfiguration(config.LoadOptions{
		WorkingDirectory: workingDirectory,
		ExplicitFilePath: options.configPath,
	})
	if loadErr != nil {
		return options, fmt.Errorf(loadConfigurationFormat, loadErr)
	}

	changed := func(name string) bool {
		return flags != nil && flags.Changed(name)
	}
	tree := loaded.Tree
	if !changed(depthFlagName) && tree.Depth != nil {
		options.maxDepth = *tree.Depth
	}
	if !changed(allFlagName) && tree.All != nil {
		options.showHidden = *tree.All
	}
	if !changed(formatFlagName) && tree.Format != "" {
		options.format = tree.Format
	}
	if !changed(summaryFlagName) && tree.Summary != nil {
		options.summaryEnabled = *tree.Summary
	}
	if !changed(copyFlagName) && tree.Clipboard != nil {
		options.copyEnabled = *tree.Clipboard
	}
	if !changed(tokensFlagName) && tree.Tokens.Enabled != nil {
		options.tokensEnabled = *tree.Tokens.Enabled
	}
	if !changed(modelFlagName) && tree.Tokens.Model != "" {
		options.tokenModel = tree.Tokens.Model
	}

	options.format = strings.ToLower(strings.TrimSpace(options.format))
	if !output.IsSupportedFormat(options.format) {
		return options, fmt.Errorf(invalidFormatMessage, options.format)
	}
	return options, nil
}

// runTree scans every requested root and renders the results in argument order.
func runTree(ctx context.Context, stdout, stderr io.Writer, paths []string, options treeOptions, deps dependencies) (err error) {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(paths) == 0 {
		paths = []string{defaultPath}
	}
	validatedPaths, pathValidationError := resolveAndValidatePaths(paths)
	if pathValidationError != nil {
		return pathValidationError
	}

	var tokenCounter tokenizer.Counter
	var tokenModel string
	if options.tokensEnabled {
		createdCounter, resolvedModel, counterError := tokenizer.NewCounter(tokenizer.Config{Model: options.tokenModel})
		if counterError != nil {
			return fmt.Errorf(tokenCounterErrorFormat, counterError)
		}
		tokenCounter = createdCounter
		tokenModel = resolvedModel
	}

	var captured bytes.Buffer
	if options.copyEnabled {
		stdout = io.MultiWriter(stdout, &captured)
	}

	renderer, rendererErr := output.NewRenderer(options.format, stdout, stderr, options.summaryEnabled)
	if rendererErr != nil {
		return rendererErr
	}

	scanOptions := make([]stream.ScanOptions, len(validatedPaths))
	for index, validatedPath := range validatedPaths {
		scanOptions[index] = stream.ScanOptions{
			Root:         validatedPath.AbsolutePath,
			MaxDepth:     options.maxDepth,
			ShowHidden:   options.showHidden,
			TokenCounter: tokenCounter,
			TokenModel:   tokenModel,
			Logger:       deps.logger,
		}
	}

	if len(scanOptions) == 1 {
		producer := func(streamCtx context.Context, ch chan<- stream.Event) error {
			return stream.StreamScan(streamCtx, scanOptions[0], ch)
		}
		if streamErr := dispatchStream(ctx, producer, renderer.Handle); streamErr != nil {
			return streamErr
		}
	} else {
		collected, collectErr := collectRootEvents(ctx, scanOptions)
		if collectErr != nil {
			return collectErr
		}
		for _, events := range collected {
			for _, event := range events {
				if handleErr := renderer.Handle(event); handleErr != nil {
					return handleErr
				}
			}
		}
	}

	if flushErr := renderer.Flush(); flushErr != nil {
		return flushErr
	}

	if options.copyEnabled && deps.copier != nil {
		if copyErr := deps.copier.Copy(captured.String()); copyErr != nil {
			return fmt.Errorf(copyErrorFormat, copyErr)
		}
	}
	return nil
}

// collectRootEvents scans every root concurrently and returns the events of
// each root at the index of its options.
func collectRootEvents(ctx context.Context, scanOptions []stream.ScanOptions) ([][]stream.Event, error) {
	results := make([][]stream.Event, len(scanOptions))
	group, groupCtx := errgroup.WithContext(ctx)
	for index := range scanOptions {
		index := index
		group.Go(func() error {
			var events []stream.Event
			producer := func(streamCtx context.Context, ch chan<- stream.Event) error {
				return stream.StreamScan(streamCtx, scanOptions[index], ch)
			}
			consumer := func(event stream.Event) error {
				events = append(events, event)
				return nil
			}
			if err := dispatchStream(groupCtx, producer, consumer); err != nil {
				return err
			}
			results[index] = events
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func dispatchStream(
	ctx context.Context,
	produce func(context.Context, chan<- stream.Event) error,
	consume func(stream.Event) error,
) error {
	group, streamCtx := errgroup.WithContext(ctx)
	events := make(chan stream.Event)

	group.Go(func() error {
		defer close(events)
		return produce(streamCtx, events)
	})

	group.Go(func() error {
		for {
			select {
			case <-streamCtx.Done():
				return streamCtx.Err()
			case event, ok := <-events:
				if !ok {
					return nil
				}
				if err := consume(event); err != nil {
					return err
				}
			}
		}
	})

	if err := group.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// resolveAndValidatePaths converts input paths to absolute form and validates their existence.
func resolveAndValidatePaths(inputs []string) ([]types.ValidatedPath, error) {
	seen := make(map[string]struct{})
	var result []types.ValidatedPath
	for _, inputPath := range inputs {
		absolutePath, absolutePathError := filepath.Abs(inputPath)
		if absolutePathError != nil {
			return nil, fmt.Errorf(errorAbsolutePathFormat, inputPath, absolutePathError)
		}
		cleanPath := filepath.Clean(absolutePath)
		if _, ok := seen[cleanPath]; ok {
			continue
		}
		info, fileStatusError := os.Stat(cleanPath)
		if fileStatusError != nil {
			if os.IsNotExist(fileStatusError) {
				return nil, fmt.Errorf(errorPathMissingFormat, inputPath)
			}
			return nil, fmt.Errorf(errorStatFormat, inputPath, fileStatusError)
		}
		seen[cleanPath] = struct{}{}
		result = append(result, types.ValidatedPath{AbsolutePath: cleanPath, IsDir: info.IsDir()})
	}
	if len(result) == 0 {
		return nil, errors.New(errorNoValidPaths)
	}
	return result, nil
}
