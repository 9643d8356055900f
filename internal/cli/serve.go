package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/tyemirov/ctree/internal/output"
	"github.com/tyemirov/ctree/internal/services/server"
)

const (
	serveUse              = "serve"
	serveShortDescription = "serve tree listings over HTTP"
	serveLongDescription  = `Serve tree listings over HTTP until interrupted.
POST /tree with a JSON body such as {"path": ".", "depth": 1, "format": "json"}
returns the rendered listing. Options missing from the request use the
configured defaults.`
	addressFlagName        = "address"
	addressFlagDescription = "listen address"
	defaultServeAddress    = "127.0.0.1:7420"
	serveListeningTemplate = "Serving ctree on http://%s\n"
	serveListeningMessage  = "listening"
	treeCapabilityName     = "tree"
	treeCapabilityDetails  = "List the files below a directory"
	errorRequestPathEmpty  = "request path is empty"
)

var serveCapabilities = []server.Capability{
	{Name: treeCapabilityName, Description: treeCapabilityDetails},
}

func newServeCommand(deps dependencies, rootOptions *treeOptions) *cobra.Command {
	var address string
	serveCommand := &cobra.Command{
		Use:   serveUse,
		Short: serveShortDescription,
		Long:  serveLongDescription,
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, arguments []string) error {
			defaults := defaultTreeOptions()
			if rootOptions != nil {
				defaults.configPath = rootOptions.configPath
				if rootOptions.verbose {
					deps.level.SetLevel(zap.DebugLevel)
				}
			}
			resolved, resolveErr := applyConfiguration(nil, defaults)
			if resolveErr != nil {
				return resolveErr
			}
			resolved.copyEnabled = false

			ctx, stop := signal.NotifyContext(command.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			treeServer := server.NewServer(server.Config{
				Address:      address,
				Capabilities: serveCapabilities,
				Lister:       newTreeLister(resolved, deps),
				Logger:       deps.logger,
			})
			return treeServer.Run(ctx, func(boundAddress string) {
				deps.logger.Debug(serveListeningMessage, zap.String("address", boundAddress))
				fmt.Fprintf(command.OutOrStdout(), serveListeningTemplate, boundAddress)
			})
		},
	}
	serveCommand.Flags().StringVar(&address, addressFlagName, defaultServeAddress, addressFlagDescription)
	return serveCommand
}

// newTreeLister renders one root per request with the same pipeline as the root command.
func newTreeLister(defaults treeOptions, deps dependencies) server.Lister {
	return server.ListerFunc(func(ctx context.Context, request server.ListRequest) (server.ListResponse, error) {
		options, optionsErr := requestOptions(defaults, request)
		if optionsErr != nil {
			return server.ListResponse{}, server.NewRequestError(http.StatusBadRequest, optionsErr)
		}
		if _, pathErr := resolveAndValidatePaths([]string{request.Path}); pathErr != nil {
			return server.ListResponse{}, server.NewRequestError(http.StatusNotFound, pathErr)
		}
		var stdout bytes.Buffer
		var stderr bytes.Buffer
		renderDeps := dependencies{logger: deps.logger}
		if runErr := runTree(ctx, &stdout, &stderr, []string{request.Path}, options, renderDeps); runErr != nil {
			return server.ListResponse{}, runErr
		}
		return server.ListResponse{
			Output:   stdout.String(),
			Format:   options.format,
			Warnings: nonEmptyLines(stderr.String()),
		}, nil
	})
}

func requestOptions(defaults treeOptions, request server.ListRequest) (treeOptions, error) {
	if strings.TrimSpace(request.Path) == "" {
		return defaults, errors.New(errorRequestPathEmpty)
	}
	options := defaults
	if request.Depth != nil {
		options.maxDepth = *request.Depth
	}
	if request.All != nil {
		options.showHidden = *request.All
	}
	if request.Format != "" {
		options.format = strings.ToLower(strings.TrimSpace(request.Format))
	}
	if request.Summary != nil {
		options.summaryEnabled = *request.Summary
	}
	if request.Tokens != nil {
		options.tokensEnabled = *request.Tokens
	}
	if request.Model != "" {
		options.tokenModel = request.Model
	}
	if !output.IsSupportedFormat(options.format) {
		return defaults, fmt.Errorf(invalidFormatMessage, options.format)
	}
	return options, nil
}

func nonEmptyLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(text, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}
