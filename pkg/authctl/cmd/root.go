package cmd

import (
	"context"
	"errors"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/telekom/authctl/pkg/auth"
	"github.com/telekom/authctl/pkg/authctl/config"
	"github.com/telekom/authctl/pkg/authctl/output"
)

type Config struct {
	OutputWriter io.Writer
}

type runtimeState struct {
	cfg             *config.Config
	outputFormat    string
	storageOverride string
	accountOverride string
	debug           bool
	writer          io.Writer
	logger          *zap.Logger
}

type runtimeKey struct{}

func DefaultConfig() Config {
	return Config{OutputWriter: os.Stdout}
}

func NewRootCommand(cfg Config) *cobra.Command {
	rt := &runtimeState{writer: cfg.OutputWriter}

	root := &cobra.Command{
		Use:          "authctl",
		Short:        "Sign a native application in against an OIDC provider",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if rt.writer == nil {
				rt.writer = os.Stdout
			}
			if rt.outputFormat == "" {
				rt.outputFormat = os.Getenv("AUTHCTL_OUTPUT")
			}
			if !rt.debug {
				rt.debug = strings.EqualFold(os.Getenv("AUTHCTL_DEBUG"), "true")
			}
			if rt.debug {
				logger, err := zap.NewDevelopment()
				if err != nil {
					return err
				}
				rt.logger = logger
			} else {
				rt.logger = zap.NewNop()
			}

			// version and completion work without provider configuration.
			if cmd.Name() == "version" || cmd.Name() == "completion" {
				return nil
			}

			loaded, err := config.Load()
			if err != nil {
				return err
			}
			rt.cfg = loaded
			return nil
		},
	}

	root.PersistentFlags().StringVarP(&rt.outputFormat, "output", "o", "", "Output format: text, json, yaml")
	root.PersistentFlags().StringVar(&rt.storageOverride, "token-storage", "", "Token storage backend: keychain or file")
	root.PersistentFlags().StringVar(&rt.accountOverride, "account", "", "Account identifier override (default: local username)")
	root.PersistentFlags().BoolVar(&rt.debug, "debug", false, "Enable debug logging")

	root.SetContext(context.WithValue(context.Background(), runtimeKey{}, rt))

	root.AddCommand(
		newLoginCommand(),
		newLogoutCommand(),
		newTokenCommand(),
		newSessionCommand(),
		NewVersionCommand(),
		NewCompletionCommand(),
	)

	return root
}

func getRuntime(cmd *cobra.Command) (*runtimeState, error) {
	rt, ok := cmd.Context().Value(runtimeKey{}).(*runtimeState)
	if !ok || rt == nil {
		return nil, errors.New("runtime not initialized")
	}
	return rt, nil
}

func (rt *runtimeState) Writer() io.Writer {
	if rt.writer != nil {
		return rt.writer
	}
	return os.Stdout
}

func (rt *runtimeState) OutputFormat() output.Format {
	switch rt.outputFormat {
	case "json":
		return output.FormatJSON
	case "yaml":
		return output.FormatYAML
	default:
		return output.FormatText
	}
}

func (rt *runtimeState) tokenStorage() string {
	if rt.storageOverride != "" {
		return rt.storageOverride
	}
	if rt.cfg != nil {
		return rt.cfg.TokenStorage
	}
	return config.StorageKeychain
}

func (rt *runtimeState) newStore() (auth.Store, error) {
	switch rt.tokenStorage() {
	case config.StorageKeychain:
		return &auth.KeyringStore{Service: auth.DefaultService}, nil
	case config.StorageFile:
		return &auth.FileStore{Path: config.DefaultTokenPath()}, nil
	default:
		return nil, errors.New("unsupported token storage: " + rt.tokenStorage())
	}
}

func (rt *runtimeState) newAuthenticator(ctx context.Context) (*auth.Authenticator, error) {
	if rt.cfg == nil {
		return nil, errors.New("configuration not loaded")
	}
	store, err := rt.newStore()
	if err != nil {
		return nil, err
	}
	return auth.New(ctx, auth.Config{
		Issuer:       rt.cfg.IssuerURL,
		ClientID:     rt.cfg.ClientID,
		Audience:     rt.cfg.Audience,
		Scopes:       rt.cfg.Scopes,
		CallbackPort: rt.cfg.CallbackPort,
		Account:      rt.accountOverride,
	}, store, rt.logger)
}

// render writes the structured envelope in json/yaml mode, or runs the
// command-specific text formatter.
func (rt *runtimeState) render(obj any, text func(io.Writer)) error {
	format := rt.OutputFormat()
	if format == output.FormatText {
		text(rt.Writer())
		return nil
	}
	return output.WriteObject(rt.Writer(), format, obj)
}
