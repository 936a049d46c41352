// Package cli implements the typograf command.
package cli

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/cheyinl/typograf/frontmatter"
	"github.com/cheyinl/typograf/internal/charset"
	"github.com/cheyinl/typograf/internal/config"
	"github.com/cheyinl/typograf/internal/logging"
	"github.com/cheyinl/typograf/soap"
)

// BuildInfo is injected by main at link time.
type BuildInfo struct {
	Version string
	Commit  string
}

type flags struct {
	configFile      string
	inplace         bool
	skipFrontMatter bool

	host        string
	port        int
	path        string
	parser      string
	dialTimeout time.Duration
	readTimeout time.Duration

	encoding   string
	entityType int
	useBr      int
	useP       int
	maxNobr    int

	logLevel  string
	logFormat string
}

// NewRootCommand returns the typograf command. Output goes to cmd.OutOrStdout
// and logs to cmd.ErrOrStderr.
func NewRootCommand(info BuildInfo) *cobra.Command {
	var f flags
	def := config.NewDefault()

	cmd := &cobra.Command{
		Use:   "typograf [flags] FILE",
		Short: "Send text through the Art. Lebedev Studio typograf web service",
		Long: `typograf sends the contents of FILE to the typograf.artlebedev.ru
ProcessText SOAP service and prints the corrected text, or writes it back
into FILE with --inplace.

Defaults can be set in .typografrc.yaml, in the user config directory under
typograf/config.yaml, or with TYPOGRAF_* environment variables.`,
		Version:       fmt.Sprintf("%s (%s)", info.Version, info.Commit),
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, &f)
			if err != nil {
				return err
			}
			return run(cmd, cfg, &f, args[0])
		},
	}

	fl := cmd.Flags()
	fl.BoolVarP(&f.inplace, "inplace", "i", false, "Edit the file in place")
	fl.BoolVarP(&f.skipFrontMatter, "skip-front-matter", "s", false, "Leave a leading +++ front matter block untouched")
	fl.IntVar(&f.entityType, "entity-type", def.EntityType, "Entity output mode code passed to the service")
	fl.IntVar(&f.useBr, "use-br", def.UseBr, "Use <br /> for multiline text (1 is yes)")
	fl.IntVar(&f.useP, "use-p", def.UseP, "Use <p> for multiline text (1 is yes)")
	fl.IntVar(&f.maxNobr, "max-no-br", def.MaxNobr, "maxNobr value passed to the service")
	fl.StringVar(&f.encoding, "encoding", def.Encoding, "Input file encoding")

	fl.StringVar(&f.configFile, "config", "", "Config file (default .typografrc.yaml or user config dir)")
	fl.StringVar(&f.host, "host", def.Host, "Service host")
	fl.IntVar(&f.port, "port", def.Port, "Service port")
	fl.StringVar(&f.path, "path", def.Path, "Service path")
	fl.StringVar(&f.parser, "parser", def.Parser, "Response extractor: markers or tree")
	fl.DurationVar(&f.dialTimeout, "dial-timeout", 0, "Connect timeout (0 waits as long as the OS does)")
	fl.DurationVar(&f.readTimeout, "read-timeout", 0, "Deadline for the exchange once connected (0 waits for the service to close)")
	fl.StringVar(&f.logLevel, "log-level", def.LogLevel, "Log level: debug, info, warn, error")
	fl.StringVar(&f.logFormat, "log-format", def.LogFormat, "Log format: text or json")

	return cmd
}

// loadConfig merges explicitly set flags over the file and environment
// configuration.
func loadConfig(cmd *cobra.Command, f *flags) (*config.Config, error) {
	cfg, err := config.Load(f.configFile)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	fl := cmd.Flags()
	if fl.Changed("host") {
		cfg.Host = f.host
	}
	if fl.Changed("port") {
		cfg.Port = f.port
	}
	if fl.Changed("path") {
		cfg.Path = f.path
	}
	if fl.Changed("parser") {
		cfg.Parser = f.parser
	}
	if fl.Changed("dial-timeout") {
		cfg.DialTimeout = f.dialTimeout
	}
	if fl.Changed("read-timeout") {
		cfg.ReadTimeout = f.readTimeout
	}
	if fl.Changed("encoding") {
		cfg.Encoding = f.encoding
	}
	if fl.Changed("entity-type") {
		cfg.EntityType = f.entityType
	}
	if fl.Changed("use-br") {
		cfg.UseBr = f.useBr
	}
	if fl.Changed("use-p") {
		cfg.UseP = f.useP
	}
	if fl.Changed("max-no-br") {
		cfg.MaxNobr = f.maxNobr
	}
	if fl.Changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if fl.Changed("log-format") {
		cfg.LogFormat = f.logFormat
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

func run(cmd *cobra.Command, cfg *config.Config, f *flags, path string) (err error) {
	lc := logging.DefaultConfig()
	lc.Level = logging.ParseLevel(cfg.LogLevel)
	lc.Format = logging.ParseFormat(cfg.LogFormat)
	lc.Output = cmd.ErrOrStderr()
	log := logging.New(lc)
	if cfg.File != "" {
		log.Debug("loaded config", "file", cfg.File)
	}

	doc, err := openDocument(path, cfg.Encoding, f.inplace)
	if err != nil {
		return fmt.Errorf("file: %w", err)
	}
	defer func() {
		if cerr := doc.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("file: %w", cerr)
		}
	}()

	header, body := "", doc.Text
	if f.skipFrontMatter {
		header, body = frontmatter.Split(doc.Text, frontmatter.Delimiter)
		log.Debug("front matter", "skipped_bytes", len(header))
	}

	client := soap.NewClient(cfg.Endpoint(),
		soap.WithExtractor(cfg.Extractor()),
		soap.WithLogger(log),
		soap.WithDialTimeout(cfg.DialTimeout),
		soap.WithReadTimeout(cfg.ReadTimeout),
	)
	log.Debug("calling service", "address", client.Endpoint().Address(), "bytes", len(body))
	res, err := client.ProcessText(cmd.Context(), body, cfg.RequestOptions())
	if err != nil {
		return stageError(err)
	}

	if f.inplace {
		if err := doc.Replace(header, res.Text); err != nil {
			return fmt.Errorf("file: %w", err)
		}
		log.Info("file updated", "path", path, "call_id", res.CallID)
		return nil
	}

	out, err := charset.Encode(cfg.Encoding, header+res.Text+"\n")
	if err != nil {
		return fmt.Errorf("output: %w", err)
	}
	if _, err := cmd.OutOrStdout().Write(out); err != nil {
		return fmt.Errorf("output: %w", err)
	}
	return nil
}

func stageError(err error) error {
	var te *soap.TransportError
	switch {
	case errors.As(err, &te):
		return fmt.Errorf("transport: %w", err)
	case errors.Is(err, soap.ErrMalformedResponse):
		return fmt.Errorf("response: %w", err)
	default:
		return err
	}
}

// Execute runs the command and returns the process exit code.
func Execute(info BuildInfo, args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCommand(info)
	if args == nil {
		// cobra reads os.Args when given nil
		args = []string{}
	}
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// Main is Execute on the process arguments and standard streams.
func Main(info BuildInfo) {
	os.Exit(Execute(info, os.Args[1:], os.Stdout, os.Stderr))
}
