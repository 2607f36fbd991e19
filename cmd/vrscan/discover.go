package main

import (
	"context"
	"fmt"
	"io"
	"maps"
	"net/url"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/nao1215/vrscan/internal/config"
	"github.com/nao1215/vrscan/internal/crawler"
	vrlog "github.com/nao1215/vrscan/internal/log"
)

// NewDiscoverCmd creates the discover command.
func NewDiscoverCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "discover <url>",
		Short: "Discover the pages of a site and print a scan file",
		Long: `Discover fetches the start page, follows same-host links breadth first and
prints a scan file listing every HTML page found. Titles come from the page
<title>, the first heading, the link text or the URL path, and are unique.

Discovery settings and cookies of an existing scan file are used as
defaults; flags override them.

Examples:
  # Print pages up to one link away from the start page
  vrscan discover http://localhost:8080

  # Crawl deeper and write the result as the scan file
  vrscan discover --depth 3 --max-pages 200 -o .vrscan http://localhost:8080

  # Skip admin pages and only follow the docs section
  vrscan discover --ignore "/admin/*" --follow "/docs/*" https://example.com

  # Log in with a session cookie through a SOCKS5 proxy
  vrscan discover --cookie session=abc --proxy 127.0.0.1:1080 https://example.com`,
		Args: cobra.ExactArgs(1),
		RunE: runDiscoverCmd,
	}

	cmd.Flags().StringP("config", "c", "",
		"Scan file whose discover settings and cookies are used as defaults")
	cmd.Flags().IntP("depth", "d", config.DefaultDiscoverDepth,
		"Maximum link depth from the start page (0 = start page only)")
	cmd.Flags().IntP("max-pages", "p", config.DefaultDiscoverMaxPages,
		"Maximum number of pages to discover")
	cmd.Flags().StringSlice("ignore", nil,
		"URL path patterns to skip (glob, repeatable)")
	cmd.Flags().StringSlice("follow", nil,
		"Only follow URL paths matching these patterns (glob, repeatable)")
	cmd.Flags().String("proxy", "",
		"SOCKS5 proxy address (e.g., 127.0.0.1:1080)")
	cmd.Flags().StringToString("cookie", nil,
		"Cookie sent with every request (name=value, repeatable)")
	cmd.Flags().Duration("timeout", config.DefaultDiscoverTimeout,
		"Timeout for each request")
	cmd.Flags().String("user-agent", "",
		"User-Agent header (default: vrscan/<version>)")
	cmd.Flags().Bool("no-codes", false,
		"Do not record the observed HTTP status as expectedCode")
	cmd.Flags().StringP("output", "o", "",
		"Write the scan file to this path instead of stdout")

	return cmd
}

// discoverOptions holds the resolved discover settings.
type discoverOptions struct {
	startURL  string
	depth     int
	maxPages  int
	ignore    []string
	follow    []string
	proxy     string
	cookies   map[string]string
	timeout   time.Duration
	userAgent string
	noCodes   bool
	output    string
	verbose   bool
	logFormat string
}

// runDiscoverCmd executes the discover command.
func runDiscoverCmd(cmd *cobra.Command, args []string) error {
	opts, err := buildDiscoverOptions(cmd, args[0])
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	return runDiscover(ctx, opts, cmd.OutOrStdout(), cmd.ErrOrStderr())
}

// buildDiscoverOptions merges the flags with the scan file defaults.
// A flag set on the command line always wins.
func buildDiscoverOptions(cmd *cobra.Command, startURL string) (*discoverOptions, error) {
	flags := cmd.Flags()
	opts := &discoverOptions{
		startURL:  startURL,
		verbose:   getVerboseFlag(cmd),
		logFormat: getLogFormat(cmd),
	}

	var err error
	if opts.depth, err = flags.GetInt("depth"); err != nil {
		return nil, err
	}
	if opts.maxPages, err = flags.GetInt("max-pages"); err != nil {
		return nil, err
	}
	if opts.ignore, err = flags.GetStringSlice("ignore"); err != nil {
		return nil, err
	}
	if opts.follow, err = flags.GetStringSlice("follow"); err != nil {
		return nil, err
	}
	if opts.proxy, err = flags.GetString("proxy"); err != nil {
		return nil, err
	}
	if opts.cookies, err = flags.GetStringToString("cookie"); err != nil {
		return nil, err
	}
	if opts.timeout, err = flags.GetDuration("timeout"); err != nil {
		return nil, err
	}
	if opts.userAgent, err = flags.GetString("user-agent"); err != nil {
		return nil, err
	}
	if opts.noCodes, err = flags.GetBool("no-codes"); err != nil {
		return nil, err
	}
	if opts.output, err = flags.GetString("output"); err != nil {
		return nil, err
	}
	configPath, err := flags.GetString("config")
	if err != nil {
		return nil, err
	}

	file, err := loadScanFile(configPath)
	if err != nil {
		return nil, err
	}
	if file != nil {
		d := file.Discover
		if !flags.Changed("depth") && d.Depth != 0 {
			opts.depth = d.Depth
		}
		if !flags.Changed("max-pages") && d.MaxPages != 0 {
			opts.maxPages = d.MaxPages
		}
		if !flags.Changed("ignore") {
			opts.ignore = d.IgnorePatterns
		}
		if !flags.Changed("follow") {
			opts.follow = d.FollowPatterns
		}
		if !flags.Changed("cookie") {
			opts.cookies = file.ScanOptions("").CookieStrings()
		}
	}

	if opts.depth < 0 {
		return nil, fmt.Errorf("depth must not be negative, got %d", opts.depth)
	}
	if opts.maxPages <= 0 {
		return nil, fmt.Errorf("max-pages must be positive, got %d", opts.maxPages)
	}
	if opts.userAgent == "" {
		opts.userAgent = config.AppName + "/" + getVersion()
	}
	return opts, nil
}

// runDiscover crawls the site and writes the resulting scan file.
func runDiscover(ctx context.Context, opts *discoverOptions, stdout, stderr io.Writer) error {
	start, err := url.Parse(opts.startURL)
	if err != nil || start.Host == "" {
		return fmt.Errorf("%w: %q", crawler.ErrInvalidStartURL, opts.startURL)
	}

	logger, err := vrlog.NewLogger(stderr, opts.logFormat, opts.verbose)
	if err != nil {
		return err
	}
	logger = vrlog.WithSecrets(logger, slices.Collect(maps.Values(opts.cookies))...)

	client, err := crawler.NewHTTPClient(crawler.ClientConfig{
		ProxyAddress: opts.proxy,
		Timeout:      opts.timeout,
		Cookies:      opts.cookies,
	})
	if err != nil {
		return fmt.Errorf("failed to create HTTP client: %w", err)
	}

	discoverer := crawler.NewDiscoverer(client,
		crawler.WithMaxDepth(opts.depth),
		crawler.WithMaxPages(opts.maxPages),
		crawler.WithUserAgent(opts.userAgent),
		crawler.WithIgnorePatterns(opts.ignore),
		crawler.WithFollowPatterns(opts.follow),
		crawler.WithExpectedCodes(!opts.noCodes),
		crawler.WithLogger(logger),
	)

	pages, err := discoverer.Discover(ctx, opts.startURL)
	if err != nil {
		return fmt.Errorf("discovery failed: %w", err)
	}
	logger.Info("discovery completed", "start", opts.startURL, "pages", len(pages))

	file := config.File{
		BaseURL: start.Scheme + "://" + start.Host,
		Pages:   pages,
	}

	output := stdout
	if opts.output != "" {
		f, err := os.OpenFile(opts.output, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer f.Close()
		output = f
	}

	encoder := yaml.NewEncoder(output)
	encoder.SetIndent(2)
	if err := encoder.Encode(file); err != nil {
		return fmt.Errorf("failed to write scan file: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return fmt.Errorf("failed to write scan file: %w", err)
	}

	if opts.output != "" {
		fmt.Fprintf(stderr, "Wrote %d pages to %s\n", len(pages), opts.output)
	}
	return nil
}
