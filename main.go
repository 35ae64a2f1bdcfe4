package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"smoothie-happy/board"
	"smoothie-happy/clients"
	"smoothie-happy/config"
	"smoothie-happy/events"
	"smoothie-happy/logger"
	"smoothie-happy/metrics"
	"smoothie-happy/models"
	"smoothie-happy/processor"
	"smoothie-happy/queue"
)

var (
	cfgFile string
	cfg     *config.Config
	v       = config.New()
	log     = logger.New()

	rootCmd = &cobra.Command{
		Use:   "smoothie-happy",
		Short: "Command line client for Smoothieware boards",
		Long: `smoothie-happy drives a Smoothieware board over its HTTP
command interface.

Commands are queued and sent one at a time, timed out requests are
retried, and replies are decoded into structured values.`,
		SilenceUsage: true,
	}

	sendCmd = &cobra.Command{
		Use:   "send <command line>",
		Short: "Send one command and print the decoded reply",
		Args:  cobra.MinimumNArgs(1),
		RunE:  send,
	}

	batchCmd = &cobra.Command{
		Use:   "batch [command lines...]",
		Short: "Queue several commands, read from arguments or stdin, and print each reply in order",
		RunE:  batch,
	}

	lsCmd = &cobra.Command{
		Use:   "ls [folder]",
		Short: "List board files recursively",
		Args:  cobra.MaximumNArgs(1),
		RunE:  ls,
	}

	uploadCmd = &cobra.Command{
		Use:   "upload <local file> <board path>",
		Short: "Upload a file to the board SD card",
		Args:  cobra.ExactArgs(2),
		RunE:  upload,
	}

	syncCmd = &cobra.Command{
		Use:   "sync <local folder> <board folder>",
		Short: "Upload a local folder to the board, skipping files already there",
		Args:  cobra.ExactArgs(2),
		RunE:  syncFolder,
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print the board firmware version",
		Args:  cobra.NoArgs,
		RunE:  version,
	}
)

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml or $HOME/.smoothie-happy/config.yaml)")
	flags.StringP("address", "a", "", "Board address (host or IP)")
	flags.Duration("timeout", 0, "Per attempt timeout")
	flags.Int("max-attempts", 0, "Maximum attempts for timed out commands")
	flags.Duration("attempt-delay", 0, "Delay between two attempts")
	flags.Duration("break-timeout", 0, "Time after which an unanswered break means debug mode")
	flags.String("log-level", "", "Log level (debug, info, warn, error)")
	flags.String("metrics-addr", "", "Serve Prometheus metrics on this address, e.g. :9100")

	// Bind flags to viper
	v.BindPFlag(config.KeyAddress, flags.Lookup("address"))
	v.BindPFlag(config.KeyTimeout, flags.Lookup("timeout"))
	v.BindPFlag(config.KeyMaxAttempts, flags.Lookup("max-attempts"))
	v.BindPFlag(config.KeyAttemptDelay, flags.Lookup("attempt-delay"))
	v.BindPFlag(config.KeyBreakTimeout, flags.Lookup("break-timeout"))
	v.BindPFlag(config.KeyLogLevel, flags.Lookup("log-level"))
	v.BindPFlag(config.KeyMetricsAddr, flags.Lookup("metrics-addr"))

	sendCmd.Flags().Bool("raw", false, "Print the raw reply instead of the decoded value")
	lsCmd.Flags().Bool("tree", false, "Print a nested tree instead of a flat list")

	rootCmd.AddCommand(sendCmd, batchCmd, lsCmd, uploadCmd, syncCmd, versionCmd)
}

func initConfig() {
	var err error
	cfg, err = config.Load(v, cfgFile)
	cobra.CheckErr(err)

	if used := v.ConfigFileUsed(); used != "" {
		log.Debug("Using config file: %s", used)
	}
	cobra.CheckErr(log.SetLevelName(cfg.Log.Level))
}

// connect validates the configuration and builds the board client
func connect() (*board.Board, error) {
	if cfg.Board.Address == "" {
		return nil, errors.New("board address is required (--address or SMOOTHIE_ADDRESS)")
	}

	observers := events.Multi{events.NewLogObserver(log.Logger)}
	if cfg.Metrics.Addr != "" {
		observers = append(observers, metrics.NewObserver())
		serveMetrics(cfg.Metrics.Addr)
	}

	b, err := board.New(cfg.Board.Address,
		board.WithSettings(cfg.Settings()),
		board.WithObserver(observers),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create board client: %w", err)
	}
	return b, nil
}

func serveMetrics(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	go func() {
		log.Info("Serving metrics on %s/metrics", addr)
		if err := http.ListenAndServe(addr, mux); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Metrics server stopped: %v", err)
		}
	}()
}

func send(cmd *cobra.Command, args []string) error {
	b, err := connect()
	if err != nil {
		return err
	}
	raw, _ := cmd.Flags().GetBool("raw")

	res, err := b.CommandWithOptions(cmd.Context(), strings.Join(args, " "), queue.Options{Raw: raw})
	if err != nil {
		return err
	}
	return printResult(cmd, res, raw)
}

func batch(cmd *cobra.Command, args []string) error {
	b, err := connect()
	if err != nil {
		return err
	}

	lines := args
	if len(lines) == 0 {
		scanner := bufio.NewScanner(cmd.InOrStdin())
		for scanner.Scan() {
			if line := strings.TrimSpace(scanner.Text()); line != "" && !strings.HasPrefix(line, ";") {
				lines = append(lines, line)
			}
		}
		if err := scanner.Err(); err != nil {
			return fmt.Errorf("failed to read commands: %w", err)
		}
	}

	// queue everything first, the board still sees one command at a time
	commands := make([]*queue.Command, 0, len(lines))
	for _, line := range lines {
		c, err := b.Enqueue(line, queue.Options{})
		if err != nil {
			return err
		}
		commands = append(commands, c)
	}
	b.Queue().Process()

	failed := 0
	for _, c := range commands {
		res, err := c.Wait(cmd.Context())
		if err != nil {
			failed++
			log.Failure(cmd.ErrOrStderr(), "%s: %v", c.Line, err)
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\n", log.Bold("> "+c.Line))
		if err := printResult(cmd, res, false); err != nil {
			return err
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d commands failed", failed, len(commands))
	}
	return nil
}

func printResult(cmd *cobra.Command, res queue.Result, raw bool) error {
	out := cmd.OutOrStdout()
	if raw {
		fmt.Fprintln(out, strings.TrimRight(res.Text, "\n"))
		return nil
	}

	data, err := json.MarshalIndent(res.Value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result: %w", err)
	}
	fmt.Fprintln(out, string(data))
	return nil
}

func ls(cmd *cobra.Command, args []string) error {
	b, err := connect()
	if err != nil {
		return err
	}

	dir := board.SDRoot
	if len(args) > 0 {
		dir = args[0]
	}

	if tree, _ := cmd.Flags().GetBool("tree"); tree {
		folder, err := b.Tree(cmd.Context(), dir, true)
		if err != nil {
			return err
		}
		printFolder(cmd, folder, "")
		return nil
	}

	entries, err := b.ListFiles(cmd.Context(), dir, true)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	for _, e := range entries {
		name := e.Path
		if e.IsDir() {
			name = log.Folder(e.Path + "/")
		}
		fmt.Fprintf(out, "%10s  %s\n", humanize.Bytes(uint64(e.Size)), name)
	}
	fmt.Fprintf(out, "%d entries, %s\n", len(entries), humanize.Bytes(uint64(b.Files().Size(dir))))
	return nil
}

func printFolder(cmd *cobra.Command, folder models.Folder, indent string) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s%s (%s)\n", indent, log.Folder(folder.Entry.Name+"/"), humanize.Bytes(uint64(folder.Entry.Size)))
	for _, sub := range folder.Folders {
		printFolder(cmd, sub, indent+"  ")
	}
	for _, f := range folder.Files {
		fmt.Fprintf(out, "%s  %s (%s)\n", indent, f.Name, humanize.Bytes(uint64(f.Size)))
	}
}

func upload(cmd *cobra.Command, args []string) error {
	b, err := connect()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}

	entry, err := b.Upload(cmd.Context(), args[1], data, printProgress(cmd))
	if err != nil {
		return err
	}
	log.Success(cmd.OutOrStdout(), "Uploaded %s (%s)", entry.Path, humanize.Bytes(uint64(entry.Size)))
	return nil
}

func printProgress(cmd *cobra.Command) clients.ProgressFunc {
	return func(p clients.Progress) {
		if p.Direction == clients.Upload {
			fmt.Fprintf(cmd.ErrOrStderr(), "\r%s / %s (%.0f%%)",
				humanize.Bytes(uint64(p.Loaded)), humanize.Bytes(uint64(p.Total)), p.Percent)
		}
	}
}

func syncFolder(cmd *cobra.Command, args []string) error {
	b, err := connect()
	if err != nil {
		return err
	}

	info, err := os.Stat(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%s is not a folder", args[0])
	}

	proc := processor.NewProcessor(&processor.Dependencies{
		Board:  b,
		Source: os.DirFS(args[0]),
		Log:    log.Logger,
	})

	stats, err := proc.Main(cmd.Context(), processor.Config{
		TargetPath: args[1],
		Refresh:    true,
	})
	if err != nil {
		return err
	}
	if stats.ErrorFiles > 0 {
		return fmt.Errorf("%d files could not be uploaded", stats.ErrorFiles)
	}
	return nil
}

func version(cmd *cobra.Command, _ []string) error {
	b, err := connect()
	if err != nil {
		return err
	}

	ver, err := b.Version(cmd.Context())
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s-%s (%s) %s @ %s\n", ver.Branch, ver.Hash, ver.Date, ver.MCU, ver.Clock)
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

