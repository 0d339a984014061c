package commands

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/KarpelesLab/remotetag"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Process tagging jobs from stdin",
	Long: `Read one JSON job per line from stdin and write one JSON reply per job to
stdout. Diagnostics go to stderr.

Job format:
  {"url": "https://...", "length": 1234567, "id": "abc", "filename": "a.mp3"}

Reply format:
  {"id": "abc", "filename": "a.mp3", "title": "...", "artist": "...", "album": "..."}

Malformed jobs are answered with the literal line "Error".

Examples:
  # Tag a single file
  echo '{"url":"https://example.com/a.mp3","length":4096000,"id":"1","filename":"a.mp3"}' | remotetag run

  # Larger prefetch windows, quiet
  REMOTETAG_PREFIX_SIZE=262144 remotetag run --quiet < jobs.jsonl`,
	RunE: runRun,
}

func init() {
	addRunFlags(runCmd.Flags())
}

// addRunFlags declares the flags loadConfig binds. Unset flags fall back to
// the config file, the environment and then the defaults.
func addRunFlags(fs *pflag.FlagSet) {
	fs.Int64("prefix-size", remotetag.DefaultPrefixSize, "bytes prefetched from the start of each file")
	fs.Int64("suffix-size", remotetag.DefaultSuffixSize, "bytes prefetched from the end of each file")
	fs.Duration("timeout", 0, "HTTP timeout per request (default 30s)")
	fs.BoolP("quiet", "q", false, "disable diagnostics on stderr")
	fs.Int("log-queue", 0, "diagnostic messages buffered before dropping (default 1024)")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runHost(ctx, cfg, cmd.InOrStdin(), cmd.OutOrStdout(), cmd.ErrOrStderr())
}

func runHost(ctx context.Context, cfg *Config, in io.Reader, out, errOut io.Writer) error {
	h := remotetag.NewHost(out)
	h.PrefixSize = cfg.PrefixSize
	h.SuffixSize = cfg.SuffixSize
	h.Client = &http.Client{Timeout: cfg.Timeout}

	if cfg.Quiet {
		h.Logger = nil
	} else {
		diag := remotetag.NewDiagWriter(errOut, cfg.LogQueue)
		defer diag.Close()
		h.Logger = log.New(diag, "", log.LstdFlags)
	}

	return h.Run(ctx, in)
}
