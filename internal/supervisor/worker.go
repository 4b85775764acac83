package supervisor

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/linkwatch/linkwatch/internal/config"
	"github.com/linkwatch/linkwatch/internal/obtainer"
)

// RunWorker is the body of the hidden "obtain" subcommand: it builds
// the obtainer named by ObtainerEnvVar, runs one Obtain call, and
// writes the FetchResult as one line of JSON to fd 3 — the pipe the
// parent supervisor process set up via ExtraFiles. This mirrors the
// original's multiprocessing.Queue: the pipe is the only channel a
// result travels through.
func RunWorker(cfg *config.Config, url, parent, userAgent string) error {
	cfg.Obtainer.Type = os.Getenv(ObtainerEnvVar)

	o, err := obtainer.New(cfg)
	if err != nil {
		return fmt.Errorf("build obtainer: %w", err)
	}

	result, err := o.Obtain(context.Background(), url, parent, userAgent)
	if err != nil {
		return fmt.Errorf("obtain: %w", err)
	}
	result.ProcessName = fmt.Sprintf("worker-%d", os.Getpid())

	out := os.NewFile(3, "result-pipe")
	if out == nil {
		return fmt.Errorf("result pipe (fd 3) not available")
	}
	defer out.Close()

	enc := json.NewEncoder(out)
	return enc.Encode(result)
}
