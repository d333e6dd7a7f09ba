package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"reviewdesk/internal/config"
	"reviewdesk/internal/smoke"
)

var (
	smokePool        string
	smokeClaimCount  int
	smokeConcurrency int
)

// smokeCmd checks a live backend
var smokeCmd = &cobra.Command{
	Use:   "smoke",
	Short: "Run availability and latency checks against the backend",
	Long: `Sends one request to each main reviewer endpoint and prints its status
and latency. The base URL comes from api.base_url (API_BASE_URL), the token
from api.token (TOKEN) or the stored session.`,
	Args: cobra.NoArgs,
	RunE: runSmoke,
}

var smokeVideoQueueCmd = &cobra.Command{
	Use:   "video-queue",
	Short: "Check the video queue endpoints of one pool, claim included",
	Long: `Checks the queue list, then the pool's my-tasks, tags and claim endpoints.
The pool comes from --pool (VIDEO_POOL) and the claim size from --claim-count
(CLAIM_COUNT).`,
	Args: cobra.NoArgs,
	RunE: runSmokeVideoQueue,
}

func init() {
	smokeCmd.PersistentFlags().IntVar(&smokeConcurrency, "concurrency", 1, "Run the suite this many times in parallel")
	smokeVideoQueueCmd.Flags().StringVar(&smokePool, "pool", "", "Video pool: 100k, 1m or 10m (default: review.video_pool)")
	smokeVideoQueueCmd.Flags().IntVar(&smokeClaimCount, "claim-count", 0, "Tasks to claim (default: 1, or CLAIM_COUNT)")

	smokeCmd.AddCommand(smokeVideoQueueCmd)
	rootCmd.AddCommand(smokeCmd)
}

func runSmoke(cmd *cobra.Command, args []string) error {
	return runSuite(cmd, func(a *deskApp) ([]smoke.Check, error) {
		return smoke.APIChecks(), nil
	})
}

func runSmokeVideoQueue(cmd *cobra.Command, args []string) error {
	return runSuite(cmd, func(a *deskApp) ([]smoke.Check, error) {
		pool := smokePool
		if pool == "" {
			pool = a.cfg.Review.VideoPool
		}
		if !config.IsValidPool(pool) {
			return nil, fmt.Errorf("invalid pool %q (valid: %s)", pool, strings.Join(config.ValidPools, ", "))
		}

		count := smokeClaimCount
		if count == 0 {
			count = 1
			if os.Getenv("CLAIM_COUNT") != "" {
				count = a.cfg.Review.ClaimCount
			}
		}
		fmt.Fprintf(a.out, "Pool: %s  Claim: %d\n", pool, count)
		return smoke.VideoQueueChecks(pool, count), nil
	})
}

func runSuite(cmd *cobra.Command, checks func(a *deskApp) ([]smoke.Check, error)) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	suite, err := checks(a)
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	fmt.Fprintf(a.out, "API base: %s\n\n", a.cfg.API.BaseURL)
	runner := smoke.NewRunner(a.cfg.API.BaseURL, a.token(),
		smoke.WithOutput(a.out),
		smoke.WithConcurrency(smokeConcurrency))
	_, sum := runner.Run(ctx, suite)
	if sum.Failed > 0 {
		return fmt.Errorf("%w: %d of %d checks failed", errReported, sum.Failed, sum.Total)
	}
	return nil
}
