package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/cobra"

	"reviewdesk/cmd/desk/ui"
	"reviewdesk/internal/apierr"
	"reviewdesk/internal/config"
	"reviewdesk/internal/dashboard"
	"reviewdesk/internal/format"
	"reviewdesk/internal/notify"
	"reviewdesk/internal/types"
	"reviewdesk/internal/workflow"
)

var (
	claimCount     int
	tasksJSON      bool
	submitGlob     string
	tagsPool       string
	queuesPage     int
	queuesPageSize int
)

// tasksCmd groups the per-queue task workflow
var tasksCmd = &cobra.Command{
	Use:   "tasks",
	Short: "Claim, list, submit and return review tasks",
	Long: `Runs the review task workflow of one queue kind.

Kinds:
  comment, quality-check, second-review, video-first-review,
  video-second-review, ai-human-diff, video-100k, video-1m, video-10m

Run "desk tasks kinds" for the registered list.`,
}

var tasksKindsCmd = &cobra.Command{
	Use:   "kinds",
	Short: "List the registered task kinds",
	Args:  cobra.NoArgs,
	RunE:  runTasksKinds,
}

var tasksClaimCmd = &cobra.Command{
	Use:   "claim <kind>",
	Short: "Claim a batch of tasks",
	Args:  cobra.ExactArgs(1),
	RunE:  runTasksClaim,
}

var tasksMyCmd = &cobra.Command{
	Use:   "my <kind>",
	Short: "List the tasks you hold",
	Args:  cobra.ExactArgs(1),
	RunE:  runTasksMy,
}

var tasksSubmitCmd = &cobra.Command{
	Use:   "submit <kind> [review.json...]",
	Short: "Submit one or more review decisions",
	Long: `Submits review decisions read from JSON files. Each file holds one review
object or an array of them. A single review is sent on its own; several are
sent as one batch.

Examples:
  desk tasks submit quality-check review.json
  desk tasks submit video-100k --glob 'reviews/**/*.json'`,
	Args: cobra.MinimumNArgs(1),
	RunE: runTasksSubmit,
}

var tasksReturnCmd = &cobra.Command{
	Use:   "return <kind> <task-id>...",
	Short: "Return held tasks to the queue",
	Args:  cobra.MinimumNArgs(2),
	RunE:  runTasksReturn,
}

var tasksStatsCmd = &cobra.Command{
	Use:   "stats <kind>",
	Short: "Show the dashboard statistics of a queue",
	Args:  cobra.ExactArgs(1),
	RunE:  runTasksStats,
}

var tasksQueuesCmd = &cobra.Command{
	Use:   "queues",
	Short: "List the public task queues",
	Args:  cobra.NoArgs,
	RunE:  runTasksQueues,
}

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "List the review tag vocabulary",
	Args:  cobra.NoArgs,
	RunE:  runTags,
}

func init() {
	tasksClaimCmd.Flags().IntVarP(&claimCount, "count", "n", 0, "Number of tasks to claim (default: review.claim_count)")
	tasksClaimCmd.Flags().BoolVar(&tasksJSON, "json", false, "Print tasks as JSON")
	tasksMyCmd.Flags().BoolVar(&tasksJSON, "json", false, "Print tasks as JSON")
	tasksSubmitCmd.Flags().StringVar(&submitGlob, "glob", "", "Read reviews from files matching a ** pattern")
	tasksQueuesCmd.Flags().IntVar(&queuesPage, "page", 1, "Page number")
	tasksQueuesCmd.Flags().IntVar(&queuesPageSize, "page-size", 20, "Queues per page")
	tagsCmd.Flags().StringVar(&tagsPool, "pool", "", "List the tags of a video queue pool (100k, 1m, 10m)")

	tasksCmd.AddCommand(tasksKindsCmd, tasksQueuesCmd, tasksClaimCmd, tasksMyCmd, tasksSubmitCmd, tasksReturnCmd, tasksStatsCmd)
	rootCmd.AddCommand(tasksCmd, tagsCmd)
}

func runTasksKinds(cmd *cobra.Command, args []string) error {
	reg := workflow.DefaultRegistry()
	table := ui.NewSimpleTable("Task kinds", "Kind", "Endpoint", "Stats")
	for _, name := range reg.Names() {
		k, _ := reg.Lookup(name)
		stats := "-"
		if hasDashboardStats(k) {
			stats = "yes"
		}
		table.AddRow(k.Name, k.Config.BasePath, stats)
	}
	fmt.Fprintln(cmd.OutOrStdout(), table.View(ui.DefaultStyles()))
	return nil
}

func runTasksQueues(cmd *cobra.Command, args []string) error {
	if queuesPage < 1 || queuesPageSize < 1 {
		return errors.New("--page and --page-size must be positive")
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	res, err := a.client.Queues(ctx, queuesPage, queuesPageSize)
	if err != nil {
		return a.fail(a.errs.Load, err, apierr.WithMessage("Failed to load queues"))
	}

	title := fmt.Sprintf("Queues (page %d/%d, %d total)", res.Page, max(res.TotalPages, 1), res.Total)
	table := ui.NewSimpleTable(title, "Queue", "Priority", "Pending", "Done", "Total", "Active")
	for _, q := range res.Data {
		active := "no"
		if q.IsActive {
			active = "yes"
		}
		table.AddRow(q.QueueName, strconv.Itoa(q.Priority),
			format.Number(q.PendingTasks), format.Number(q.CompletedTasks), format.Number(q.TotalTasks), active)
	}
	fmt.Fprintln(a.out, table.View(ui.DefaultStyles()))
	return nil
}

// kindClient resolves name to the generic workflow client of that queue.
func (a *deskApp) kindClient(name string) (workflow.Kind, *workflow.StatsClient[types.AnyTask, map[string]any, map[string]any], error) {
	k, err := a.kinds.Lookup(name)
	if err != nil {
		return workflow.Kind{}, nil, fmt.Errorf("%w (valid: %s)", err, strings.Join(a.kinds.Names(), ", "))
	}
	return k, k.Generic(a.client), nil
}

func runTasksClaim(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	_, client, err := a.kindClient(args[0])
	if err != nil {
		return err
	}

	count := claimCount
	if count == 0 {
		count = a.cfg.Review.ClaimCount
	}
	if count < config.MinClaimCount || count > config.MaxClaimCount {
		return fmt.Errorf("claim count must be between %d and %d", config.MinClaimCount, config.MaxClaimCount)
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	res, err := client.ClaimTasks(ctx, count)
	if err != nil {
		return a.fail(a.errs.Claim, err)
	}
	notify.Success(a.notifier, fmt.Sprintf("Claimed %d tasks", res.Count))
	return printTasks(a, res.Tasks)
}

func runTasksMy(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	_, client, err := a.kindClient(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	res, err := client.GetMyTasks(ctx)
	if err != nil {
		return a.fail(a.errs.Load, err)
	}
	if len(res.Tasks) == 0 && !tasksJSON {
		fmt.Fprintln(a.out, dashboard.ForKind(args[0]).EmptyText)
		return nil
	}
	return printTasks(a, res.Tasks)
}

func printTasks(a *deskApp, tasks []types.AnyTask) error {
	if tasksJSON {
		if tasks == nil {
			tasks = []types.AnyTask{}
		}
		data, err := json.MarshalIndent(tasks, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(a.out, string(data))
		return nil
	}

	table := ui.NewSimpleTable(fmt.Sprintf("%d tasks", len(tasks)), "ID", "Status", "Task")
	for _, t := range tasks {
		table.AddRow(strconv.FormatInt(t.ID, 10), t.Status, summarize(t.Raw, 60))
	}
	fmt.Fprintln(a.out, table.View(ui.DefaultStyles()))
	return nil
}

// summarize compacts raw JSON onto one line of at most n runes.
func summarize(raw json.RawMessage, n int) string {
	s := strings.Join(strings.Fields(string(raw)), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

func runTasksSubmit(cmd *cobra.Command, args []string) error {
	files := append([]string(nil), args[1:]...)
	if submitGlob != "" {
		matches, err := doublestar.FilepathGlob(submitGlob)
		if err != nil {
			return fmt.Errorf("invalid --glob pattern: %w", err)
		}
		files = append(files, matches...)
	}
	if len(files) == 0 {
		return errors.New("no review files given (pass files or --glob)")
	}

	reviews, err := readReviews(files)
	if err != nil {
		return err
	}
	if len(reviews) == 0 {
		return errors.New("no reviews found in the given files")
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	k, client, err := a.kindClient(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	if pool, ok := videoPool(k); ok {
		typed, err := videoQueueReviews(reviews)
		if err != nil {
			return err
		}
		return submitAll(ctx, a, workflow.NewVideoQueue(a.client, pool), typed)
	}
	return submitAll(ctx, a, client, reviews)
}

// reviewSubmitter is the submit half of a workflow client.
type reviewSubmitter[R any] interface {
	SubmitReview(ctx context.Context, review R) (*workflow.MessageResponse, error)
	SubmitBatchReviews(ctx context.Context, reviews []R) (*workflow.MessageCountResponse, error)
}

// submitAll sends a single review on its own and several as one batch.
func submitAll[R any](ctx context.Context, a *deskApp, c reviewSubmitter[R], reviews []R) error {
	if len(reviews) == 1 {
		res, err := c.SubmitReview(ctx, reviews[0])
		if err != nil {
			return a.fail(a.errs.Submit, err)
		}
		notify.Success(a.notifier, messageOr(res.Message, "Review submitted"))
		return nil
	}

	res, err := c.SubmitBatchReviews(ctx, reviews)
	if err != nil {
		return a.fail(a.errs.Submit, err)
	}
	notify.Success(a.notifier, messageOr(res.Message, fmt.Sprintf("Submitted %d reviews", res.Count)))
	return nil
}

// videoQueueReviews converts loose review objects into pool decisions and
// rejects unknown decisions before anything is sent.
func videoQueueReviews(reviews []map[string]any) ([]types.SubmitVideoQueueReviewRequest, error) {
	out := make([]types.SubmitVideoQueueReviewRequest, 0, len(reviews))
	for i, r := range reviews {
		data, err := json.Marshal(r)
		if err != nil {
			return nil, err
		}
		var req types.SubmitVideoQueueReviewRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, fmt.Errorf("review %d: %w", i+1, err)
		}
		if req.TaskID <= 0 {
			return nil, fmt.Errorf("review %d: missing task_id", i+1)
		}
		switch req.ReviewDecision {
		case types.DecisionPushNextPool, types.DecisionNaturalPool, types.DecisionRemoveViolation:
		default:
			return nil, fmt.Errorf("review %d: invalid review_decision %q", i+1, req.ReviewDecision)
		}
		out = append(out, req)
	}
	return out, nil
}

// readReviews loads review objects. A file holds one object or an array.
func readReviews(files []string) ([]map[string]any, error) {
	var reviews []map[string]any
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
		trimmed := strings.TrimSpace(string(data))
		if strings.HasPrefix(trimmed, "[") {
			var batch []map[string]any
			if err := json.Unmarshal(data, &batch); err != nil {
				return nil, fmt.Errorf("failed to parse %s: %w", path, err)
			}
			reviews = append(reviews, batch...)
			continue
		}
		var one map[string]any
		if err := json.Unmarshal(data, &one); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
		reviews = append(reviews, one)
	}
	return reviews, nil
}

func messageOr(msg, fallback string) string {
	if msg == "" {
		return fallback
	}
	return msg
}

func runTasksReturn(cmd *cobra.Command, args []string) error {
	ids := make([]int64, 0, len(args)-1)
	for _, s := range args[1:] {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil || id <= 0 {
			return fmt.Errorf("invalid task id %q", s)
		}
		ids = append(ids, id)
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	_, client, err := a.kindClient(args[0])
	if err != nil {
		return err
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	res, err := client.ReturnTasks(ctx, ids)
	if err != nil {
		return a.fail(a.errs.Return, err)
	}
	notify.Success(a.notifier, messageOr(res.Message, fmt.Sprintf("Returned %d tasks", res.Count)))
	return nil
}

func hasDashboardStats(k workflow.Kind) bool {
	if k.HasStats {
		return true
	}
	_, ok := videoPool(k)
	return ok
}

// videoPool reports the traffic pool of a video-<pool> kind.
func videoPool(k workflow.Kind) (types.Pool, bool) {
	pool, ok := strings.CutPrefix(k.Name, "video-")
	if !ok || !config.IsValidPool(pool) {
		return "", false
	}
	return types.Pool(pool), true
}

// statsFunc returns the dashboard statistics loader of k, or nil.
func (a *deskApp) statsFunc(k workflow.Kind) ui.StatsFunc {
	if pool, ok := videoPool(k); ok {
		return func(ctx context.Context) (map[string]float64, error) {
			s, err := a.client.VideoQueuePoolStats(ctx, pool)
			if err != nil {
				return nil, err
			}
			return s.Values(), nil
		}
	}
	if k.Name == "quality-check" {
		qc := workflow.NewQualityCheck(a.client)
		return func(ctx context.Context) (map[string]float64, error) {
			s, err := qc.GetStats(ctx)
			if err != nil {
				return nil, err
			}
			return s.Values(), nil
		}
	}
	if k.HasStats {
		client := k.Generic(a.client)
		return func(ctx context.Context) (map[string]float64, error) {
			s, err := client.GetStats(ctx)
			if err != nil {
				return nil, err
			}
			return numericValues(*s), nil
		}
	}
	return nil
}

func numericValues(m map[string]any) map[string]float64 {
	out := make(map[string]float64, len(m))
	for k, v := range m {
		if f, ok := v.(float64); ok {
			out[k] = f
		}
	}
	return out
}

func runTasksStats(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	k, _, err := a.kindClient(args[0])
	if err != nil {
		return err
	}
	load := a.statsFunc(k)
	if load == nil {
		return fmt.Errorf("%s has no statistics", k.Name)
	}

	ctx, cancel := commandContext(cmd)
	defer cancel()

	values, err := load(ctx)
	if err != nil {
		return a.fail(a.errs.Load, err, apierr.WithMessage("Failed to load statistics"))
	}

	dash := dashboard.ForKind(k.Name)
	table := ui.NewSimpleTable(dash.Title, "Metric", "Value")
	for _, row := range dash.Render(values) {
		table.AddRow(row.Label, row.Value)
	}
	fmt.Fprintln(a.out, table.View(ui.DefaultStyles()))
	return nil
}

func runTags(cmd *cobra.Command, args []string) error {
	if tagsPool != "" && !config.IsValidPool(tagsPool) {
		return fmt.Errorf("invalid pool %q (valid: %s)", tagsPool, strings.Join(config.ValidPools, ", "))
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := commandContext(cmd)
	defer cancel()

	if tagsPool != "" {
		tags, err := a.client.VideoQueueTags(ctx, types.Pool(tagsPool))
		if err != nil {
			return a.fail(a.errs.Load, err, apierr.WithMessage("Failed to load tags"))
		}
		table := ui.NewSimpleTable("Tags "+tagsPool, "ID", "Name", "Category", "Description")
		for _, t := range tags {
			if !t.IsActive {
				continue
			}
			table.AddRow(strconv.FormatInt(t.ID, 10), t.Name, t.Category, t.Description)
		}
		fmt.Fprintln(a.out, table.View(ui.DefaultStyles()))
		return nil
	}

	tags, err := a.client.Tags(ctx)
	if err != nil {
		return a.fail(a.errs.Load, err, apierr.WithMessage("Failed to load tags"))
	}
	table := ui.NewSimpleTable("Tags", "ID", "Name", "Description")
	for _, t := range tags {
		if !t.IsActive {
			continue
		}
		table.AddRow(strconv.FormatInt(t.ID, 10), t.Name, t.Description)
	}
	fmt.Fprintln(a.out, table.View(ui.DefaultStyles()))
	return nil
}
