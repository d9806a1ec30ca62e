package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dmitrymomot/diskqueue/pkg/diskqueue"
	"github.com/dmitrymomot/diskqueue/pkg/filelock"
	"github.com/dmitrymomot/diskqueue/pkg/redis"
)

// ErrRedisDisabled is returned by commands that need the Redis lock backend.
var ErrRedisDisabled = errors.New("redis lock backend is not configured (set DISKQUEUE_REDIS_URL)")

func newLenCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "len <queue>",
		Short: "Print the number of pending jobs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := e.open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			n, err := q.Len(cmd.Context())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), n)
			return nil
		},
	}
}

func newPeekCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "peek <queue>",
		Short: "Print the next job without removing it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := e.open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			job, err := q.PeekTask(cmd.Context())
			if err != nil {
				return err
			}
			if job == nil {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), "queue is empty")
				return nil
			}
			return writeJSON(cmd.OutOrStdout(), newJobView(0, *job))
		},
	}
}

func newListCommand(e *env) *cobra.Command {
	listCmd := &cobra.Command{
		Use:   "list <queue>",
		Short: "List pending jobs, head first",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			asJSON, _ := cmd.Flags().GetBool("json")

			q, err := e.open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			jobs, err := q.List(cmd.Context())
			if err != nil {
				return err
			}

			views := make([]jobView, 0, len(jobs))
			for i, j := range jobs {
				views = append(views, newJobView(i, j))
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), views)
			}
			return writeTable(cmd.OutOrStdout(), views)
		},
	}
	listCmd.Flags().Bool("json", false, "Print jobs as a JSON array")
	return listCmd
}

func newEnqueueCommand(e *env) *cobra.Command {
	enqueueCmd := &cobra.Command{
		Use:   "enqueue <queue> <reference> [args...]",
		Short: "Append a job by handler reference",
		Long: `Append a job by handler reference.

Positional arguments are parsed as JSON when possible (42, 1.5, true, "text",
[1,2], {"k":"v"}) and kept as plain strings otherwise. Keyword arguments are
given with --kwarg name=value and parsed the same way.`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rawKwargs, _ := cmd.Flags().GetStringToString("kwarg")

			q, err := e.open(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			positional := make([]any, 0, len(args)-2)
			for _, a := range args[2:] {
				positional = append(positional, parseValue(a))
			}
			var kwargs map[string]any
			if len(rawKwargs) > 0 {
				kwargs = make(map[string]any, len(rawKwargs))
				for k, v := range rawKwargs {
					kwargs[k] = parseValue(v)
				}
			}

			job, err := q.Enqueue(cmd.Context(), args[1], positional, kwargs)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), job.ID)
			return nil
		},
	}
	enqueueCmd.Flags().StringToString("kwarg", nil, "Keyword argument name=value (repeatable)")
	return enqueueCmd
}

func newShuffleCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "shuffle <queue>",
		Short: "Randomly reorder pending jobs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := e.open(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := q.Shuffle(cmd.Context()); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "status:", "OK")
			return nil
		},
	}
}

func newClearCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <queue>",
		Short: "Delete a queue and all its pending jobs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := diskqueue.Clear(cmd.Context(), e.cfg, args[0], e.queueOptions()...); err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), "status:", "OK")
			return nil
		},
	}
}

func newExistsCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "exists <queue>",
		Short: "Report whether a queue file exists",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ok, err := diskqueue.Exists(e.cfg, args[0])
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), ok)
			return nil
		},
	}
}

func newLocksCommand(e *env) *cobra.Command {
	return &cobra.Command{
		Use:   "locks",
		Short: "List queue files currently locked in Redis",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rl, ok := e.locker.(*filelock.RedisLocker)
			if !ok {
				return ErrRedisDisabled
			}
			held, err := redis.HeldLocks(cmd.Context(), rl.Client(), rl.Prefix())
			if err != nil {
				return err
			}
			for _, path := range held {
				_, _ = fmt.Fprintln(cmd.OutOrStdout(), path)
			}
			return nil
		},
	}
}

type jobView struct {
	Index      int            `json:"index"`
	ID         string         `json:"id"`
	Ref        string         `json:"ref"`
	Args       []any          `json:"args"`
	Kwargs     map[string]any `json:"kwargs,omitempty"`
	EnqueuedAt time.Time      `json:"enqueued_at"`
}

func newJobView(i int, j diskqueue.Job) jobView {
	return jobView{
		Index:      i,
		ID:         j.ID.String(),
		Ref:        j.Ref,
		Args:       j.Args,
		Kwargs:     j.Kwargs,
		EnqueuedAt: j.EnqueuedAt,
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeTable(w io.Writer, views []jobView) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "#\tID\tREF\tARGS\tKWARGS\tENQUEUED")
	for _, v := range views {
		args, _ := json.Marshal(v.Args)
		kwargs, _ := json.Marshal(v.Kwargs)
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n",
			v.Index, v.ID, v.Ref, args, kwargs, v.EnqueuedAt.Format(time.RFC3339))
	}
	return tw.Flush()
}

// parseValue decodes s as JSON, keeping whole numbers as int64. Anything that
// is not valid JSON is kept as the raw string.
func parseValue(s string) any {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil || dec.More() {
		return s
	}
	if _, err := dec.Token(); err != io.EOF {
		return s
	}
	return normalizeNumbers(v)
}

func normalizeNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			return i
		}
		f, _ := t.Float64()
		return f
	case []any:
		for i := range t {
			t[i] = normalizeNumbers(t[i])
		}
	case map[string]any:
		for k := range t {
			t[k] = normalizeNumbers(t[k])
		}
	}
	return v
}
