package main

import (
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"slices"
	"text/tabwriter"

	"github.com/ashureev/fitfusion/internal/agent"
	"github.com/spf13/cobra"
)

var (
	statsPath string
	statsJSON bool
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarise the interaction log",
	Long: `Reads the global interaction log and reports how members use the
assistant: personas, models, prompt styles, tools and loop outcomes.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path := statsPath
		if path == "" {
			path = cfg.ConversationLog.GlobalPath
		}
		stats, err := agent.ReadStatsFile(path)
		if err != nil {
			return err
		}
		if statsJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(stats)
		}
		return printStats(cmd.OutOrStdout(), path, stats)
	},
}

func init() {
	statsCmd.Flags().StringVar(&statsPath, "log", "", "interaction log path (default CONVERSATION_LOG_GLOBAL_PATH)")
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "print as JSON")
}

func printStats(out io.Writer, path string, s agent.Stats) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Log\t%s\n", path)
	fmt.Fprintf(tw, "Interactions\t%d\n", s.TotalInteractions)
	fmt.Fprintf(tw, "Members\t%d\n", s.UniqueUsers)
	fmt.Fprintf(tw, "Avg iterations\t%.2f\n", s.AvgIterations)
	fmt.Fprintf(tw, "Guard warnings\t%d\n", s.GuardWarnings)
	if !s.FirstInteraction.IsZero() {
		fmt.Fprintf(tw, "First\t%s\n", s.FirstInteraction.Format("2006-01-02 15:04"))
		fmt.Fprintf(tw, "Last\t%s\n", s.LastInteraction.Format("2006-01-02 15:04"))
	}
	if s.MalformedLines > 0 {
		fmt.Fprintf(tw, "Malformed lines\t%d\n", s.MalformedLines)
	}
	for _, section := range []struct {
		title  string
		counts map[string]int
	}{
		{"Personas", s.Personas},
		{"Models", s.Models},
		{"Prompt styles", s.PromptStyles},
		{"Outcomes", s.Outcomes},
		{"Tool calls", s.ToolCalls},
	} {
		if len(section.counts) == 0 {
			continue
		}
		fmt.Fprintf(tw, "\n%s\t\n", section.title)
		for _, k := range slices.Sorted(maps.Keys(section.counts)) {
			fmt.Fprintf(tw, "  %s\t%d\n", k, section.counts[k])
		}
	}
	return tw.Flush()
}
