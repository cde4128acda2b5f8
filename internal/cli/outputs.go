package cli

import (
	"fmt"
	"strconv"

	"github.com/mgpai22/libersonora/internal/output"
	"github.com/spf13/cobra"
)

var outputsCmd = &cobra.Command{
	Use:   "outputs [output_dir]",
	Short: "List the subtitles produced in an output directory",
	Long: `Scan an output directory recursively and show, per basename, which of
the audio copy, SRT and LRC files are present. Useful for checking on a
background batch.

Examples:
  libersonora outputs
  libersonora outputs ./book-subs`,
	Args: cobra.MaximumNArgs(1),
	RunE: runOutputs,
}

func init() {
	rootCmd.AddCommand(outputsCmd)
}

func runOutputs(cmd *cobra.Command, args []string) error {
	dir := "output"
	if len(args) == 1 {
		dir = args[0]
	}

	entries, err := output.Scan(dir)
	if err != nil {
		return err
	}
	w := cmd.OutOrStdout()
	if len(entries) == 0 {
		fmt.Fprintf(w, "No subtitles found in %s\n", dir)
		return nil
	}

	fmt.Fprintln(w, renderTable(
		[]string{"#", "Name", "Audio", "SRT", "LRC"},
		outputRows(entries),
		[]columnAlignment{alignRight, alignLeft, alignCenter, alignCenter, alignCenter},
		shouldColorize(w),
	))
	fmt.Fprintf(w, "%d subtitle set(s)\n", len(entries))
	return nil
}

func outputRows(entries []output.Entry) [][]string {
	rows := make([][]string, len(entries))
	for i, e := range entries {
		rows[i] = []string{
			strconv.Itoa(i + 1),
			e.RelativePath,
			mark(e.HasAudio()),
			mark(e.HasSRT()),
			mark(e.HasLRC()),
		}
	}
	return rows
}

func mark(ok bool) string {
	if ok {
		return "yes"
	}
	return "-"
}
