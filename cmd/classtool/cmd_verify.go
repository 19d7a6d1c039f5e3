package main

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	"golang.org/x/sync/errgroup"

	"github.com/smallrye/jdk-classfile-backport/classfile"
)

var verifyLog = commonlog.GetLogger("classtool.verify")

func newVerifyCmd() *cobra.Command {
	var maxParallel int

	cmd := &cobra.Command{
		Use:   "verify <file>...",
		Short: "Check class files for structural problems",
		Long: `Verify parses each class file and runs structural checks over it:
constant pool consistency, name and descriptor well-formedness, attribute
sizes, and member rules. All findings are reported; the exit status is
non-zero if any file has findings.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			findings, err := verifyFiles(args, maxParallel)
			if err != nil {
				return err
			}
			total := 0
			for _, name := range args {
				for _, msg := range findings[name] {
					fmt.Printf("%s: %s\n", name, msg)
					total++
				}
			}
			if total > 0 {
				return fmt.Errorf("%d finding(s) in %d file(s)", total, len(findings))
			}
			verifyLog.Infof("%d file(s) verified clean", len(args))
			return nil
		},
	}

	cmd.Flags().IntVarP(&maxParallel, "jobs", "j", 4, "number of files verified in parallel")

	return cmd
}

// verifyFiles checks every file and collects findings keyed by file name.
// Unreadable or unparseable files count as a single finding.
func verifyFiles(names []string, maxParallel int) (map[string][]string, error) {
	var mu sync.Mutex
	findings := make(map[string][]string)
	record := func(name string, msgs ...string) {
		mu.Lock()
		findings[name] = append(findings[name], msgs...)
		mu.Unlock()
	}

	var eg errgroup.Group
	eg.SetLimit(maxParallel)
	for _, name := range names {
		eg.Go(func() error {
			data, err := os.ReadFile(name)
			if err != nil {
				record(name, err.Error())
				return nil
			}
			model, err := classfile.Parse(data)
			if err != nil {
				record(name, err.Error())
				return nil
			}
			diags := classfile.Verify(model)
			if len(diags) == 0 {
				verifyLog.Debugf("%s: ok", name)
				return nil
			}
			msgs := make([]string, 0, len(diags))
			for _, d := range diags {
				msgs = append(msgs, d.Error())
			}
			sort.Strings(msgs)
			record(name, msgs...)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return findings, nil
}
