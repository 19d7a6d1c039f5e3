package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/tliron/commonlog"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/smallrye/jdk-classfile-backport/classfile"
)

var remapLog = commonlog.GetLogger("classtool.remap")

// remapRules is the on-disk rule file. Class names are in internal form
// (slash-separated), matching what javap and most mapping files use.
type remapRules struct {
	Classes map[string]string `yaml:"classes"`
}

func newRemapCmd() *cobra.Command {
	var rulesPath string
	var outDir string
	var maxParallel int

	cmd := &cobra.Command{
		Use:   "remap <file>...",
		Short: "Rewrite class references according to a rule file",
		Long: `Remap rewrites every class reference in each input file according to a
YAML rule file and writes the result to the output directory:

    classes:
      com/example/Old: com/example/New
      com/example/Old$Inner: com/example/New$Inner

References are rewritten everywhere they occur: the class header,
descriptors, signatures, bytecode operands, annotations, and stack maps.
Inner classes need their own rules; nesting is not inferred.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			remapper, err := loadRemapRules(rulesPath)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(outDir, 0755); err != nil {
				return fmt.Errorf("create %s: %w", outDir, err)
			}

			var eg errgroup.Group
			eg.SetLimit(maxParallel)
			for _, name := range args {
				eg.Go(func() error {
					return remapFile(name, filepath.Join(outDir, filepath.Base(name)), remapper)
				})
			}
			return eg.Wait()
		},
	}

	cmd.Flags().StringVarP(&rulesPath, "rules", "r", "", "YAML rule file (required)")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "output directory (required)")
	cmd.Flags().IntVarP(&maxParallel, "jobs", "j", 4, "number of files remapped in parallel")
	cmd.MarkFlagRequired("rules")
	cmd.MarkFlagRequired("out")

	return cmd
}

func loadRemapRules(path string) (*classfile.Remapper, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule file: %w", err)
	}
	var rules remapRules
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return nil, fmt.Errorf("parse rule file %s: %w", path, err)
	}
	if len(rules.Classes) == 0 {
		return nil, fmt.Errorf("rule file %s maps no classes", path)
	}
	table := make(map[classfile.ClassDesc]classfile.ClassDesc, len(rules.Classes))
	for from, to := range rules.Classes {
		table[classfile.ClassDescOfInternal(from)] = classfile.ClassDescOfInternal(to)
	}
	return classfile.NewTableRemapper(table), nil
}

func remapFile(in, out string, r *classfile.Remapper) error {
	data, err := os.ReadFile(in)
	if err != nil {
		return fmt.Errorf("read class file: %w", err)
	}
	model, err := classfile.Parse(data)
	if err != nil {
		return fmt.Errorf("parse %s: %w", in, err)
	}
	rewritten, err := classfile.RemapClass(model, r)
	if err != nil {
		return fmt.Errorf("remap %s: %w", in, err)
	}
	if err := os.WriteFile(out, rewritten, 0644); err != nil {
		return fmt.Errorf("write %s: %w", out, err)
	}
	remapLog.Infof("%s -> %s", in, out)
	return nil
}
