package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/rohankatakam/aicodebase/internal/cache"
	"github.com/rohankatakam/aicodebase/internal/errors"
	"github.com/rohankatakam/aicodebase/internal/splitter"
	"github.com/rohankatakam/aicodebase/internal/textnorm"
)

var (
	splitOut        string
	splitCollisions string
)

var splitCmd = &cobra.Command{
	Use:   "split <file>",
	Short: "Show how one exported object is split into members",
	Long: `Split a single exported object and list its members.

With --out, the artifacts the cache would hold are written to <out>/<object>/.

Examples:
  aicodebase split w_main.srw
  aicodebase split n_cst_util.sru --out /tmp/split`,
	Args: cobra.ExactArgs(1),
	RunE: runSplit,
}

func init() {
	splitCmd.Flags().StringVarP(&splitOut, "out", "o", "", "write artifacts below this directory")
	splitCmd.Flags().StringVar(&splitCollisions, "collisions", "", "overwrite or suffix (default from config)")
}

func runSplit(cmd *cobra.Command, args []string) error {
	path := args[0]
	raw, err := os.ReadFile(path)
	if err != nil {
		return errors.FileSystemErrorf(err, "read %s", path)
	}
	text := textnorm.Decode(raw)

	policy := splitter.ParseCollisionPolicy(cfg.Collisions)
	if splitCollisions != "" {
		policy = splitter.ParseCollisionPolicy(splitCollisions)
	}

	s := splitter.New(nil)
	split := s.Split(text)
	w := cmd.OutOrStdout()
	name := splitter.Stem(path)

	fmt.Fprintf(w, "Object: %s (%s)\n", name, textnorm.Detect(raw))
	fmt.Fprintf(w, "Header: %d lines\n", len(split.Header))

	files := map[string]string{cache.HeaderFile: split.HeaderText()}

	if len(split.Members) == 0 {
		body, ok := splitter.ExtractSingleMember(text, s.Dialect())
		if ok {
			fmt.Fprintln(w, "Members: none, single body recovered")
		} else {
			body = text
			fmt.Fprintln(w, "Members: none, object kept verbatim")
		}
		files[cache.FallbackFile] = body
	} else {
		artifacts, collided := split.Artifacts(s.Dialect(), policy)
		fmt.Fprintf(w, "Members: %d\n", len(artifacts))
		for _, a := range artifacts {
			m := a.Member
			note := ""
			switch {
			case m.KindMismatch():
				note = fmt.Sprintf("  (closed by end %s)", m.EndKind)
			case !m.Closed:
				note = "  (not closed)"
			}
			fmt.Fprintf(w, "  %-40s line %-5d %3d lines%s\n", a.Name, m.StartLine+1, len(m.Lines), note)
			files[a.Name] = a.Body
		}
		for _, c := range collided {
			fmt.Fprintf(w, "  warning: several members named %s\n", c)
		}
	}

	if splitOut == "" {
		return nil
	}

	dir := filepath.Join(splitOut, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.FileSystemErrorf(err, "create %s", dir)
	}
	for fname, content := range files {
		if err := os.WriteFile(filepath.Join(dir, fname), []byte(content), 0o644); err != nil {
			return errors.FileSystemErrorf(err, "write %s", fname)
		}
	}
	fmt.Fprintf(w, "Wrote %d files to %s\n", len(files), dir)
	return nil
}
