//go:build !tinygo

// Command mkinitramfs packs a directory into a cpio newc archive the kernel
// can load as its initramfs.
package main

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/cavaliergopher/cpio"
	"github.com/spf13/cobra"
)

const defaultOutPath = "initramfs.cpio"

func newRootCmd() *cobra.Command {
	var outPath string
	var keepTimes bool
	cmd := &cobra.Command{
		Use:   "mkinitramfs <dir>",
		Short: "Pack a directory into a cpio newc initramfs",
		Long: `Walks <dir> and writes its directories and regular files, in sorted
order, to a cpio newc archive. Symlinks and special files are skipped.`,
		Args:         cobra.ExactArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := pack(args[0], outPath, keepTimes)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: %d entries\n", outPath, n)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outPath, "out", "o", defaultOutPath, "Output archive path.")
	cmd.Flags().BoolVar(&keepTimes, "keep-times", false, "Record file modification times (default: zero, for reproducible images).")
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type member struct {
	path string // slash separated, relative to the source root
	host string
	info fs.FileInfo
}

func collect(srcDir string) ([]member, error) {
	srcDir = filepath.Clean(srcDir)
	st, err := os.Stat(srcDir)
	if err != nil {
		return nil, fmt.Errorf("stat src %q: %w", srcDir, err)
	}
	if !st.IsDir() {
		return nil, fmt.Errorf("src %q is not a directory", srcDir)
	}

	var members []member
	walkErr := filepath.WalkDir(srcDir, func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == srcDir {
			return nil
		}
		if !entry.IsDir() && !entry.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(srcDir, path)
		if err != nil {
			return err
		}
		info, err := entry.Info()
		if err != nil {
			return err
		}
		members = append(members, member{path: filepath.ToSlash(rel), host: path, info: info})
		return nil
	})
	if walkErr != nil {
		return nil, fmt.Errorf("walk src %q: %w", srcDir, walkErr)
	}
	sort.Slice(members, func(i, j int) bool { return members[i].path < members[j].path })
	return members, nil
}

func pack(srcDir, outPath string, keepTimes bool) (int, error) {
	members, err := collect(srcDir)
	if err != nil {
		return 0, err
	}

	out, err := os.Create(outPath)
	if err != nil {
		return 0, fmt.Errorf("create %q: %w", outPath, err)
	}
	defer func() { _ = out.Close() }()

	if err := writeArchive(out, members, keepTimes); err != nil {
		return 0, err
	}
	if err := out.Close(); err != nil {
		return 0, fmt.Errorf("close %q: %w", outPath, err)
	}
	return len(members), nil
}

func writeArchive(w io.Writer, members []member, keepTimes bool) error {
	cw := cpio.NewWriter(w)
	for _, m := range members {
		hdr, err := cpio.FileInfoHeader(m.info, "")
		if err != nil {
			return fmt.Errorf("header %q: %w", m.path, err)
		}
		hdr.Name = m.path
		if !keepTimes {
			hdr.ModTime = time.Unix(0, 0)
		}
		if err := cw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("write header %q: %w", m.path, err)
		}
		if m.info.IsDir() {
			continue
		}
		if err := copyFile(cw, m.host); err != nil {
			return err
		}
	}
	if err := cw.Close(); err != nil {
		return fmt.Errorf("write trailer: %w", err)
	}
	return nil
}

func copyFile(w io.Writer, hostPath string) error {
	in, err := os.Open(hostPath)
	if err != nil {
		return fmt.Errorf("open %q: %w", hostPath, err)
	}
	defer func() { _ = in.Close() }()
	if _, err := io.Copy(w, in); err != nil {
		return fmt.Errorf("copy %q: %w", hostPath, err)
	}
	return nil
}
