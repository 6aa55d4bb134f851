package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// logRecordPrefix starts every record the logger writes.
const logRecordPrefix = "["

func (a *app) logsCmd() *cobra.Command {
	logsCmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the ghbridge log",
		Long: `Print the most recent log records. Records span several lines when
they carry data or a stack trace; --lines counts records, not lines.

Examples:
  # Show the last 20 records
  ghbridge logs

  # Follow the log while another ghbridge command runs
  ghbridge logs --follow

  # Print the log file location
  ghbridge logs --path
`,
		Args:        cobra.NoArgs,
		Annotations: map[string]string{skipServices: "true"},
		RunE:        a.runLogs,
	}
	logsCmd.Flags().IntP("lines", "n", 20, "number of recent records to show (0 for all)")
	logsCmd.Flags().BoolP("follow", "f", false, "keep printing new records")
	logsCmd.Flags().Bool("path", false, "print the log file path and exit")
	return logsCmd
}

func (a *app) runLogs(cmd *cobra.Command, _ []string) error {
	path, err := logFilePath(a.cfg)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if showPath, _ := flags.GetBool("path"); showPath {
		return a.output(path)
	}
	lines, _ := flags.GetInt("lines")
	follow, _ := flags.GetBool("follow")

	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) && !follow {
			return a.output(fmt.Sprintf("No logs found at %s", path))
		}
		if !os.IsNotExist(err) {
			return errors.Wrapf(err, "open log file %s", path)
		}
	} else {
		defer f.Close()
		records, err := lastRecords(f, lines)
		if err != nil {
			return errors.Wrapf(err, "read log file %s", path)
		}
		for _, r := range records {
			fmt.Fprintln(a.opts.stdout, r)
		}
	}

	if !follow {
		return nil
	}
	var offset int64
	if f != nil {
		if offset, err = f.Seek(0, io.SeekCurrent); err != nil {
			return errors.Wrap(err, "seek log file")
		}
	}
	return followLog(cmd.Context(), path, offset, a.opts.stdout)
}

// lastRecords returns the last n records of r. A record is a line starting
// with "[" plus its continuation lines. n <= 0 returns all records.
func lastRecords(r io.Reader, n int) ([]string, error) {
	var records []string
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, logRecordPrefix) || len(records) == 0 {
			records = append(records, line)
			if n > 0 && len(records) > n {
				records = records[1:]
			}
			continue
		}
		records[len(records)-1] += "\n" + line
	}
	return records, scanner.Err()
}

// followLog copies bytes appended to path after offset until ctx is done.
// Truncation restarts from the beginning of the file.
func followLog(ctx context.Context, path string, offset int64, w io.Writer) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return errors.Wrap(err, "create log watcher")
	}
	defer watcher.Close()

	path = filepath.Clean(path)
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return errors.Wrapf(err, "create log directory %s", dir)
	}
	if err := watcher.Add(dir); err != nil {
		return errors.Wrapf(err, "watch %s", dir)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != path || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				continue
			}
			if offset, err = copyFrom(path, offset, w); err != nil {
				return err
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return errors.Wrap(err, "log watcher")
		}
	}
}

func copyFrom(path string, offset int64, w io.Writer) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return offset, errors.Wrapf(err, "open log file %s", path)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return offset, errors.Wrap(err, "stat log file")
	}
	if info.Size() < offset {
		offset = 0
	}
	if _, err := f.Seek(offset, io.SeekStart); err != nil {
		return offset, errors.Wrap(err, "seek log file")
	}
	n, err := io.Copy(w, f)
	return offset + n, errors.Wrap(err, "copy log records")
}
