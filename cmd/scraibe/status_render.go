package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/mattn/go-isatty"

	"scraibe/internal/api"
	"scraibe/internal/queue"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 20
	statusIndent     = "  "
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := "[" + statusKindLabel(kind) + "]"
	if message != "" {
		statusText += " " + message
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// renderStatus writes the human-readable status report.
func renderStatus(w io.Writer, status api.DaemonStatus, colorize bool) {
	section := func(title string) {
		for _, line := range renderSectionHeader(title, colorize) {
			fmt.Fprintln(w, line)
		}
	}

	section("Daemon")
	if status.Running {
		fmt.Fprintln(w, renderStatusLine("Daemon", statusOK, fmt.Sprintf("Running (pid %d)", status.PID), colorize))
	} else {
		fmt.Fprintln(w, renderStatusLine("Daemon", statusWarn, "Not running", colorize))
	}
	fmt.Fprintln(w, renderStatusLine("Socket", statusInfo, status.SocketPath, colorize))
	fmt.Fprintln(w, renderStatusLine("Workers", statusInfo, workerSummary(status.Queue), colorize))
	fmt.Fprintln(w)

	section("Dependencies")
	for _, dep := range status.Dependencies {
		if dep.Available {
			fmt.Fprintln(w, renderStatusLine(dep.Name, statusOK, "Ready (command: "+dep.Command+")", colorize))
			continue
		}
		fmt.Fprintln(w, renderStatusLine(dep.Name, statusError, dep.Detail, colorize))
	}
	fmt.Fprintln(w)

	section("Queue")
	fmt.Fprint(w, renderTable(
		[]string{"Status", "Count"},
		queueStatusRows(status.Queue),
		[]columnAlignment{alignLeft, alignRight},
	))
	fmt.Fprintf(w, "Submitted %d, completed %d, failed %d\n", status.Queue.Submitted, status.Queue.Completed, status.Queue.Failed)

	if len(status.Active) > 0 {
		fmt.Fprintln(w)
		section("Active Jobs")
		fmt.Fprint(w, renderJobTable(status.Active))
	}
	if len(status.Recent) > 0 {
		fmt.Fprintln(w)
		section("Recent Jobs")
		fmt.Fprint(w, renderJobTable(api.SortJobsNewestFirst(status.Recent)))
	}
}

func workerSummary(q api.QueueStatus) string {
	return fmt.Sprintf("%d/%d busy, %d waiting for a slot", q.InUse, q.Capacity, q.Waiting)
}

func queueStatusRows(q api.QueueStatus) [][]string {
	var rows [][]string
	for _, status := range queue.AllStatuses() {
		if status.IsTerminal() {
			continue
		}
		rows = append(rows, []string{string(status), strconv.Itoa(q.ByStatus[string(status)])})
	}
	rows = append(rows, []string{"depth", strconv.FormatInt(q.Depth, 10)})
	return rows
}

func renderJobTable(items []api.JobItem) string {
	table := make([][]string, 0, len(items))
	for _, item := range items {
		table = append(table, []string{
			shortID(item.ID),
			item.Task,
			item.Receiver,
			item.Status,
			formatElapsed(item.ElapsedMs),
		})
	}
	return renderTable(
		[]string{"ID", "Task", "Receiver", "Status", "Elapsed"},
		table,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
	)
}

func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return id[:i]
	}
	return id
}

func formatElapsed(ms int64) string {
	if ms <= 0 {
		return "-"
	}
	return (time.Duration(ms) * time.Millisecond).Round(time.Second).String()
}
