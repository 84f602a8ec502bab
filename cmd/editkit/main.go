package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/kvit-s/editkit/internal/config"
	"github.com/kvit-s/editkit/internal/edit"
	"github.com/kvit-s/editkit/internal/logging"
)

// Version info set by ldflags at build time
var (
	version    = "dev"
	commitHash = "dev"
)

// descriptor is the JSON edit descriptor accepted on stdin or from a file
type descriptor struct {
	Path    string `json:"path"`
	Mode    string `json:"mode,omitempty"`
	Replace *struct {
		OldText string `json:"old_text"`
		NewText string `json:"new_text"`
		All     bool   `json:"all,omitempty"`
	} `json:"replace,omitempty"`
	Patch *struct {
		Op     string `json:"op,omitempty"`
		Rename string `json:"rename,omitempty"`
		Diff   string `json:"diff,omitempty"`
	} `json:"patch,omitempty"`
	Hashline []hashlineEdit `json:"hashline,omitempty"`
}

type hashlineEdit struct {
	ReplaceLine *struct {
		Loc     string `json:"loc"`
		Content string `json:"content"`
	} `json:"replace_line,omitempty"`
	ReplaceLines *struct {
		Start   string `json:"start"`
		End     string `json:"end"`
		Content string `json:"content"`
	} `json:"replace_lines,omitempty"`
	InsertAfter *struct {
		Loc     string `json:"loc"`
		Content string `json:"content"`
	} `json:"insert_after,omitempty"`
}

func main() {
	configPath := flag.String("config", "", "path to editkit.yaml (optional)")
	descriptorPath := flag.String("edit", "-", "edit descriptor JSON file, or - for stdin")
	hashPath := flag.String("hash", "", "print a file in LINE:HASH| display format and exit")
	noColor := flag.Bool("no-color", false, "disable colored diff output")
	showVersion := flag.Bool("version", false, "show version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("editkit %s (%s)\n", version, commitHash)
		return
	}
	if *noColor {
		color.NoColor = true
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fatal(err)
	}
	logger, err := logging.New(cfg.Log)
	if err != nil {
		fatal(err)
	}
	defer logger.Sync()

	if *hashPath != "" {
		content, err := os.ReadFile(*hashPath)
		if err != nil {
			fatal(err)
		}
		fmt.Println(edit.FormatLines(string(content)))
		return
	}

	req, err := readDescriptor(*descriptorPath)
	if err != nil {
		fatal(err)
	}

	engine := edit.New(edit.OSFS{}, cfg, edit.WithLogger(logger))
	result, err := engine.Apply(context.Background(), req)
	if err != nil {
		logger.Debug("edit failed", zap.String("path", req.Path), zap.Error(err))
		fmt.Fprintln(os.Stderr, edit.FormatError(err))
		os.Exit(1)
	}

	fmt.Println(result.Summary)
	for _, w := range result.Warnings {
		color.Yellow("warning: %s", w)
	}
	printDiff(result.Diff)

	if result.FirstChangedLine > 0 {
		if content, err := os.ReadFile(req.Path); err == nil {
			fmt.Println()
			fmt.Println(edit.PostEditContext(string(content), result.FirstChangedLine, result.FirstChangedLine))
		}
	}
}

func readDescriptor(path string) (edit.Request, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return edit.Request{}, fmt.Errorf("read descriptor: %w", err)
	}

	var d descriptor
	if err := json.Unmarshal(data, &d); err != nil {
		return edit.Request{}, fmt.Errorf("parse descriptor: %w", err)
	}
	return buildRequest(d)
}

func buildRequest(d descriptor) (edit.Request, error) {
	req := edit.Request{Path: d.Path, Mode: edit.Mode(d.Mode)}

	if d.Replace != nil {
		req.Replace = &edit.ReplaceEdit{
			OldText: d.Replace.OldText,
			NewText: d.Replace.NewText,
			All:     d.Replace.All,
		}
	}
	if d.Patch != nil {
		req.Patch = &edit.PatchEdit{Op: d.Patch.Op, Rename: d.Patch.Rename, Diff: d.Patch.Diff}
	}
	for i, he := range d.Hashline {
		converted, err := convertHashlineEdit(he)
		if err != nil {
			return edit.Request{}, fmt.Errorf("hashline edit %d: %w", i+1, err)
		}
		req.Hashline = append(req.Hashline, converted)
	}
	return req, nil
}

func convertHashlineEdit(he hashlineEdit) (edit.HashlineEdit, error) {
	switch {
	case he.ReplaceLine != nil:
		loc, err := edit.ParseLineRef(he.ReplaceLine.Loc)
		if err != nil {
			return edit.HashlineEdit{}, err
		}
		return edit.HashlineEdit{Kind: edit.HashlineReplaceLine, Start: loc, Content: he.ReplaceLine.Content}, nil
	case he.ReplaceLines != nil:
		start, err := edit.ParseLineRef(he.ReplaceLines.Start)
		if err != nil {
			return edit.HashlineEdit{}, err
		}
		end, err := edit.ParseLineRef(he.ReplaceLines.End)
		if err != nil {
			return edit.HashlineEdit{}, err
		}
		return edit.HashlineEdit{Kind: edit.HashlineReplaceLines, Start: start, End: end, Content: he.ReplaceLines.Content}, nil
	case he.InsertAfter != nil:
		loc, err := edit.ParseLineRef(he.InsertAfter.Loc)
		if err != nil {
			return edit.HashlineEdit{}, err
		}
		return edit.HashlineEdit{Kind: edit.HashlineInsertAfter, Start: loc, Content: he.InsertAfter.Content}, nil
	default:
		return edit.HashlineEdit{}, fmt.Errorf("expected replace_line, replace_lines or insert_after")
	}
}

func printDiff(diff string) {
	if diff == "" {
		return
	}
	for _, line := range strings.Split(strings.TrimSuffix(diff, "\n"), "\n") {
		switch {
		case strings.HasPrefix(line, "+"):
			color.Green("%s", line)
		case strings.HasPrefix(line, "-"):
			color.Red("%s", line)
		case strings.HasPrefix(line, "@@"):
			color.Cyan("%s", line)
		default:
			fmt.Println(line)
		}
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "editkit:", err)
	os.Exit(1)
}
