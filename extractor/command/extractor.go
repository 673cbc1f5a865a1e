// Package command extracts text by running an external program, such as an
// OCR tool, on a temporary copy of the document. The literal argument {file}
// is replaced by the copy's path and the program's stdout is the text.
package command

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/w-h-a/doclens/extractor"
)

const placeholder = "{file}"

type commandExtractor struct {
	name string
	args []string
}

func (e *commandExtractor) Extract(ctx context.Context, name string, data []byte) (extractor.Result, error) {
	dir, err := os.MkdirTemp("", "doclens-extract-*")
	if err != nil {
		return extractor.Result{}, err
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "input"+filepath.Ext(name))
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return extractor.Result{}, err
	}

	args := make([]string, len(e.args))
	for i, arg := range e.args {
		args[i] = strings.ReplaceAll(arg, placeholder, path)
	}

	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, e.name, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return extractor.Result{}, fmt.Errorf("%s: %w: %s", e.name, err, strings.TrimSpace(stderr.String()))
	}

	method := "command:" + filepath.Base(e.name)

	text := stdout.String()
	if len(strings.TrimSpace(text)) == 0 {
		return extractor.Result{Method: method}, extractor.ErrEmpty
	}

	return extractor.Result{
		Text:   text,
		Method: method,
	}, nil
}

// NewExtractor parses line as a program followed by its arguments, e.g.
// "tesseract {file} stdout".
func NewExtractor(line string) extractor.Extractor {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		panic("command extractor needs a program")
	}

	return &commandExtractor{
		name: fields[0],
		args: fields[1:],
	}
}
