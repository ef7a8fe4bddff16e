package cmd

import (
	"fmt"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/urfave/cli"
)

// Expand command arguments into a list of files. Arguments may be plain
// paths or glob patterns such as "models/**/*.stl".
func expandFileArgs(args cli.Args) ([]string, error) {
	files := make([]string, 0, len(args))
	for _, arg := range args {
		matches, err := doublestar.FilepathGlob(arg)
		if err != nil {
			return nil, fmt.Errorf("invalid file pattern %q: %w", arg, err)
		}
		if len(matches) == 0 {
			return nil, fmt.Errorf("no files match %q", arg)
		}
		files = append(files, matches...)
	}
	return files, nil
}
