package prompt

import (
	"bufio"
	"fmt"
	"os"
	"strings"
)

// sourceSnippet returns numbered lines around line in path, marking the
// failing line with ">". It returns "" when the file cannot be read or
// line is unknown.
func sourceSnippet(path string, line int, context int) string {
	if path == "" || line <= 0 {
		return ""
	}

	file, err := os.Open(path)
	if err != nil {
		return ""
	}
	defer file.Close()

	first := max(1, line-context)
	last := line + context

	var b strings.Builder
	scanner := bufio.NewScanner(file)
	for n := 1; scanner.Scan() && n <= last; n++ {
		if n < first {
			continue
		}
		marker := " "
		if n == line {
			marker = ">"
		}
		fmt.Fprintf(&b, "%s %4d | %s\n", marker, n, scanner.Text())
	}
	return b.String()
}
