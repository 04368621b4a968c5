// Package render produces the source text of generated problem stubs.
package render

import (
	"bytes"
	"fmt"
	"go/format"
	"path"
	"strings"
	"text/template"
)

// HarnessImport is the import path generated stubs use to reach the problem harness.
const HarnessImport = "github.com/timmy/eulergen/pkg/harness"

// Stub holds the values rendered into one problem file.
type Stub struct {
	ID         int
	ClassName  string
	Bucket     string
	RootImport string
	// Heading is the first documentation line.
	Heading string
	// Doc is the extracted fragment; empty when extraction failed.
	Doc string
}

// Config holds the values rendered into the singleton configuration file.
type Config struct {
	RootImport string
}

var stubTemplate = template.Must(template.New("stub").Parse(`package {{.Bucket}}

import (
	"os"

	"{{.HarnessImport}}"

	root "{{.RootImport}}"
)

{{range .DocLines}}//{{if .}} {{.}}{{end}}
{{end}}type {{.ClassName}} struct{}

// Solve returns the answer to problem {{.ID}}.
func ({{.ClassName}}) Solve() any {
	return nil
}

// Run{{.ClassName}} solves problem {{.ID}} with the root configuration.
func Run{{.ClassName}}() (harness.Result, error) {
	return harness.Start({{.ClassName}}{}, root.Config, os.Stdout)
}
`))

var configTemplate = template.Must(template.New("config").Parse(`package {{.Package}}

import (
	"time"

	"{{.HarnessImport}}"
)

// Config is passed to harness.Start by every generated problem.
var Config = harness.Config{
	// TODO Should copy to clipboard? Currently false.
	CopyToClipboard: false,
	// TODO Finish time unit? Currently milliseconds.
	FinishTimeUnit: time.Millisecond,
}
`))

// Heading returns the documentation heading linking back to the problem page.
func Heading(baseURL string, id int) string {
	return fmt.Sprintf(`<a href="%s/problem=%d"><b>Problem %d</b></a></br>`, strings.TrimSuffix(baseURL, "/"), id, id)
}

// RenderStub returns the formatted source of one problem stub.
// Parameters:
//   - s: stub values; s.Doc may be empty.
//
// Returns:
//   - string: Go source text.
//   - error: non-nil if the template cannot be executed.
func RenderStub(s Stub) (string, error) {
	data := struct {
		Stub
		HarnessImport string
		DocLines      []string
	}{
		Stub:          s,
		HarnessImport: HarnessImport,
		DocLines:      docLines(s),
	}

	var buf bytes.Buffer
	if err := stubTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render stub %s: %w", s.ClassName, err)
	}
	return gofmt(buf.Bytes()), nil
}

// RenderConfig returns the formatted source of the root configuration file.
func RenderConfig(c Config) (string, error) {
	data := struct {
		Package       string
		HarnessImport string
	}{
		Package:       PackageName(c.RootImport),
		HarnessImport: HarnessImport,
	}

	var buf bytes.Buffer
	if err := configTemplate.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render config: %w", err)
	}
	return gofmt(buf.Bytes()), nil
}

// PackageName returns the package clause name for an import path.
func PackageName(importPath string) string {
	return path.Base(strings.TrimSuffix(importPath, "/"))
}

// docLines splits the heading and fragment into comment lines.
func docLines(s Stub) []string {
	lines := []string{
		fmt.Sprintf("%s solves problem %d.", s.ClassName, s.ID),
		"",
		s.Heading,
	}
	if s.Doc == "" {
		return lines
	}
	for _, line := range strings.Split(strings.ReplaceAll(s.Doc, "\r\n", "\n"), "\n") {
		lines = append(lines, strings.TrimRight(line, " \t"))
	}
	return lines
}

// gofmt formats src, keeping the raw text when the fragment confuses the formatter.
func gofmt(src []byte) string {
	formatted, err := format.Source(src)
	if err != nil {
		return string(src)
	}
	return string(formatted)
}
