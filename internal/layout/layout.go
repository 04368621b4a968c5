// Package layout maps problem identifiers to bucket packages, type names and file paths.
package layout

import (
	"fmt"
	"path/filepath"
	"strconv"
)

// idDigits is the zero-padding width of identifiers in type names.
const idDigits = 3

// BucketFor returns the bucket name grouping id with its width-1 neighbours,
// e.g. BucketFor(7, 50, "x") == "x000_049".
// Boundaries are padded to at least three digits, more when width itself is wider.
func BucketFor(id, width int, prefix string) string {
	index := id / width
	lo := index * width
	hi := lo + width - 1
	digits := boundaryDigits(width)
	return fmt.Sprintf("%s%0*d_%0*d", prefix, digits, lo, digits, hi)
}

func boundaryDigits(width int) int {
	if n := len(strconv.Itoa(width)); n > idDigits {
		return n
	}
	return idDigits
}

// ClassName returns the generated type name for id, e.g. ClassName("Euler", 1) == "Euler001".
func ClassName(prefix string, id int) string {
	return fmt.Sprintf("%s%0*d", prefix, idDigits, id)
}

// Paths computes where the artifacts of one destination root live.
type Paths struct {
	Root        string
	BucketWidth int
	Prefix      string
	ClassPrefix string
	Extension   string
}

// Bucket returns the bucket name for id.
func (p Paths) Bucket(id int) string {
	return BucketFor(id, p.BucketWidth, p.Prefix)
}

// StubFile returns <root>/<bucket>/<ClassPrefix><id>.<ext>.
func (p Paths) StubFile(id int) string {
	return filepath.Join(p.Root, p.Bucket(id), ClassName(p.ClassPrefix, id)+"."+p.Extension)
}

// ConfigFile returns the path of the singleton configuration file.
func (p Paths) ConfigFile() string {
	return filepath.Join(p.Root, "eulerconfig."+p.Extension)
}
