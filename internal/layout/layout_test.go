package layout

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBucketFor(t *testing.T) {
	tests := []struct {
		id     int
		width  int
		prefix string
		want   string
	}{
		{0, 50, "x", "x000_049"},
		{1, 50, "x", "x000_049"},
		{49, 50, "x", "x000_049"},
		{50, 50, "x", "x050_099"},
		{167, 50, "x", "x150_199"},
		{1000, 50, "x", "x1000_1049"},
		{5, 10, "p", "p000_009"},
		{12345, 1000, "b", "b12000_12999"},
		{42, 1000, "b", "b0000_0999"},
	}

	for _, tc := range tests {
		t.Run(fmt.Sprintf("%d_%d", tc.id, tc.width), func(t *testing.T) {
			assert.Equal(t, tc.want, BucketFor(tc.id, tc.width, tc.prefix))
		})
	}
}

func TestBucketFor_ContainsIdentifier(t *testing.T) {
	for _, width := range []int{1, 7, 50, 100, 1000} {
		for id := 0; id < 2500; id += 13 {
			name := BucketFor(id, width, "x")
			require.Equal(t, name, BucketFor(id, width, "x"), "bucket must be deterministic")

			bounds := strings.Split(strings.TrimPrefix(name, "x"), "_")
			require.Len(t, bounds, 2, name)
			lo, err := strconv.Atoi(bounds[0])
			require.NoError(t, err, name)
			hi, err := strconv.Atoi(bounds[1])
			require.NoError(t, err, name)
			assert.LessOrEqual(t, lo, id, name)
			assert.GreaterOrEqual(t, hi, id, name)
			assert.Equal(t, width-1, hi-lo, name)
		}
	}
}

func TestClassName(t *testing.T) {
	assert.Equal(t, "Euler001", ClassName("Euler", 1))
	assert.Equal(t, "Euler167", ClassName("Euler", 167))
	assert.Equal(t, "P1234", ClassName("P", 1234))
}

func TestPaths(t *testing.T) {
	p := Paths{Root: "/tmp/out", BucketWidth: 50, Prefix: "x", ClassPrefix: "Euler", Extension: "go"}

	assert.Equal(t, filepath.Join("/tmp/out", "x050_099", "Euler067.go"), p.StubFile(67))
	assert.Equal(t, filepath.Join("/tmp/out", "eulerconfig.go"), p.ConfigFile())
	assert.Equal(t, "x050_099", p.Bucket(67))
}
