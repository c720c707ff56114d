package fetch_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/drkane/docdisplay-backend/pkg/fetch"
)

func date(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func newRegistry(t *testing.T) *fetch.Registry {
	t.Helper()
	r, err := fetch.NewRegistry(fetch.NewSession(), "test-key")
	require.NoError(t, err)
	return r
}

func TestRegistryDispatch(t *testing.T) {
	r := newRegistry(t)

	tests := []struct {
		regno  string
		source string
	}{
		{"SC012345", "oscr"},
		{"GB-SC-012345", "oscr"},
		{"NI100001", "ccni"},
		{"GB-NIC-100001", "ccni"},
		{"123456", "ccew"},
		{"GB-CHC-123456", "ccew"},
		{"not-a-charity", "ccew"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.source, r.SourceFor(tc.regno).Name(), tc.regno)
	}
}

func TestParseFileSize(t *testing.T) {
	tests := []struct {
		in   string
		want int64
	}{
		{"(12,345KB)", 12345 * 1024},
		{"(12,345KiB)", 12345 * 1000},
		{"(500KB)", 500 * 1024},
		{"12345", 12345},
	}
	for _, tc := range tests {
		got, err := fetch.ParseFileSize(tc.in)
		require.NoError(t, err, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}

	_, err := fetch.ParseFileSize("(large)")
	assert.Error(t, err)
}
