package cli

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootFlagsRegistered(t *testing.T) {
	tests := []struct {
		name      string
		flag      string
		shorthand string
		defValue  string
	}{
		{name: "core targets", flag: "mon-core", shorthand: "m", defValue: "[]"},
		{name: "pid targets", flag: "mon-pid", shorthand: "p", defValue: "[]"},
		{name: "duration", flag: "mon-time", shorthand: "t", defValue: "inf"},
		{name: "interval", flag: "mon-interval", shorthand: "i", defValue: "10"},
		{name: "top mode", flag: "mon-top", shorthand: "T", defValue: "false"},
		{name: "output file", flag: "mon-file", shorthand: "o", defValue: ""},
		{name: "output format", flag: "mon-file-type", shorthand: "u", defValue: "text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := rootCmd.Flags().Lookup(tt.flag)
			require.NotNil(t, f)
			assert.Equal(t, tt.shorthand, f.Shorthand)
			assert.Equal(t, tt.defValue, f.DefValue)
		})
	}
}

func TestSubcommandsRegistered(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	assert.True(t, names["info"])
	assert.True(t, names["version"])
}

func TestFormatVersion(t *testing.T) {
	tests := []struct {
		name    string
		version string
		want    string
	}{
		{name: "dev version unchanged", version: "dev", want: "dev"},
		{name: "empty unchanged", version: "", want: ""},
		{name: "v prefix added", version: "1.2.3", want: "v1.2.3"},
		{name: "existing prefix kept", version: "v1.2.3", want: "v1.2.3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, formatVersion(tt.version))
		})
	}
}

func TestSetVersionInfo(t *testing.T) {
	origV, origC, origD := version, commit, date
	defer SetVersionInfo(origV, origC, origD)

	SetVersionInfo("1.0.0", "abc123", "2026-08-24")
	assert.Equal(t, "1.0.0", GetVersion())
	assert.Equal(t, "abc123", commit)
	assert.Equal(t, "2026-08-24", date)
}
