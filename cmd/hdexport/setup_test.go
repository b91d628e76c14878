package main

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseKeys(t *testing.T) {
	ids, rejected := parseKeys([]string{
		"1_0101234567_1_C24TAA_123",
		" 0101234567_1_C24TAA_124 ",
		"broken_key",
	})

	require.Len(t, ids, 2)
	assert.Equal(t, "123", ids[0].Number)
	assert.Equal(t, "0101234567", ids[1].SellerTaxID)
	assert.Equal(t, "124", ids[1].Number)
	assert.Equal(t, []string{"broken_key"}, rejected)
}

func TestChangedFlags(t *testing.T) {
	cmd := &cobra.Command{Use: "x", RunE: func(*cobra.Command, []string) error { return nil }}
	cmd.Flags().Bool("print", true, "")
	cmd.Flags().Duration("delay", 0, "")
	cmd.Flags().String("output", "", "")
	cmd.Flags().String("token", "", "")
	require.NoError(t, cmd.ParseFlags([]string{"--print=false", "--delay", "1s", "--output", "out"}))

	got := changedFlags(cmd, "print", "delay", "output", "token", "missing")

	assert.Equal(t, map[string]interface{}{
		"print":  false,
		"delay":  time.Second,
		"output": "out",
	}, got)
}

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"crawl", "fetch", "print", "token", "serve", "config"} {
		assert.True(t, names[want], want)
	}
}
